// Package extractor turns a rendered lookup-site page into a RegionRecord.
//
// Every field is extracted with an ordered list of strategies: element
// selectors first (specific id, then class fallback), then a label pattern
// over the page text. The first strategy producing a usable value wins.
package extractor

import (
	"regexp"
	"strings"

	"github.com/use-agent/regionscope/models"
)

// Field binds a record field to its extraction strategies.
type Field struct {
	Name       string
	Strategies []Strategy
	set        func(r *models.RegionRecord, v string)
}

var nicknameSelectors = Selectors("#resultNickname", ".result-nickname")

// Fields is the extraction table for the lookup site's result panel.
var Fields = []Field{
	{
		Name:       "nickname",
		Strategies: []Strategy{nicknameSelectors, Pattern(`(?i)Nickname[:\s]+([^\n]+)`)},
		set:        func(r *models.RegionRecord, v string) { r.Nickname = v },
	},
	{
		Name:       "region",
		Strategies: []Strategy{Selectors("#resultRegion", ".result-region"), Pattern(`(?i)Region:\s*([^\n]+)`)},
		set:        func(r *models.RegionRecord, v string) { r.Region = v },
	},
	{
		Name:       "language",
		Strategies: []Strategy{Selectors("#resultLanguage", ".result-language"), Pattern(`(?i)Language:\s*([^\n]+)`)},
		set:        func(r *models.RegionRecord, v string) { r.Language = v },
	},
	{
		Name:       "followers",
		Strategies: []Strategy{Selectors("#resultFollowers", ".result-followers"), Pattern(`(?i)Followers[:\s]+([0-9,KMB.]+)`)},
		set:        func(r *models.RegionRecord, v string) { r.Followers = v },
	},
	{
		Name:       "following",
		Strategies: []Strategy{Selectors("#resultFollowing", ".result-following"), Pattern(`(?i)Following[:\s]+([0-9,KMB.]+)`)},
		set:        func(r *models.RegionRecord, v string) { r.Following = v },
	},
	{
		Name:       "likes",
		Strategies: []Strategy{Selectors("#resultHearts", "#resultLikes", ".result-hearts"), Pattern(`(?i)(?:Hearts|Likes)[:\s]+([0-9,KMB.]+)`)},
		set:        func(r *models.RegionRecord, v string) { r.Likes = v },
	},
	{
		Name:       "userId",
		Strategies: []Strategy{Selectors("#resultUserId", "#resultID", ".result-userid"), Pattern(`(?i)User\s*ID[:\s]+([0-9]+)`)},
		set:        func(r *models.RegionRecord, v string) { r.UserID = v },
	},
}

// Extract runs every field's strategies against the snapshot.
//
// The returned record has sentinels in place of missing values. The bool
// reports whether the page carried usable data, i.e. a nickname that is not
// the site's placeholder.
func Extract(s Snapshot) (models.RegionRecord, bool) {
	d := parse(s)

	var rec models.RegionRecord
	for _, f := range Fields {
		if v, ok := firstOf(d, f.Strategies); ok {
			f.set(&rec, v)
		}
	}
	if rec.Region != "" {
		rec.Country, rec.CountryCode = ParseRegion(rec.Region)
	}

	hasData := rec.Nickname != "" && rec.Nickname != models.Placeholder
	return rec.WithSentinels(), hasData
}

var (
	reRegionWithCode = regexp.MustCompile(`^(.+?)\s*\(([A-Z]{2})\)\s*$`)
	reRegionCode     = regexp.MustCompile(`^([A-Z]{2})$`)
)

// ParseRegion splits a region string into country name and two-letter code.
//
//	"United States (US)" -> ("United States", "US")
//	"US"                 -> ("US", "US")
//	"Somewhere"          -> ("Somewhere", "")
func ParseRegion(region string) (country, code string) {
	if m := reRegionWithCode.FindStringSubmatch(region); m != nil {
		return strings.TrimSpace(m[1]), m[2]
	}
	if m := reRegionCode.FindStringSubmatch(region); m != nil {
		return m[1], m[1]
	}
	return region, ""
}

var reRegionPopulated = regexp.MustCompile(`Region:\s*[A-Z]`)

// ResultReady reports whether the result panel looks populated: either a
// "Region:" label followed by an uppercase letter, or a nickname element
// holding real text.
func ResultReady(s Snapshot) bool {
	text := s.Text
	if text == "" {
		text = VisibleText(s.HTML)
	}
	if reRegionPopulated.MatchString(text) {
		return true
	}
	_, ok := nicknameSelectors.extract(parse(Snapshot{HTML: s.HTML, Text: text}))
	return ok
}
