package models

// Sentinel values standing in for fields the lookup site did not render.
// They are distinct per category so callers can tell "not available" from
// "unknown".
const (
	SentinelNotApplicable = "N/A"
	SentinelNotAvailable  = "Not available"
	SentinelUnknown       = "Unknown"

	// Placeholder is what the lookup site shows in empty result slots.
	Placeholder = "-"
)

// RegionRecord holds the profile fields extracted from the lookup site.
// After extraction no field is empty except CountryCode.
type RegionRecord struct {
	Nickname    string `json:"nickname"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	Region      string `json:"region"`
	Language    string `json:"language"`
	Followers   string `json:"followers"`
	Following   string `json:"following"`
	Likes       string `json:"likes"`
	UserID      string `json:"userId"`
}

// WithSentinels returns a copy of r where every empty field is replaced by
// its documented sentinel. CountryCode stays empty when unknown.
func (r RegionRecord) WithSentinels() RegionRecord {
	r.Nickname = orDefault(r.Nickname, SentinelNotApplicable)
	r.Country = orDefault(r.Country, SentinelNotAvailable)
	r.Region = orDefault(r.Region, SentinelNotAvailable)
	r.Language = orDefault(r.Language, SentinelUnknown)
	r.Followers = orDefault(r.Followers, SentinelNotApplicable)
	r.Following = orDefault(r.Following, SentinelNotApplicable)
	r.Likes = orDefault(r.Likes, SentinelNotApplicable)
	r.UserID = orDefault(r.UserID, SentinelNotApplicable)
	return r
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
