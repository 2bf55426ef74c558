package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Snapshot is the state of a rendered page at one instant.
type Snapshot struct {
	// HTML is the serialized DOM.
	HTML string

	// Text is the rendered innerText of <body>. When empty it is derived
	// from HTML.
	Text string
}

// document is a parsed snapshot shared by all strategies of one extraction.
type document struct {
	doc  *goquery.Document
	text string
}

func parse(s Snapshot) *document {
	d := &document{text: s.Text}
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.HTML)); err == nil {
		d.doc = doc
	}
	if d.text == "" {
		d.text = VisibleText(s.HTML)
	}
	return d
}

// blockTags end a line when rendered, so label patterns anchored on "\n"
// still work against text derived from markup.
var blockTags = map[string]struct{}{
	"p": {}, "div": {}, "br": {}, "li": {}, "tr": {}, "section": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"td": {}, "dd": {}, "dt": {}, "ul": {}, "table": {},
}

// VisibleText approximates innerText: text inside <body>, skipping
// script/style/noscript, with a newline at every block boundary.
func VisibleText(rawHTML string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(rawHTML))
	var lines []string
	var cur strings.Builder
	inBody := false
	skipDepth := 0

	flush := func() {
		if line := strings.TrimSpace(cur.String()); line != "" {
			lines = append(lines, line)
		}
		cur.Reset()
	}

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			flush()
			return strings.Join(lines, "\n")
		case html.StartTagToken, html.SelfClosingTagToken:
			tn, _ := tokenizer.TagName()
			tag := string(tn)
			if tag == "body" {
				inBody = true
			}
			if tag == "script" || tag == "style" || tag == "noscript" {
				if tt == html.StartTagToken {
					skipDepth++
				}
				continue
			}
			if _, ok := blockTags[tag]; ok {
				flush()
			}
		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			tag := string(tn)
			if tag == "script" || tag == "style" || tag == "noscript" {
				if skipDepth > 0 {
					skipDepth--
				}
				continue
			}
			if _, ok := blockTags[tag]; ok {
				flush()
			}
		case html.TextToken:
			if inBody && skipDepth == 0 {
				text := strings.Join(strings.Fields(string(tokenizer.Text())), " ")
				if text != "" {
					if cur.Len() > 0 {
						cur.WriteByte(' ')
					}
					cur.WriteString(text)
				}
			}
		}
	}
}
