package extractor

import (
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/use-agent/regionscope/models"
)

// Strategy is one way of pulling a field value out of a snapshot.
// It reports false when it found nothing usable.
type Strategy interface {
	extract(d *document) (string, bool)
}

// selectorStrategy returns the text of the first element matched by the
// first selector that yields non-empty, non-placeholder text.
type selectorStrategy struct {
	sels []cascadia.Selector
}

// Selectors builds a strategy trying each CSS selector in order.
// It panics on an invalid selector; selectors are compile-time constants.
func Selectors(selectors ...string) Strategy {
	s := selectorStrategy{sels: make([]cascadia.Selector, 0, len(selectors))}
	for _, raw := range selectors {
		s.sels = append(s.sels, cascadia.MustCompile(raw))
	}
	return s
}

func (s selectorStrategy) extract(d *document) (string, bool) {
	if d.doc == nil {
		return "", false
	}
	for _, sel := range s.sels {
		match := d.doc.FindMatcher(sel).First()
		if match.Length() == 0 {
			continue
		}
		text := strings.TrimSpace(match.Text())
		if text != "" && text != models.Placeholder {
			return text, true
		}
	}
	return "", false
}

// patternStrategy returns the first capture group of a regular expression
// matched against the snapshot text.
type patternStrategy struct {
	re *regexp.Regexp
}

// Pattern builds a strategy from a regular expression with one capture
// group.
func Pattern(expr string) Strategy {
	return patternStrategy{re: regexp.MustCompile(expr)}
}

func (p patternStrategy) extract(d *document) (string, bool) {
	m := p.re.FindStringSubmatch(d.text)
	if len(m) < 2 {
		return "", false
	}
	v := strings.TrimSpace(m[1])
	return v, v != ""
}

// firstOf runs strategies in order and returns the first hit.
func firstOf(d *document, strategies []Strategy) (string, bool) {
	for _, s := range strategies {
		if v, ok := s.extract(d); ok {
			return v, true
		}
	}
	return "", false
}
