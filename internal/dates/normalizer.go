// Package dates normalizes the date strings found in article markup into
// timestamps. Normalize is total: input that matches nothing resolves to the
// current time rather than an error.
package dates

import (
	"strings"
	"time"

	"github.com/mediapulse/article-crawler/internal/crawler"
)

// layouts are tried in order; the first successful parse wins. Day-first
// 02/01/2006 is tried before month-first 01/02/2006, so ambiguous slash
// dates resolve day-first. That misparses US-style dates below the 13th of
// a month; a known limitation of format guessing without locale data.
var layouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
}

// isoLayouts cover timestamps containing a literal "T". Values from
// article:published_time meta tags frequently omit the zone offset.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// Normalizer parses heterogeneous date strings with a clock fallback.
type Normalizer struct {
	clock crawler.Clock
}

// New builds a Normalizer around the given clock.
func New(clock crawler.Clock) *Normalizer {
	return &Normalizer{clock: clock}
}

// Normalize resolves text to a timestamp. Empty or unparseable input yields
// the current time.
func (n *Normalizer) Normalize(text string) time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return n.clock.Now()
	}
	// A "T" marks the value as ISO-shaped; the plain layouts never apply,
	// so a miss here resolves straight to now.
	if strings.Contains(text, "T") {
		for _, layout := range isoLayouts {
			if ts, err := time.Parse(layout, text); err == nil {
				return ts
			}
		}
		return n.clock.Now()
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, text); err == nil {
			return ts
		}
	}
	return n.clock.Now()
}
