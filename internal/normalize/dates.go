package normalize

import (
	"strings"
	"time"
)

// Date layouts tried in order. RFC3339 first since API and feed sources emit
// it, then ISO dates, then the US numeric and written forms county portals
// favor, then day-first forms.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006 3:04 PM",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"Jan. 2, 2006",
	"02-Jan-2006",
	"2 January 2006",
}

// Labels portals prefix onto date cells.
var dateLabelPrefixes = []string{"due:", "due date:", "closes:", "closing:", "deadline:", "posted:", "posted on:"}

// ParseDate resolves a raw date string against the documented layout fallback
// order. Returns nil when no layout matches.
func ParseDate(raw string) *time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	lower := strings.ToLower(s)
	for _, prefix := range dateLabelPrefixes {
		if strings.HasPrefix(lower, prefix) {
			s = strings.TrimSpace(s[len(prefix):])
			break
		}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
