package model

import (
	"strings"
	"time"
)

// visitLayouts are the shapes last_visit_date has been written in over time.
var visitLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseVisitDate parses a stored last-visit value. Strings without a zone are
// taken as UTC. ok is false for anything unrecognised, which callers treat as
// "never visited".
func ParseVisitDate(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range visitLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}
