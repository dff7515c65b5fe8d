package model

import (
	"fmt"
	"time"
)

// DateLayout is the fixed textual pattern sellers declare availability under.
// Availability matching is by exact string equality of this key, so Date is
// kept as the normalized string rather than a time.Time (no timezone drift).
const DateLayout = "02-01-2006"

type Date string

// ParseDate validates raw against DateLayout and re-formats it, guaranteeing
// the value round-trips byte for byte.
func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return "", fmt.Errorf("invalid date %q (want DD-MM-YYYY): %w", raw, err)
	}
	return Date(t.Format(DateLayout)), nil
}

func (d Date) String() string {
	return string(d)
}

// Time returns the calendar day anchored at midnight UTC.
func (d Date) Time() time.Time {
	t, _ := time.Parse(DateLayout, string(d))
	return t
}

// Before compares calendar days.
func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

// Today is the server-side UTC calendar day. Past-date checks use this
// anchor regardless of any client-local filtering.
func Today(now time.Time) Date {
	return Date(now.UTC().Format(DateLayout))
}
