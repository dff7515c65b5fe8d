package availability

import (
	"fmt"
	"time"
)

// TokenLayout is the time-of-day form of a slot start, e.g. "14:00".
const TokenLayout = "15:04"

// SlotDuration is fixed by policy: every viewing is one hour, one slot per booking.
const SlotDuration = time.Hour

// OpenSlots returns the declared slot tokens that are not occupied, in the
// seller's declared (chronological) order.
//
// Matching is exact string equality of the time-of-day token: slot granularity
// equals booking duration, so no interval overlap math is needed. An empty
// declaration yields an empty result, never an error.
func OpenSlots(declared []string, occupied []string) []string {
	slots := make([]string, 0, len(declared))
	if len(declared) == 0 {
		return slots
	}

	taken := make(map[string]struct{}, len(occupied))
	for _, tok := range occupied {
		taken[tok] = struct{}{}
	}

	for _, tok := range declared {
		if _, ok := taken[tok]; ok {
			continue
		}
		slots = append(slots, tok)
	}
	return slots
}

// NormalizeToken validates a slot token and re-formats it so that declared and
// requested tokens compare equal byte for byte ("9:00" becomes "09:00").
func NormalizeToken(raw string) (string, error) {
	t, err := time.Parse(TokenLayout, raw)
	if err != nil {
		return "", fmt.Errorf("invalid slot time %q (want HH:MM): %w", raw, err)
	}
	return t.Format(TokenLayout), nil
}

// EndToken returns the token one SlotDuration after start.
func EndToken(start string) string {
	t, err := time.Parse(TokenLayout, start)
	if err != nil {
		return start
	}
	return t.Add(SlotDuration).Format(TokenLayout)
}
