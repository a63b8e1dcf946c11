package timing

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatBBT renders a non-negative canonical tick as "bar.beat.tick" with
// 1-based bar and beat and the 0-based tick remainder. Negative ticks clamp
// to "1.1.0".
func FormatBBT(tick int64, ppq, beatsPerBar int) string {
	bar, beat, rem := decomposeTicks(tick, ppq, beatsPerBar)
	return fmt.Sprintf("%d.%d.%d", bar, beat, rem)
}

// ParseBBT parses "bar.beat.tick" (or "bar:beat:tick") back into a tick.
// Partial forms are accepted: "3" is bar 3, "3.2" is bar 3 beat 2. Beat
// overflow past beatsPerBar and tick overflow past ppq are normalized by
// carrying into the higher unit, never rejected. Malformed input returns
// ok=false and never panics; callers treat that as "no change".
func ParseBBT(s string, ppq, beatsPerBar int) (int64, bool) {
	if ppq <= 0 || beatsPerBar <= 0 {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '.' || r == ':' })
	if len(parts) == 0 || len(parts) > 3 {
		return 0, false
	}
	// FieldsFunc drops empty fields, so "1..5" would silently collapse.
	// Count separators to reject those forms explicitly.
	if strings.Count(s, ".")+strings.Count(s, ":") != len(parts)-1 {
		return 0, false
	}

	vals := [3]int64{1, 1, 0} // bar, beat, tick defaults
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return 0, false
		}
		vals[i] = v
	}
	bar, beat, tick := vals[0], vals[1], vals[2]
	if bar < 1 || beat < 1 || tick < 0 {
		return 0, false
	}

	// Carry overflow upward: tick into beat, beat into bar.
	beat += tick / int64(ppq)
	tick %= int64(ppq)
	bar += (beat - 1) / int64(beatsPerBar)
	beat = (beat-1)%int64(beatsPerBar) + 1

	return composeTicks(bar, beat, tick, ppq, beatsPerBar), true
}
