package schedule

import (
	"errors"
	"fmt"
	"time"
)

// Clock is a time of day at minute resolution.
type Clock struct {
	Hour   int
	Minute int
}

var errBadClock = errors.New("must be HH:MM (24-hour, zero-padded)")

// ParseClock parses a strict HH:MM time of day. Hours are 24-hour and
// zero-padded; no seconds, no timezone. Anything else is rejected rather
// than coerced.
func ParseClock(s string) (Clock, error) {
	if len(s) != 5 || s[2] != ':' {
		return Clock{}, errBadClock
	}
	h, okH := twoDigits(s[0], s[1])
	m, okM := twoDigits(s[3], s[4])
	if !okH || !okM || h > 23 || m > 59 {
		return Clock{}, errBadClock
	}
	return Clock{Hour: h, Minute: m}, nil
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Minutes returns the clock as minutes after midnight.
func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

// At anchors the clock to the given date, in that date's location.
func (c Clock) At(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), c.Hour, c.Minute, 0, 0, date.Location())
}

// ClockOf extracts the time-of-day component of an instant.
func ClockOf(t time.Time) Clock {
	return Clock{Hour: t.Hour(), Minute: t.Minute()}
}

// AcceptableRange bounds the time of day a common free interval may
// occupy. It only affects the final filter stage, never the free-time
// computation itself.
type AcceptableRange struct {
	Start Clock
	End   Clock
}

// DefaultAcceptableRange is 06:00-22:00.
func DefaultAcceptableRange() AcceptableRange {
	return AcceptableRange{Start: Clock{Hour: 6}, End: Clock{Hour: 22}}
}
