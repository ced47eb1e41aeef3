// Package schedule turns raw per-participant calendars into the
// intervals when everyone in the group is simultaneously free.
//
// The pipeline has three stages, each pure over its inputs:
// Normalize (raw events -> canonical busy intervals), CommonFree
// (complement + intersect across the group) and FilterAcceptable
// (restrict to an acceptable time-of-day range).
package schedule

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/md-rashed-zaman/whenfree/services/freetime-service/internal/interval"
)

// RawEvent is one busy block as supplied by a calendar source.
type RawEvent struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Profile is one participant's raw calendar for the day.
type Profile struct {
	ID     string     `json:"id"`
	Events []RawEvent `json:"events"`
}

// BusyMap maps participant id to canonical merged busy intervals.
// Built once by Normalize and never mutated afterwards.
type BusyMap map[string][]interval.Interval

// ParseError reports a malformed time-of-day value in a participant's
// calendar. The whole computation fails; no partial result is returned.
type ParseError struct {
	Participant string
	Field       string
	Value       string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("participant %q: %s time %q %v", e.Participant, e.Field, e.Value, errBadClock)
}

// ErrInvalidWindow is returned before any computation when the window is
// degenerate.
var ErrInvalidWindow = errors.New("window start must be before window end")

// Window bounds the span of time free/busy is evaluated over. Its date
// anchors every parsed event, so instants compare across participants.
// The caller supplies it; the pipeline never reads an ambient clock.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Validate() error {
	if !w.End.After(w.Start) {
		return ErrInvalidWindow
	}
	return nil
}

func (w Window) Interval() interval.Interval {
	return interval.Interval{Start: w.Start, End: w.End}
}

// Normalize parses every profile's events into instants on the reference
// date and merges them into a canonical BusyMap. A participant with no
// events gets an empty busy list, meaning free for the whole window.
// Duplicate profile ids have their events combined.
func Normalize(profiles []Profile, date time.Time) (BusyMap, error) {
	busy := make(BusyMap, len(profiles))
	for _, p := range profiles {
		raw := append([]interval.Interval(nil), busy[p.ID]...)
		for _, ev := range p.Events {
			start, err := ParseClock(ev.Start)
			if err != nil {
				return nil, &ParseError{Participant: p.ID, Field: "start", Value: ev.Start}
			}
			end, err := ParseClock(ev.End)
			if err != nil {
				return nil, &ParseError{Participant: p.ID, Field: "end", Value: ev.End}
			}
			raw = append(raw, interval.Interval{Start: start.At(date), End: end.At(date)})
		}
		busy[p.ID] = interval.Merge(raw)
	}
	return busy, nil
}

// CommonFree inverts each participant's busy intervals against the
// window and intersects the results across the whole group. Participant
// order is fixed by sorting ids; the fold result does not depend on it,
// but the iteration must be stable. Zero participants means no group,
// so no free time is claimed.
func CommonFree(busy BusyMap, w Window) []interval.Interval {
	if len(busy) == 0 {
		return nil
	}
	ids := make([]string, 0, len(busy))
	for id := range busy {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	lists := make([][]interval.Interval, 0, len(ids))
	for _, id := range ids {
		lists = append(lists, interval.Invert(busy[id], w.Interval()))
	}
	return interval.IntersectAll(lists)
}

// FilterAcceptable keeps the free intervals lying wholly inside the
// acceptable time-of-day range. Intervals straddling a boundary are
// dropped, not clipped.
func FilterAcceptable(free []interval.Interval, r AcceptableRange) []interval.Interval {
	var out []interval.Interval
	for _, f := range free {
		if ClockOf(f.Start).Minutes() >= r.Start.Minutes() && ClockOf(f.End).Minutes() <= r.End.Minutes() {
			out = append(out, f)
		}
	}
	return out
}

// Compute runs the whole pipeline over inline profiles: validate the
// window, normalize, resolve common free time and filter.
func Compute(profiles []Profile, w Window, r AcceptableRange) ([]interval.Interval, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	busy, err := Normalize(profiles, w.Start)
	if err != nil {
		return nil, err
	}
	return FilterAcceptable(CommonFree(busy, w), r), nil
}
