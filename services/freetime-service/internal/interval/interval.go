// Package interval implements the primitives the free-time pipeline is
// built on: merging raw busy intervals into canonical form, complementing
// them against a day window, and intersecting canonical lists.
//
// A canonical list is sorted by start and pairwise non-overlapping and
// non-touching. All functions treat intervals as half-open [Start, End)
// and never emit an empty or inverted interval.
package interval

import (
	"sort"
	"time"
)

type Interval struct {
	Start time.Time
	End   time.Time
}

// Merge collapses an arbitrary list of intervals into canonical form.
// Inputs need not be sorted; empty or inverted intervals are discarded.
func Merge(in []Interval) []Interval {
	cleaned := make([]Interval, 0, len(in))
	for _, iv := range in {
		if iv.End.After(iv.Start) {
			cleaned = append(cleaned, iv)
		}
	}
	if len(cleaned) == 0 {
		return nil
	}

	sort.Slice(cleaned, func(i, j int) bool {
		return cleaned[i].Start.Before(cleaned[j].Start)
	})

	merged := []Interval{cleaned[0]}
	for _, cur := range cleaned[1:] {
		last := &merged[len(merged)-1]
		if !cur.Start.After(last.End) {
			// Touching or overlapping: fold into the accumulated interval.
			if cur.End.After(last.End) {
				last.End = cur.End
			}
			continue
		}
		merged = append(merged, cur)
	}
	return merged
}

// Invert returns the complement of busy within window. busy must already
// be canonical (see Merge); Invert does not merge. Busy time outside the
// window is ignored.
func Invert(busy []Interval, window Interval) []Interval {
	var free []Interval
	cursor := window.Start
	for _, b := range busy {
		if cursor.Before(b.Start) {
			end := b.Start
			if end.After(window.End) {
				end = window.End
			}
			if end.After(cursor) {
				free = append(free, Interval{Start: cursor, End: end})
			}
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
	}
	if cursor.Before(window.End) {
		free = append(free, Interval{Start: cursor, End: window.End})
	}
	return free
}

// Intersect returns the intersection of two canonical interval lists.
// The result is itself canonical. Intersect is commutative and
// associative over interval sets, so multi-way intersections may fold
// pairwise in any order.
func Intersect(a, b []Interval) []Interval {
	var out []Interval
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		start := a[i].Start
		if b[j].Start.After(start) {
			start = b[j].Start
		}
		end := a[i].End
		if b[j].End.Before(end) {
			end = b[j].End
		}
		if end.After(start) {
			out = append(out, Interval{Start: start, End: end})
		}
		// Advance whichever interval ends first; on equal ends either
		// side may advance, but at least one must.
		if a[i].End.Before(b[j].End) {
			i++
		} else {
			j++
		}
	}
	return out
}

// IntersectAll left-folds Intersect across the given lists. Zero lists
// yields nil: with no participants there is no free time to claim.
func IntersectAll(lists [][]Interval) []Interval {
	if len(lists) == 0 {
		return nil
	}
	out := lists[0]
	for _, l := range lists[1:] {
		out = Intersect(out, l)
	}
	return out
}

// MeetingStarts returns candidate start times for a meeting of the given
// length, stepping through each free interval. The free list is expected
// to be canonical, so candidates never overlap busy time.
func MeetingStarts(free []Interval, duration, step time.Duration) []time.Time {
	if duration <= 0 || step <= 0 {
		return nil
	}
	var starts []time.Time
	for _, f := range free {
		for t := f.Start; !t.Add(duration).After(f.End); t = t.Add(step) {
			starts = append(starts, t)
		}
	}
	return starts
}
