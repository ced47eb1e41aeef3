package interval

import (
	"testing"
	"time"
)

var day = time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func iv(sh, sm, eh, em int) Interval {
	return Interval{Start: at(sh, sm), End: at(eh, em)}
}

func equal(a, b []Interval) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Start.Equal(b[i].Start) || !a[i].End.Equal(b[i].End) {
			return false
		}
	}
	return true
}

func TestMerge_UnsortedOverlapping(t *testing.T) {
	in := []Interval{iv(14, 0, 15, 0), iv(9, 0, 11, 0), iv(10, 30, 12, 0)}
	want := []Interval{iv(9, 0, 12, 0), iv(14, 0, 15, 0)}
	got := Merge(in)
	if !equal(got, want) {
		t.Fatalf("Merge = %v, want %v", got, want)
	}
}

func TestMerge_TouchingIntervalsFold(t *testing.T) {
	got := Merge([]Interval{iv(9, 0, 10, 0), iv(10, 0, 11, 0)})
	want := []Interval{iv(9, 0, 11, 0)}
	if !equal(got, want) {
		t.Fatalf("Merge = %v, want %v", got, want)
	}
}

func TestMerge_DropsEmptyAndInverted(t *testing.T) {
	got := Merge([]Interval{iv(12, 0, 12, 0), iv(15, 0, 14, 0), iv(9, 0, 10, 0)})
	want := []Interval{iv(9, 0, 10, 0)}
	if !equal(got, want) {
		t.Fatalf("Merge = %v, want %v", got, want)
	}
	if Merge(nil) != nil {
		t.Fatal("Merge(nil) should be nil")
	}
}

func TestMerge_Idempotent(t *testing.T) {
	in := []Interval{iv(8, 0, 9, 30), iv(9, 0, 10, 0), iv(13, 0, 14, 0)}
	once := Merge(in)
	twice := Merge(once)
	if !equal(once, twice) {
		t.Fatalf("Merge(Merge(X)) = %v, want %v", twice, once)
	}
}

func TestMerge_CanonicalForm(t *testing.T) {
	in := []Interval{iv(11, 0, 12, 0), iv(8, 0, 9, 0), iv(9, 0, 9, 30), iv(11, 30, 13, 0)}
	got := Merge(in)
	for i := 1; i < len(got); i++ {
		if !got[i].Start.After(got[i-1].End) {
			t.Fatalf("intervals %d and %d touch or overlap: %v", i-1, i, got)
		}
	}
	for _, g := range got {
		if !g.End.After(g.Start) {
			t.Fatalf("empty interval emitted: %v", g)
		}
	}
}

func TestInvert_Basic(t *testing.T) {
	window := iv(0, 0, 23, 59)
	busy := []Interval{iv(9, 0, 13, 0), iv(14, 0, 15, 0)}
	want := []Interval{iv(0, 0, 9, 0), iv(13, 0, 14, 0), iv(15, 0, 23, 59)}
	got := Invert(busy, window)
	if !equal(got, want) {
		t.Fatalf("Invert = %v, want %v", got, want)
	}
}

func TestInvert_NoBusyReturnsWindow(t *testing.T) {
	window := iv(9, 0, 17, 0)
	got := Invert(nil, window)
	if !equal(got, []Interval{window}) {
		t.Fatalf("Invert = %v, want full window", got)
	}
}

func TestInvert_BusyCoversWindow(t *testing.T) {
	window := iv(9, 0, 17, 0)
	got := Invert([]Interval{iv(8, 0, 18, 0)}, window)
	if len(got) != 0 {
		t.Fatalf("Invert = %v, want empty", got)
	}
}

func TestInvert_ComplementCoversWindow(t *testing.T) {
	window := iv(8, 0, 18, 0)
	busy := []Interval{iv(9, 0, 10, 0), iv(12, 0, 13, 30)}
	free := Invert(busy, window)

	// Free and busy together must tile the window with no overlap.
	var total time.Duration
	for _, f := range free {
		total += f.End.Sub(f.Start)
		for _, b := range busy {
			if f.Start.Before(b.End) && b.Start.Before(f.End) {
				t.Fatalf("free %v overlaps busy %v", f, b)
			}
		}
	}
	for _, b := range busy {
		total += b.End.Sub(b.Start)
	}
	if total != window.End.Sub(window.Start) {
		t.Fatalf("free+busy cover %v, want %v", total, window.End.Sub(window.Start))
	}
}

func TestIntersect_Basic(t *testing.T) {
	a := []Interval{iv(9, 0, 12, 0), iv(13, 0, 17, 0)}
	b := []Interval{iv(10, 0, 14, 0)}
	want := []Interval{iv(10, 0, 12, 0), iv(13, 0, 14, 0)}
	got := Intersect(a, b)
	if !equal(got, want) {
		t.Fatalf("Intersect = %v, want %v", got, want)
	}
}

func TestIntersect_Commutative(t *testing.T) {
	a := []Interval{iv(8, 0, 10, 0), iv(11, 0, 15, 0)}
	b := []Interval{iv(9, 30, 12, 0), iv(14, 0, 16, 0)}
	if !equal(Intersect(a, b), Intersect(b, a)) {
		t.Fatalf("Intersect(a,b) != Intersect(b,a)")
	}
}

func TestIntersect_Associative(t *testing.T) {
	a := []Interval{iv(8, 0, 12, 0)}
	b := []Interval{iv(9, 0, 14, 0)}
	c := []Interval{iv(10, 0, 11, 0), iv(11, 30, 13, 0)}
	left := Intersect(Intersect(a, b), c)
	right := Intersect(a, Intersect(b, c))
	if !equal(left, right) {
		t.Fatalf("associativity broken: %v vs %v", left, right)
	}
}

func TestIntersect_EqualEndsTerminate(t *testing.T) {
	a := []Interval{iv(9, 0, 10, 0), iv(11, 0, 12, 0)}
	b := []Interval{iv(9, 30, 10, 0), iv(11, 0, 12, 0)}
	want := []Interval{iv(9, 30, 10, 0), iv(11, 0, 12, 0)}
	got := Intersect(a, b)
	if !equal(got, want) {
		t.Fatalf("Intersect = %v, want %v", got, want)
	}
}

func TestIntersectAll(t *testing.T) {
	if IntersectAll(nil) != nil {
		t.Fatal("IntersectAll(nil) should be nil")
	}
	lists := [][]Interval{
		{iv(9, 0, 17, 0)},
		{iv(10, 0, 12, 0), iv(13, 0, 18, 0)},
		{iv(11, 0, 14, 0)},
	}
	want := []Interval{iv(11, 0, 12, 0), iv(13, 0, 14, 0)}
	got := IntersectAll(lists)
	if !equal(got, want) {
		t.Fatalf("IntersectAll = %v, want %v", got, want)
	}
}

func TestMeetingStarts(t *testing.T) {
	free := []Interval{iv(9, 0, 10, 0), iv(13, 0, 13, 45)}
	got := MeetingStarts(free, 30*time.Minute, 30*time.Minute)
	want := []time.Time{at(9, 0), at(9, 30), at(13, 0)}
	if len(got) != len(want) {
		t.Fatalf("MeetingStarts = %v, want %v", got, want)
	}
	for i := range got {
		if !got[i].Equal(want[i]) {
			t.Fatalf("start %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestMeetingStarts_InvalidParams(t *testing.T) {
	free := []Interval{iv(9, 0, 10, 0)}
	if MeetingStarts(free, 0, time.Minute) != nil {
		t.Fatal("zero duration should yield nil")
	}
	if MeetingStarts(free, time.Minute, 0) != nil {
		t.Fatal("zero step should yield nil")
	}
}
