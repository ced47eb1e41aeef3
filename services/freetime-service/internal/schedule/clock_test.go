package schedule

import (
	"testing"
	"time"
)

func TestParseClock_Valid(t *testing.T) {
	cases := map[string]Clock{
		"00:00": {Hour: 0, Minute: 0},
		"09:05": {Hour: 9, Minute: 5},
		"23:59": {Hour: 23, Minute: 59},
	}
	for in, want := range cases {
		got, err := ParseClock(in)
		if err != nil {
			t.Fatalf("ParseClock(%q) error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseClock(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseClock_Invalid(t *testing.T) {
	cases := []string{
		"",
		"9:30",
		"09:3",
		"0930",
		"09:30:00",
		"24:00",
		"23:60",
		"25:61",
		"ab:cd",
		"-1:00",
		" 09:30",
	}
	for _, in := range cases {
		if _, err := ParseClock(in); err == nil {
			t.Fatalf("ParseClock(%q) succeeded, want error", in)
		}
	}
}

func TestClockAt(t *testing.T) {
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	got := Clock{Hour: 13, Minute: 45}.At(day)
	want := time.Date(2026, 3, 14, 13, 45, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("At = %s, want %s", got, want)
	}
}

func TestClockString(t *testing.T) {
	if s := (Clock{Hour: 7, Minute: 5}).String(); s != "07:05" {
		t.Fatalf("String = %q, want 07:05", s)
	}
}

func TestDefaultAcceptableRange(t *testing.T) {
	r := DefaultAcceptableRange()
	if r.Start.Minutes() != 6*60 || r.End.Minutes() != 22*60 {
		t.Fatalf("default range = %v-%v, want 06:00-22:00", r.Start, r.End)
	}
}
