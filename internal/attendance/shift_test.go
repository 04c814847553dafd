package attendance

import (
	"errors"
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"08:00", 8 * time.Hour, true},
		{"17:30", 17*time.Hour + 30*time.Minute, true},
		{"00:00", 0, true},
		{"23:59", 23*time.Hour + 59*time.Minute, true},
		{"24:00", 24 * time.Hour, true},
		{"24:01", 0, false},
		{"8am", 0, false},
		{"25:00", 0, false},
		{"", 0, false},
	}

	for _, tc := range cases {
		got, err := ParseClock(tc.in)
		if tc.ok && err != nil {
			t.Errorf("ParseClock(%q): unexpected error %v", tc.in, err)
			continue
		}
		if !tc.ok {
			if err == nil {
				t.Errorf("ParseClock(%q): expected error", tc.in)
			}
			continue
		}
		if got != tc.want {
			t.Errorf("ParseClock(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

// Validate admits Exit == 24h, so its rendering must parse back or a
// stored midnight-ending shift would reject every cycle.
func TestFormatClock_RoundTrip(t *testing.T) {
	for _, s := range []string{"00:00", "08:05", "17:00", "23:59", "24:00"} {
		d, err := ParseClock(s)
		if err != nil {
			t.Fatalf("ParseClock(%q): %v", s, err)
		}
		if got := FormatClock(d); got != s {
			t.Errorf("FormatClock(ParseClock(%q)) = %q", s, got)
		}
	}
}

func TestParseWeekdays(t *testing.T) {
	monFri, err := ParseWeekdays("mon-fri")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if monFri != MonFri {
		t.Errorf("expected MonFri mask, got %08b", monFri)
	}

	ends, err := ParseWeekdays("sat,sun")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ends.Contains(time.Saturday) || !ends.Contains(time.Sunday) {
		t.Error("expected weekend days in set")
	}
	if ends.Contains(time.Wednesday) {
		t.Error("did not expect Wednesday in weekend set")
	}

	daily, err := ParseWeekdays("daily")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if daily != Daily {
		t.Errorf("expected Daily mask, got %08b", daily)
	}

	// Ranges wrap through the week.
	wrap, err := ParseWeekdays("fri-mon")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, d := range []time.Weekday{time.Friday, time.Saturday, time.Sunday, time.Monday} {
		if !wrap.Contains(d) {
			t.Errorf("expected %s in fri-mon", d)
		}
	}
	if wrap.Contains(time.Wednesday) {
		t.Error("did not expect Wednesday in fri-mon")
	}

	if _, err := ParseWeekdays("mon-funday"); err == nil {
		t.Error("expected error for invalid range")
	}
	if _, err := ParseWeekdays(""); err == nil {
		t.Error("expected error for empty pattern")
	}
}

func TestWeekdaysString(t *testing.T) {
	if got := MonFri.String(); got != "mon,tue,wed,thu,fri" {
		t.Errorf("MonFri.String() = %q", got)
	}
	if got := Daily.String(); got != "daily" {
		t.Errorf("Daily.String() = %q", got)
	}
}

func TestShiftValidate(t *testing.T) {
	if err := DefaultShift().Validate(); err != nil {
		t.Errorf("default shift should validate: %v", err)
	}

	night := Shift{Entry: 22 * time.Hour, Exit: 6 * time.Hour, Weekdays: Daily}
	err := night.Validate()
	if !errors.Is(err, ErrOvernightShift) {
		t.Errorf("expected ErrOvernightShift, got %v", err)
	}

	noDays := Shift{Entry: 8 * time.Hour, Exit: 17 * time.Hour}
	if noDays.Validate() == nil {
		t.Error("expected error for empty weekday set")
	}

	negative := Shift{Entry: 8 * time.Hour, Exit: 17 * time.Hour, Tolerance: -time.Minute, Weekdays: MonFri}
	if negative.Validate() == nil {
		t.Error("expected error for negative tolerance")
	}
}
