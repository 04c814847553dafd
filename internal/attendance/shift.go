package attendance

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrOvernightShift marks shift configurations with exit_time at or
// before entry_time. Cross-midnight shifts are not supported; callers
// must fail closed rather than classify against them.
var ErrOvernightShift = errors.New("overnight shifts are not supported")

// Weekdays is a set of valid weekdays encoded as a bitmask over
// time.Weekday (bit 0 = Sunday).
type Weekdays uint8

const (
	// MonFri is the default working-week pattern.
	MonFri Weekdays = 1<<time.Monday | 1<<time.Tuesday | 1<<time.Wednesday |
		1<<time.Thursday | 1<<time.Friday
	// Daily covers all seven days.
	Daily Weekdays = 1<<7 - 1
)

var dayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

var dayOrder = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// Contains reports whether d is part of the set.
func (w Weekdays) Contains(d time.Weekday) bool {
	return w&(1<<d) != 0
}

// String renders the set as a comma-separated list of day tokens,
// Monday first.
func (w Weekdays) String() string {
	if w == Daily {
		return "daily"
	}
	var parts []string
	for _, name := range dayOrder {
		if w.Contains(dayNames[name]) {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, ",")
}

// ParseWeekdays parses patterns like "mon-fri", "mon,wed,fri" or
// "daily". Tokens are the three-letter English day abbreviations.
func ParseWeekdays(s string) (Weekdays, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty weekday pattern")
	}
	if s == "daily" {
		return Daily, nil
	}

	var set Weekdays
	for _, token := range strings.Split(s, ",") {
		token = strings.TrimSpace(token)
		if from, to, ok := strings.Cut(token, "-"); ok {
			start, okF := dayNames[from]
			end, okT := dayNames[to]
			if !okF || !okT {
				return 0, fmt.Errorf("invalid weekday range %q", token)
			}
			d := start
			for {
				set |= 1 << d
				if d == end {
					break
				}
				d = (d + 1) % 7
			}
			continue
		}
		d, ok := dayNames[token]
		if !ok {
			return 0, fmt.Errorf("invalid weekday %q", token)
		}
		set |= 1 << d
	}
	return set, nil
}

// ParseClock parses a wall-clock time of day formatted "HH:MM" into an
// offset from midnight. "24:00" is accepted as end-of-day so shifts
// ending at midnight survive a FormatClock round trip.
func ParseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "24:00" {
		return 24 * time.Hour, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse clock time %q: %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// FormatClock renders an offset from midnight as "HH:MM".
func FormatClock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

// Shift is one person's configured work window. Entry and Exit are
// offsets from midnight on the same day.
type Shift struct {
	Entry     time.Duration
	Exit      time.Duration
	Tolerance time.Duration
	Weekdays  Weekdays
}

// Validate rejects shifts the classifier cannot reason about.
func (s Shift) Validate() error {
	if s.Entry < 0 || s.Entry >= 24*time.Hour || s.Exit < 0 || s.Exit > 24*time.Hour {
		return fmt.Errorf("shift times out of range: entry=%s exit=%s",
			FormatClock(s.Entry), FormatClock(s.Exit))
	}
	if s.Tolerance < 0 {
		return fmt.Errorf("negative tolerance %s", s.Tolerance)
	}
	if s.Exit <= s.Entry {
		return fmt.Errorf("entry %s, exit %s: %w",
			FormatClock(s.Entry), FormatClock(s.Exit), ErrOvernightShift)
	}
	if s.Weekdays == 0 {
		return fmt.Errorf("shift has no valid weekdays")
	}
	return nil
}

// DefaultShift is the documented fallback for persons with no
// configured schedule: 08:00-17:00, 10 minutes tolerance, Mon-Fri.
func DefaultShift() Shift {
	return Shift{
		Entry:     8 * time.Hour,
		Exit:      17 * time.Hour,
		Tolerance: 10 * time.Minute,
		Weekdays:  MonFri,
	}
}
