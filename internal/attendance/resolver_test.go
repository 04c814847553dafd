package attendance

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubShiftSource struct {
	shifts map[int64]Shift
	err    error
}

func (s *stubShiftSource) ShiftFor(_ context.Context, personID int64) (Shift, bool, error) {
	if s.err != nil {
		return Shift{}, false, s.err
	}
	shift, ok := s.shifts[personID]
	return shift, ok, nil
}

func TestResolve_ConfiguredShift(t *testing.T) {
	early := Shift{
		Entry:     6 * time.Hour,
		Exit:      14 * time.Hour,
		Tolerance: 5 * time.Minute,
		Weekdays:  MonFri,
	}
	r := NewResolver(&stubShiftSource{shifts: map[int64]Shift{42: early}}, DefaultShift())

	res, err := r.Resolve(context.Background(), 42, monday(7, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.WorkDay {
		t.Fatal("expected work day")
	}
	if res.Shift.Entry != 6*time.Hour {
		t.Errorf("expected configured entry 06:00, got %s", FormatClock(res.Shift.Entry))
	}
}

func TestResolve_DefaultFallback(t *testing.T) {
	r := NewResolver(&stubShiftSource{}, DefaultShift())

	res, err := r.Resolve(context.Background(), 7, monday(9, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.WorkDay {
		t.Fatal("expected work day")
	}
	if res.Shift != DefaultShift() {
		t.Errorf("expected default shift, got %+v", res.Shift)
	}
}

func TestResolve_NotAWorkDay(t *testing.T) {
	r := NewResolver(&stubShiftSource{}, DefaultShift())

	// 2025-06-01 is a Sunday; the default shift is Mon-Fri.
	sunday := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	res, err := r.Resolve(context.Background(), 7, sunday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.WorkDay {
		t.Error("expected not a work day")
	}
}

func TestResolve_SourceErrorPropagates(t *testing.T) {
	boom := errors.New("db down")
	r := NewResolver(&stubShiftSource{err: boom}, DefaultShift())

	_, err := r.Resolve(context.Background(), 7, monday(9, 0))
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped source error, got %v", err)
	}
}

func TestResolve_MalformedShiftFailsClosed(t *testing.T) {
	night := Shift{Entry: 22 * time.Hour, Exit: 6 * time.Hour, Weekdays: Daily}
	r := NewResolver(&stubShiftSource{shifts: map[int64]Shift{9: night}}, DefaultShift())

	_, err := r.Resolve(context.Background(), 9, monday(23, 0))
	if !errors.Is(err, ErrOvernightShift) {
		t.Errorf("expected ErrOvernightShift, got %v", err)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	r := NewResolver(&stubShiftSource{}, DefaultShift())
	moment := monday(8, 3)

	first, err := r.Resolve(context.Background(), 42, moment)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := r.Resolve(context.Background(), 42, moment)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("expected identical resolutions, got %+v and %+v", first, second)
	}
}
