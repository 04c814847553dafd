package attendance

import (
	"context"
	"fmt"
	"time"
)

// ShiftSource supplies a person's configured shift, if any. The bool
// return is false when the person has no schedule of their own, in
// which case the resolver falls back to its default.
type ShiftSource interface {
	ShiftFor(ctx context.Context, personID int64) (Shift, bool, error)
}

// Resolution is the outcome of resolving a person's schedule at a
// moment in time. WorkDay is false when the moment's weekday is not in
// the shift's valid set; Shift is only meaningful when WorkDay is true.
type Resolution struct {
	WorkDay bool
	Shift   Shift
}

// Resolver resolves the applicable shift for an identity at a moment.
// It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	source ShiftSource
	def    Shift
}

func NewResolver(source ShiftSource, def Shift) *Resolver {
	return &Resolver{source: source, def: def}
}

// Resolve returns the shift governing personID at moment, or a
// not-a-work-day resolution when the weekday is outside the shift's
// valid set. Malformed configurations are errors; callers deny access.
func (r *Resolver) Resolve(ctx context.Context, personID int64, moment time.Time) (Resolution, error) {
	shift := r.def
	if r.source != nil {
		configured, ok, err := r.source.ShiftFor(ctx, personID)
		if err != nil {
			return Resolution{}, fmt.Errorf("load shift for person %d: %w", personID, err)
		}
		if ok {
			shift = configured
		}
	}

	if err := shift.Validate(); err != nil {
		return Resolution{}, fmt.Errorf("shift for person %d: %w", personID, err)
	}

	if !shift.Weekdays.Contains(moment.Weekday()) {
		return Resolution{WorkDay: false}, nil
	}
	return Resolution{WorkDay: true, Shift: shift}, nil
}
