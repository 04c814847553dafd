package attendance

import (
	"fmt"
	"math"
	"time"

	"github.com/your-org/facegate/internal/models"
)

// Policy holds the classification constants that were historically
// hard-coded: the grace window after shift end during which an
// appearance still counts as SALIDA, and the flat overtime credited
// for any appearance on a non-work day.
type Policy struct {
	ExitGrace               time.Duration
	NonWorkdayOvertimeHours float64
}

// DefaultPolicy returns the documented defaults: 2 hour exit grace,
// 8.0 hours flat overtime on non-work days.
func DefaultPolicy() Policy {
	return Policy{
		ExitGrace:               2 * time.Hour,
		NonWorkdayOvertimeHours: 8.0,
	}
}

// Result is one classified appearance.
type Result struct {
	Label         string
	OvertimeHours float64
	WorkDay       bool
}

// Classify maps a moment onto the shift window state machine:
//
//	t < entry                      HORAS_EXTRAS, overtime = entry - t
//	entry <= t <= entry+tolerance  ENTRADA
//	entry+tolerance < t <= exit    RETRASO
//	exit < t <= exit+grace         SALIDA
//	t > exit+grace                 HORAS_EXTRAS, overtime = t - (exit+grace)
//
// A resolution outside the valid weekdays is entirely overtime,
// credited at the policy's flat non-workday rate. All comparisons use
// same-day wall-clock time in moment's location. Overtime is rounded
// to two decimals for storage; boundaries are compared unrounded.
func Classify(moment time.Time, res Resolution, policy Policy) (Result, error) {
	if !res.WorkDay {
		return Result{
			Label:         models.LabelHorasExtras,
			OvertimeHours: round2(policy.NonWorkdayOvertimeHours),
			WorkDay:       false,
		}, nil
	}

	shift := res.Shift
	if err := shift.Validate(); err != nil {
		return Result{}, fmt.Errorf("classify: %w", err)
	}
	if policy.ExitGrace < 0 {
		return Result{}, fmt.Errorf("classify: negative exit grace %s", policy.ExitGrace)
	}

	t := clockOf(moment)
	limitEntry := shift.Entry + shift.Tolerance
	limitExit := shift.Exit + policy.ExitGrace

	switch {
	case t < shift.Entry:
		return Result{
			Label:         models.LabelHorasExtras,
			OvertimeHours: round2((shift.Entry - t).Hours()),
			WorkDay:       true,
		}, nil
	case t <= limitEntry:
		return Result{Label: models.LabelEntrada, WorkDay: true}, nil
	case t <= shift.Exit:
		return Result{Label: models.LabelRetraso, WorkDay: true}, nil
	case t <= limitExit:
		return Result{Label: models.LabelSalida, WorkDay: true}, nil
	default:
		return Result{
			Label:         models.LabelHorasExtras,
			OvertimeHours: round2((t - limitExit).Hours()),
			WorkDay:       true,
		}, nil
	}
}

// clockOf extracts the wall-clock offset from midnight in moment's
// location.
func clockOf(moment time.Time) time.Duration {
	h, m, s := moment.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
