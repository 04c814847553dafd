package attendance

import (
	"fmt"
	"time"

	"github.com/your-org/facegate/internal/config"
)

// ShiftFromConfig builds the deployment-wide default shift from the
// attendance section of the config file.
func ShiftFromConfig(cfg config.AttendanceConfig) (Shift, error) {
	entry, err := ParseClock(cfg.Entry)
	if err != nil {
		return Shift{}, fmt.Errorf("attendance entry: %w", err)
	}
	exit, err := ParseClock(cfg.Exit)
	if err != nil {
		return Shift{}, fmt.Errorf("attendance exit: %w", err)
	}
	weekdays, err := ParseWeekdays(cfg.Weekdays)
	if err != nil {
		return Shift{}, fmt.Errorf("attendance weekdays: %w", err)
	}

	shift := Shift{
		Entry:     entry,
		Exit:      exit,
		Tolerance: time.Duration(cfg.ToleranceMinutes) * time.Minute,
		Weekdays:  weekdays,
	}
	if err := shift.Validate(); err != nil {
		return Shift{}, fmt.Errorf("attendance default shift: %w", err)
	}
	return shift, nil
}

// PolicyFromConfig builds the classification policy from config.
func PolicyFromConfig(cfg config.AttendanceConfig) Policy {
	return Policy{
		ExitGrace:               time.Duration(cfg.ExitGrace),
		NonWorkdayOvertimeHours: cfg.NonWorkdayOvertimeHours,
	}
}
