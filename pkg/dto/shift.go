package dto

// UpsertShiftRequest sets a person's work schedule. Entry and Exit are
// wall-clock times formatted "HH:MM"; Exit must be later than Entry on
// the same day. Weekdays accepts "daily", ranges like "mon-fri", or
// comma lists like "mon,wed,fri".
type UpsertShiftRequest struct {
	Entry            string `json:"entry" binding:"required"`
	Exit             string `json:"exit" binding:"required"`
	ToleranceMinutes int    `json:"tolerance_minutes"`
	Weekdays         string `json:"weekdays"`
}

type ShiftResponse struct {
	PersonID         int64  `json:"person_id"`
	Entry            string `json:"entry"`
	Exit             string `json:"exit"`
	ToleranceMinutes int    `json:"tolerance_minutes"`
	Weekdays         string `json:"weekdays"`
	Default          bool   `json:"default"`
}
