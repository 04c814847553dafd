package dto

import "github.com/google/uuid"

type AttemptResponse struct {
	ID            uuid.UUID `json:"id"`
	Timestamp     string    `json:"timestamp"`
	DeviceID      string    `json:"device_id,omitempty"`
	PersonID      *int64    `json:"person_id,omitempty"`
	PersonName    string    `json:"person_name,omitempty"`
	Confidence    *float64  `json:"confidence,omitempty"`
	Accepted      bool      `json:"accepted"`
	Label         string    `json:"label"`
	OvertimeHours float64   `json:"overtime_hours"`
	WorkDay       bool      `json:"work_day"`
	Reason        string    `json:"reason"`
	SnapshotKey   string    `json:"snapshot_key,omitempty"`
	CreatedAt     string    `json:"created_at"`
}

type AttemptListResponse struct {
	Attempts []AttemptResponse `json:"attempts"`
	Total    int               `json:"total"`
}

type AttemptQuery struct {
	PersonID string `form:"person_id"`
	From     string `form:"from"`
	To       string `form:"to"`
	Accepted *bool  `form:"accepted"`
	Limit    int    `form:"limit"`
	Offset   int    `form:"offset"`
}

// IdentifyResponse is the synchronous outcome of POST /v1/identify.
type IdentifyResponse struct {
	Attempt AttemptResponse `json:"attempt"`
}

// WSEvent is a WebSocket message delivering an access outcome in real
// time.
type WSEvent struct {
	Type     string          `json:"type"` // access_attempt
	PersonID *int64          `json:"person_id,omitempty"`
	Data     AttemptResponse `json:"data"`
}
