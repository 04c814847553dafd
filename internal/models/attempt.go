package models

import (
	"time"

	"github.com/google/uuid"
)

// Classification labels for a successful match, plus DESCONOCIDO for
// cycles that never reached the classifier.
const (
	LabelEntrada     = "ENTRADA"
	LabelRetraso     = "RETRASO"
	LabelSalida      = "SALIDA"
	LabelHorasExtras = "HORAS_EXTRAS"
	LabelDesconocido = "DESCONOCIDO"
)

// AccessAttempt is the immutable outcome of one recognition cycle.
// Exactly one is produced per cycle, rejections included.
type AccessAttempt struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Timestamp     time.Time `json:"timestamp" db:"timestamp"`
	DeviceID      string    `json:"device_id,omitempty" db:"device_id"`
	PersonID      *int64    `json:"person_id,omitempty" db:"person_id"`
	PersonName    string    `json:"person_name,omitempty" db:"person_name"`
	Confidence    *float64  `json:"confidence,omitempty" db:"confidence"`
	Accepted      bool      `json:"accepted" db:"accepted"`
	Label         string    `json:"label" db:"label"`
	OvertimeHours float64   `json:"overtime_hours" db:"overtime_hours"`
	WorkDay       bool      `json:"work_day" db:"work_day"`
	Reason        string    `json:"reason" db:"reason"`
	SnapshotKey   string    `json:"snapshot_key,omitempty" db:"snapshot_key"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// CaptureTask is the message published to NATS when an access terminal
// uploads a snapshot for asynchronous identification.
type CaptureTask struct {
	CaptureID uuid.UUID `json:"capture_id"`
	DeviceID  string    `json:"device_id"`
	Timestamp time.Time `json:"timestamp"`
	ObjectKey string    `json:"object_key"` // MinIO key of the snapshot
}
