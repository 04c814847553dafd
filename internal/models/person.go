package models

import (
	"time"

	"github.com/google/uuid"
)

// Person is an enrolled identity. Inactive persons are never granted
// access even when their face is the nearest match; they are kept on
// record because historical attempts reference them.
type Person struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// FaceEmbedding is one enrolled vector. Embeddings are immutable once
// written; re-enrollment adds new records.
type FaceEmbedding struct {
	ID        uuid.UUID `json:"id" db:"id"`
	PersonID  int64     `json:"person_id" db:"person_id"`
	Embedding []float32 `json:"-" db:"embedding"`
	Device    string    `json:"device" db:"device"`
	SourceKey string    `json:"source_key" db:"source_key"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
