package dto

import "github.com/google/uuid"

type CreatePersonRequest struct {
	Name string `json:"name" binding:"required"`
}

type PersonResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	FaceCount int    `json:"face_count"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type PersonListResponse struct {
	Persons []PersonResponse `json:"persons"`
	Total   int              `json:"total"`
}

type FaceResponse struct {
	ID        uuid.UUID `json:"id"`
	PersonID  int64     `json:"person_id"`
	Device    string    `json:"device,omitempty"`
	SourceKey string    `json:"source_key,omitempty"`
	CreatedAt string    `json:"created_at"`
}
