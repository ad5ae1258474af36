package models

import (
	"errors"
	"time"
)

// ErrInvalidProjectID is returned for project ids that are empty, too long
// or contain anything but ASCII letters and digits.
var ErrInvalidProjectID = errors.New("project id must be 1-48 alphanumeric characters")

// MaxProjectIDLength keeps derived collection names within Postgres'
// 63-byte identifier limit.
const MaxProjectIDLength = 48

type Project struct {
	ID        int64     `json:"id" db:"id"`
	ProjectID string    `json:"project_id" db:"project_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func ValidateProjectID(id string) error {
	if id == "" || len(id) > MaxProjectIDLength {
		return ErrInvalidProjectID
	}
	for _, r := range id {
		if !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9') {
			return ErrInvalidProjectID
		}
	}
	return nil
}
