package entities

import (
	"time"

	"github.com/google/uuid"
)

// StoredResult is a PrescriptionResult kept by the API until ExpiresAt
type StoredResult struct {
	ID        uuid.UUID          `json:"id"`
	Result    PrescriptionResult `json:"result"`
	CreatedAt time.Time          `json:"created_at"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// Expired reports whether the result is past its TTL at now
func (s StoredResult) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
