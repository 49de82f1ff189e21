package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccessGrant is a bearer-token entitlement to a course, not tied to a user account.
type AccessGrant struct {
	ID           uuid.UUID
	Email        string
	CourseID     uuid.UUID
	OrderID      uuid.UUID
	Token        string
	ExpiresAt    time.Time
	Progress     int
	Completed    bool
	LastAccessAt *time.Time
	Active       bool

	CreatedAt time.Time
}

func (g AccessGrant) Expired(now time.Time) bool {
	return !now.Before(g.ExpiresAt)
}

// ClampProgress bounds progress to [0,100].
func ClampProgress(progress int) int {
	return min(100, max(0, progress))
}
