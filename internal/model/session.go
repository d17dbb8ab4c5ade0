package model

import (
	"time"

	"github.com/google/uuid"
)

// Session binds a console login to the backend bearer token it obtained.
type Session struct {
	ID          uuid.UUID
	AccessToken string
	User        User
	CreatedAt   time.Time
	VerifiedAt  time.Time
	ExpiresAt   time.Time
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
