package models

import (
	"time"
)

type User struct {
	ID                  int64
	Username            string
	Email               *string // optional secondary login identifier
	PasswordHash        string
	DisplayName         string
	Role                Role
	IsActive            bool
	FailedLoginAttempts int
	LockedUntil         *time.Time // account lock expiration, nil when unlocked
	Timezone            string
	Theme               string
	LastLoginAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
