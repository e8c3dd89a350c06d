package models

import (
	"strconv"
	"time"
)

// User represents a person whose availability the system tracks
type User struct {
	ID               int64     `json:"id" db:"id"`
	TelegramID       *int64    `json:"telegram_id,omitempty" db:"telegram_id"`
	TelegramUsername string    `json:"telegram_username" db:"telegram_username"`
	FirstName        string    `json:"first_name" db:"first_name"`
	LastName         string    `json:"last_name" db:"last_name"`
	IsActive         bool      `json:"is_active" db:"is_active"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// FullName returns the user's full name
func (u *User) FullName() string {
	if u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	return u.FirstName
}

// DisplayName returns the name shown next to overlap results. It falls back
// to the username and finally the numeric ID so it is never empty.
func (u *User) DisplayName() string {
	if name := u.FullName(); name != "" {
		return name
	}
	if u.TelegramUsername != "" {
		return "@" + u.TelegramUsername
	}
	return "user " + strconv.FormatInt(u.ID, 10)
}
