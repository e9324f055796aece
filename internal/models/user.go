package models

import (
	"strings"
	"time"

	"github.com/splitfair/splitfair/internal/apperr"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) Validate() error {
	if len(strings.TrimSpace(u.Name)) < 2 {
		return apperr.Validation("name too short")
	}
	if !strings.Contains(u.Email, "@") {
		return apperr.Validation("invalid email")
	}
	return nil
}
