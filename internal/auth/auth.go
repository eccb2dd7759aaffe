// Package auth manages accounts, credentials and login sessions.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidInput       = errors.New("invalid input")
	ErrSessionNotFound    = errors.New("session not found")
	ErrNotFound           = errors.New("account not found")
)

// Role separates learners from instructors.
type Role string

const (
	RoleLearner    Role = "learner"
	RoleInstructor Role = "instructor"
)

// ParseRole accepts the canonical role names and the legacy student/teacher
// aliases. An empty string means learner.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "learner", "student":
		return RoleLearner, nil
	case "instructor", "teacher":
		return RoleInstructor, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
	}
}

// Account is a registered user. PasswordHash is a bcrypt hash; the plaintext
// password is never stored.
type Account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsInstructor reports whether the account may use the instructor dashboard.
func (a Account) IsInstructor() bool {
	return a.Role == RoleInstructor
}
