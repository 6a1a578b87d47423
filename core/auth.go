package core

import (
	"context"
	"errors"
	"time"
)

// User is the authenticated principal handed to handlers. It is a value
// snapshot of the persisted record and never carries the password hash.
type User struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	IsSuperuser bool      `json:"is_superuser"`
	CreatedAt   time.Time `json:"created_at"`
}

var (
	// ErrInvalidCredentials is returned when username/password is wrong.
	// A lookup miss and a password mismatch deliberately look the same.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken is returned for malformed, tampered, or expired tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// AuthService defines authentication behaviour.
type AuthService interface {
	Authenticate(ctx context.Context, username, password string) (User, error)
}
