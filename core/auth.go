package core

import (
	"context"
	"errors"
)

// User represents an authenticated principal attached to a session.
// It carries no credential material.
type User struct {
	ID       int64
	Username string
}

var (
	// ErrInvalidCredentials is returned when username/password is wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateUsername is returned when registering a username that
	// already has a local account.
	ErrDuplicateUsername = errors.New("username already taken")
	// ErrRecordNotFound is returned when a principal's id no longer
	// resolves to a stored record.
	ErrRecordNotFound = errors.New("user record not found")
)

// AuthService defines the credential strategies.
type AuthService interface {
	// Register creates a local account and returns its principal.
	Register(ctx context.Context, username, password string) (User, error)
	// Authenticate validates local credentials and returns the principal.
	Authenticate(ctx context.Context, username, password string) (User, error)
	// FindOrCreateGoogleUser resolves a federated profile to a principal,
	// creating the account on first login.
	FindOrCreateGoogleUser(ctx context.Context, profile GoogleProfile) (User, error)
}
