// Package history is the backend that keeps users and their searched cities.
package history

import (
	"context"
	"errors"
)

var (
	// ErrUserNotFound is returned for operations on an unknown username.
	ErrUserNotFound = errors.New("user does not exist")
	// ErrUserExists is returned when registering a taken username.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials is returned by Authenticate.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Entry is one searched city.
type Entry struct {
	City string `json:"city"`
}

// Store persists users and their history. List returns newest entries first.
type Store interface {
	CreateUser(ctx context.Context, username, passwordHash string) error
	PasswordHash(ctx context.Context, username string) (string, error)
	DeleteUser(ctx context.Context, username string) error

	Append(ctx context.Context, username, city string) error
	List(ctx context.Context, username string) ([]Entry, error)
	Clear(ctx context.Context, username string) error
	TopCities(ctx context.Context, username string, limit int) ([]string, error)

	SetDefaultCity(ctx context.Context, username, city string) error
	DefaultCity(ctx context.Context, username string) (string, error)

	Close() error
}
