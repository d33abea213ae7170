package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// DefaultTopCities is the top_cities limit when none is given.
const DefaultTopCities = 5

// Service adds account handling (bcrypt passwords) on top of a Store.
type Service struct {
	store  Store
	cost   int
	logger *slog.Logger
}

// NewService creates a Service. cost <= 0 selects bcrypt.DefaultCost.
func NewService(store Store, cost int, logger *slog.Logger) *Service {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cost: cost, logger: logger}
}

func (s *Service) Register(ctx context.Context, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.CreateUser(ctx, username, string(hash)); err != nil {
		return err
	}
	s.logger.Info("user registered", "username", username)
	return nil
}

// Authenticate checks credentials. Unknown users and wrong passwords both
// yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) error {
	hash, err := s.store.PasswordHash(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func (s *Service) DeleteUser(ctx context.Context, username string) error {
	if err := s.store.DeleteUser(ctx, username); err != nil {
		return err
	}
	s.logger.Info("user deleted", "username", username)
	return nil
}

func (s *Service) Append(ctx context.Context, username, city string) error {
	return s.store.Append(ctx, username, city)
}

func (s *Service) List(ctx context.Context, username string) ([]Entry, error) {
	return s.store.List(ctx, username)
}

func (s *Service) Clear(ctx context.Context, username string) error {
	return s.store.Clear(ctx, username)
}

func (s *Service) TopCities(ctx context.Context, username string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultTopCities
	}
	return s.store.TopCities(ctx, username, limit)
}

func (s *Service) SetDefaultCity(ctx context.Context, username, city string) error {
	return s.store.SetDefaultCity(ctx, username, city)
}

func (s *Service) DefaultCity(ctx context.Context, username string) (string, error) {
	return s.store.DefaultCity(ctx, username)
}
