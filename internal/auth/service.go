package auth

import (
	"context"
	"errors"
	"fmt"

	"dholratri-tickets/internal/logger"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Service struct {
	Admins     *AdminStore
	Tokens     *TokenManager
	Logger     *logger.Logger
	BcryptCost int
}

func NewService(admins *AdminStore, tokens *TokenManager, log *logger.Logger) *Service {
	return &Service{Admins: admins, Tokens: tokens, Logger: log}
}

// Login checks the password and issues a token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	admin, err := s.Admins.GetByUsername(ctx, username)
	if errors.Is(err, ErrAdminNotFound) {
		_, _ = CheckPassword(string(dummyHash), password)
		s.Logger.LogSecurity("LOGIN_FAILED", fmt.Sprintf("unknown username %q", username))
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	ok, err := CheckPassword(admin.PasswordHash, password)
	if err != nil {
		return "", fmt.Errorf("compare password: %w", err)
	}
	if !ok {
		s.Logger.LogSecurity("LOGIN_FAILED", fmt.Sprintf("wrong password for %q", username))
		return "", ErrInvalidCredentials
	}

	token, err := s.Tokens.Issue(admin)
	if err != nil {
		return "", err
	}
	s.Logger.Info("AUTH", fmt.Sprintf("Admin %q logged in", username))
	return token, nil
}

// EnsureAdmin seeds the admin account if it does not exist yet.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	if password == "" {
		s.Logger.Warn("AUTH", "ADMIN_PASSWORD not set, skipping admin seeding")
		return nil
	}

	hash, err := HashPassword(password, s.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	created, err := s.Admins.InsertIfAbsent(ctx, username, hash)
	if err != nil {
		return err
	}
	if created {
		s.Logger.Info("AUTH", fmt.Sprintf("Admin user %q created", username))
	} else {
		s.Logger.Info("AUTH", fmt.Sprintf("Admin user %q already exists, skipping creation", username))
	}
	return nil
}
