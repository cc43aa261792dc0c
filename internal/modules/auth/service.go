package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// ValidationError marks a registration the caller must fix.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

// Service handles registration and credential checks. The admin
// account is configured through the environment and never stored in
// the users table.
type Service struct {
	repo          *Repository
	adminUsername string
	adminPassword string
	log           zerolog.Logger
}

func NewService(repo *Repository, adminUsername, adminPassword string, log zerolog.Logger) *Service {
	return &Service{
		repo:          repo,
		adminUsername: adminUsername,
		adminPassword: adminPassword,
		log:           log.With().Str("component", "auth").Logger(),
	}
}

// Register creates a new account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if len(username) < 3 {
		return &ValidationError{msg: "username must be at least 3 characters"}
	}
	if len(password) < 6 {
		return &ValidationError{msg: "password must be at least 6 characters"}
	}
	if username == s.adminUsername {
		return ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if _, err := s.repo.CreateUser(ctx, username, string(hash)); err != nil {
		return err
	}
	s.log.Info().Str("username", username).Msg("User registered")
	return nil
}

// Login checks credentials against the admin account first, then
// registered users. Returns whether the caller is the admin.
func (s *Service) Login(ctx context.Context, username, password string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false, ErrInvalidCredentials
	}

	if username == s.adminUsername {
		if subtle.ConstantTimeCompare([]byte(password), []byte(s.adminPassword)) == 1 {
			return true, nil
		}
		return false, ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return false, ErrInvalidCredentials
	}
	return false, nil
}

// RecordLogin writes the audit row. Failures are logged, not
// returned; a missing audit row never blocks a login.
func (s *Service) RecordLogin(ctx context.Context, username, ip, userAgent string) {
	if err := s.repo.RecordLogin(ctx, username, ip, userAgent); err != nil {
		s.log.Error().Err(err).Str("username", username).Msg("Failed to record login")
	}
}
