// Package auth resolves bearer credentials to users and handles login.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/dvloznov/ministry-backoffice/internal/repository"
	"github.com/rs/zerolog"
)

// PasswordHasher hides the hashing algorithm from the services.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// LockoutPolicy bounds consecutive failed logins.
type LockoutPolicy struct {
	Threshold int
	Window    time.Duration
}

// DefaultLockoutPolicy locks an account for 15 minutes after 5 failures.
var DefaultLockoutPolicy = LockoutPolicy{Threshold: 5, Window: 15 * time.Minute}

// Service authenticates users.
type Service struct {
	users   repository.UserRepository
	hasher  PasswordHasher
	tokens  *TokenIssuer
	lockout LockoutStore
	policy  LockoutPolicy
	log     zerolog.Logger
	now     func() time.Time
}

// NewService creates an auth service.
func NewService(users repository.UserRepository, hasher PasswordHasher, tokens *TokenIssuer, lockout LockoutStore, policy LockoutPolicy, log zerolog.Logger) *Service {
	return &Service{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		lockout: lockout,
		policy:  policy,
		log:     log,
		now:     time.Now,
	}
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Login checks credentials and issues a token. Unknown email, wrong password
// and deactivated accounts all look the same to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password required", domain.ErrValidation)
	}

	now := s.now()
	state, err := s.lockout.Get(ctx, email)
	if err != nil {
		s.log.Warn().Err(err).Msg("Lockout lookup failed")
	} else if state.Locked(now) {
		return nil, fmt.Errorf("%w: try again after %s", domain.ErrLocked, state.LockedUntil.Format(time.RFC3339))
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("Login: %w", err)
	}
	if u == nil || !u.IsActive || s.hasher.Compare(u.PasswordHash, password) != nil {
		if _, lockErr := s.lockout.RecordFailure(ctx, email, now, s.policy.Threshold, s.policy.Window); lockErr != nil {
			s.log.Warn().Err(lockErr).Msg("Failed to record login failure")
		}
		return nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}

	if err := s.lockout.Clear(ctx, email); err != nil {
		s.log.Warn().Err(err).Msg("Failed to clear lockout state")
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, fmt.Errorf("Login: %w", err)
	}
	return &LoginResult{Token: token, User: u}, nil
}

// Authenticate resolves a raw bearer token to an active user.
func (s *Service) Authenticate(ctx context.Context, raw string) (*domain.User, error) {
	claims, err := s.tokens.Verify(raw)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user", domain.ErrUnauthorized)
		}
		return nil, fmt.Errorf("Authenticate: %w", err)
	}
	if !u.IsActive {
		return nil, fmt.Errorf("%w: account deactivated", domain.ErrUnauthorized)
	}
	return u, nil
}
