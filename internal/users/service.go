// Package users implements the admin-managed user directory.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/ministry-backoffice/internal/audit"
	"github.com/dvloznov/ministry-backoffice/internal/auth"
	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/dvloznov/ministry-backoffice/internal/repository"
	"github.com/rs/zerolog"
)

// Service manages accounts.
type Service struct {
	repo   repository.UserRepository
	hasher auth.PasswordHasher
	audit  audit.Recorder
	log    zerolog.Logger
}

// NewService creates a user directory service.
func NewService(repo repository.UserRepository, hasher auth.PasswordHasher, rec audit.Recorder, log zerolog.Logger) *Service {
	return &Service{repo: repo, hasher: hasher, audit: rec, log: log}
}

// CreateInput is the payload of Create.
type CreateInput struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// List returns every account, newest first.
func (s *Service) List(ctx context.Context, actor *domain.User) ([]*domain.User, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return users, nil
}

// Create adds an active account. Role defaults to worker.
func (s *Service) Create(ctx context.Context, actor *domain.User, in CreateInput) (*domain.User, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	u, err := s.newUser(in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	s.audit.Record(ctx, audit.Event{
		UserID:     actor.ID,
		Action:     "user.create",
		EntityType: "user",
		EntityID:   &u.ID,
		Details:    fmt.Sprintf("Created user: %s (%s)", u.Name, u.Email),
	})
	return u, nil
}

// Update applies patch to the account. An empty password leaves the hash
// untouched.
func (s *Service) Update(ctx context.Context, actor *domain.User, id int64, patch domain.UserPatch) (*domain.User, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if patch.Role != nil && !patch.Role.Valid() {
		return nil, fmt.Errorf("%w: invalid role", domain.ErrValidation)
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, fmt.Errorf("%w: name must not be blank", domain.ErrValidation)
	}

	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}
	if patch.Name != nil {
		u.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	if patch.IsActive != nil {
		u.IsActive = *patch.IsActive
	}
	if patch.Password != nil && *patch.Password != "" {
		hash, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return nil, fmt.Errorf("Update: hashing password: %w", err)
		}
		u.PasswordHash = hash
	}

	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}

	s.audit.Record(ctx, audit.Event{
		UserID:     actor.ID,
		Action:     "user.update",
		EntityType: "user",
		EntityID:   &u.ID,
		Details:    fmt.Sprintf("Updated user: %s", u.Name),
	})
	return u, nil
}

// Deactivate soft-deletes an account; its history stays attributed.
func (s *Service) Deactivate(ctx context.Context, actor *domain.User, id int64) error {
	if err := domain.RequireAdmin(actor); err != nil {
		return err
	}
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return fmt.Errorf("Deactivate: %w", err)
	}
	u.IsActive = false
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("Deactivate: %w", err)
	}

	s.audit.Record(ctx, audit.Event{
		UserID:     actor.ID,
		Action:     "user.deactivate",
		EntityType: "user",
		EntityID:   &u.ID,
		Details:    fmt.Sprintf("Deactivated user: %s", u.Name),
	})
	return nil
}

// SeedAdmin creates an admin account or promotes and reactivates the account
// that already owns the email. It bypasses the actor check and is meant for
// bootstrap tooling only.
func (s *Service) SeedAdmin(ctx context.Context, name, email, password string) (*domain.User, bool, error) {
	u, err := s.newUser(CreateInput{Name: name, Email: email, Password: password, Role: domain.RoleAdmin})
	if err != nil {
		return nil, false, err
	}

	existing, err := s.repo.GetUserByEmail(ctx, u.Email)
	switch {
	case err == nil:
		existing.Role = domain.RoleAdmin
		existing.IsActive = true
		existing.PasswordHash = u.PasswordHash
		if err := s.repo.UpdateUser(ctx, existing); err != nil {
			return nil, false, fmt.Errorf("SeedAdmin: promoting: %w", err)
		}
		s.log.Info().Int64("user_id", existing.ID).Str("email", existing.Email).Msg("Promoted existing user to admin")
		return existing, false, nil
	case errors.Is(err, domain.ErrNotFound):
	default:
		return nil, false, fmt.Errorf("SeedAdmin: %w", err)
	}

	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, false, fmt.Errorf("SeedAdmin: %w", err)
	}
	s.log.Info().Int64("user_id", u.ID).Str("email", u.Email).Msg("Created admin user")
	return u, true, nil
}

func (s *Service) newUser(in CreateInput) (*domain.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", domain.ErrValidation)
	}
	role := in.Role
	if role == "" {
		role = domain.RoleWorker
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: invalid role", domain.ErrValidation)
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	return &domain.User{Name: name, Email: email, PasswordHash: hash, Role: role, IsActive: true}, nil
}
