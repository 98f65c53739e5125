// Package service holds the business rules of linkify.
//
//	Handler (HTTP) → Service (rules, authorization) → Repository (SQL)
//
// Services take repository interfaces and a *slog.Logger, never concrete
// stores, so tests run them against in-memory fakes. They speak in domain
// errors from apperror; mapping those to HTTP is the handler's job.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/linkify/internal/apperror"
	"github.com/sakif/linkify/internal/cache"
	"github.com/sakif/linkify/internal/model"
	"github.com/sakif/linkify/internal/repository"
)

// Profile is what the owner sees of their own page settings.
type Profile struct {
	Pseudo string `json:"pseudo"`
	Theme  string `json:"theme"`
}

// AccountService provisions users and manages their page settings.
type AccountService struct {
	users    repository.UserRepository
	profiles cache.ProfileCache
	logger   *slog.Logger
}

func NewAccountService(users repository.UserRepository, profiles cache.ProfileCache, logger *slog.Logger) *AccountService {
	if profiles == nil {
		profiles = cache.Noop{}
	}
	return &AccountService{users: users, profiles: profiles, logger: logger}
}

// ProvisionUser returns the user registered under email, creating it with a
// fresh handle on first login. Existing users keep their handle.
func (s *AccountService) ProvisionUser(ctx context.Context, email, name string) (*model.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	name = strings.TrimSpace(name)

	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		s.logger.Error("failed to look up user",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	return s.createWithHandle(ctx, email, name)
}

// GetByID returns the user behind a session token.
func (s *AccountService) GetByID(ctx context.Context, id string) (*model.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}
	return s.users.GetByID(ctx, id)
}

// Profile returns the owner's handle and theme.
func (s *AccountService) Profile(ctx context.Context, email string) (*Profile, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return &Profile{Pseudo: user.Pseudo, Theme: user.Theme}, nil
}

// UpdateTheme sets the owner's theme. Unknown theme names are rejected
// before anything is written.
func (s *AccountService) UpdateTheme(ctx context.Context, email, theme string) (*model.User, error) {
	theme = strings.TrimSpace(theme)
	if !model.IsValidTheme(theme) {
		return nil, apperror.ValidationFailed("theme", fmt.Sprintf("unknown theme %q", theme))
	}

	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}

	updated, err := s.users.UpdateTheme(ctx, user.ID, theme)
	if err != nil {
		s.logger.Error("failed to update theme",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating theme: %w", err)
	}

	if err := s.profiles.Delete(ctx, updated.Pseudo); err != nil {
		s.logger.Warn("failed to invalidate cached profile",
			slog.String("pseudo", updated.Pseudo),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("theme updated",
		slog.String("userID", updated.ID),
		slog.String("theme", updated.Theme),
	)
	return updated, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
