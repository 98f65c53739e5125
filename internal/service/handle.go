package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/sakif/linkify/internal/apperror"
	"github.com/sakif/linkify/internal/model"
)

// MaxHandleAttempts bounds the suffix search for a free handle.
const MaxHandleAttempts = 1000

// BaseHandle derives the handle stem from a display name: lower-cased,
// whitespace runs collapsed to "_", characters that are not letters, digits,
// "_", "-" or "." dropped. When nothing is left the local part of email is
// used, and "user" as a last resort.
func BaseHandle(displayName, email string) string {
	if h := sanitizeHandle(strings.Join(strings.Fields(displayName), "_")); h != "" {
		return h
	}
	local, _, _ := strings.Cut(email, "@")
	if h := sanitizeHandle(local); h != "" {
		return h
	}
	return "user"
}

func sanitizeHandle(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.' {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "._-")
}

// handleCandidate returns base, base1, base2, ... for attempt 0, 1, 2, ...
func handleCandidate(base string, attempt int) string {
	if attempt == 0 {
		return base
	}
	return base + strconv.Itoa(attempt)
}

// createWithHandle inserts a new user under the first free handle.
//
// PseudoExists skips handles that are visibly taken, but only the UNIQUE
// index is authoritative: two first logins with the same name can both see
// "ada" as free. The loser gets a pseudo conflict and moves on to the next
// suffix. An email conflict means the same person logged in twice at once;
// the row the other request created is returned.
func (s *AccountService) createWithHandle(ctx context.Context, email, name string) (*model.User, error) {
	base := BaseHandle(name, email)

	for attempt := 0; attempt < MaxHandleAttempts; attempt++ {
		candidate := handleCandidate(base, attempt)

		taken, err := s.users.PseudoExists(ctx, candidate)
		if err != nil {
			return nil, fmt.Errorf("checking handle %s: %w", candidate, err)
		}
		if taken {
			continue
		}

		user := &model.User{
			Email:  email,
			Name:   name,
			Pseudo: candidate,
			Theme:  model.DefaultTheme,
		}
		err = s.users.Create(ctx, user)
		if err == nil {
			s.logger.Info("user provisioned",
				slog.String("userID", user.ID),
				slog.String("pseudo", user.Pseudo),
			)
			return user, nil
		}

		var appErr *apperror.AppError
		if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrConflict) {
			return nil, fmt.Errorf("creating user: %w", err)
		}
		if appErr.Field == "email" {
			return s.users.GetByEmail(ctx, email)
		}
		s.logger.Debug("handle taken concurrently, trying next",
			slog.String("pseudo", candidate),
		)
	}

	return nil, &apperror.AppError{
		Err:     apperror.ErrConflict,
		Message: fmt.Sprintf("no free handle for %q after %d attempts", base, MaxHandleAttempts),
		Field:   "pseudo",
	}
}
