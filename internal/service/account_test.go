package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/linkify/internal/apperror"
	"github.com/sakif/linkify/internal/cache"
	"github.com/sakif/linkify/internal/model"
)

func TestProvisionUser_Idempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.accounts.ProvisionUser(ctx, "Ada@Example.com ", "Ada Lovelace")
	if err != nil {
		t.Fatalf("first ProvisionUser() error = %v", err)
	}
	// A later login with a new display name must not re-allocate the handle.
	second, err := f.accounts.ProvisionUser(ctx, "ada@example.com", "Countess")
	if err != nil {
		t.Fatalf("second ProvisionUser() error = %v", err)
	}

	if first.ID != second.ID || second.Pseudo != "ada_lovelace" {
		t.Errorf("second login got %+v, want same user with pseudo ada_lovelace", second)
	}
	if first.Theme != model.DefaultTheme {
		t.Errorf("Theme = %q, want %q", first.Theme, model.DefaultTheme)
	}
	if first.Email != "ada@example.com" {
		t.Errorf("Email = %q, want normalised address", first.Email)
	}
}

func TestProvisionUser_EmptyEmail(t *testing.T) {
	f := newFixture()

	_, err := f.accounts.ProvisionUser(context.Background(), "  ", "Ada")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestProvisionUser_StoreFailure(t *testing.T) {
	f := newFixture()
	f.users.getErr = errDatabaseDown

	_, err := f.accounts.ProvisionUser(context.Background(), "ada@example.com", "Ada")
	if !errors.Is(err, errDatabaseDown) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
	if f.users.creates != 0 {
		t.Error("no user may be created when the lookup fails")
	}
}

func TestProfile(t *testing.T) {
	f := newFixture()
	f.mustUser("ada@example.com", "Ada")

	p, err := f.accounts.Profile(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if p.Pseudo != "ada" || p.Theme != model.DefaultTheme {
		t.Errorf("Profile() = %+v", p)
	}

	if _, err := f.accounts.Profile(context.Background(), "nobody@example.com"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// =========================================================================
// THEME TESTS
// =========================================================================

func TestUpdateTheme(t *testing.T) {
	f := newFixture()
	user := f.mustUser("ada@example.com", "Ada")
	f.cache.Set(context.Background(), &cache.Profile{UserID: user.ID, Pseudo: user.Pseudo, Theme: "retro"})

	updated, err := f.accounts.UpdateTheme(context.Background(), "ada@example.com", "dracula")
	if err != nil {
		t.Fatalf("UpdateTheme() error = %v", err)
	}
	if updated.Theme != "dracula" {
		t.Errorf("Theme = %q, want dracula", updated.Theme)
	}
	if cached, _ := f.cache.Get(context.Background(), user.Pseudo); cached != nil {
		t.Error("cached profile not invalidated after theme change")
	}
}

func TestUpdateTheme_RejectsUnknownTheme(t *testing.T) {
	f := newFixture()
	user := f.mustUser("ada@example.com", "Ada")

	_, err := f.accounts.UpdateTheme(context.Background(), "ada@example.com", "solarized")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	stored, _ := f.users.GetByID(context.Background(), user.ID)
	if stored.Theme != model.DefaultTheme {
		t.Errorf("theme changed to %q despite validation failure", stored.Theme)
	}
}

func TestUpdateTheme_UnknownUser(t *testing.T) {
	f := newFixture()

	_, err := f.accounts.UpdateTheme(context.Background(), "nobody@example.com", "dark")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
