package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/linkify/internal/auth"
	"github.com/sakif/linkify/internal/model"
)

// AuthService turns a GitHub profile into a provisioned user and a session
// token.
//
//	AuthHandler (HTTP) → AuthService → AccountService → UserRepository
//	                              ↘ TokenService (JWT)
type AuthService struct {
	accounts *AccountService
	tokens   *auth.TokenService
	logger   *slog.Logger
}

func NewAuthService(accounts *AccountService, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{accounts: accounts, tokens: tokens, logger: logger}
}

// AuthResult bundles the user and the signed token so the handler can set
// the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// LoginGitHub provisions the user on first login and issues a token.
func (s *AuthService) LoginGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user, err := s.accounts.ProvisionUser(ctx, gh.Email, gh.DisplayName())
	if err != nil {
		return nil, fmt.Errorf("service/auth: provisioning %s: %w", gh.Login, err)
	}

	token, err := s.tokens.Generate(auth.Identity{UserID: user.ID, Email: user.Email})
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", gh.Login),
	)
	return &AuthResult{User: user, Token: token}, nil
}
