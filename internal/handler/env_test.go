package handler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/linkify/internal/auth"
	"github.com/sakif/linkify/internal/handler"
	"github.com/sakif/linkify/internal/repository/sqlite"
	"github.com/sakif/linkify/internal/service"
	"github.com/sakif/linkify/internal/upload"
)

// fakeGitHub stands in for the OAuth provider.
type fakeGitHub struct {
	user *auth.GitHubUser
	err  error
	code string // last code exchanged
}

func (f *fakeGitHub) AuthURL(state string) string {
	return "https://github.example/login/oauth/authorize?state=" + state
}

func (f *fakeGitHub) Exchange(_ context.Context, code string) (*auth.GitHubUser, error) {
	f.code = code
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

// testEnv is the HTTP API backed by real services on in-memory SQLite.
type testEnv struct {
	t         *testing.T
	router    chi.Router
	tokens    *auth.TokenService
	accounts  *service.AccountService
	links     *service.LinkService
	github    *fakeGitHub
	uploadDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens, err := auth.NewTokenService("handler-test-secret-0123456789abcdef", time.Hour)
	require.NoError(t, err)

	uploadDir := t.TempDir()
	host, err := upload.NewLocal(uploadDir, "http://linkify.test")
	require.NoError(t, err)

	accounts := service.NewAccountService(db.Users(), nil, logger)
	links := service.NewLinkService(db.Users(), db.Links(), host, nil, logger)
	pages := service.NewPageService(db.Users(), db.Links(), nil, nil, logger)
	authSvc := service.NewAuthService(accounts, tokens, logger)

	gh := &fakeGitHub{}
	authH := handler.NewAuthHandler(gh, authSvc, tokens, false, "/", logger)
	accountH := handler.NewAccountHandler(accounts, pages, logger)
	linkH := handler.NewLinkHandler(links, logger)
	pageH := handler.NewPageHandler(pages, logger)
	metaH := handler.NewMetaHandler(db, logger)

	r := chi.NewRouter()
	r.Get("/healthz", metaH.HandleHealth)
	r.Route("/auth", func(r chi.Router) {
		r.Get("/github/login", authH.HandleGitHubLogin)
		r.Get("/github/callback", authH.HandleGitHubCallback)
		r.Post("/logout", authH.HandleLogout)
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/themes", metaH.HandleThemes)
		r.Get("/platforms", metaH.HandlePlatforms)
		r.Get("/pages/{pseudo}", pageH.HandlePublicPage)
		r.Post("/links/{id}/click", linkH.HandleClick)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/me", accountH.HandleMe)
			r.Get("/me/profile", accountH.HandleProfile)
			r.Get("/me/page", accountH.HandleMyPage)
			r.Put("/me/theme", accountH.HandleUpdateTheme)
			r.Post("/links", linkH.HandleCreate)
			r.Patch("/links/{id}", linkH.HandleUpdate)
			r.Post("/links/{id}/toggle", linkH.HandleToggle)
			r.Delete("/links/{id}", linkH.HandleDelete)
			r.Post("/links/{id}/upload", linkH.HandleUpload)
		})
	})

	return &testEnv{
		t:         t,
		router:    r,
		tokens:    tokens,
		accounts:  accounts,
		links:     links,
		github:    gh,
		uploadDir: uploadDir,
	}
}

// session provisions a user and returns their session cookie.
func (e *testEnv) session(email, name string) *http.Cookie {
	e.t.Helper()
	user, err := e.accounts.ProvisionUser(context.Background(), email, name)
	require.NoError(e.t, err)
	token, err := e.tokens.Generate(auth.Identity{UserID: user.ID, Email: user.Email})
	require.NoError(e.t, err)
	return &http.Cookie{Name: auth.CookieName, Value: token}
}

func (e *testEnv) do(method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return e.serve(req)
}

func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// failingPinger reports the database as unreachable.
type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("database is locked") }
