package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/linkify/internal/auth"
	"github.com/sakif/linkify/internal/service"
)

// AccountHandler serves the signed-in owner's own resources.
type AccountHandler struct {
	accounts *service.AccountService
	pages    *service.PageService
	logger   *slog.Logger
}

func NewAccountHandler(accounts *service.AccountService, pages *service.PageService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, pages: pages, logger: logger}
}

// HandleMe returns the caller's user record.
//
// HTTP: GET /api/me
func (h *AccountHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, errNoIdentity)
		return
	}

	user, err := h.accounts.GetByID(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleProfile returns the caller's handle and theme, the two settings the
// page editor needs before it loads any links.
//
// HTTP: GET /api/me/profile
func (h *AccountHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	email, err := callerEmail(r)
	if err != nil {
		writeError(w, err)
		return
	}

	profile, err := h.accounts.Profile(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleMyPage returns the caller's page with every link, inactive ones
// included. ?q= filters it like the public page.
//
// HTTP: GET /api/me/page
func (h *AccountHandler) HandleMyPage(w http.ResponseWriter, r *http.Request) {
	email, err := callerEmail(r)
	if err != nil {
		writeError(w, err)
		return
	}

	page, err := h.pages.Search(r.Context(), service.OwnerViewer(email), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(page))
}

type themeRequest struct {
	Theme string `json:"theme"`
}

// HandleUpdateTheme sets the caller's page theme.
//
// HTTP: PUT /api/me/theme
// REQUEST BODY: {"theme": "dracula"}
func (h *AccountHandler) HandleUpdateTheme(w http.ResponseWriter, r *http.Request) {
	email, err := callerEmail(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req themeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.accounts.UpdateTheme(r.Context(), email, req.Theme)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, service.Profile{Pseudo: user.Pseudo, Theme: user.Theme})
}
