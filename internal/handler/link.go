// Package handler turns HTTP requests into service calls and service results
// into JSON. Handlers parse input, call one service method and write the
// response; they hold no business rules.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/linkify/internal/model"
	"github.com/sakif/linkify/internal/platform"
	"github.com/sakif/linkify/internal/repository"
	"github.com/sakif/linkify/internal/service"
)

// LinkHandler exposes link mutations and click accounting.
type LinkHandler struct {
	links  *service.LinkService
	logger *slog.Logger
}

func NewLinkHandler(links *service.LinkService, logger *slog.Logger) *LinkHandler {
	return &LinkHandler{links: links, logger: logger}
}

// linkResponse is a link as rendered to clients. EmbedURL is set for
// YouTube videos so pages can show a player instead of a plain link.
type linkResponse struct {
	model.SocialLink
	EmbedURL string `json:"embedUrl,omitempty"`
}

func newLinkResponse(l model.SocialLink) linkResponse {
	return linkResponse{SocialLink: l, EmbedURL: platform.YouTubeEmbedURL(l.URL)}
}

type pageResponse struct {
	Pseudo string         `json:"pseudo"`
	Theme  string         `json:"theme"`
	Links  []linkResponse `json:"links"`
}

func newPageResponse(p *service.Page) pageResponse {
	links := make([]linkResponse, 0, len(p.Links))
	for _, l := range p.Links {
		links = append(links, newLinkResponse(l))
	}
	return pageResponse{Pseudo: p.Pseudo, Theme: p.Theme, Links: links}
}

type createLinkRequest struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Pseudo      string `json:"pseudo"`
	Description string `json:"description"`
}

// HandleCreate adds a link to the caller's page.
//
// HTTP: POST /api/links
// REQUEST BODY: {"title": "GitHub", "url": "https://github.com/ada", "pseudo": "ada", "description": ""}
func (h *LinkHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	email, err := callerEmail(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req createLinkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	link, err := h.links.Add(r.Context(), email, service.LinkInput{
		Title:       req.Title,
		URL:         req.URL,
		Pseudo:      req.Pseudo,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newLinkResponse(*link))
}

// updateLinkRequest uses pointers so absent fields are left unchanged.
type updateLinkRequest struct {
	Title       *string `json:"title"`
	URL         *string `json:"url"`
	Pseudo      *string `json:"pseudo"`
	Description *string `json:"description"`
}

// HandleUpdate changes some fields of one of the caller's links.
//
// HTTP: PATCH /api/links/{id}
func (h *LinkHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	email, err := callerEmail(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateLinkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	link, err := h.links.Update(r.Context(), email, chi.URLParam(r, "id"), repository.LinkPatch{
		Title:       req.Title,
		URL:         req.URL,
		Pseudo:      req.Pseudo,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newLinkResponse(*link))
}

// HandleToggle flips a link between visible and hidden.
//
// HTTP: POST /api/links/{id}/toggle
func (h *LinkHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	email, err := callerEmail(r)
	if err != nil {
		writeError(w, err)
		return
	}

	link, err := h.links.ToggleActive(r.Context(), email, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newLinkResponse(*link))
}

// HandleDelete removes one of the caller's links.
//
// HTTP: DELETE /api/links/{id}
// Returns 204 No Content on success.
func (h *LinkHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	email, err := callerEmail(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.links.Remove(r.Context(), email, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type clickResponse struct {
	ID     string `json:"id"`
	Clicks int64  `json:"clicks"`
}

// HandleClick counts a visitor click on an active link. Anonymous.
//
// HTTP: POST /api/links/{id}/click
func (h *LinkHandler) HandleClick(w http.ResponseWriter, r *http.Request) {
	link, err := h.links.RecordClick(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clickResponse{ID: link.ID, Clicks: link.Clicks})
}
