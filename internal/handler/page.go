package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/linkify/internal/service"
)

// PageHandler serves public pages.
type PageHandler struct {
	pages  *service.PageService
	logger *slog.Logger
}

func NewPageHandler(pages *service.PageService, logger *slog.Logger) *PageHandler {
	return &PageHandler{pages: pages, logger: logger}
}

// HandlePublicPage returns the active links of the page at {pseudo},
// filtered by the optional fuzzy query ?q=.
//
// HTTP: GET /api/pages/{pseudo}?q=github
func (h *PageHandler) HandlePublicPage(w http.ResponseWriter, r *http.Request) {
	viewer := service.PublicViewer(chi.URLParam(r, "pseudo"))

	page, err := h.pages.Search(r.Context(), viewer, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(page))
}
