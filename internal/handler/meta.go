package handler

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/sakif/linkify/internal/model"
	"github.com/sakif/linkify/internal/platform"
	"github.com/sakif/linkify/internal/upload"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MetaHandler serves static reference data and the health check.
type MetaHandler struct {
	db     Pinger
	logger *slog.Logger
}

func NewMetaHandler(db Pinger, logger *slog.Logger) *MetaHandler {
	return &MetaHandler{db: db, logger: logger}
}

type themesResponse struct {
	Default string   `json:"default"`
	Themes  []string `json:"themes"`
}

// HandleThemes lists the page themes.
//
// HTTP: GET /api/themes
func (h *MetaHandler) HandleThemes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, themesResponse{
		Default: model.DefaultTheme,
		Themes:  slices.Clone(model.Themes),
	})
}

type platformsResponse struct {
	Platforms   []platform.Platform `json:"platforms"`
	UploadTypes []string            `json:"uploadTypes"`
}

// HandlePlatforms lists the known platforms with their URL prefixes and the
// file types accepted by uploads.
//
// HTTP: GET /api/platforms
func (h *MetaHandler) HandlePlatforms(w http.ResponseWriter, r *http.Request) {
	types := upload.AllowedTypes()
	slices.Sort(types)
	writeJSON(w, http.StatusOK, platformsResponse{Platforms: platform.All(), UploadTypes: types})
}

// HandleHealth pings the database.
//
// HTTP: GET /healthz
// 200 {"status":"ok"} or 503 {"status":"unavailable"}.
func (h *MetaHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
