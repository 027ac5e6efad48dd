package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/greatgiftheist/agent-hq/internal/middleware"
	"github.com/greatgiftheist/agent-hq/internal/model"
	"github.com/greatgiftheist/agent-hq/internal/store"
	"github.com/greatgiftheist/agent-hq/pkg/logger"
)

// AdminHandler serves the planner's read-only views of stored agents.
type AdminHandler struct {
	profiles store.ProfileStore
	logs     store.SessionLogReader
	logger   *logger.Logger
}

// NewAdminHandler creates a new admin handler. logs may be nil when no
// session log backend is configured.
func NewAdminHandler(profiles store.ProfileStore, logs store.SessionLogReader, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		profiles: profiles,
		logs:     logs,
		logger:   log,
	}
}

// ListProfiles handles GET /api/v1/admin/profiles
func (h *AdminHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profiles.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list profiles", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list profiles")
		return
	}
	if profiles == nil {
		profiles = []model.Profile{}
	}

	writeJSON(w, http.StatusOK, &model.ListProfilesResponse{
		Profiles: profiles,
		Total:    len(profiles),
	})
}

// GetProfile handles GET /api/v1/admin/profiles/{codename}
func (h *AdminHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "codename")
	if err := middleware.ValidateCodename(name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.profiles.GetByCodename(r.Context(), name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		h.logger.Error("failed to get profile", zap.String("codename", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get profile")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// SessionLogs handles GET /api/v1/admin/profiles/{codename}/session-logs
func (h *AdminHandler) SessionLogs(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "codename")
	if err := middleware.ValidateCodename(name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.logs == nil {
		writeError(w, http.StatusNotImplemented, "session logs are not available")
		return
	}

	logs, err := h.logs.SessionLogs(r.Context(), name)
	if err != nil {
		h.logger.Error("failed to read session logs", zap.String("codename", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read session logs")
		return
	}
	if logs == nil {
		logs = []model.SessionLog{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"codename":     name,
		"session_logs": logs,
	})
}
