// Package handler provides HTTP handlers for the API.
package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/greatgiftheist/agent-hq/internal/middleware"
	"github.com/greatgiftheist/agent-hq/internal/model"
	"github.com/greatgiftheist/agent-hq/internal/service"
	"github.com/greatgiftheist/agent-hq/pkg/logger"
)

// SessionHandler handles onboarding session endpoints.
type SessionHandler struct {
	service *service.SessionService
	logger  *logger.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(svc *service.SessionService, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		service: svc,
		logger:  log,
	}
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.StartSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ReturningCodename != "" {
		if err := middleware.ValidateCodename(req.ReturningCodename); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.ResumeToken != "" {
		if err := middleware.ValidateSessionID(req.ResumeToken); err != nil {
			writeError(w, http.StatusBadRequest, "invalid resume token")
			return
		}
	}

	resp, err := h.service.Start(ctx, &req)
	if err != nil {
		h.logger.Error("failed to start session",
			zap.String("correlation_id", middleware.GetCorrelationID(ctx)),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to start session")
		return
	}

	w.Header().Set("X-Stream-URL", "/api/v1/sessions/"+resp.SessionID+"/stream")
	writeJSON(w, http.StatusCreated, resp)
}

// Get handles GET /api/v1/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.service.Get(ctx, sessionID)
	if err != nil {
		h.writeServiceError(w, r, sessionID, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Send handles POST /api/v1/sessions/{id}/messages
func (h *SessionHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "id")

	req, ok := parseInput(w, r, sessionID)
	if !ok {
		return
	}

	resp, err := h.service.Handle(ctx, sessionID, req.Text)
	if err != nil {
		h.writeServiceError(w, r, sessionID, err)
		return
	}

	h.logger.WithSession(middleware.GetCorrelationID(ctx), sessionID, resp.Codename).
		Debug("turn handled", zap.String("state", resp.State), zap.Int("replies", len(resp.Messages)))
	writeJSON(w, http.StatusOK, resp)
}

// parseInput validates the session ID and decodes a SendInputRequest,
// writing the error response itself when either is invalid.
func parseInput(w http.ResponseWriter, r *http.Request, sessionID string) (model.SendInputRequest, bool) {
	var req model.SendInputRequest
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if err := middleware.ValidateMessageContent(req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	return req, true
}

func (h *SessionHandler) writeServiceError(w http.ResponseWriter, r *http.Request, sessionID string, err error) {
	if errors.Is(err, service.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	h.logger.WithSession(middleware.GetCorrelationID(r.Context()), sessionID, "").
		Error("session request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "session request failed")
}
