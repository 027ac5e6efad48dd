package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/greatgiftheist/agent-hq/internal/middleware"
	"github.com/greatgiftheist/agent-hq/internal/model"
	"github.com/greatgiftheist/agent-hq/internal/service"
	"github.com/greatgiftheist/agent-hq/pkg/logger"
	"github.com/greatgiftheist/agent-hq/pkg/metrics"
)

// StreamHandler handles SSE streaming endpoints.
type StreamHandler struct {
	service   *service.SessionService
	logger    *logger.Logger
	heartbeat time.Duration
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(svc *service.SessionService, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		service:   svc,
		logger:    log,
		heartbeat: 30 * time.Second,
	}
}

// Stream handles GET /api/v1/sessions/{id}/stream. It replays the transcript,
// then pushes every later turn on the session as message events followed by
// a done event, with heartbeats in between.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Subscribe first so no turn lands between the replay and the live feed.
	updates, unsubscribe := h.service.Subscribe(sessionID)
	defer unsubscribe()

	view, err := h.service.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger.Error("failed to load session", zap.String("session_id", sessionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	// The server write timeout would otherwise cut a long-lived stream.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.Warn("failed to clear write deadline", zap.String("session_id", sessionID), zap.Error(err))
	}

	flusher, ok := startSSE(w)
	if !ok {
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	sendSSEEvent(w, flusher, "connected", map[string]string{
		"session_id": sessionID,
	})

	for _, rec := range view.Transcript {
		select {
		case <-ctx.Done():
			return
		default:
		}
		sendSSEEvent(w, flusher, "message", rec)
	}
	sent := len(view.Transcript)
	sendSSEEvent(w, flusher, "replay_complete", &model.ReplayCompleteEvent{
		MessageCount: sent,
	})

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("SSE client disconnected", zap.String("session_id", sessionID))
			return
		case <-heartbeat.C:
			sendSSEEvent(w, flusher, "heartbeat", &model.HeartbeatEvent{
				Timestamp: time.Now(),
			})
		case u, open := <-updates:
			if !open {
				return
			}
			end := u.Offset + len(u.Records)
			if end <= sent {
				// Already part of the replay.
				continue
			}
			for i, rec := range u.Records {
				if u.Offset+i < sent {
					continue
				}
				sendSSEEvent(w, flusher, "message", rec)
			}
			sent = end
			sendSSEEvent(w, flusher, "done", &model.TurnCompleteEvent{
				SessionID: u.Turn.SessionID,
				State:     u.Turn.State,
				Codename:  u.Turn.Codename,
				Ended:     u.Turn.Ended,
			})
			if u.Turn.Ended {
				return
			}
		}
	}
}

// StreamWithMessage handles POST /api/v1/sessions/{id}/stream. It feeds one
// line of input and streams each HQ reply as a message event.
func (h *StreamHandler) StreamWithMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "id")

	req, ok := parseInput(w, r, sessionID)
	if !ok {
		return
	}

	resp, err := h.service.Handle(ctx, sessionID, req.Text)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger.Error("failed to handle input", zap.String("session_id", sessionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to handle input")
		return
	}

	flusher, ok := startSSE(w)
	if !ok {
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	for _, rec := range resp.Messages {
		if err := sendSSEEvent(w, flusher, "message", rec); err != nil {
			sendSSEEvent(w, flusher, "error", &model.ErrorEvent{
				Code:    "stream_error",
				Message: "failed to encode message",
			})
			return
		}
	}

	sendSSEEvent(w, flusher, "done", &model.TurnCompleteEvent{
		SessionID: resp.SessionID,
		State:     resp.State,
		Codename:  resp.Codename,
		Ended:     resp.Ended,
	})
}

func startSSE(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)
	return flusher, true
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()

	return nil
}
