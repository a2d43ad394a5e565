// Package api exposes the HTTP control and query surfaces of both devices.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"example.com/wearsync/internal/domain"
	"example.com/wearsync/internal/recording"
	"example.com/wearsync/internal/syncer"
)

// WearableHandler wires the recording engine and sync orchestrator to the
// wearable's local control API.
type WearableHandler struct {
	engine       *recording.Engine
	sampler      *recording.Sampler
	orchestrator *syncer.Orchestrator
	logger       *zap.Logger

	// appCtx bounds background work spawned by handlers, such as the
	// sampling loop and the post-stop auto-sync.
	appCtx context.Context
}

// NewWearableHandler builds a WearableHandler.
func NewWearableHandler(appCtx context.Context, engine *recording.Engine, sampler *recording.Sampler, orchestrator *syncer.Orchestrator, logger *zap.Logger) *WearableHandler {
	return &WearableHandler{
		engine:       engine,
		sampler:      sampler,
		orchestrator: orchestrator,
		logger:       logger,
		appCtx:       appCtx,
	}
}

// RegisterRoutes wires endpoints to the mux.
func (h *WearableHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/recording/start", h.startRecording)
	mux.HandleFunc("/v1/recording/stop", h.stopRecording)
	mux.HandleFunc("/v1/sync", h.sync)
	mux.HandleFunc("/v1/status", h.status)
	mux.HandleFunc("/v1/sessions/", h.sessionByID)
	mux.HandleFunc("/healthz", healthz)
}

func (h *WearableHandler) startRecording(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	result, err := h.engine.StartRecording(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyRecording) {
			writeError(w, http.StatusConflict, "already_recording", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	h.sampler.Start(h.appCtx, result.SessionID)

	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": result.SessionID,
		"start_time": result.StartTime,
	})
}

type stopRequest struct {
	SessionID int64 `json:"session_id"`
}

func (h *WearableHandler) stopRecording(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	var req stopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	// Validate the target before touching the sampler: a stop request naming
	// the wrong session must not halt an ongoing recording.
	session, err := h.engine.Session(r.Context(), req.SessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("session %d: %s", req.SessionID, domain.ErrSessionNotFound))
		return
	}
	if !session.IsActive {
		writeError(w, http.StatusConflict, "not_recording", fmt.Sprintf("session %d: %s", req.SessionID, domain.ErrNotRecording))
		return
	}

	// The sampler must stop before the session closes so no sample lands
	// after end_time.
	h.sampler.Stop()

	summary, err := h.engine.StopRecording(r.Context(), req.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			writeError(w, http.StatusNotFound, "not_found", err.Error())
		case errors.Is(err, domain.ErrNotRecording):
			writeError(w, http.StatusConflict, "not_recording", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		}
		return
	}

	// Auto-sync the freshly closed session off the request path.
	go func() {
		ctx, cancel := context.WithTimeout(h.appCtx, 30*time.Second)
		defer cancel()
		result := h.orchestrator.SyncSession(ctx, summary.SessionID)
		if !result.Success {
			h.logger.Warn("post-stop sync failed",
				zap.Int64("session_id", summary.SessionID), zap.Error(result.Err))
		}
	}()

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":   summary.SessionID,
		"duration_ms":  summary.DurationMs,
		"sample_count": summary.SampleCount,
	})
}

type syncRequest struct {
	SessionID *int64 `json:"session_id,omitempty"`
}

func (h *WearableHandler) sync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	var req syncRequest
	if r.Body != nil {
		// An empty body means "sync everything".
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if req.SessionID != nil {
		result := h.orchestrator.SyncSession(r.Context(), *req.SessionID)
		status := http.StatusOK
		var detail string
		if !result.Success {
			status = http.StatusBadGateway
			if errors.Is(result.Err, domain.ErrNotTransferable) {
				status = http.StatusConflict
			}
			detail = result.Err.Error()
		}
		writeJSON(w, status, map[string]any{
			"session_id":     result.SessionID,
			"readings_count": result.ReadingsCount,
			"success":        result.Success,
			"error":          detail,
		})
		return
	}

	result, err := h.orchestrator.SyncAllSessions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"synced_count":       result.SyncedCount,
		"total_count":        result.TotalCount,
		"failed_session_ids": result.FailedSessionIDs,
		"total_readings":     result.TotalReadings,
		"success":            result.Success,
	})
}

func (h *WearableHandler) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	recordingNow, err := h.engine.Recording(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	snapshot := h.orchestrator.Status().Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"recording":        recordingNow,
		"is_syncing":       snapshot.IsSyncing,
		"last_sync_result": snapshot.LastResult,
		"pending_sessions": snapshot.PendingCount,
	})
}

func (h *WearableHandler) sessionByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/sessions/")
	idPart, tail, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid session id")
		return
	}

	switch {
	case r.Method == http.MethodGet && tail == "stats":
		stats, err := h.engine.Stats(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"sample_count":   stats.SampleCount,
			"min_heart_rate": stats.MinHeart,
			"max_heart_rate": stats.MaxHeart,
			"avg_heart_rate": stats.AvgHeart,
		})
	case r.Method == http.MethodDelete && tail == "":
		if err := h.engine.PurgeSession(r.Context(), id); err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				writeError(w, http.StatusNotFound, "not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}
