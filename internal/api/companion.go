package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"example.com/wearsync/internal/cloud"
	"example.com/wearsync/internal/domain"
	"example.com/wearsync/internal/ingest"
)

// CompanionStore is the companion API's view of local persistence.
type CompanionStore interface {
	ListSessions(ctx context.Context) ([]domain.CompanionSession, error)
	GetSession(ctx context.Context, id int64) (*domain.CompanionSession, error)
	SamplesForSession(ctx context.Context, sessionID int64) ([]domain.SampleRecord, error)
	DeleteSession(ctx context.Context, id int64) error
}

// CompanionHandler serves ingested sessions, live telemetry, and cloud sync
// operations.
type CompanionHandler struct {
	store   CompanionStore
	manager *cloud.Manager
	live    *ingest.LiveCache
	logger  *zap.Logger
}

// NewCompanionHandler builds a CompanionHandler.
func NewCompanionHandler(store CompanionStore, manager *cloud.Manager, live *ingest.LiveCache, logger *zap.Logger) *CompanionHandler {
	return &CompanionHandler{store: store, manager: manager, live: live, logger: logger}
}

// RegisterRoutes wires endpoints to the mux.
func (h *CompanionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/sessions", h.listSessions)
	mux.HandleFunc("/v1/sessions/", h.sessionByID)
	mux.HandleFunc("/v1/live", h.liveSample)
	mux.HandleFunc("/v1/cloud/sync", h.cloudSync)
	mux.HandleFunc("/v1/cloud/sessions", h.listCloudSessions)
	mux.HandleFunc("/v1/cloud/sessions/", h.cloudSessionByID)
	mux.HandleFunc("/healthz", healthz)
}

func (h *CompanionHandler) listSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	sessions, err := h.store.ListSessions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]SessionView, 0, len(sessions))
	for _, session := range sessions {
		items = append(items, toSessionView(session))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *CompanionHandler) sessionByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/sessions/")
	idPart, tail, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid session id")
		return
	}

	switch {
	case r.Method == http.MethodGet && tail == "samples":
		h.sessionSamples(w, r, id)
	case r.Method == http.MethodPost && tail == "upload":
		h.uploadSession(w, r, id)
	case r.Method == http.MethodDelete && tail == "":
		h.deleteSession(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *CompanionHandler) sessionSamples(w http.ResponseWriter, r *http.Request, id int64) {
	samples, err := h.store.SamplesForSession(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]SampleView, 0, len(samples))
	for _, rec := range samples {
		items = append(items, toSampleView(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *CompanionHandler) uploadSession(w http.ResponseWriter, r *http.Request, id int64) {
	session, err := h.store.GetSession(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "not_found", "session not found")
		return
	}

	samples, err := h.store.SamplesForSession(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	var lastProgress float64
	success := h.manager.UploadSession(r.Context(), *session, samples, func(fraction float64) {
		lastProgress = fraction
	})

	status := http.StatusOK
	if !success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]any{
		"session_id": id,
		"success":    success,
		"progress":   lastProgress,
	})
}

func (h *CompanionHandler) deleteSession(w http.ResponseWriter, r *http.Request, id int64) {
	session, err := h.store.GetSession(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "not_found", "session not found")
		return
	}

	if r.URL.Query().Get("cloud") == "true" {
		if !h.manager.DeleteCloudSession(r.Context(), session.CloudID) {
			h.logger.Warn("cloud delete incomplete", zap.String("cloud_id", session.CloudID))
		}
	}

	if err := h.store.DeleteSession(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CompanionHandler) liveSample(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	sample, err := h.live.Latest(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if sample == nil {
		writeError(w, http.StatusNotFound, "not_found", "no fresh live sample")
		return
	}
	writeJSON(w, http.StatusOK, sample)
}

func (h *CompanionHandler) cloudSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	result, err := h.manager.SyncAllLocalSessions(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"uploaded_count": result.UploadedCount,
		"skipped_count":  result.SkippedCount,
		"total_count":    result.TotalCount,
		"failed_ids":     result.FailedIDs,
		"success":        result.Success,
	})
}

func (h *CompanionHandler) listCloudSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	sessions, err := h.manager.DownloadAllSessions(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]CloudSessionView, 0, len(sessions))
	for _, session := range sessions {
		items = append(items, toCloudSessionView(session))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *CompanionHandler) cloudSessionByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/cloud/sessions/")
	cloudID, tail, _ := strings.Cut(rest, "/")
	if cloudID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing session id")
		return
	}

	switch {
	case r.Method == http.MethodGet && tail == "":
		session, err := h.manager.DownloadSession(r.Context(), cloudID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		if session == nil {
			writeError(w, http.StatusNotFound, "not_found", "cloud session not found")
			return
		}
		writeJSON(w, http.StatusOK, toCloudSessionView(*session))
	case r.Method == http.MethodGet && tail == "samples":
		samples, err := h.manager.DownloadSamples(r.Context(), cloudID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		items := make([]SampleView, 0, len(samples))
		for _, sample := range samples {
			items = append(items, SampleView{
				Timestamp: sample.Timestamp,
				HeartRate: sample.HeartRate,
				GyroX:     sample.GyroX,
				GyroY:     sample.GyroY,
				GyroZ:     sample.GyroZ,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case r.Method == http.MethodDelete && tail == "":
		if !h.manager.DeleteCloudSession(r.Context(), cloudID) {
			writeError(w, http.StatusBadGateway, "cloud_error", "cloud delete failed")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}
