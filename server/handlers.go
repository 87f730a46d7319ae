package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"musicstream/core/catalog"
	"musicstream/db"
	"musicstream/logger"
	"musicstream/storage"
)

// APIHandler dispatches API requests to the catalog service. Every
// operation has exactly one handler and one call path into the core.
type APIHandler struct {
	catalog    *catalog.Service
	mgr        *db.Manager
	blobs      *storage.MinioStore
	candidates []db.Candidate
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(svc *catalog.Service, mgr *db.Manager, blobs *storage.MinioStore, candidates []db.Candidate) *APIHandler {
	return &APIHandler{
		catalog:    svc,
		mgr:        mgr,
		blobs:      blobs,
		candidates: candidates,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", logger.ErrorField(err))
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeError maps each core error kind to its own stable status and code.
func writeError(w http.ResponseWriter, err error) {
	var status int
	var code string

	switch {
	case errors.Is(err, catalog.ErrValidation):
		status, code = http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, catalog.ErrInvalidCredentials):
		status, code = http.StatusUnauthorized, "INVALID_CREDENTIALS"
	case errors.Is(err, catalog.ErrForbidden):
		status, code = http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, catalog.ErrTrackNotFound):
		status, code = http.StatusNotFound, "TRACK_NOT_FOUND"
	case errors.Is(err, catalog.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, catalog.ErrDuplicateEmail):
		status, code = http.StatusConflict, "DUPLICATE_EMAIL"
	case errors.Is(err, db.ErrNotConnected), errors.Is(err, db.ErrConnectionExhausted):
		status, code = http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE"
	default:
		status, code = http.StatusInternalServerError, "INTERNAL"
		logger.Error("internal error", logger.ErrorField(err))
	}

	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

// HealthHandler reports API liveness and the store health snapshot.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	snapshot := h.mgr.HealthSnapshot(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"api":       "healthy",
		"database":  snapshot,
		"timestamp": time.Now().UTC(),
	})
}

// DBTestHandler probes the store and, when the handle is gone or stale,
// attempts one re-acquisition over the configured candidates. Resilience is
// pull-based: this and the next failed operation are the only triggers for
// reconnecting, there is no background retry loop.
func (h *APIHandler) DBTestHandler(w http.ResponseWriter, r *http.Request) {
	snapshot := h.mgr.HealthSnapshot(r.Context())
	if snapshot.Status != db.StatusConnected {
		logger.Info("store unhealthy, attempting re-acquisition",
			logger.String("status", string(snapshot.Status)))
		if label, err := h.mgr.Acquire(r.Context(), h.candidates); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status":   "failed",
				"message":  "could not connect to database",
				"database": snapshot,
			})
			return
		} else {
			h.mgr.EnsureIndexes(r.Context())
			logger.Info("store re-acquired", logger.String("candidate", label))
		}
		snapshot = h.mgr.HealthSnapshot(r.Context())
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"database": snapshot,
	})
}
