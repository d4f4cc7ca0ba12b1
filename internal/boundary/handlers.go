package boundary

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/snapshot-engine/internal/types"
	"github.com/wonny/snapshot-engine/pkg/logger"
)

// snapshotReader is the narrow read-only seam into internal/storage this
// boundary is allowed to call — no write methods are exposed here, so a
// presentation layer wired against this package structurally cannot
// trigger a pipeline run.
type snapshotReader interface {
	LoadSnapshot(ctx context.Context, asof string) ([]types.SnapshotRow, error)
}

// SnapshotHandler serves GET /snapshot/{asof}.
type SnapshotHandler struct {
	store  snapshotReader
	logger *logger.Logger
}

// NewSnapshotHandler builds a SnapshotHandler around a read-only store.
func NewSnapshotHandler(store snapshotReader, log *logger.Logger) *SnapshotHandler {
	return &SnapshotHandler{store: store, logger: log}
}

// GetSnapshot returns every SnapshotRow for the requested as-of date, or
// 404 if no snapshot exists for that date.
func (h *SnapshotHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	asof := mux.Vars(r)["asof"]

	rows, err := h.store.LoadSnapshot(r.Context(), asof)
	if err != nil {
		h.logger.WithError(err).WithField("asof", asof).Error("load snapshot failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load snapshot"})
		return
	}
	if len(rows) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no snapshot for " + asof})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"asof_date": asof,
		"count":     len(rows),
		"rows":      rows,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
