package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"docquery/internal/core"
)

type HealthHandler struct {
	db     core.DbClient
	logger *zap.Logger
}

func NewHealthHandler(db core.DbClient, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

// Check reports liveness plus corpus statistics. Stats failures degrade to
// a healthy response with the error noted, matching the answering path's
// never-fail posture.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "healthy"}

	stats, err := h.db.GetDocumentStats(r.Context())
	if err != nil {
		h.logger.Warn("document stats unavailable", zap.Error(err))
		resp["document_stats"] = map[string]string{"error": err.Error()}
	} else {
		resp["document_stats"] = stats
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
