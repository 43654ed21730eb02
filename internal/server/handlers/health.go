package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"galactic-server/internal/shared/database"
	"galactic-server/internal/shared/response"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Database  string `json:"database"`
	Catalog   string `json:"catalog"`
}

type HealthHandler struct {
	db            *database.DB
	catalogDigest string
}

func NewHealthHandler(db *database.DB, catalogDigest string) *HealthHandler {
	return &HealthHandler{db: db, catalogDigest: catalogDigest}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "health")

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, dbStatus := "healthy", "connected"
	if err := h.db.PingContext(ctx); err != nil {
		logger.Warn("Database ping failed", "error", err)
		status, dbStatus = "degraded", "disconnected"
	}

	resp := HealthResponse{
		Status:    status,
		Timestamp: time.Now().Format(time.RFC3339),
		Database:  dbStatus,
		Catalog:   h.catalogDigest,
	}

	response.Success(w, http.StatusOK, resp)
}
