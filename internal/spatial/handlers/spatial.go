package handlers

import (
	"log/slog"
	"net/http"

	"galactic-server/internal/middleware"
	"galactic-server/internal/shared/errors"
	"galactic-server/internal/shared/response"
	"galactic-server/internal/spatial"
)

type SpatialHandler struct {
	service *spatial.Service
}

func NewSpatialHandler(service *spatial.Service) *SpatialHandler {
	return &SpatialHandler{service: service}
}

func (h *SpatialHandler) GetMap(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("game")
	logger := slog.With("handler", "get_map", "game_id", gameID)

	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	m, err := h.service.GetMap(r.Context(), gameID, claims.UserID, claims.IsAdmin())
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, m)
}
