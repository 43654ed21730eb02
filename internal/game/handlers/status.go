package handlers

import (
	"log/slog"
	"net/http"

	"galactic-server/internal/game"
	"galactic-server/internal/shared/response"
)

type GameStatusHandler struct {
	service *game.Service
}

func NewGameStatusHandler(service *game.Service) *GameStatusHandler {
	return &GameStatusHandler{service: service}
}

func (h *GameStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "game_status", "game_id", r.PathValue("game"))

	status, err := h.service.Status(r.Context(), r.PathValue("game"))
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, status)
}
