package handlers

import (
	"log/slog"
	"net/http"

	"galactic-server/internal/middleware"
	"galactic-server/internal/player"
	"galactic-server/internal/shared/errors"
	"galactic-server/internal/shared/response"
)

type MeHandler struct {
	service *player.Service
}

func NewMeHandler(service *player.Service) *MeHandler {
	return &MeHandler{service: service}
}

type meResponse struct {
	*player.Player
	Role string `json:"role,omitempty"`
}

func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "me")

	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("no user claims found in context"))
		return
	}

	p, err := h.service.EnsurePlayer(r.Context(), claims.UserID, claims.Name)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, meResponse{Player: p, Role: claims.Role})
}
