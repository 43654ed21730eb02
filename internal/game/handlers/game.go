package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"galactic-server/internal/empire"
	"galactic-server/internal/game"
	"galactic-server/internal/middleware"
	"galactic-server/internal/player"
	"galactic-server/internal/shared/errors"
	"galactic-server/internal/shared/response"
)

const maxBodyBytes = 1 << 20

type GameHandler struct {
	service *game.Service
	players *player.Service
}

func NewGameHandler(service *game.Service, players *player.Service) *GameHandler {
	return &GameHandler{service: service, players: players}
}

// decode reads a JSON request body into v.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.WrapValidation("invalid JSON in request body", err)
	}
	return nil
}

// actor is the authenticated caller; routes using it sit behind the JWT
// middleware.
func actor(r *http.Request) (game.Actor, error) {
	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		return game.Actor{}, errors.Unauthorized("authentication required")
	}
	return game.Actor{UserID: claims.UserID, Admin: claims.IsAdmin()}, nil
}

func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "create_game")

	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	var req game.CreateRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if _, err := h.players.EnsurePlayer(ctx, claims.UserID, claims.Name); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	created, err := h.service.CreateGame(ctx, claims.UserID, req)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, created)
}

func (h *GameHandler) JoinGame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	gameID := r.PathValue("game")
	logger := slog.With("handler", "join_game", "game_id", gameID)

	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	var req empire.CreateRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if _, err := h.players.EnsurePlayer(ctx, claims.UserID, claims.Name); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	e, err := h.service.Join(ctx, gameID, claims.UserID, req)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, e)
}

func (h *GameHandler) StartGame(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("game")
	logger := slog.With("handler", "start_game", "game_id", gameID)

	started, err := h.service.StartGame(r.Context(), gameID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, started)
}

type speedRequest struct {
	Speed game.Speed `json:"speed"`
}

func (h *GameHandler) SetSpeed(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("game")
	logger := slog.With("handler", "set_speed", "game_id", gameID)

	var req speedRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	updated, err := h.service.SetSpeed(r.Context(), gameID, req.Speed)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, updated)
}
