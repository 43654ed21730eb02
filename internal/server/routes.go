package server

import (
	"log/slog"
	"net/http"

	"galactic-server/internal/game"
	gameHandlers "galactic-server/internal/game/handlers"
	"galactic-server/internal/middleware"
	"galactic-server/internal/player"
	playerHandlers "galactic-server/internal/player/handlers"
	serverHandlers "galactic-server/internal/server/handlers"
	"galactic-server/internal/shared/cookies"
	"galactic-server/internal/shared/database"
	"galactic-server/internal/spatial"
	spatialHandlers "galactic-server/internal/spatial/handlers"
)

type Routes struct {
	db            *database.DB
	gameService   *game.Service
	playerService *player.Service
	mapService    *spatial.Service
	authenticator *middleware.Authenticator
	catalogDigest string
	cookies       cookies.Settings
	logger        *slog.Logger
}

func NewRoutes(db *database.DB, gameService *game.Service, playerService *player.Service, mapService *spatial.Service, authenticator *middleware.Authenticator, catalogDigest string, cookieSettings cookies.Settings, logger *slog.Logger) *Routes {
	return &Routes{
		db:            db,
		gameService:   gameService,
		playerService: playerService,
		mapService:    mapService,
		authenticator: authenticator,
		catalogDigest: catalogDigest,
		cookies:       cookieSettings,
		logger:        logger,
	}
}

func (r *Routes) Setup() *http.ServeMux {
	logger := r.logger.With("component", "routes", "operation", "setup")
	logger.Debug("Setting up application routes")

	mux := http.NewServeMux()

	healthHandler := serverHandlers.NewHealthHandler(r.db, r.catalogDigest)
	logoutHandler := serverHandlers.NewLogoutHandler(r.cookies)
	gameStatusHandler := gameHandlers.NewGameStatusHandler(r.gameService)
	gameHandler := gameHandlers.NewGameHandler(r.gameService, r.playerService)
	meHandler := playerHandlers.NewMeHandler(r.playerService)
	mapHandler := spatialHandlers.NewSpatialHandler(r.mapService)
	empireHandler := gameHandlers.NewEmpireHandler(r.gameService)

	auth := func(h http.HandlerFunc) http.Handler { return r.authenticator.JWT(h) }
	admin := func(h http.HandlerFunc) http.Handler { return r.authenticator.RequireAdmin(h) }

	// Public endpoints
	mux.Handle("GET /api/server/health", healthHandler)
	mux.Handle("GET /api/games/{game}", gameStatusHandler)
	mux.Handle("POST /auth/logout", logoutHandler)

	// Protected endpoints (authenticated users)
	mux.Handle("GET /api/players/me", r.authenticator.JWT(meHandler))
	mux.Handle("POST /api/games", auth(gameHandler.CreateGame))
	mux.Handle("POST /api/games/{game}/join", auth(gameHandler.JoinGame))
	mux.Handle("GET /api/games/{game}/map", auth(mapHandler.GetMap))

	const empire = "/api/games/{game}/empires/{empire}"
	mux.Handle("GET "+empire, auth(empireHandler.GetEmpire))
	mux.Handle("GET "+empire+"/aggregates/{aggregate}", auth(empireHandler.GetAggregate))
	mux.Handle("GET "+empire+"/variables/{variable}", auth(empireHandler.ExplainVariable))
	mux.Handle("GET "+empire+"/jobs", auth(empireHandler.ListJobs))
	mux.Handle("POST "+empire+"/jobs", auth(empireHandler.CreateJob))
	mux.Handle("DELETE "+empire+"/jobs/{job}", auth(empireHandler.CancelJob))

	// Admin-only endpoints
	mux.Handle("POST /api/games/{game}/start", admin(gameHandler.StartGame))
	mux.Handle("PUT /api/games/{game}/speed", admin(gameHandler.SetSpeed))

	logger.Info("Routes configured successfully",
		"public_endpoints", []string{"/api/server/health", "/api/games/{game}", "/auth/logout"},
		"protected_endpoints", []string{"/api/players/me", "/api/games", "/api/games/{game}/join", "/api/games/{game}/map", empire + "/..."},
		"admin_endpoints", []string{"/api/games/{game}/start", "/api/games/{game}/speed"},
	)

	return mux
}
