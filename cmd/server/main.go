package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"galactic-server/internal/auth"
	"galactic-server/internal/catalog"
	"galactic-server/internal/economy"
	"galactic-server/internal/galaxy"
	"galactic-server/internal/game"
	"galactic-server/internal/job"
	"galactic-server/internal/middleware"
	"galactic-server/internal/player"
	"galactic-server/internal/server"
	"galactic-server/internal/shared/config"
	"galactic-server/internal/shared/cookies"
	"galactic-server/internal/shared/database"
	"galactic-server/internal/shared/lock"
	"galactic-server/internal/shared/logger"
	"galactic-server/internal/shared/redis"
	"galactic-server/internal/shared/telemetry"
	"galactic-server/internal/snapshot"
	"galactic-server/internal/spatial"

	"golang.org/x/sync/errgroup"
)

func main() {
	if err := config.Init(); err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.Init()

	if err := run(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.GlobalConfig
	log := slog.With("component", "main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("Failed to flush traces", "error", err)
		}
	}()

	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", "error", err)
		}
	}()
	if err := db.RunMigrations(ctx); err != nil {
		return err
	}

	redisClient, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis", "error", err)
		}
	}()

	reg, err := loadCatalog(cfg.Simulation.CatalogDir)
	if err != nil {
		return err
	}
	log.Info("Catalog loaded", "digest", reg.Digest(), "dir", cfg.Simulation.CatalogDir)

	appLogger := slog.Default()
	locker := lock.New(redisClient, cfg.Redis.LockTTL)
	store := game.NewStore(db, appLogger)
	resolver := job.NewResolver(reg, appLogger)
	playerService := player.NewService(store.Players, appLogger)
	gameService := game.NewService(store, galaxy.NewService(reg, appLogger), resolver, playerService, reg, locker, cfg.Galaxy, appLogger)
	ticker := game.NewTicker(store, economy.NewSimulator(reg, appLogger), resolver, reg, locker,
		snapshot.NewArchive(cfg.Simulation.ArchiveDir, appLogger), appLogger)

	mapService := spatial.NewService(spatial.NewRepository(db, appLogger), store.Systems, store.Fleets, appLogger)

	authenticator := middleware.NewAuthenticator(auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.AdminUsers))
	cookieSettings := cookies.Settings{FrontendURL: cfg.Frontend.URL, Secure: cfg.IsProduction()}
	mux := server.NewRoutes(db, gameService, playerService, mapService, authenticator, reg.Digest(), cookieSettings, appLogger).Setup()

	rateLimiter := middleware.NewRateLimiter(ctx, cfg.RateLimit)
	cors := middleware.NewCORS(cfg.Frontend)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      cors.Middleware(rateLimiter.Middleware(mux)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server starting", "port", cfg.Server.Port, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.Simulation.Enabled {
		scheduler := game.NewScheduler(store, ticker, cfg.Simulation, appLogger)
		g.Go(func() error {
			return scheduler.Run(ctx)
		})
	} else {
		log.Info("Simulation disabled")
	}

	return g.Wait()
}

// loadCatalog reads YAML catalog overrides from dir, or the embedded
// catalog when dir is empty.
func loadCatalog(dir string) (*catalog.Registry, error) {
	if dir == "" {
		return catalog.Default()
	}
	return catalog.Load(os.DirFS(dir))
}
