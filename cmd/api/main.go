package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"fairplay-backend/internal/config"
	"fairplay-backend/internal/handlers"
	"fairplay-backend/internal/logger"
	"fairplay-backend/internal/monitoring"
	"fairplay-backend/internal/services"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	monitoring.Init()

	store, err := openStore(cfg)
	if err != nil {
		zlog.Fatal("failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gameConfigs, err := config.LoadGameConfigs(cfg.GameConfigFile)
	if err != nil {
		zlog.Fatal("failed to load game configs", zap.Error(err))
	}
	configs := services.NewGameConfigProvider(store, cfg.GameConfigTTL, zlog)
	if err := configs.Seed(ctx, gameConfigs); err != nil {
		zlog.Fatal("failed to seed game configs", zap.Error(err))
	}

	hub := handlers.NewWebSocketHub(zlog)
	go hub.Run(ctx)

	seeds := services.NewSeedRegistry(store, zlog)
	gameEngine := services.NewGameEngine(store, seeds, configs, zlog,
		services.WithBroadcaster(hub),
		services.WithRetry(cfg.SettleMaxAttempts, cfg.SettleRetryInterval),
	)
	jwtService := services.NewJWTService(cfg)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Engine:        gameEngine,
		Seeds:         seeds,
		Configs:       configs,
		Store:         store,
		JWT:           jwtService,
		Hub:           hub,
		Logger:        zlog,
		Production:    cfg.IsProduction(),
		BetRateLimit:  cfg.BetRateLimit,
		BetRateWindow: cfg.BetRateWindow,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	zlog.Info("server starting", zap.String("port", cfg.Port), zap.String("store", cfg.StoreDriver))
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zlog.Error("failed to shut down server", zap.Error(err))
		}
		zlog.Info("server stopped")
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			zlog.Error("server failed", zap.Error(err))
		}
	}
}

func openStore(cfg *config.Config) (services.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		return services.NewSQLStore(cfg.SQLitePath, cfg.StartingBalance)
	default:
		return services.NewRedisService(cfg)
	}
}
