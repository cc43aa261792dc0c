// FutureCoin API server: loads the model registry, connects market
// data providers, and serves the prediction API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/futurecoin/futurecoin/internal/clients/binance"
	"github.com/futurecoin/futurecoin/internal/clients/coindesk"
	"github.com/futurecoin/futurecoin/internal/clients/yahoo"
	"github.com/futurecoin/futurecoin/internal/config"
	"github.com/futurecoin/futurecoin/internal/database"
	"github.com/futurecoin/futurecoin/internal/marketdata"
	"github.com/futurecoin/futurecoin/internal/modules/auth"
	"github.com/futurecoin/futurecoin/internal/modules/evaluation"
	"github.com/futurecoin/futurecoin/internal/modules/models"
	"github.com/futurecoin/futurecoin/internal/modules/prediction"
	"github.com/futurecoin/futurecoin/internal/queue"
	"github.com/futurecoin/futurecoin/internal/server"
	"github.com/futurecoin/futurecoin/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath(),
		Profile: database.ProfileLedger,
		Name:    "app",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	checkCtx, checkCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.HealthCheck(checkCtx); err != nil {
		log.Fatal().Err(err).Msg("Database integrity check failed")
	}
	checkCancel()

	loader := models.NewLoader(log)
	registry, err := models.Scan(cfg.ModelsDir, loader, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to scan models directory")
	}

	yahooClient := yahoo.NewClient(log)
	binanceClient := binance.NewClient(log)
	coindeskClient := coindesk.NewClient(cfg.CoinDeskAPIURL, cfg.CoinDeskAPIKey, log)
	market := marketdata.NewService(yahooClient, binanceClient, coindeskClient, cfg.DaysLimit, cfg.HoursLimit, log)

	sessions := auth.NewSessions(cfg.SessionSecret, !cfg.DevMode)
	authRepo := auth.NewRepository(db.Conn(), log)
	authService := auth.NewService(authRepo, cfg.AdminUsername, cfg.AdminPassword, log)

	var scheduler prediction.Scheduler
	if cfg.UseAsyncEval {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		delayed, err := queue.New(ctx, cfg.RedisURL, queue.DefaultKey, log)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to task queue")
		}
		defer delayed.Close()
		scheduler = evaluation.NewScheduler(delayed)
		log.Info().Msg("Async evaluation enabled")
	}

	predictionRepo := prediction.NewRepository(db.Conn(), log)
	predictionService := prediction.NewService(prediction.ServiceConfig{
		DaysAheadMax:   cfg.DaysAheadMax,
		HoursAheadMax:  cfg.HoursAheadMax,
		DaysLimit:      cfg.DaysLimit,
		HoursLimit:     cfg.HoursLimit,
		DailyCurrency:  cfg.DailyCurrency,
		HourlyCurrency: cfg.HourlyCurrency,
	}, registry, market, predictionRepo, scheduler, log)

	srv := server.New(server.Config{
		Log:               log,
		Config:            cfg,
		DB:                db,
		Registry:          registry,
		Loader:            loader,
		Market:            market,
		Sessions:          sessions,
		AuthService:       authService,
		PredictionService: predictionService,
		PredictionRepo:    predictionRepo,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown")
	}
	log.Info().Msg("Server stopped")
}
