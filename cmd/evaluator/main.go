// FutureCoin evaluation worker: claims due evaluation tasks from the
// delayed queue every minute and scores them against the spot price.
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/futurecoin/futurecoin/internal/clients/binance"
	"github.com/futurecoin/futurecoin/internal/clients/coindesk"
	"github.com/futurecoin/futurecoin/internal/clients/yahoo"
	"github.com/futurecoin/futurecoin/internal/config"
	"github.com/futurecoin/futurecoin/internal/database"
	"github.com/futurecoin/futurecoin/internal/marketdata"
	"github.com/futurecoin/futurecoin/internal/modules/evaluation"
	"github.com/futurecoin/futurecoin/internal/queue"
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
	}).With().Str("component", "evaluator").Logger()

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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	delayed, err := queue.New(ctx, cfg.RedisURL, queue.DefaultKey, log)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to task queue")
	}
	defer delayed.Close()

	yahooClient := yahoo.NewClient(log)
	binanceClient := binance.NewClient(log)
	coindeskClient := coindesk.NewClient(cfg.CoinDeskAPIURL, cfg.CoinDeskAPIKey, log)
	market := marketdata.NewService(yahooClient, binanceClient, coindeskClient, cfg.DaysLimit, cfg.HoursLimit, log)

	repo := evaluation.NewRepository(db.Conn(), log)
	service := evaluation.NewService(market, repo, log)

	c := cron.New()
	_, err = c.AddFunc("* * * * *", func() {
		sweep(delayed, service, log)
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register sweep job")
	}
	c.Start()
	log.Info().Msg("Evaluator started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutdown signal received")
	<-c.Stop().Done()
	log.Info().Msg("Evaluator stopped")
}

// sweep claims every due task and evaluates each one. A task that
// fails stays dropped; evaluation is at most once.
func sweep(delayed *queue.Delayed, service *evaluation.Service, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Second)
	defer cancel()

	payloads, err := delayed.ClaimDue(ctx, time.Now().UTC())
	if err != nil {
		log.Error().Err(err).Msg("Failed to claim due tasks")
		return
	}
	if len(payloads) == 0 {
		return
	}
	pending, err := delayed.Pending(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to count pending tasks")
		pending = -1
	}
	log.Info().Int("count", len(payloads)).Int64("pending", pending).Msg("Claimed due evaluation tasks")

	for _, payload := range payloads {
		var task evaluation.Task
		if err := json.Unmarshal(payload, &task); err != nil {
			log.Error().Err(err).Msg("Discarding malformed task payload")
			continue
		}
		result := service.Evaluate(ctx, task)
		if !result.OK {
			log.Warn().Str("task_id", task.TaskID).Str("reason", result.Error).Msg("Evaluation unsuccessful")
		}
	}
}
