package evaluation

import (
	"context"
	"math"

	"github.com/rs/zerolog"
)

// SpotSource resolves the current price for a symbol.
type SpotSource interface {
	SpotPrice(ctx context.Context, symbol string) (float64, error)
}

// Service evaluates due tasks. Each task gets exactly one attempt:
// if the spot price is unavailable the task is dropped with an
// unsuccessful Result and no row is written.
type Service struct {
	market SpotSource
	repo   *Repository
	log    zerolog.Logger
}

func NewService(market SpotSource, repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		market: market,
		repo:   repo,
		log:    log.With().Str("component", "evaluation").Logger(),
	}
}

// Evaluate compares the task's prediction with the realized spot
// price. The daily prediction is preferred when both are present.
func (s *Service) Evaluate(ctx context.Context, task Task) Result {
	var predicted *float64
	if task.DailyPrediction != nil {
		predicted = task.DailyPrediction
	} else if task.HourlyPrediction != nil {
		predicted = task.HourlyPrediction
	}
	if predicted == nil {
		return Result{OK: false, Error: "task carries no prediction"}
	}

	actual, err := s.market.SpotPrice(ctx, task.Symbol)
	if err != nil {
		s.log.Warn().Err(err).
			Str("task_id", task.TaskID).
			Str("symbol", task.Symbol).
			Msg("Spot price unavailable, dropping evaluation")
		return Result{OK: false, Error: "spot price unavailable"}
	}

	mae := math.Abs(actual - *predicted)
	var ape *float64
	if actual != 0 {
		v := mae / actual * 100
		ape = &v
	}

	rec := &Record{
		PredictionID:     task.PredictionID,
		Username:         task.Username,
		Symbol:           task.Symbol,
		TargetTime:       task.TargetTime,
		ActualPrice:      actual,
		DailyPrediction:  task.DailyPrediction,
		HourlyPrediction: task.HourlyPrediction,
		MAE:              mae,
		APE:              ape,
	}
	if _, err := s.repo.Insert(ctx, rec); err != nil {
		s.log.Error().Err(err).Str("task_id", task.TaskID).Msg("Failed to persist evaluation")
		return Result{OK: false, Error: "failed to persist evaluation"}
	}

	s.log.Info().
		Str("task_id", task.TaskID).
		Int64("prediction_id", task.PredictionID).
		Str("symbol", task.Symbol).
		Float64("actual", actual).
		Float64("mae", mae).
		Msg("Evaluation complete")

	return Result{
		OK:             true,
		EvaluationID:   rec.ID,
		ActualPrice:    actual,
		PredictedPrice: *predicted,
		MAE:            mae,
		APE:            ape,
	}
}
