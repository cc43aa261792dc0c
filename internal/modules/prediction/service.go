package prediction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/futurecoin/futurecoin/internal/domain"
	"github.com/futurecoin/futurecoin/internal/marketdata"
	"github.com/futurecoin/futurecoin/internal/modules/evaluation"
	"github.com/futurecoin/futurecoin/internal/modules/models"
)

// ErrNoPrediction is returned when neither horizon could produce an
// estimate, typically because no price source was reachable.
var ErrNoPrediction = errors.New("no prediction could be produced")

// ValidationError marks a request the caller must fix. Handlers map
// it to a 400.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// MarketData is the slice of the market data service this package
// needs.
type MarketData interface {
	History(ctx context.Context, symbol string, timeframe domain.Timeframe, limit int) (marketdata.Series, error)
	SpotPrice(ctx context.Context, symbol string) (float64, error)
}

// ModelSource resolves trained predictors by symbol and timeframe.
type ModelSource interface {
	Get(symbol string, timeframe domain.Timeframe) (models.Predictor, models.Info, bool)
}

// Scheduler enqueues a delayed evaluation task. Nil when async
// evaluation is disabled.
type Scheduler interface {
	Schedule(ctx context.Context, task evaluation.Task) error
}

// ServiceConfig carries the request limits and display currencies.
type ServiceConfig struct {
	DaysAheadMax   int
	HoursAheadMax  int
	DaysLimit      int
	HoursLimit     int
	DailyCurrency  string
	HourlyCurrency string
}

// Service runs the prediction pipeline.
type Service struct {
	cfg       ServiceConfig
	models    ModelSource
	market    MarketData
	repo      *Repository
	scheduler Scheduler
	log       zerolog.Logger
}

func NewService(cfg ServiceConfig, modelSource ModelSource, market MarketData, repo *Repository, scheduler Scheduler, log zerolog.Logger) *Service {
	return &Service{
		cfg:       cfg,
		models:    modelSource,
		market:    market,
		repo:      repo,
		scheduler: scheduler,
		log:       log.With().Str("component", "prediction").Logger(),
	}
}

// Predict validates the request, produces a forecast per requested
// horizon, persists an audit row, and schedules evaluation when
// enabled. Persistence and scheduling failures degrade the response
// but never fail it.
func (s *Service) Predict(ctx context.Context, req Request, username string) (*Response, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	now := time.Now().UTC()

	var currentPrice *float64
	if req.CurrentPrice != nil && *req.CurrentPrice > 0 {
		currentPrice = req.CurrentPrice
	} else if price, err := s.market.SpotPrice(ctx, symbol); err == nil {
		currentPrice = &price
	} else {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Spot price unavailable")
	}

	resp := &Response{
		Symbol:     symbol,
		Timestamp:  now.Format(time.RFC3339),
		DaysAhead:  req.DaysAhead,
		HoursAhead: req.HoursAhead,
	}

	if req.DaysAhead > 0 {
		resp.Daily = s.forecast(ctx, symbol, domain.TimeframeDaily, req.DaysAhead, &currentPrice)
	}
	if req.HoursAhead > 0 {
		resp.Hourly = s.forecast(ctx, symbol, domain.TimeframeHourly, req.HoursAhead, &currentPrice)
	}
	resp.CurrentPrice = currentPrice

	if resp.Daily == nil && resp.Hourly == nil {
		return nil, ErrNoPrediction
	}

	s.persist(ctx, req, resp, username)
	s.schedule(ctx, resp, username, now)
	return resp, nil
}

func (s *Service) validate(req Request) error {
	if strings.TrimSpace(req.Symbol) == "" {
		return validationErrorf("symbol is required")
	}
	if req.DaysAhead < 0 || req.DaysAhead > s.cfg.DaysAheadMax {
		return validationErrorf("days_ahead must be between 0 and %d", s.cfg.DaysAheadMax)
	}
	if req.HoursAhead < 0 || req.HoursAhead > s.cfg.HoursAheadMax {
		return validationErrorf("hours_ahead must be between 0 and %d", s.cfg.HoursAheadMax)
	}
	if req.DaysAhead == 0 && req.HoursAhead == 0 {
		return validationErrorf("at least one of days_ahead or hours_ahead must be positive")
	}
	return nil
}

// forecast produces one horizon's result. currentPrice is shared
// across horizons and may be filled in from the latest close here.
func (s *Service) forecast(ctx context.Context, symbol string, timeframe domain.Timeframe, ahead int, currentPrice **float64) *Result {
	limit := s.cfg.DaysLimit
	currency := s.cfg.DailyCurrency
	if timeframe == domain.TimeframeHourly {
		limit = s.cfg.HoursLimit
		currency = s.cfg.HourlyCurrency
	}

	series, err := s.market.History(ctx, symbol, timeframe, limit)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Str("timeframe", string(timeframe)).Msg("History unavailable")
		series = nil
	}

	if *currentPrice == nil {
		if latest, ok := series.LatestClose(); ok && latest > 0 {
			*currentPrice = &latest
		}
	}

	result := &Result{Currency: currency}
	if timeframe == domain.TimeframeDaily {
		result.DaysAhead = ahead
	} else {
		result.HoursAhead = ahead
	}

	if predictor, info, ok := s.models.Get(symbol, timeframe); ok && len(series) > 0 {
		seq := PrepareSequence(series, info.SequenceLength, info.Features)
		predicted, err := predictor.Predict(seq)
		if err == nil {
			result.PredictedPrice = predicted
			result.ModelType = info.ModelType()
			return result
		}
		if !errors.Is(err, models.ErrStubModel) {
			s.log.Warn().Err(err).Str("symbol", symbol).Str("timeframe", string(timeframe)).Msg("Model inference failed")
		}
	}

	if *currentPrice == nil {
		s.log.Warn().Str("symbol", symbol).Str("timeframe", string(timeframe)).Msg("No price available, skipping horizon")
		return nil
	}
	result.PredictedPrice = fallbackPrice(symbol, timeframe, **currentPrice)
	result.ModelType = "fallback"
	return result
}

// persist writes the audit row. Failures are logged and swallowed so
// the caller still gets the forecast.
func (s *Service) persist(ctx context.Context, req Request, resp *Response, username string) {
	rec := &Record{
		Username:   username,
		Symbol:     resp.Symbol,
		DaysAhead:  req.DaysAhead,
		HoursAhead: req.HoursAhead,
	}
	if resp.Daily != nil {
		rec.DailyPrediction = &resp.Daily.PredictedPrice
	}
	if resp.Hourly != nil {
		rec.HourlyPredicted = &resp.Hourly.PredictedPrice
	}
	if payload, err := json.Marshal(req); err == nil {
		rec.RequestPayload = string(payload)
	}
	if payload, err := json.Marshal(resp); err == nil {
		rec.ResponsePayload = string(payload)
	}

	if _, err := s.repo.Insert(ctx, rec); err != nil {
		s.log.Error().Err(err).Str("symbol", resp.Symbol).Msg("Failed to persist prediction")
		return
	}
	resp.PredictionID = rec.ID
}

// schedule enqueues the delayed evaluation task when async
// evaluation is enabled and the row was persisted.
func (s *Service) schedule(ctx context.Context, resp *Response, username string, now time.Time) {
	if s.scheduler == nil || resp.PredictionID == 0 {
		return
	}

	due := now.
		Add(time.Duration(resp.DaysAhead) * 24 * time.Hour).
		Add(time.Duration(resp.HoursAhead) * time.Hour)

	task := evaluation.Task{
		PredictionID: resp.PredictionID,
		Username:     username,
		Symbol:       resp.Symbol,
		TargetTime:   due,
	}
	if resp.Daily != nil {
		task.DailyPrediction = &resp.Daily.PredictedPrice
	}
	if resp.Hourly != nil {
		task.HourlyPrediction = &resp.Hourly.PredictedPrice
	}

	if err := s.scheduler.Schedule(ctx, task); err != nil {
		s.log.Error().Err(err).Int64("prediction_id", resp.PredictionID).Msg("Failed to schedule evaluation")
	}
}
