package prediction

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futurecoin/futurecoin/internal/domain"
	"github.com/futurecoin/futurecoin/internal/marketdata"
	"github.com/futurecoin/futurecoin/internal/modules/evaluation"
	"github.com/futurecoin/futurecoin/internal/modules/models"
)

type fakeMarket struct {
	daily      marketdata.Series
	hourly     marketdata.Series
	historyErr error
	spot       float64
	spotErr    error
}

func (f *fakeMarket) History(_ context.Context, _ string, timeframe domain.Timeframe, _ int) (marketdata.Series, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	if timeframe == domain.TimeframeHourly {
		return f.hourly, nil
	}
	return f.daily, nil
}

func (f *fakeMarket) SpotPrice(_ context.Context, _ string) (float64, error) {
	if f.spotErr != nil {
		return 0, f.spotErr
	}
	return f.spot, nil
}

type fakeModelSource struct {
	entries map[string]fakeModelEntry
}

type fakeModelEntry struct {
	predictor models.Predictor
	info      models.Info
}

func (f *fakeModelSource) Get(symbol string, timeframe domain.Timeframe) (models.Predictor, models.Info, bool) {
	e, ok := f.entries[symbol+"_"+string(timeframe)]
	if !ok {
		return nil, models.Info{}, false
	}
	return e.predictor, e.info, true
}

type fixedPredictor struct {
	value float64
	err   error
}

func (p *fixedPredictor) Predict(_ [][]float64) (float64, error) {
	return p.value, p.err
}

type fakeScheduler struct {
	tasks []evaluation.Task
	err   error
}

func (f *fakeScheduler) Schedule(_ context.Context, task evaluation.Task) error {
	if f.err != nil {
		return f.err
	}
	f.tasks = append(f.tasks, task)
	return nil
}

func defaultConfig() ServiceConfig {
	return ServiceConfig{
		DaysAheadMax:   30,
		HoursAheadMax:  23,
		DaysLimit:      60,
		HoursLimit:     60,
		DailyCurrency:  "INR",
		HourlyCurrency: "USDT",
	}
}

func newTestService(t *testing.T, market MarketData, source ModelSource, scheduler Scheduler) (*Service, *Repository) {
	t.Helper()
	repo := newTestRepo(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewService(defaultConfig(), source, market, repo, scheduler, log), repo
}

func ptr(v float64) *float64 { return &v }

func TestPredict_Validation(t *testing.T) {
	svc, repo := newTestService(t,
		&fakeMarket{spot: 50000},
		&fakeModelSource{},
		nil,
	)

	testCases := []struct {
		name string
		req  Request
	}{
		{"missing symbol", Request{DaysAhead: 1}},
		{"negative days", Request{Symbol: "BTC", DaysAhead: -1}},
		{"days above max", Request{Symbol: "BTC", DaysAhead: 31}},
		{"negative hours", Request{Symbol: "BTC", HoursAhead: -1}},
		{"hours above max", Request{Symbol: "BTC", HoursAhead: 24}},
		{"no horizon requested", Request{Symbol: "BTC"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Predict(context.Background(), tc.req, "alice")

			var validation *ValidationError
			require.ErrorAs(t, err, &validation)
		})
	}

	// Rejected requests leave no audit rows.
	records, err := repo.History(context.Background(), "alice", 20, "")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPredict_FallbackWhenNoModel(t *testing.T) {
	market := &fakeMarket{daily: makeSeries(49000, 50000, 51000), spot: 50000}
	svc, repo := newTestService(t, market, &fakeModelSource{}, nil)

	resp, err := svc.Predict(context.Background(), Request{Symbol: "btc", DaysAhead: 3}, "alice")
	require.NoError(t, err)

	assert.Equal(t, "BTC", resp.Symbol)
	require.NotNil(t, resp.Daily)
	assert.Equal(t, "fallback", resp.Daily.ModelType)
	assert.Equal(t, "INR", resp.Daily.Currency)
	assert.Equal(t, 3, resp.Daily.DaysAhead)
	assert.InDelta(t, 50000, resp.Daily.PredictedPrice, 50000*fallbackDailyVol/2+1)
	assert.Nil(t, resp.Hourly)
	require.NotNil(t, resp.CurrentPrice)
	assert.Equal(t, 50000.0, *resp.CurrentPrice)
	assert.Greater(t, resp.PredictionID, int64(0))

	records, err := repo.History(context.Background(), "alice", 20, "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].DailyPrediction)
	assert.Equal(t, resp.Daily.PredictedPrice, *records[0].DailyPrediction)
	assert.Nil(t, records[0].HourlyPredicted)
}

func TestPredict_RealModelPath(t *testing.T) {
	series := makeSeries(49000, 50000, 51000)
	market := &fakeMarket{daily: series, spot: 50000}
	source := &fakeModelSource{entries: map[string]fakeModelEntry{
		"BTC_daily": {
			predictor: &fixedPredictor{value: 0.5},
			info: models.Info{
				Symbol:         "BTC",
				Timeframe:      domain.TimeframeDaily,
				Algorithm:      "lstm",
				SequenceLength: 30,
				Features:       5,
			},
		},
	}}
	svc, _ := newTestService(t, market, source, nil)

	resp, err := svc.Predict(context.Background(), Request{Symbol: "BTC", DaysAhead: 1}, "alice")
	require.NoError(t, err)

	require.NotNil(t, resp.Daily)
	assert.Equal(t, "daily_lstm", resp.Daily.ModelType)
	// The model's scalar output is the predicted price, unmodified.
	assert.Equal(t, 0.5, resp.Daily.PredictedPrice)
}

func TestPredict_StubModelFallsBack(t *testing.T) {
	market := &fakeMarket{daily: makeSeries(49000, 50000, 51000), spot: 50000}
	source := &fakeModelSource{entries: map[string]fakeModelEntry{
		"BTC_daily": {
			predictor: &fixedPredictor{err: models.ErrStubModel},
			info: models.Info{
				Symbol:         "BTC",
				Timeframe:      domain.TimeframeDaily,
				Algorithm:      "lstm",
				SequenceLength: 30,
				Features:       5,
				Stub:           true,
			},
		},
	}}
	svc, _ := newTestService(t, market, source, nil)

	resp, err := svc.Predict(context.Background(), Request{Symbol: "BTC", DaysAhead: 1}, "alice")
	require.NoError(t, err)

	require.NotNil(t, resp.Daily)
	assert.Equal(t, "fallback", resp.Daily.ModelType)
}

func TestPredict_RequestPriceOverridesSpot(t *testing.T) {
	market := &fakeMarket{spot: 50000, historyErr: marketdata.ErrNoData}
	svc, _ := newTestService(t, market, &fakeModelSource{}, nil)

	resp, err := svc.Predict(context.Background(), Request{
		Symbol:       "BTC",
		DaysAhead:    1,
		CurrentPrice: ptr(42000),
	}, "alice")
	require.NoError(t, err)

	require.NotNil(t, resp.CurrentPrice)
	assert.Equal(t, 42000.0, *resp.CurrentPrice)
	require.NotNil(t, resp.Daily)
	assert.Equal(t, "fallback", resp.Daily.ModelType)
}

func TestPredict_LatestCloseWhenSpotUnavailable(t *testing.T) {
	market := &fakeMarket{
		daily:   makeSeries(49000, 50000, 50500),
		spotErr: errors.New("providers down"),
	}
	svc, _ := newTestService(t, market, &fakeModelSource{}, nil)

	resp, err := svc.Predict(context.Background(), Request{Symbol: "BTC", DaysAhead: 1}, "alice")
	require.NoError(t, err)

	require.NotNil(t, resp.CurrentPrice)
	assert.Equal(t, 50500.0, *resp.CurrentPrice)
}

func TestPredict_NoPriceAnywhere(t *testing.T) {
	market := &fakeMarket{
		historyErr: marketdata.ErrNoData,
		spotErr:    errors.New("providers down"),
	}
	svc, repo := newTestService(t, market, &fakeModelSource{}, nil)

	_, err := svc.Predict(context.Background(), Request{Symbol: "BTC", DaysAhead: 1}, "alice")
	require.ErrorIs(t, err, ErrNoPrediction)

	records, err := repo.History(context.Background(), "alice", 20, "")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPredict_BothHorizons(t *testing.T) {
	market := &fakeMarket{
		daily:  makeSeries(49000, 50000, 51000),
		hourly: makeSeries(50200, 50300, 50400),
		spot:   50000,
	}
	svc, _ := newTestService(t, market, &fakeModelSource{}, nil)

	resp, err := svc.Predict(context.Background(), Request{
		Symbol:     "ETH",
		DaysAhead:  2,
		HoursAhead: 5,
	}, "alice")
	require.NoError(t, err)

	require.NotNil(t, resp.Daily)
	require.NotNil(t, resp.Hourly)
	assert.Equal(t, 2, resp.Daily.DaysAhead)
	assert.Equal(t, 5, resp.Hourly.HoursAhead)
	assert.Equal(t, "USDT", resp.Hourly.Currency)
}

func TestPredict_SchedulesEvaluation(t *testing.T) {
	market := &fakeMarket{daily: makeSeries(49000, 50000, 51000), spot: 50000}
	scheduler := &fakeScheduler{}
	svc, _ := newTestService(t, market, &fakeModelSource{}, scheduler)

	resp, err := svc.Predict(context.Background(), Request{Symbol: "BTC", DaysAhead: 2}, "alice")
	require.NoError(t, err)

	require.Len(t, scheduler.tasks, 1)
	task := scheduler.tasks[0]
	assert.Equal(t, resp.PredictionID, task.PredictionID)
	assert.Equal(t, "alice", task.Username)
	assert.Equal(t, "BTC", task.Symbol)
	require.NotNil(t, task.DailyPrediction)
	assert.Equal(t, resp.Daily.PredictedPrice, *task.DailyPrediction)
	assert.Nil(t, task.HourlyPrediction)
	assert.False(t, task.TargetTime.IsZero())
}

func TestPredict_SchedulerFailureDoesNotFailRequest(t *testing.T) {
	market := &fakeMarket{daily: makeSeries(49000, 50000, 51000), spot: 50000}
	scheduler := &fakeScheduler{err: errors.New("redis down")}
	svc, _ := newTestService(t, market, &fakeModelSource{}, scheduler)

	resp, err := svc.Predict(context.Background(), Request{Symbol: "BTC", DaysAhead: 1}, "alice")
	require.NoError(t, err)
	require.NotNil(t, resp.Daily)
}
