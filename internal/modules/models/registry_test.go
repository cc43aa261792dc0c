package models

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futurecoin/futurecoin/internal/domain"
)

func scanDir(t *testing.T, files map[string][]byte) *Registry {
	t.Helper()
	dir := t.TempDir()
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
	}

	log := zerolog.New(nil).Level(zerolog.Disabled)
	reg, err := Scan(dir, NewLoader(log), log)
	require.NoError(t, err)
	return reg
}

func TestScan_LoadsValidModel(t *testing.T) {
	reg := scanDir(t, map[string][]byte{
		"lstm_BTC_daily.json": validContainerJSON(t),
	})

	predictor, info, ok := reg.Get("BTC", domain.TimeframeDaily)
	require.True(t, ok)
	require.NotNil(t, predictor)
	assert.Equal(t, "BTC", info.Symbol)
	assert.Equal(t, domain.TimeframeDaily, info.Timeframe)
	assert.Equal(t, "lstm", info.Algorithm)
	assert.Equal(t, "native", info.Strategy)
	assert.Equal(t, 30, info.SequenceLength)
	assert.Equal(t, 5, info.Features)
	assert.False(t, info.Stub)
	assert.Equal(t, "daily_lstm", info.ModelType())
}

func TestInfo_MarshalsAsDescriptor(t *testing.T) {
	reg := scanDir(t, map[string][]byte{
		"lstm_BTC_daily.json": validContainerJSON(t),
	})

	data, err := json.Marshal(reg.List())
	require.NoError(t, err)

	var descriptors []map[string]any
	require.NoError(t, json.Unmarshal(data, &descriptors))
	require.Len(t, descriptors, 1)

	d := descriptors[0]
	assert.Equal(t, "BTC_daily", d["key"])
	assert.Equal(t, "BTC", d["symbol"])
	assert.Equal(t, "daily", d["timeframe"])
	assert.Equal(t, "daily_lstm", d["type"])
	assert.Equal(t, true, d["loaded"])
	assert.Equal(t, float64(30), d["sequence_length"])
	assert.Equal(t, float64(5), d["features"])
}

func TestScan_BrokenFileBecomesStub(t *testing.T) {
	reg := scanDir(t, map[string][]byte{
		"lstm_ETH_hourly.json": []byte("garbage"),
	})

	predictor, info, ok := reg.Get("ETH", domain.TimeframeHourly)
	require.True(t, ok, "stub keeps the key servable")
	assert.True(t, info.Stub)
	assert.NotEmpty(t, info.Error)
	assert.Equal(t, 60, info.SequenceLength)

	_, err := predictor.Predict([][]float64{{1}})
	assert.ErrorIs(t, err, ErrStubModel)
}

func TestScan_SkipsUnrecognizedFiles(t *testing.T) {
	reg := scanDir(t, map[string][]byte{
		"README.txt":          []byte("notes"),
		"lstm_weird.json":     []byte("{}"),
		"lstm_BTC_daily.json": validContainerJSON(t),
	})

	assert.Equal(t, 1, reg.Status().Total)
}

func TestScan_MissingDirectory(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	reg, err := Scan(filepath.Join(t.TempDir(), "absent"), NewLoader(log), log)
	require.NoError(t, err)
	assert.Equal(t, Status{Total: 0, Loaded: 0, Status: "no_models"}, reg.Status())
}

func TestStatus_Counts(t *testing.T) {
	reg := scanDir(t, map[string][]byte{
		"lstm_BTC_daily.json":  validContainerJSON(t),
		"lstm_ETH_hourly.json": []byte("garbage"),
	})

	status := reg.Status()
	assert.Equal(t, 2, status.Total)
	assert.Equal(t, 1, status.Loaded)
	assert.Equal(t, "loaded", status.Status)
}

func TestGet_CaseInsensitive(t *testing.T) {
	reg := scanDir(t, map[string][]byte{
		"lstm_BTC_daily.json": validContainerJSON(t),
	})

	_, _, ok := reg.Get("btc", domain.TimeframeDaily)
	assert.True(t, ok)
}

func TestGet_Missing(t *testing.T) {
	reg := scanDir(t, nil)

	_, _, ok := reg.Get("BTC", domain.TimeframeDaily)
	assert.False(t, ok)
}

func TestList_Sorted(t *testing.T) {
	reg := scanDir(t, map[string][]byte{
		"lstm_ETH_daily.json": validContainerJSON(t),
		"lstm_BTC_daily.json": validContainerJSON(t),
	})

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, "BTC", list[0].Symbol)
	assert.Equal(t, "ETH", list[1].Symbol)
}

func TestParseModelFilename(t *testing.T) {
	testCases := []struct {
		name      string
		file      string
		wantErr   bool
		symbol    string
		timeframe domain.Timeframe
		algorithm string
	}{
		{"daily model", "lstm_BTC_daily.json", false, "BTC", domain.TimeframeDaily, "lstm"},
		{"hourly model", "gru_ETH_hourly.model", false, "ETH", domain.TimeframeHourly, "gru"},
		{"underscored symbol", "lstm_BTC_USD_daily.json", false, "BTC_USD", domain.TimeframeDaily, "lstm"},
		{"missing timeframe", "lstm_BTC.json", true, "", "", ""},
		{"bad timeframe", "lstm_BTC_weekly.json", true, "", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			info, err := parseModelFilename(tc.file)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.symbol, info.Symbol)
			assert.Equal(t, tc.timeframe, info.Timeframe)
			assert.Equal(t, tc.algorithm, info.Algorithm)
		})
	}
}
