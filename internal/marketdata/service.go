package marketdata

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/futurecoin/futurecoin/internal/domain"
)

// DailySource serves daily candles and spot quotes keyed by Yahoo tickers.
type DailySource interface {
	DailyHistory(ctx context.Context, ticker string, days int) (Series, error)
	QuotePrice(ctx context.Context, ticker string) (float64, error)
}

// HourlySource serves hourly candles and ticker prices keyed by Binance pairs.
type HourlySource interface {
	HourlyKlines(ctx context.Context, pair string, hours int) (Series, error)
	TickerPrice(ctx context.Context, pair string) (float64, error)
}

// BTCSource serves a Bitcoin-only USD spot price.
type BTCSource interface {
	CurrentPrice(ctx context.Context) (float64, error)
}

// Service is the single entry point for market data. Callers never see
// provider errors, only ErrNoData; the provider failure is logged here.
type Service struct {
	daily      DailySource
	hourly     HourlySource
	btc        BTCSource
	daysLimit  int
	hoursLimit int
	log        zerolog.Logger
}

func NewService(daily DailySource, hourly HourlySource, btc BTCSource, daysLimit, hoursLimit int, log zerolog.Logger) *Service {
	return &Service{
		daily:      daily,
		hourly:     hourly,
		btc:        btc,
		daysLimit:  daysLimit,
		hoursLimit: hoursLimit,
		log:        log.With().Str("component", "marketdata").Logger(),
	}
}

// History returns OHLCV bars for the symbol at the given timeframe,
// oldest first. limit <= 0 falls back to the configured window.
func (s *Service) History(ctx context.Context, symbol string, timeframe domain.Timeframe, limit int) (Series, error) {
	switch timeframe {
	case domain.TimeframeDaily:
		if limit <= 0 || limit > s.daysLimit {
			limit = s.daysLimit
		}
		ticker, ok := YahooSymbol(symbol)
		if !ok {
			return nil, fmt.Errorf("%w: unsupported symbol %s", ErrNoData, symbol)
		}
		series, err := s.daily.DailyHistory(ctx, ticker, limit)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Daily history fetch failed")
			return nil, ErrNoData
		}
		if len(series) == 0 {
			return nil, ErrNoData
		}
		return series, nil

	case domain.TimeframeHourly:
		if limit <= 0 || limit > s.hoursLimit {
			limit = s.hoursLimit
		}
		pair, ok := BinanceSymbol(symbol)
		if !ok {
			return nil, fmt.Errorf("%w: unsupported symbol %s", ErrNoData, symbol)
		}
		series, err := s.hourly.HourlyKlines(ctx, pair, limit)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Hourly klines fetch failed")
			return nil, ErrNoData
		}
		if len(series) == 0 {
			return nil, ErrNoData
		}
		return series, nil

	default:
		return nil, fmt.Errorf("%w: unknown timeframe %s", ErrNoData, timeframe)
	}
}

// SpotPrice resolves the current price for a symbol. Yahoo is tried
// first, then the Binance ticker; Bitcoin additionally falls back to
// CoinDesk.
func (s *Service) SpotPrice(ctx context.Context, symbol string) (float64, error) {
	ticker, ok := YahooSymbol(symbol)
	if ok {
		price, err := s.daily.QuotePrice(ctx, ticker)
		if err == nil && price > 0 {
			return price, nil
		}
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Yahoo quote failed")
		}
	}

	if pair, ok := BinanceSymbol(symbol); ok {
		price, err := s.hourly.TickerPrice(ctx, pair)
		if err == nil && price > 0 {
			return price, nil
		}
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Binance ticker failed")
		}
	}

	if symbol == "BTC" && s.btc != nil {
		price, err := s.btc.CurrentPrice(ctx)
		if err == nil && price > 0 {
			return price, nil
		}
		if err != nil {
			s.log.Warn().Err(err).Msg("CoinDesk fallback failed")
		}
	}

	return 0, fmt.Errorf("%w: no spot price for %s", ErrNoData, symbol)
}
