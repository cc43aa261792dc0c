// Package binance wraps the Binance spot API for hourly candles and ticker prices.
package binance

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binanceapi "github.com/adshao/go-binance/v2"
	"github.com/rs/zerolog"

	"github.com/futurecoin/futurecoin/internal/marketdata"
)

// maxKlineLimit is the largest window a single klines request may return.
const maxKlineLimit = 1000

// Client fetches market data from the Binance public endpoints.
// No API credentials are needed for klines or ticker prices.
type Client struct {
	api *binanceapi.Client
	log zerolog.Logger
}

func NewClient(log zerolog.Logger) *Client {
	return &Client{
		api: binanceapi.NewClient("", ""),
		log: log.With().Str("client", "binance").Logger(),
	}
}

// HourlyKlines returns up to hours of 1h candles for the given pair,
// oldest first.
func (c *Client) HourlyKlines(ctx context.Context, pair string, hours int) (marketdata.Series, error) {
	if hours <= 0 || hours > maxKlineLimit {
		hours = maxKlineLimit
	}

	klines, err := c.api.NewKlinesService().
		Symbol(pair).
		Interval("1h").
		Limit(hours).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("klines request for %s failed: %w", pair, err)
	}

	series := make(marketdata.Series, 0, len(klines))
	for _, k := range klines {
		bar, err := parseKline(k)
		if err != nil {
			c.log.Warn().Err(err).Str("pair", pair).Msg("Skipping malformed kline")
			continue
		}
		series = append(series, bar)
	}
	return series, nil
}

// TickerPrice returns the latest trade price for the given pair.
func (c *Client) TickerPrice(ctx context.Context, pair string) (float64, error) {
	prices, err := c.api.NewListPricesService().Symbol(pair).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("ticker request for %s failed: %w", pair, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("no ticker returned for %s", pair)
	}

	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid ticker price %q for %s: %w", prices[0].Price, pair, err)
	}
	return price, nil
}

func parseKline(k *binanceapi.Kline) (marketdata.Bar, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return marketdata.Bar{}, fmt.Errorf("invalid open %q: %w", k.Open, err)
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return marketdata.Bar{}, fmt.Errorf("invalid high %q: %w", k.High, err)
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return marketdata.Bar{}, fmt.Errorf("invalid low %q: %w", k.Low, err)
	}
	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return marketdata.Bar{}, fmt.Errorf("invalid close %q: %w", k.Close, err)
	}
	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return marketdata.Bar{}, fmt.Errorf("invalid volume %q: %w", k.Volume, err)
	}

	return marketdata.Bar{
		Time:   time.UnixMilli(k.OpenTime).UTC(),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}, nil
}
