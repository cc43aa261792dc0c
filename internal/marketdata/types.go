// Package marketdata fetches OHLCV series and spot prices from external providers.
package marketdata

import (
	"errors"
	"strings"
	"time"
)

// ErrNoData indicates a provider returned nothing usable for the request.
// Fetch failures are collapsed into this error at the provider boundary;
// callers decide whether to skip, fall back, or surface it.
var ErrNoData = errors.New("no market data available")

// Bar is a single OHLCV row.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Series is a chronologically ascending sequence of bars.
// Providers must never return a partially populated series.
type Series []Bar

// LatestClose returns the close of the most recent bar.
func (s Series) LatestClose() (float64, bool) {
	if len(s) == 0 {
		return 0, false
	}
	return s[len(s)-1].Close, true
}

// yahooSymbols maps coin symbols to the daily provider's ticker format.
var yahooSymbols = map[string]string{
	"BTC":   "BTC-USD",
	"ETH":   "ETH-USD",
	"ADA":   "ADA-USD",
	"BNB":   "BNB-USD",
	"XRP":   "XRP-USD",
	"SOL":   "SOL-USD",
	"DOGE":  "DOGE-USD",
	"LTC":   "LTC-USD",
	"MATIC": "MATIC-USD",
}

// binanceSymbols maps coin symbols to the hourly provider's trading pairs.
var binanceSymbols = map[string]string{
	"BTC":   "BTCUSDT",
	"ETH":   "ETHUSDT",
	"ADA":   "ADAUSDT",
	"BNB":   "BNBUSDT",
	"XRP":   "XRPUSDT",
	"SOL":   "SOLUSDT",
	"DOGE":  "DOGEUSDT",
	"LTC":   "LTCUSDT",
	"MATIC": "MATICUSDT",
}

// YahooSymbol resolves a coin symbol to its daily provider ticker.
func YahooSymbol(symbol string) (string, bool) {
	s, ok := yahooSymbols[strings.ToUpper(symbol)]
	return s, ok
}

// BinanceSymbol resolves a coin symbol to its hourly provider trading pair.
func BinanceSymbol(symbol string) (string, bool) {
	s, ok := binanceSymbols[strings.ToUpper(symbol)]
	return s, ok
}
