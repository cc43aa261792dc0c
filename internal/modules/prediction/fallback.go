package prediction

import (
	"hash/fnv"
	"math/rand"
	"strings"

	"github.com/futurecoin/futurecoin/internal/domain"
)

// Volatility bounds for the statistical fallback: the simulated trend
// is drawn uniformly from [-vol/2, +vol/2].
const (
	fallbackDailyVol  = 0.05
	fallbackHourlyVol = 0.02
)

// fallbackSeed derives a stable small seed from the symbol and
// timeframe so repeated fallback estimates agree.
func fallbackSeed(symbol string, timeframe domain.Timeframe) int64 {
	h := fnv.New64a()
	h.Write([]byte(strings.ToUpper(symbol) + "_" + string(timeframe)))
	seed := int64(h.Sum64())
	if seed < 0 {
		seed = -seed
	}
	return seed % 1000
}

// fallbackPrice estimates a future price as a deterministic random
// walk step from the current price.
func fallbackPrice(symbol string, timeframe domain.Timeframe, currentPrice float64) float64 {
	vol := fallbackDailyVol
	if timeframe == domain.TimeframeHourly {
		vol = fallbackHourlyVol
	}
	rng := rand.New(rand.NewSource(fallbackSeed(symbol, timeframe)))
	trend := (rng.Float64() - 0.5) * vol
	return currentPrice * (1 + trend)
}
