// Package yahoo provides daily OHLCV history and quotes from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/futurecoin/futurecoin/internal/marketdata"
)

// Client for the Yahoo Finance v8 chart API
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new Yahoo Finance client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL: "https://query1.finance.yahoo.com/v8/finance/chart",
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "yahoo").Logger(),
	}
}

// chartResponse mirrors the subset of the chart API payload we consume.
// Individual bar entries can be null when the exchange had no print, so the
// quote arrays use pointers and incomplete rows are skipped.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// DailyHistory fetches up to days daily bars for a Yahoo ticker (e.g. BTC-USD).
func (c *Client) DailyHistory(ctx context.Context, ticker string, days int) (marketdata.Series, error) {
	url := fmt.Sprintf("%s/%s?range=%dd&interval=1d", c.baseURL, ticker, days)

	resp, err := c.fetchChart(ctx, url)
	if err != nil {
		return nil, err
	}

	result := resp.Chart.Result[0]
	quotes := result.Indicators.Quote
	if len(quotes) == 0 || len(result.Timestamp) == 0 {
		return nil, fmt.Errorf("empty chart result for %s", ticker)
	}
	q := quotes[0]

	series := make(marketdata.Series, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(q.Open) || i >= len(q.High) || i >= len(q.Low) || i >= len(q.Close) || i >= len(q.Volume) {
			break
		}
		if q.Open[i] == nil || q.High[i] == nil || q.Low[i] == nil || q.Close[i] == nil {
			continue
		}
		volume := 0.0
		if q.Volume[i] != nil {
			volume = *q.Volume[i]
		}
		series = append(series, marketdata.Bar{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   *q.Open[i],
			High:   *q.High[i],
			Low:    *q.Low[i],
			Close:  *q.Close[i],
			Volume: volume,
		})
	}

	if len(series) == 0 {
		return nil, fmt.Errorf("no usable bars for %s", ticker)
	}

	c.log.Debug().Str("ticker", ticker).Int("bars", len(series)).Msg("Fetched daily history")
	return series, nil
}

// QuotePrice fetches the current market price for a Yahoo ticker.
func (c *Client) QuotePrice(ctx context.Context, ticker string) (float64, error) {
	url := fmt.Sprintf("%s/%s?range=1d&interval=1d", c.baseURL, ticker)

	resp, err := c.fetchChart(ctx, url)
	if err != nil {
		return 0, err
	}

	price := resp.Chart.Result[0].Meta.RegularMarketPrice
	if price <= 0 {
		return 0, fmt.Errorf("no market price for %s", ticker)
	}
	return price, nil
}

func (c *Client) fetchChart(ctx context.Context, url string) (*chartResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "futurecoin/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var parsed chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error: %s", parsed.Chart.Error.Description)
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, fmt.Errorf("chart API returned no result")
	}

	return &parsed, nil
}
