// Package coindesk provides the Bitcoin spot price from the CoinDesk price index.
package coindesk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Client for the CoinDesk current price API
type Client struct {
	url    string
	apiKey string
	client *http.Client
	log    zerolog.Logger
}

// NewClient creates a new CoinDesk client. apiKey is optional.
func NewClient(url, apiKey string, log zerolog.Logger) *Client {
	return &Client{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: 5 * time.Second},
		log:    log.With().Str("client", "coindesk").Logger(),
	}
}

// CurrentPrice fetches the current USD Bitcoin price (bpi.USD.rate_float).
func (c *Client) CurrentPrice(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var parsed struct {
		BPI struct {
			USD struct {
				RateFloat float64 `json:"rate_float"`
			} `json:"USD"`
		} `json:"bpi"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("failed to parse response: %w", err)
	}

	price := parsed.BPI.USD.RateFloat
	if price <= 0 {
		return 0, fmt.Errorf("price missing from response")
	}

	c.log.Debug().Float64("price", price).Msg("Fetched BTC spot price")
	return price, nil
}
