// Package prediction implements price forecasting requests: model
// inference with a statistical fallback, audit persistence, and
// optional evaluation scheduling.
package prediction

import (
	"time"
)

// Request is the inbound predict payload. CurrentPrice, when set,
// overrides the spot lookup.
type Request struct {
	Symbol       string   `json:"symbol"`
	DaysAhead    int      `json:"days_ahead"`
	HoursAhead   int      `json:"hours_ahead"`
	CurrentPrice *float64 `json:"current_price,omitempty"`
}

// Result is one horizon's forecast.
type Result struct {
	PredictedPrice float64 `json:"predicted_price"`
	Currency       string  `json:"currency"`
	DaysAhead      int     `json:"days_ahead,omitempty"`
	HoursAhead     int     `json:"hours_ahead,omitempty"`
	ModelType      string  `json:"model_type"`
}

// Response is the predict endpoint body.
type Response struct {
	Symbol       string   `json:"symbol"`
	Timestamp    string   `json:"timestamp"`
	CurrentPrice *float64 `json:"current_price,omitempty"`
	Daily        *Result  `json:"daily_prediction,omitempty"`
	Hourly       *Result  `json:"hourly_prediction,omitempty"`
	DaysAhead    int      `json:"days_ahead"`
	HoursAhead   int      `json:"hours_ahead"`
	PredictionID int64    `json:"prediction_id,omitempty"`
}

// Record is one persisted prediction row.
type Record struct {
	ID              int64     `json:"id"`
	Username        string    `json:"username"`
	Symbol          string    `json:"symbol"`
	DaysAhead       int       `json:"days_ahead"`
	HoursAhead      int       `json:"hours_ahead"`
	DailyPrediction *float64  `json:"daily_prediction,omitempty"`
	HourlyPredicted *float64  `json:"hourly_prediction,omitempty"`
	RequestPayload  string    `json:"request_payload,omitempty"`
	ResponsePayload string    `json:"response_payload,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
