// Package evaluation scores past predictions against the realized
// spot price once their target time has passed.
package evaluation

import (
	"time"
)

// Task is the delayed work item enqueued at prediction time.
type Task struct {
	TaskID           string    `json:"task_id"`
	PredictionID     int64     `json:"prediction_id"`
	Username         string    `json:"username"`
	Symbol           string    `json:"symbol"`
	TargetTime       time.Time `json:"target_time"`
	DailyPrediction  *float64  `json:"daily_prediction,omitempty"`
	HourlyPrediction *float64  `json:"hourly_prediction,omitempty"`
}

// Result reports the outcome of one evaluation attempt.
type Result struct {
	OK             bool     `json:"ok"`
	Error          string   `json:"error,omitempty"`
	EvaluationID   int64    `json:"evaluation_id,omitempty"`
	ActualPrice    float64  `json:"actual_price,omitempty"`
	PredictedPrice float64  `json:"predicted_price,omitempty"`
	MAE            float64  `json:"mae,omitempty"`
	APE            *float64 `json:"ape,omitempty"`
}

// Record is one persisted evaluation row.
type Record struct {
	ID               int64     `json:"id"`
	PredictionID     int64     `json:"prediction_id"`
	Username         string    `json:"username"`
	Symbol           string    `json:"symbol"`
	TargetTime       time.Time `json:"target_time"`
	ActualPrice      float64   `json:"actual_price"`
	DailyPrediction  *float64  `json:"daily_prediction,omitempty"`
	HourlyPrediction *float64  `json:"hourly_prediction,omitempty"`
	MAE              float64   `json:"mae"`
	APE              *float64  `json:"ape,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
