// Package domain holds shared domain types used across modules.
package domain

// Timeframe identifies the bar interval of a model and its data window.
type Timeframe string

const (
	TimeframeDaily  Timeframe = "daily"
	TimeframeHourly Timeframe = "hourly"
)

// Valid reports whether the timeframe is one of the supported intervals.
func (t Timeframe) Valid() bool {
	return t == TimeframeDaily || t == TimeframeHourly
}
