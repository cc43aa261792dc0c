package evaluation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository persists evaluation rows.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "evaluation").Logger(),
	}
}

// Insert stores an evaluation row and returns its ID.
func (r *Repository) Insert(ctx context.Context, rec *Record) (int64, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var ape sql.NullFloat64
	if rec.APE != nil {
		ape = sql.NullFloat64{Float64: *rec.APE, Valid: true}
	}
	var daily, hourly sql.NullFloat64
	if rec.DailyPrediction != nil {
		daily = sql.NullFloat64{Float64: *rec.DailyPrediction, Valid: true}
	}
	if rec.HourlyPrediction != nil {
		hourly = sql.NullFloat64{Float64: *rec.HourlyPrediction, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO prediction_evaluations
			(prediction_id, username, symbol, target_time, actual_price,
			 daily_prediction, hourly_prediction, mae, ape, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.PredictionID,
		rec.Username,
		rec.Symbol,
		rec.TargetTime.UTC().Format(time.RFC3339),
		rec.ActualPrice,
		daily,
		hourly,
		rec.MAE,
		ape,
		rec.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert evaluation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get evaluation ID: %w", err)
	}
	rec.ID = id
	return id, nil
}

// ListByPrediction returns evaluations for one prediction, newest
// first.
func (r *Repository) ListByPrediction(ctx context.Context, predictionID int64) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, prediction_id, username, symbol, target_time, actual_price,
		       daily_prediction, hourly_prediction, mae, ape, created_at
		FROM prediction_evaluations
		WHERE prediction_id = ?
		ORDER BY created_at DESC`, predictionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec           Record
			target        string
			createdAt     string
			daily, hourly sql.NullFloat64
			ape           sql.NullFloat64
		)
		err := rows.Scan(
			&rec.ID,
			&rec.PredictionID,
			&rec.Username,
			&rec.Symbol,
			&target,
			&rec.ActualPrice,
			&daily,
			&hourly,
			&rec.MAE,
			&ape,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evaluation row: %w", err)
		}
		if daily.Valid {
			rec.DailyPrediction = &daily.Float64
		}
		if hourly.Valid {
			rec.HourlyPrediction = &hourly.Float64
		}
		if ape.Valid {
			rec.APE = &ape.Float64
		}
		if t, err := time.Parse(time.RFC3339, target); err == nil {
			rec.TargetTime = t
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			rec.CreatedAt = t
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate evaluation rows: %w", err)
	}
	return records, nil
}
