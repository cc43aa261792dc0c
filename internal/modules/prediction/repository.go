package prediction

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Repository persists prediction audit rows.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "prediction").Logger(),
	}
}

// Insert stores a prediction row and returns its ID.
func (r *Repository) Insert(ctx context.Context, rec *Record) (int64, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO predictions
			(username, symbol, days_ahead, hours_ahead, daily_prediction,
			 hourly_prediction, request_payload, response_payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Username,
		strings.ToUpper(rec.Symbol),
		rec.DaysAhead,
		rec.HoursAhead,
		nullFloat(rec.DailyPrediction),
		nullFloat(rec.HourlyPredicted),
		nullString(rec.RequestPayload),
		nullString(rec.ResponsePayload),
		rec.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert prediction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get prediction ID: %w", err)
	}
	rec.ID = id
	return id, nil
}

// History returns the caller's predictions, newest first. filter, when
// non-empty, matches symbols by substring.
func (r *Repository) History(ctx context.Context, username string, limit int, filter string) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, username, symbol, days_ahead, hours_ahead,
		       daily_prediction, hourly_prediction, created_at
		FROM predictions
		WHERE username = ?`
	args := []any{username}
	if filter != "" {
		query += ` AND symbol LIKE ?`
		args = append(args, "%"+strings.ToUpper(filter)+"%")
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query prediction history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate prediction rows: %w", err)
	}
	return records, nil
}

// GetByID returns one prediction row.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, username, symbol, days_ahead, hours_ahead,
		       daily_prediction, hourly_prediction, created_at
		FROM predictions WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec       Record
		daily     sql.NullFloat64
		hourly    sql.NullFloat64
		createdAt string
	)
	err := row.Scan(
		&rec.ID,
		&rec.Username,
		&rec.Symbol,
		&rec.DaysAhead,
		&rec.HoursAhead,
		&daily,
		&hourly,
		&createdAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("failed to scan prediction row: %w", err)
	}

	if daily.Valid {
		rec.DailyPrediction = &daily.Float64
	}
	if hourly.Valid {
		rec.HourlyPredicted = &hourly.Float64
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		rec.CreatedAt = t
	}
	return rec, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
