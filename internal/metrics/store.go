package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Outcomes of a generation run.
const (
	OutcomeSuccess      = "success"
	OutcomeInsufficient = "insufficient_recipes"
	OutcomeInvalid      = "invalid_input"
	OutcomeTimeout      = "timeout"
	OutcomeError        = "error"
)

// GenerationMetric records metadata for a single plan generation.
type GenerationMetric struct {
	RunID          string
	UserID         string
	WeekStart      string
	Slots          int
	Candidates     int
	RotationResets int
	Outcome        string
	LatencyMS      int64
	Timestamp      time.Time
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record saves a metric to the database and updates the live collectors.
func (s *Store) Record(ctx context.Context, m GenerationMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	observe(m)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generation_metrics
			(run_id, user_id, week_start_date, slots, candidates, rotation_resets, outcome, latency_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.RunID, m.UserID, m.WeekStart, m.Slots, m.Candidates, m.RotationResets, m.Outcome, m.LatencyMS, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to record generation metric: %w", err)
	}
	return nil
}

// DailySummary aggregates generation runs for a single day.
type DailySummary struct {
	Date           string
	Runs           int
	Failures       int
	RotationResets int
	AvgLatencyMS   float64
}

// GetDailySummary retrieves per-day totals for the last N days, newest first.
func (s *Store) GetDailySummary(ctx context.Context, days int) ([]DailySummary, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(timestamp, 1, 10) AS day,
			COUNT(*),
			SUM(CASE WHEN outcome = ? THEN 0 ELSE 1 END),
			SUM(rotation_resets),
			AVG(latency_ms)
		FROM generation_metrics
		WHERE timestamp >= ?
		GROUP BY day
		ORDER BY day DESC`,
		OutcomeSuccess, since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily summary: %w", err)
	}
	defer rows.Close()

	var results []DailySummary
	for rows.Next() {
		var d DailySummary
		if err := rows.Scan(&d.Date, &d.Runs, &d.Failures, &d.RotationResets, &d.AvgLatencyMS); err != nil {
			return nil, fmt.Errorf("failed to scan daily summary: %w", err)
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

// Cleanup removes records older than the specified number of days.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	res, err := s.db.ExecContext(ctx, `DELETE FROM generation_metrics WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up generation metrics: %w", err)
	}
	return res.RowsAffected()
}
