package planner

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"meal-planner/internal/database"
)

// StoredPlan is a generated week plan as persisted.
type StoredPlan struct {
	ID        int64
	UserID    string
	WeekStart string
	Plan      WeekPlan
	CreatedAt time.Time
}

// PlanRepository is a database-backed repository for meal plans.
type PlanRepository struct {
	db *sql.DB
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(d *sql.DB) *PlanRepository {
	return &PlanRepository{db: d}
}

// Save inserts a new meal plan and returns its id.
func (r *PlanRepository) Save(ctx context.Context, userID string, plan *WeekPlan) (int64, error) {
	return savePlan(ctx, r.db, userID, plan)
}

// SaveTx is Save within the caller's transaction.
func (r *PlanRepository) SaveTx(ctx context.Context, tx *sql.Tx, userID string, plan *WeekPlan) (int64, error) {
	return savePlan(ctx, tx, userID, plan)
}

func savePlan(ctx context.Context, ex database.Execer, userID string, plan *WeekPlan) (int64, error) {
	data, err := json.Marshal(plan)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal meal plan: %w", err)
	}
	res, err := ex.ExecContext(ctx,
		`INSERT INTO meal_plans (user_id, week_start_date, plan_data, created_at) VALUES (?, ?, ?, ?)`,
		userID, plan.WeekStart, string(data), time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save meal plan for user %s: %w", userID, err)
	}
	return res.LastInsertId()
}

// ExistsForWeek reports whether the user already has a plan for the week.
func (r *PlanRepository) ExistsForWeek(ctx context.Context, userID, weekStart string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM meal_plans WHERE user_id = ? AND week_start_date = ?`,
		userID, weekStart,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check meal plan for user %s: %w", userID, err)
	}
	return n > 0, nil
}

// LatestForWeek returns the most recent plan for the week, or nil if none exists.
func (r *PlanRepository) LatestForWeek(ctx context.Context, userID, weekStart string) (*StoredPlan, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, week_start_date, plan_data, created_at FROM meal_plans
		WHERE user_id = ? AND week_start_date = ?
		ORDER BY id DESC LIMIT 1`,
		userID, weekStart,
	)
	sp, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get meal plan for user %s: %w", userID, err)
	}
	return sp, nil
}

// ListRecentByUserID retrieves the N most recent meal plans for a given user.
func (r *PlanRepository) ListRecentByUserID(ctx context.Context, userID string, limit int) ([]StoredPlan, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, week_start_date, plan_data, created_at FROM meal_plans
		WHERE user_id = ?
		ORDER BY id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent meal plans for user %s: %w", userID, err)
	}
	defer rows.Close()

	var plans []StoredPlan
	for rows.Next() {
		sp, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read meal plan row: %w", err)
		}
		plans = append(plans, *sp)
	}
	return plans, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(s scanner) (*StoredPlan, error) {
	var (
		sp   StoredPlan
		data string
	)
	if err := s.Scan(&sp.ID, &sp.UserID, &sp.WeekStart, &data, &sp.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &sp.Plan); err != nil {
		return nil, fmt.Errorf("failed to unmarshal meal plan %d: %w", sp.ID, err)
	}
	return &sp, nil
}
