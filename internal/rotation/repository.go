package rotation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"meal-planner/internal/database"
)

// Repository persists rotation state keyed by user.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Get returns the user's rotation state, or NewState when none is stored.
// A stored state that fails to decode yields an error wrapping ErrCorruptState.
func (r *Repository) Get(ctx context.Context, userID string) (State, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT state FROM rotation_states WHERE user_id = ?`, userID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NewState(), nil
		}
		return State{}, fmt.Errorf("failed to get rotation state for user %s: %w", userID, err)
	}
	return FromJSON([]byte(data))
}

// Save stores the user's rotation state, replacing any previous value.
func (r *Repository) Save(ctx context.Context, userID string, s State) error {
	return saveState(ctx, r.db, userID, s)
}

// SaveTx is Save within the caller's transaction.
func (r *Repository) SaveTx(ctx context.Context, tx *sql.Tx, userID string, s State) error {
	return saveState(ctx, tx, userID, s)
}

func saveState(ctx context.Context, ex database.Execer, userID string, s State) error {
	data, err := ToJSON(s)
	if err != nil {
		return fmt.Errorf("failed to marshal rotation state: %w", err)
	}
	_, err = ex.ExecContext(ctx, `
		INSERT INTO rotation_states (user_id, state, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		userID, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save rotation state for user %s: %w", userID, err)
	}
	return nil
}

// Delete removes the stored state so the next Get starts fresh.
func (r *Repository) Delete(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM rotation_states WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete rotation state for user %s: %w", userID, err)
	}
	return nil
}
