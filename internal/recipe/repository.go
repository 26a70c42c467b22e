package recipe

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository is a database-backed repository for recipes and user favorites.
type Repository struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB, logger zerolog.Logger) *Repository {
	return &Repository{
		db:     d,
		logger: logger.With().Str("component", "recipe_repository").Logger(),
	}
}

// Save inserts or updates a recipe in the database.
func (r *Repository) Save(ctx context.Context, rec Recipe) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	recipeJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal recipe to JSON: %w", err)
	}

	updatedAt := time.Now().UTC()
	if rec.UpdatedAt != "" {
		parsed, err := time.Parse(time.RFC3339, rec.UpdatedAt)
		if err != nil {
			r.logger.Warn().
				Err(err).
				Str("recipe_id", rec.ID).
				Str("updated_at", rec.UpdatedAt).
				Msg("unparseable updated_at, using current time")
		} else {
			updatedAt = parsed.UTC()
		}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO recipes (id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		rec.ID, string(recipeJSON), updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save recipe %s: %w", rec.ID, err)
	}
	return nil
}

// Get retrieves a recipe by its ID. It returns nil, nil when not found.
func (r *Repository) Get(ctx context.Context, id string) (*Recipe, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM recipes WHERE id = ?`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recipe by ID: %w", err)
	}

	var rec Recipe
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipe JSON: %w", err)
	}
	return &rec, nil
}

// AddFavorite marks a recipe as a favorite of the user. It is idempotent.
func (r *Repository) AddFavorite(ctx context.Context, userID, recipeID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO favorites (user_id, recipe_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id, recipe_id) DO NOTHING`,
		userID, recipeID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to add favorite %s for user %s: %w", recipeID, userID, err)
	}
	return nil
}

// RemoveFavorite unmarks a favorite recipe.
func (r *Repository) RemoveFavorite(ctx context.Context, userID, recipeID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = ? AND recipe_id = ?`, userID, recipeID)
	if err != nil {
		return fmt.Errorf("failed to remove favorite %s for user %s: %w", recipeID, userID, err)
	}
	return nil
}

// ListFavorites returns the user's favorite recipes ordered by the time they
// were favorited, oldest first. Rows that fail to decode are skipped.
func (r *Repository) ListFavorites(ctx context.Context, userID string) ([]Recipe, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.data FROM favorites f
		JOIN recipes r ON r.id = f.recipe_id
		WHERE f.user_id = ?
		ORDER BY f.created_at, r.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites for user %s: %w", userID, err)
	}
	defer rows.Close()

	var recipes []Recipe
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan favorite row: %w", err)
		}
		var rec Recipe
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			r.logger.Warn().Err(err).Str("recipe_id", id).Msg("skipping undecodable recipe")
			continue
		}
		recipes = append(recipes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate favorites: %w", err)
	}
	return recipes, nil
}

// Count returns the number of recipes in the database.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	return count, nil
}
