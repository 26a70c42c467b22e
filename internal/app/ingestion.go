package app

import (
	"context"
	"fmt"

	"meal-planner/internal/ghost"
	"meal-planner/internal/metrics"
	"meal-planner/internal/recipe"
)

// Sources reported by the ingestion counters.
const (
	SourceGhost = "ghost"
	SourceFile  = "file"
	SourceClip  = "clip"
)

// IngestResult summarises an ingestion run.
type IngestResult struct {
	Saved   int
	Skipped int
	Failed  int
}

// IngestRecipes fetches recipe posts from Ghost, parses them into planning
// recipes and adds them to the user's favorites. Posts that fail to parse are
// logged and counted, not fatal. Posts whose stored copy is up to date are
// skipped.
func (a *App) IngestRecipes(ctx context.Context, userID string) (IngestResult, error) {
	var res IngestResult
	if a.ghostClient == nil {
		return res, fmt.Errorf("ghost client is not configured")
	}

	posts, err := a.ghostClient.FetchRecipes(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to fetch recipes from ghost: %w", err)
	}
	a.logger.Info().Int("posts", len(posts)).Msg("fetched recipe posts from Ghost")

	for _, post := range posts {
		if isPlanPost(post) {
			continue
		}
		if existing, err := a.recipeRepo.Get(ctx, post.ID); err == nil && existing != nil && post.UpdatedAt != "" && existing.UpdatedAt == post.UpdatedAt {
			if err := a.recipeRepo.AddFavorite(ctx, userID, post.ID); err != nil {
				return res, err
			}
			res.Skipped++
			continue
		}

		r, err := ghost.ParsePost(post)
		if err != nil {
			a.logger.Warn().Err(err).Str("post_id", post.ID).Str("title", post.Title).Msg("failed to parse recipe post")
			res.Failed++
			continue
		}
		if err := a.saveFavorite(ctx, userID, r); err != nil {
			return res, err
		}
		res.Saved++
		a.logger.Debug().Str("recipe_id", r.ID).Str("title", r.Title).Msg("recipe ingested")
	}

	metrics.RecordIngested(SourceGhost, res.Saved)
	a.logger.Info().
		Int("saved", res.Saved).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Msg("ingestion complete")
	return res, nil
}

// ImportRecipes saves already-parsed recipes and adds them to the user's
// favorites.
func (a *App) ImportRecipes(ctx context.Context, userID string, recipes []recipe.Recipe) (int, error) {
	for _, r := range recipes {
		if err := a.saveFavorite(ctx, userID, r); err != nil {
			return 0, err
		}
	}
	metrics.RecordIngested(SourceFile, len(recipes))
	a.logger.Info().Str("user_id", userID).Int("recipes", len(recipes)).Msg("recipes imported")
	return len(recipes), nil
}

// ImportFile loads a YAML recipe catalog and imports it.
func (a *App) ImportFile(ctx context.Context, userID, path string) (int, error) {
	recipes, err := recipe.LoadFile(path)
	if err != nil {
		return 0, err
	}
	return a.ImportRecipes(ctx, userID, recipes)
}

func isPlanPost(p ghost.Post) bool {
	for _, t := range p.Tags {
		if t.Slug == planTag || t.Name == planTag {
			return true
		}
	}
	return false
}

func (a *App) saveFavorite(ctx context.Context, userID string, r recipe.Recipe) error {
	if err := a.recipeRepo.Save(ctx, r); err != nil {
		return err
	}
	return a.recipeRepo.AddFavorite(ctx, userID, r.ID)
}

// ClipRecipe imports a recipe page into Ghost and adds it to the user's
// favorites.
func (a *App) ClipRecipe(ctx context.Context, userID, url string) (*recipe.Recipe, error) {
	if a.clipper == nil {
		return nil, fmt.Errorf("ghost client is not configured")
	}
	post, r, err := a.clipper.ClipURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to clip recipe: %w", err)
	}
	if err := a.saveFavorite(ctx, userID, r); err != nil {
		return nil, err
	}
	metrics.RecordIngested(SourceClip, 1)
	a.logger.Info().Str("user_id", userID).Str("post_id", post.ID).Str("url", url).Msg("recipe clipped")
	return &r, nil
}
