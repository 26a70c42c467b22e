package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"meal-planner/internal/clipper"
	"meal-planner/internal/config"
	"meal-planner/internal/database"
	"meal-planner/internal/ghost"
	"meal-planner/internal/lock"
	"meal-planner/internal/metrics"
	"meal-planner/internal/planner"
	"meal-planner/internal/recipe"
	"meal-planner/internal/rotation"
)

// Build opens the database and wires every collaborator from cfg. The
// returned close function releases the database and any Redis connection.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, func() error, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	closers := []func() error{db.Close}
	closeAll := func() error {
		var first error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	var locker lock.Locker = lock.NewMemoryLocker()
	if cfg.Redis.Enabled {
		rl, err := lock.NewRedisLocker(ctx, lock.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.LockTTL,
		}, logger)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, rl.Close)
		locker = rl
	}

	var (
		ghostClient ghost.Client
		clip        *clipper.Clipper
	)
	if cfg.Ghost.URL != "" {
		ghostClient = ghost.NewClient(cfg)
		var tags []string
		if cfg.Ghost.Tag != "" {
			tags = append(tags, cfg.Ghost.Tag)
		}
		clip = clipper.NewClipper(ghostClient, tags...)
	}

	a := NewApp(Deps{
		Config:       cfg,
		Logger:       logger,
		DB:           db.SQL,
		GhostClient:  ghostClient,
		Clipper:      clip,
		Locker:       locker,
		Planner:      planner.NewPlanner(cfg.PlannerSettings(), logger),
		RecipeRepo:   recipe.NewRepository(db.SQL, logger),
		RotationRepo: rotation.NewRepository(db.SQL),
		PlanRepo:     planner.NewPlanRepository(db.SQL),
		PrefsRepo:    planner.NewPreferencesRepository(db.SQL),
		MetricsStore: metrics.NewStore(db.SQL),
	})
	return a, closeAll, nil
}
