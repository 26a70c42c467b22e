package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
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

// ErrGenerationTimeout is returned when a run exceeds planner.timeout.
var ErrGenerationTimeout = errors.New("plan generation timed out")

// App holds the application's dependencies.
type App struct {
	cfg         *config.Config
	logger      zerolog.Logger
	db          *sql.DB
	ghostClient ghost.Client
	clipper     *clipper.Clipper
	locker      lock.Locker
	mealPlanner *planner.Planner

	recipeRepo   *recipe.Repository
	rotationRepo *rotation.Repository
	planRepo     *planner.PlanRepository
	prefsRepo    *planner.PreferencesRepository
	metricsStore *metrics.Store

	now func() time.Time
}

// Deps groups the collaborators passed to NewApp.
type Deps struct {
	Config       *config.Config
	Logger       zerolog.Logger
	DB           *sql.DB
	GhostClient  ghost.Client
	Clipper      *clipper.Clipper
	Locker       lock.Locker
	Planner      *planner.Planner
	RecipeRepo   *recipe.Repository
	RotationRepo *rotation.Repository
	PlanRepo     *planner.PlanRepository
	PrefsRepo    *planner.PreferencesRepository
	MetricsStore *metrics.Store
}

// NewApp creates and initializes a new App instance. A nil Locker falls back
// to an in-process lock.
func NewApp(d Deps) *App {
	locker := d.Locker
	if locker == nil {
		locker = lock.NewMemoryLocker()
	}
	return &App{
		cfg:          d.Config,
		logger:       d.Logger.With().Str("component", "app").Logger(),
		db:           d.DB,
		ghostClient:  d.GhostClient,
		clipper:      d.Clipper,
		locker:       locker,
		mealPlanner:  d.Planner,
		recipeRepo:   d.RecipeRepo,
		rotationRepo: d.RotationRepo,
		planRepo:     d.PlanRepo,
		prefsRepo:    d.PrefsRepo,
		metricsStore: d.MetricsStore,
		now:          time.Now,
	}
}

// GenerateRequest selects the week to plan. An empty WeekStart means the
// next Monday; a nil Seed derives one from the week.
type GenerateRequest struct {
	WeekStart string
	Seed      *int64
}

// GenerateResult is a stored plan together with run metadata.
type GenerateResult struct {
	RunID  string
	PlanID int64
	Plan   *planner.WeekPlan
	// Replaced is true when a plan for the same week already existed.
	Replaced bool
	// RotationRecovered is true when a corrupt stored rotation was discarded.
	RotationRecovered bool
}

// NextWeekStart returns the Monday after today.
func (a *App) NextWeekStart() string {
	return planner.FormatDate(planner.GetNextMonday(a.now()))
}

// GenerateWeek plans a week for the user and persists the plan and the
// updated rotation state. Runs for the same user are serialised.
func (a *App) GenerateWeek(ctx context.Context, userID string, req GenerateRequest) (*GenerateResult, error) {
	start := a.now()
	runID := uuid.NewString()
	if req.WeekStart == "" {
		req.WeekStart = a.NextWeekStart()
	}
	logger := a.logger.With().Str("run_id", runID).Str("user_id", userID).Str("week_start", req.WeekStart).Logger()

	result, err := a.generateLocked(ctx, logger, userID, req)

	m := metrics.GenerationMetric{
		RunID:     runID,
		UserID:    userID,
		WeekStart: req.WeekStart,
		Outcome:   outcomeOf(err),
		LatencyMS: a.now().Sub(start).Milliseconds(),
	}
	if result != nil {
		result.RunID = runID
		m.Slots = result.Plan.Stats.Slots
		m.Candidates = result.Plan.Stats.Candidates
		m.RotationResets = result.Plan.Stats.RotationResets
	}
	// the run's own deadline must not drop its outcome
	if recErr := a.metricsStore.Record(context.WithoutCancel(ctx), m); recErr != nil {
		logger.Warn().Err(recErr).Msg("failed to record generation metric")
	}

	if err != nil {
		logger.Error().Err(err).Str("outcome", m.Outcome).Msg("plan generation failed")
		return nil, err
	}
	logger.Info().Int64("plan_id", result.PlanID).Int64("latency_ms", m.LatencyMS).Msg("plan generated")
	return result, nil
}

func (a *App) generateLocked(ctx context.Context, logger zerolog.Logger, userID string, req GenerateRequest) (*GenerateResult, error) {
	release, err := a.locker.Acquire(ctx, "generate:"+userID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire generation lock: %w", err)
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("failed to release generation lock")
		}
	}()

	prefs, err := a.preferencesFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	favorites, err := a.recipeRepo.ListFavorites(ctx, userID)
	if err != nil {
		return nil, err
	}

	recovered := false
	state, err := a.rotationRepo.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, rotation.ErrCorruptState) {
			return nil, err
		}
		logger.Warn().Err(err).Msg("stored rotation state is corrupt, starting a fresh cycle")
		state = rotation.NewState()
		recovered = true
	}

	plan, err := a.runPlanner(ctx, planner.Input{
		WeekStart:   req.WeekStart,
		Recipes:     favorites,
		Preferences: prefs,
		Rotation:    state,
		Seed:        req.Seed,
	})
	if err != nil {
		return nil, err
	}

	replaced, err := a.planRepo.ExistsForWeek(ctx, userID, plan.WeekStart)
	if err != nil {
		return nil, err
	}
	var planID int64
	err = database.WithTx(ctx, a.db, func(tx *sql.Tx) error {
		id, err := a.planRepo.SaveTx(ctx, tx, userID, plan)
		if err != nil {
			return err
		}
		planID = id
		return a.rotationRepo.SaveTx(ctx, tx, userID, plan.Rotation)
	})
	if err != nil {
		return nil, err
	}

	return &GenerateResult{
		PlanID:            planID,
		Plan:              plan,
		Replaced:          replaced,
		RotationRecovered: recovered,
	}, nil
}

// runPlanner bounds the run by planner.timeout as well as ctx.
func (a *App) runPlanner(ctx context.Context, in planner.Input) (*planner.WeekPlan, error) {
	if timeout := a.cfg.Planner.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		plan *planner.WeekPlan
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		plan, err := a.mealPlanner.GeneratePlan(in)
		done <- outcome{plan, err}
	}()

	select {
	case res := <-done:
		return res.plan, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrGenerationTimeout, ctx.Err())
	}
}

func (a *App) preferencesFor(ctx context.Context, userID string) (planner.Preferences, error) {
	stored, err := a.prefsRepo.Get(ctx, userID)
	if err != nil {
		return planner.Preferences{}, err
	}
	if stored == nil {
		return a.cfg.DefaultPreferences(), nil
	}
	return *stored, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, planner.ErrInsufficientRecipes):
		return metrics.OutcomeInsufficient
	case errors.Is(err, planner.ErrInvalidInput):
		return metrics.OutcomeInvalid
	case errors.Is(err, ErrGenerationTimeout), errors.Is(err, lock.ErrLockTimeout):
		return metrics.OutcomeTimeout
	default:
		return metrics.OutcomeError
	}
}

// RotationStatus describes where a user is in the rotation cycle.
type RotationStatus struct {
	CycleNumber int      `json:"cycle_number"`
	Used        []string `json:"used_recipe_ids"`
	Favorites   int      `json:"favorites"`
	Remaining   int      `json:"remaining"`
}

// RotationStatus reports the user's current rotation cycle.
func (a *App) RotationStatus(ctx context.Context, userID string) (*RotationStatus, error) {
	state, err := a.rotationRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	favorites, err := a.recipeRepo.ListFavorites(ctx, userID)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, r := range favorites {
		if !r.IsAccompaniment() {
			ids = append(ids, r.ID)
		}
	}
	return &RotationStatus{
		CycleNumber: state.CycleNumber,
		Used:        state.UsedIDs(),
		Favorites:   len(ids),
		Remaining:   len(rotation.FilterAvailable(ids, state)),
	}, nil
}

// ResetRotation discards the user's rotation state.
func (a *App) ResetRotation(ctx context.Context, userID string) error {
	if err := a.rotationRepo.Delete(ctx, userID); err != nil {
		return err
	}
	a.logger.Info().Str("user_id", userID).Msg("rotation reset")
	return nil
}

// SetPreferences validates and stores the user's preferences.
func (a *App) SetPreferences(ctx context.Context, userID string, p planner.Preferences) error {
	return a.prefsRepo.Save(ctx, userID, p)
}

// Preferences returns the user's stored preferences or the configured defaults.
func (a *App) Preferences(ctx context.Context, userID string) (planner.Preferences, error) {
	return a.preferencesFor(ctx, userID)
}

// LatestPlan returns the most recent plan stored for the week, or nil.
func (a *App) LatestPlan(ctx context.Context, userID, weekStart string) (*planner.StoredPlan, error) {
	return a.planRepo.LatestForWeek(ctx, userID, weekStart)
}

// PlanExists reports whether a plan is stored for the user's week.
func (a *App) PlanExists(ctx context.Context, userID, weekStart string) (bool, error) {
	return a.planRepo.ExistsForWeek(ctx, userID, weekStart)
}

// Stats returns generation summaries for the last days.
func (a *App) Stats(ctx context.Context, days int) ([]metrics.DailySummary, error) {
	return a.metricsStore.GetDailySummary(ctx, days)
}

// CleanupMetrics removes generation metrics older than days.
func (a *App) CleanupMetrics(ctx context.Context, days int) (int64, error) {
	return a.metricsStore.Cleanup(ctx, days)
}
