package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

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

const testWeek = "2025-10-06"

type fakeGhost struct {
	mu        sync.Mutex
	posts     []ghost.Post
	err       error
	published []string
}

func (f *fakeGhost) FetchRecipes(ctx context.Context) ([]ghost.Post, error) {
	return f.posts, f.err
}

func (f *fakeGhost) CreatePost(ctx context.Context, title, html string, tags []string, publish bool) (*ghost.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, html)
	return &ghost.Post{ID: "post-1", Title: title, HTML: html}, nil
}

type testEnv struct {
	app   *App
	db    *database.DB
	ghost *fakeGhost
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "app.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{Planner: config.PlannerConfig{
		Weights:      planner.DefaultWeights(),
		MealTypes:    []string{"breakfast", "lunch", "dinner"},
		MinFavorites: 1,
		Timeout:      5 * time.Second,
	}}
	fg := &fakeGhost{}
	a := NewApp(Deps{
		Config:       cfg,
		Logger:       zerolog.Nop(),
		DB:           db.SQL,
		GhostClient:  fg,
		Locker:       lock.NewMemoryLocker(),
		Planner:      planner.NewPlanner(cfg.PlannerSettings(), zerolog.Nop()),
		RecipeRepo:   recipe.NewRepository(db.SQL, zerolog.Nop()),
		RotationRepo: rotation.NewRepository(db.SQL),
		PlanRepo:     planner.NewPlanRepository(db.SQL),
		PrefsRepo:    planner.NewPreferencesRepository(db.SQL),
		MetricsStore: metrics.NewStore(db.SQL),
	})
	a.now = func() time.Time { return time.Date(2025, 10, 2, 18, 0, 0, 0, time.UTC) }
	return &testEnv{app: a, db: db, ghost: fg}
}

func testRecipes(n int) []recipe.Recipe {
	recipes := make([]recipe.Recipe, 0, n)
	for i := 1; i <= n; i++ {
		recipes = append(recipes, recipe.Recipe{
			ID:                fmt.Sprintf("r%d", i),
			Title:             fmt.Sprintf("Recipe %d", i),
			IngredientsCount:  5 + i,
			InstructionsCount: 4,
			PrepTimeMinutes:   recipe.Minutes(10),
			CookTimeMinutes:   recipe.Minutes(15 + i),
		})
	}
	return recipes
}

func seed(n int64) *int64 { return &n }

func TestGenerateWeek(t *testing.T) {
	ctx := context.Background()

	t.Run("PersistsPlanAndRotation", func(t *testing.T) {
		env := newTestEnv(t)
		if _, err := env.app.ImportRecipes(ctx, "u1", testRecipes(8)); err != nil {
			t.Fatalf("ImportRecipes failed: %v", err)
		}

		res, err := env.app.GenerateWeek(ctx, "u1", GenerateRequest{WeekStart: testWeek, Seed: seed(3)})
		if err != nil {
			t.Fatalf("GenerateWeek failed: %v", err)
		}
		if res.RunID == "" || res.PlanID == 0 {
			t.Errorf("Expected run and plan ids, got %+v", res)
		}
		if len(res.Plan.Assignments) != 21 {
			t.Fatalf("Expected 21 assignments, got %d", len(res.Plan.Assignments))
		}
		if res.Replaced {
			t.Error("First plan for the week should not be marked replaced")
		}

		stored, err := rotation.NewRepository(env.db.SQL).Get(ctx, "u1")
		if err != nil {
			t.Fatalf("rotation Get failed: %v", err)
		}
		if !stored.Equal(res.Plan.Rotation) {
			t.Errorf("stored rotation %+v != plan rotation %+v", stored, res.Plan.Rotation)
		}

		again, err := env.app.GenerateWeek(ctx, "u1", GenerateRequest{WeekStart: testWeek, Seed: seed(3)})
		if err != nil {
			t.Fatalf("second GenerateWeek failed: %v", err)
		}
		if !again.Replaced {
			t.Error("Expected second plan for the same week to be marked replaced")
		}

		summary, err := env.app.Stats(ctx, 7)
		if err != nil {
			t.Fatalf("Stats failed: %v", err)
		}
		if len(summary) != 1 || summary[0].Runs != 2 || summary[0].Failures != 0 {
			t.Errorf("unexpected summary %+v", summary)
		}
	})

	t.Run("DefaultsToNextMonday", func(t *testing.T) {
		env := newTestEnv(t)
		if _, err := env.app.ImportRecipes(ctx, "u1", testRecipes(3)); err != nil {
			t.Fatalf("ImportRecipes failed: %v", err)
		}
		res, err := env.app.GenerateWeek(ctx, "u1", GenerateRequest{})
		if err != nil {
			t.Fatalf("GenerateWeek failed: %v", err)
		}
		if res.Plan.WeekStart != testWeek {
			t.Errorf("WeekStart = %s, want %s", res.Plan.WeekStart, testWeek)
		}
	})

	t.Run("InsufficientRecipes", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.app.GenerateWeek(ctx, "empty", GenerateRequest{WeekStart: testWeek})
		if !errors.Is(err, planner.ErrInsufficientRecipes) {
			t.Fatalf("Expected ErrInsufficientRecipes, got %v", err)
		}
		exists, err := env.app.PlanExists(ctx, "empty", testWeek)
		if err != nil || exists {
			t.Errorf("Expected no stored plan, got exists=%v err=%v", exists, err)
		}
		summary, err := env.app.Stats(ctx, 7)
		if err != nil {
			t.Fatalf("Stats failed: %v", err)
		}
		if len(summary) != 1 || summary[0].Failures != 1 {
			t.Errorf("Expected one failed run, got %+v", summary)
		}
	})

	t.Run("UsesStoredPreferences", func(t *testing.T) {
		env := newTestEnv(t)
		recipes := testRecipes(4)
		recipes[0].DietaryTags = []string{"vegan"}
		if _, err := env.app.ImportRecipes(ctx, "u1", recipes); err != nil {
			t.Fatalf("ImportRecipes failed: %v", err)
		}
		err := env.app.SetPreferences(ctx, "u1", planner.Preferences{
			Restrictions: []recipe.Restriction{{Kind: recipe.Vegan}},
			MealTypes:    []planner.MealType{planner.Dinner},
		})
		if err != nil {
			t.Fatalf("SetPreferences failed: %v", err)
		}

		res, err := env.app.GenerateWeek(ctx, "u1", GenerateRequest{WeekStart: testWeek})
		if err != nil {
			t.Fatalf("GenerateWeek failed: %v", err)
		}
		if len(res.Plan.Assignments) != 7 {
			t.Fatalf("Expected 7 dinner slots, got %d", len(res.Plan.Assignments))
		}
		for _, a := range res.Plan.Assignments {
			if a.RecipeID != "r1" {
				t.Errorf("non-vegan recipe %s assigned", a.RecipeID)
			}
		}
	})

	t.Run("CorruptRotationState", func(t *testing.T) {
		env := newTestEnv(t)
		if _, err := env.app.ImportRecipes(ctx, "u1", testRecipes(5)); err != nil {
			t.Fatalf("ImportRecipes failed: %v", err)
		}
		_, err := env.db.SQL.ExecContext(ctx,
			`INSERT INTO rotation_states (user_id, state, updated_at) VALUES (?, ?, ?)`,
			"u1", "{not json", time.Now().UTC())
		if err != nil {
			t.Fatalf("failed to seed corrupt state: %v", err)
		}

		res, err := env.app.GenerateWeek(ctx, "u1", GenerateRequest{WeekStart: testWeek})
		if err != nil {
			t.Fatalf("GenerateWeek failed: %v", err)
		}
		if !res.RotationRecovered {
			t.Error("Expected RotationRecovered to be set")
		}
		if _, err := rotation.NewRepository(env.db.SQL).Get(ctx, "u1"); err != nil {
			t.Errorf("Expected corrupt state to be overwritten, got %v", err)
		}
	})

	t.Run("RotationWriteFailureRollsBackPlan", func(t *testing.T) {
		env := newTestEnv(t)
		if _, err := env.app.ImportRecipes(ctx, "u1", testRecipes(5)); err != nil {
			t.Fatalf("ImportRecipes failed: %v", err)
		}
		_, err := env.db.SQL.ExecContext(ctx, `CREATE TRIGGER fail_rotation BEFORE INSERT ON rotation_states
			BEGIN SELECT RAISE(ABORT, 'disk full'); END;`)
		if err != nil {
			t.Fatalf("failed to create trigger: %v", err)
		}

		if _, err := env.app.GenerateWeek(ctx, "u1", GenerateRequest{WeekStart: testWeek}); err == nil {
			t.Fatal("Expected rotation write failure to be returned")
		}
		exists, err := env.app.PlanExists(ctx, "u1", testWeek)
		if err != nil {
			t.Fatalf("PlanExists failed: %v", err)
		}
		if exists {
			t.Error("Expected plan insert to be rolled back with the rotation write")
		}
	})

	t.Run("CancelledRunStillRecordsMetric", func(t *testing.T) {
		env := newTestEnv(t)
		if _, err := env.app.ImportRecipes(ctx, "u1", testRecipes(5)); err != nil {
			t.Fatalf("ImportRecipes failed: %v", err)
		}
		release, err := env.app.locker.Acquire(ctx, "generate:u1")
		if err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		defer release(ctx)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err = env.app.GenerateWeek(cancelled, "u1", GenerateRequest{WeekStart: testWeek})
		if !errors.Is(err, lock.ErrLockTimeout) {
			t.Fatalf("Expected ErrLockTimeout, got %v", err)
		}

		var n int
		err = env.db.SQL.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM generation_metrics WHERE outcome = ?`, metrics.OutcomeTimeout).Scan(&n)
		if err != nil {
			t.Fatalf("failed to count metrics: %v", err)
		}
		if n != 1 {
			t.Errorf("Expected one recorded timeout, got %d", n)
		}
	})

	t.Run("ConcurrentRunsSameUser", func(t *testing.T) {
		env := newTestEnv(t)
		if _, err := env.app.ImportRecipes(ctx, "u1", testRecipes(10)); err != nil {
			t.Fatalf("ImportRecipes failed: %v", err)
		}

		weeks := []string{"2025-10-06", "2025-10-13", "2025-10-20"}
		var wg sync.WaitGroup
		errs := make(chan error, len(weeks))
		for _, w := range weeks {
			wg.Add(1)
			go func(week string) {
				defer wg.Done()
				_, err := env.app.GenerateWeek(ctx, "u1", GenerateRequest{WeekStart: week})
				errs <- err
			}(w)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Errorf("GenerateWeek failed: %v", err)
			}
		}

		// 63 slots over a pool of 10 leaves 3 recipes used in the open cycle.
		status, err := env.app.RotationStatus(ctx, "u1")
		if err != nil {
			t.Fatalf("RotationStatus failed: %v", err)
		}
		if len(status.Used) != 3 || status.Remaining != 7 {
			t.Errorf("unexpected rotation after serialised runs: %+v", status)
		}
	})
}

func TestRotationStatusAndReset(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	recipes := append(testRecipes(5), recipe.Recipe{ID: "rice", Title: "Rice", Category: recipe.CategoryAccompaniment})
	if _, err := env.app.ImportRecipes(ctx, "u1", recipes); err != nil {
		t.Fatalf("ImportRecipes failed: %v", err)
	}

	err := env.app.SetPreferences(ctx, "u1", planner.Preferences{MealTypes: []planner.MealType{planner.Dinner}})
	if err != nil {
		t.Fatalf("SetPreferences failed: %v", err)
	}
	if _, err := env.app.GenerateWeek(ctx, "u1", GenerateRequest{WeekStart: testWeek}); err != nil {
		t.Fatalf("GenerateWeek failed: %v", err)
	}

	status, err := env.app.RotationStatus(ctx, "u1")
	if err != nil {
		t.Fatalf("RotationStatus failed: %v", err)
	}
	// 7 dinners over 5 mains: one full cycle, then 2 into the next.
	if status.Favorites != 5 || status.CycleNumber != 2 || len(status.Used) != 2 || status.Remaining != 3 {
		t.Errorf("unexpected status %+v", status)
	}

	if err := env.app.ResetRotation(ctx, "u1"); err != nil {
		t.Fatalf("ResetRotation failed: %v", err)
	}
	status, err = env.app.RotationStatus(ctx, "u1")
	if err != nil {
		t.Fatalf("RotationStatus failed: %v", err)
	}
	if status.CycleNumber != 1 || len(status.Used) != 0 || status.Remaining != 5 {
		t.Errorf("Expected fresh rotation after reset, got %+v", status)
	}
}

func TestSetPreferencesInvalid(t *testing.T) {
	env := newTestEnv(t)
	err := env.app.SetPreferences(context.Background(), "u1", planner.Preferences{WeeknightMinutes: recipe.Minutes(-5)})
	if !errors.Is(err, planner.ErrInvalidInput) {
		t.Fatalf("Expected ErrInvalidInput, got %v", err)
	}
	prefs, err := env.app.Preferences(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Preferences failed: %v", err)
	}
	if prefs.WeeknightMinutes != nil {
		t.Errorf("Expected config defaults, got %+v", prefs)
	}
}

func TestIngestRecipes(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.ghost.posts = []ghost.Post{
		{
			ID:        "tacos",
			Title:     "Fish Tacos",
			UpdatedAt: "2025-01-01T00:00:00Z",
			HTML:      `<p>Prep time: 15</p><p>Cook time: 10</p><h2>Ingredients</h2><ul><li>fish</li><li>tortillas</li></ul>`,
		},
		{ID: "", Title: "Broken"},
	}

	res, err := env.app.IngestRecipes(ctx, "u1")
	if err != nil {
		t.Fatalf("IngestRecipes failed: %v", err)
	}
	if res.Saved != 1 || res.Failed != 1 || res.Skipped != 0 {
		t.Errorf("unexpected result %+v", res)
	}

	favs, err := env.app.recipeRepo.ListFavorites(ctx, "u1")
	if err != nil {
		t.Fatalf("ListFavorites failed: %v", err)
	}
	if len(favs) != 1 || favs[0].IngredientsCount != 2 || *favs[0].PrepTimeMinutes != 15 {
		t.Errorf("unexpected favorites %+v", favs)
	}

	res, err = env.app.IngestRecipes(ctx, "u2")
	if err != nil {
		t.Fatalf("second IngestRecipes failed: %v", err)
	}
	if res.Skipped != 1 || res.Saved != 0 {
		t.Errorf("Expected unchanged post to be skipped, got %+v", res)
	}
	favs, _ = env.app.recipeRepo.ListFavorites(ctx, "u2")
	if len(favs) != 1 {
		t.Errorf("Expected skipped post to still be favorited for u2, got %d", len(favs))
	}

	env.ghost.err = errors.New("boom")
	if _, err := env.app.IngestRecipes(ctx, "u1"); err == nil {
		t.Error("Expected fetch error to be returned")
	}
}

func TestImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipes.yaml")
	data := `recipes:
  - id: chili
    title: Weeknight Chili
    ingredients_count: 9
    instructions_count: 5
    cook_time_minutes: 30
  - id: salad
    title: Green Salad
    ingredients_count: 4
    instructions_count: 2
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	env := newTestEnv(t)
	n, err := env.app.ImportFile(context.Background(), "u1", path)
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 imported recipes, got %d", n)
	}

	if _, err := env.app.ImportFile(context.Background(), "u1", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestClipRecipe(t *testing.T) {
	page := `<html><head><script type="application/ld+json">
{"@type":"Recipe","name":"Tomato Soup","recipeIngredient":["tomatoes","onion","stock"],
 "recipeInstructions":[{"@type":"HowToStep","text":"Chop."},{"@type":"HowToStep","text":"Simmer."}],
 "cookTime":"PT25M","suitableForDiet":"https://schema.org/VeganDiet"}
</script></head><body></body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer server.Close()

	ctx := context.Background()
	env := newTestEnv(t)

	if _, err := env.app.ClipRecipe(ctx, "u1", server.URL); err == nil {
		t.Fatal("Expected error without a clipper")
	}

	env.app.clipper = clipper.NewClipper(env.ghost, "recipe")
	r, err := env.app.ClipRecipe(ctx, "u1", server.URL)
	if err != nil {
		t.Fatalf("ClipRecipe failed: %v", err)
	}
	if r.ID != "post-1" || r.IngredientsCount != 3 || r.InstructionsCount != 2 {
		t.Errorf("Unexpected clipped recipe: %+v", r)
	}
	if !r.HasTag("vegan") {
		t.Errorf("Expected vegan tag, got %v", r.DietaryTags)
	}

	favs, err := env.app.recipeRepo.ListFavorites(ctx, "u1")
	if err != nil {
		t.Fatalf("ListFavorites failed: %v", err)
	}
	if len(favs) != 1 || favs[0].Title != "Tomato Soup" {
		t.Errorf("Expected clipped recipe in favorites, got %+v", favs)
	}
}

func TestPublishPlan(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	recipes := testRecipes(3)
	for i := range recipes {
		recipes[i].AcceptsAccompaniment = true
	}
	recipes = append(recipes, recipe.Recipe{ID: "rice", Title: "Steamed Rice", Category: recipe.CategoryAccompaniment})
	if _, err := env.app.ImportRecipes(ctx, "u1", recipes); err != nil {
		t.Fatalf("ImportRecipes failed: %v", err)
	}

	if _, err := env.app.PublishPlan(ctx, "u1", testWeek, false); err == nil {
		t.Error("Expected error when no plan is stored")
	}

	if _, err := env.app.GenerateWeek(ctx, "u1", GenerateRequest{WeekStart: testWeek}); err != nil {
		t.Fatalf("GenerateWeek failed: %v", err)
	}
	post, err := env.app.PublishPlan(ctx, "u1", testWeek, false)
	if err != nil {
		t.Fatalf("PublishPlan failed: %v", err)
	}
	if post.Title != "Meal plan for the week of "+testWeek {
		t.Errorf("unexpected title %q", post.Title)
	}

	html := env.ghost.published[0]
	for _, want := range []string{"<h2>Monday 2025-10-06</h2>", "<h2>Sunday 2025-10-12</h2>", "with Steamed Rice", "<strong>dinner</strong>"} {
		if !strings.Contains(html, want) {
			t.Errorf("published html missing %q:\n%s", want, html)
		}
	}
}

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, metrics.OutcomeSuccess},
		{&planner.InsufficientRecipesError{Available: 0, Required: 1}, metrics.OutcomeInsufficient},
		{&planner.ValidationError{Field: "week_start", Message: "bad"}, metrics.OutcomeInvalid},
		{fmt.Errorf("%w: %w", ErrGenerationTimeout, context.DeadlineExceeded), metrics.OutcomeTimeout},
		{fmt.Errorf("acquire: %w", lock.ErrLockTimeout), metrics.OutcomeTimeout},
		{errors.New("disk full"), metrics.OutcomeError},
	}
	for _, tt := range tests {
		if got := outcomeOf(tt.err); got != tt.want {
			t.Errorf("outcomeOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
