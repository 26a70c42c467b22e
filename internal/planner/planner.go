package planner

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"meal-planner/internal/recipe"
	"meal-planner/internal/rotation"
)

const maxAlternatives = 2

// Config tunes the assignment algorithm.
type Config struct {
	Weights Weights
	// MealTypes is the default course list when preferences name none.
	MealTypes []MealType
	// MinFavorites is the smallest eligible pool that may be planned from.
	MinFavorites int
}

// Planner fills a week's slots from a user's favorite recipes.
// It holds no per-user state and is safe for concurrent use.
type Planner struct {
	cfg    Config
	logger zerolog.Logger
}

// NewPlanner creates a new Planner instance.
func NewPlanner(cfg Config, logger zerolog.Logger) *Planner {
	if cfg.Weights.Validate() != nil {
		cfg.Weights = DefaultWeights()
	}
	if len(cfg.MealTypes) == 0 {
		cfg.MealTypes = DefaultMealTypes
	}
	if cfg.MinFavorites < 1 {
		cfg.MinFavorites = 1
	}
	return &Planner{
		cfg:    cfg,
		logger: logger.With().Str("component", "planner").Logger(),
	}
}

type candidate struct {
	recipe recipe.Recipe
	total  float64
}

// GeneratePlan assigns one recipe to every slot of the week. The input
// rotation state is not modified; the updated state is returned in the plan.
func (p *Planner) GeneratePlan(in Input) (*WeekPlan, error) {
	weekStart, err := ParseWeekStart(in.WeekStart)
	if err != nil {
		return nil, &ValidationError{Field: "week_start", Message: err.Error()}
	}
	if err := ValidatePreferences(in.Preferences); err != nil {
		return nil, err
	}
	prefs := in.Preferences

	mealTypes := prefs.MealTypes
	if len(mealTypes) == 0 {
		mealTypes = p.cfg.MealTypes
	}

	mains, sides := splitAccompaniments(in.Recipes)
	eligible := recipe.Filter(mains, prefs.Restrictions)
	eligibleSides := recipe.Filter(sides, prefs.Restrictions)

	pool := dedupe(eligible.Recipes)
	if len(pool) == 0 || len(pool) < p.cfg.MinFavorites {
		return nil, &InsufficientRecipesError{
			Available: len(pool),
			Required:  p.cfg.MinFavorites,
			Excluded:  len(mains) - len(eligible.Recipes),
		}
	}

	seed := deriveSeed(weekStart)
	if in.Seed != nil {
		seed = *in.Seed
	}
	rng := rand.New(rand.NewSource(seed))

	byID := make(map[string]recipe.Recipe, len(pool))
	for _, r := range pool {
		byID[r.ID] = r
	}
	poolIDs := recipe.IDs(pool)

	state := in.Rotation.Clone()
	state.Retain(poolIDs)

	slots := GenerateSlots(weekStart, mealTypes)
	plan := &WeekPlan{
		WeekStart:   FormatDate(weekStart),
		Seed:        seed,
		Assignments: make([]Assignment, 0, len(slots)),
		Warnings:    unverifiedWarnings(eligible.Unverified, eligibleSides.Unverified),
		Stats: Stats{
			Slots:      len(slots),
			Candidates: len(pool),
			Excluded:   len(mains) - len(eligible.Recipes),
		},
	}
	if len(pool) < len(slots) {
		plan.Warnings = append(plan.Warnings, fmt.Sprintf(
			"Only %d favorite recipes for %d meals, so some recipes repeat this week", len(pool), len(slots)))
	}

	var assignedThisCycle []string
	sameDay := make(map[int][]recipe.Recipe)

	for _, slot := range slots {
		available := rotation.FilterAvailable(poolIDs, state)
		if len(available) == 0 {
			state.ResetCycle()
			plan.Stats.RotationResets++
			assignedThisCycle = nil
			available = poolIDs
			p.logger.Debug().Int("cycle", state.CycleNumber).Msg("Rotation exhausted mid-week, starting new cycle")
		}

		candidates := matchCourse(lookup(byID, available), slot.MealType)
		ctx := EvalContext{Preferences: prefs, SameDay: sameDay[slot.DayIndex]}
		ranked := p.rank(candidates, slot, ctx)
		if len(ranked) == 0 {
			return nil, &InsufficientRecipesError{Available: 0, Required: 1, Excluded: len(candidates)}
		}

		winner, rest := pickWinner(ranked, rng)
		a := Assignment{
			Slot:         slot,
			RecipeID:     winner.recipe.ID,
			RecipeTitle:  winner.recipe.Title,
			Alternatives: alternativeIDs(rest),
			PrepRequired: winner.recipe.RequiresAdvancePrep(),
			Reasoning:    GenerateReasoning(winner.recipe, slot, prefs),
		}
		if winner.recipe.AcceptsAccompaniment {
			if side, ok := pickAccompaniment(winner.recipe, eligibleSides.Recipes, rng); ok {
				a.AccompanimentID = side.ID
				plan.Stats.Accompaniments++
			}
		}
		plan.Assignments = append(plan.Assignments, a)

		state.MarkUsed(winner.recipe.ID)
		assignedThisCycle = append(assignedThisCycle, winner.recipe.ID)
		sameDay[slot.DayIndex] = append(sameDay[slot.DayIndex], winner.recipe)

		p.logger.Debug().
			Str("day", slot.Weekday()).
			Str("meal_type", string(slot.MealType)).
			Str("recipe_id", winner.recipe.ID).
			Float64("total", winner.total).
			Int("candidates", len(ranked)).
			Msg("Slot assigned")
	}

	before := state.CycleNumber
	plan.Rotation = rotation.UpdateAfterGeneration(assignedThisCycle, len(poolIDs), state)
	if plan.Rotation.CycleNumber != before {
		plan.Stats.RotationResets++
	}

	p.logger.Info().
		Str("week_start", plan.WeekStart).
		Int64("seed", seed).
		Int("slots", plan.Stats.Slots).
		Int("candidates", plan.Stats.Candidates).
		Int("rotation_resets", plan.Stats.RotationResets).
		Int("cycle", plan.Rotation.CycleNumber).
		Msg("Week plan generated")

	return plan, nil
}

// rank scores candidates and orders them best first. Candidates failing the
// dietary gate are dropped. Equal totals keep pool order.
func (p *Planner) rank(candidates []recipe.Recipe, slot Slot, ctx EvalContext) []candidate {
	ranked := make([]candidate, 0, len(candidates))
	for _, r := range candidates {
		scores := ScoreAll(r, slot, ctx)
		total, ok := p.cfg.Weights.Combine(scores)
		if !ok {
			continue
		}
		ranked = append(ranked, candidate{recipe: r, total: total})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].total > ranked[j].total
	})
	return ranked
}

// pickWinner returns the best candidate, breaking exact ties with rng, and
// the remaining candidates in rank order.
func pickWinner(ranked []candidate, rng *rand.Rand) (candidate, []candidate) {
	ties := 1
	for ties < len(ranked) && ranked[ties].total == ranked[0].total {
		ties++
	}
	idx := 0
	if ties > 1 {
		idx = rng.Intn(ties)
	}
	rest := make([]candidate, 0, len(ranked)-1)
	rest = append(rest, ranked[:idx]...)
	rest = append(rest, ranked[idx+1:]...)
	return ranked[idx], rest
}

func alternativeIDs(rest []candidate) []string {
	n := len(rest)
	if n > maxAlternatives {
		n = maxAlternatives
	}
	if n == 0 {
		return nil
	}
	ids := make([]string, 0, n)
	for _, c := range rest[:n] {
		ids = append(ids, c.recipe.ID)
	}
	return ids
}

// matchCourse narrows candidates to those whose category fits the meal type.
// Recipes without a category fit anywhere and main courses fit lunch and
// dinner. When nothing fits, all candidates are kept so the slot is never
// left empty.
func matchCourse(candidates []recipe.Recipe, mt MealType) []recipe.Recipe {
	matched := make([]recipe.Recipe, 0, len(candidates))
	for _, r := range candidates {
		if fitsCourse(r.Category, mt) {
			matched = append(matched, r)
		}
	}
	if len(matched) == 0 {
		return candidates
	}
	return matched
}

func fitsCourse(category string, mt MealType) bool {
	switch {
	case category == "", strings.EqualFold(category, string(mt)):
		return true
	case strings.EqualFold(category, recipe.CategoryMain):
		return mt == Lunch || mt == Dinner
	}
	return false
}

func pickAccompaniment(main recipe.Recipe, sides []recipe.Recipe, rng *rand.Rand) (recipe.Recipe, bool) {
	if len(sides) == 0 {
		return recipe.Recipe{}, false
	}
	var preferred []recipe.Recipe
	for _, s := range sides {
		for _, want := range main.PreferredAccompaniments {
			w := recipe.NormalizeTag(want)
			if w == recipe.NormalizeTag(s.AccompanimentType) || w == recipe.NormalizeTag(s.ID) {
				preferred = append(preferred, s)
				break
			}
		}
	}
	if len(preferred) == 0 {
		preferred = sides
	}
	return preferred[rng.Intn(len(preferred))], true
}

func splitAccompaniments(recipes []recipe.Recipe) (mains, sides []recipe.Recipe) {
	for _, r := range recipes {
		if r.IsAccompaniment() {
			sides = append(sides, r)
		} else {
			mains = append(mains, r)
		}
	}
	return mains, sides
}

// dedupe drops repeated recipe ids, keeping the first occurrence.
func dedupe(recipes []recipe.Recipe) []recipe.Recipe {
	seen := make(map[string]bool, len(recipes))
	out := make([]recipe.Recipe, 0, len(recipes))
	for _, r := range recipes {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	return out
}

func lookup(byID map[string]recipe.Recipe, ids []string) []recipe.Recipe {
	out := make([]recipe.Recipe, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out
}

// unverifiedWarnings emits one warning per allergen, in first-seen order.
func unverifiedWarnings(groups ...[]recipe.Unverified) []string {
	var allergens []string
	ids := make(map[string][]string)
	seen := make(map[string]bool)
	for _, group := range groups {
		for _, u := range group {
			key := u.Allergen + "\x00" + u.RecipeID
			if seen[key] {
				continue
			}
			seen[key] = true
			if _, ok := ids[u.Allergen]; !ok {
				allergens = append(allergens, u.Allergen)
			}
			ids[u.Allergen] = append(ids[u.Allergen], u.RecipeID)
		}
	}

	warnings := make([]string, 0, len(allergens))
	for _, a := range allergens {
		if len(ids[a]) == 1 {
			warnings = append(warnings, fmt.Sprintf(
				"Could not check %s for %s: no ingredient list available", ids[a][0], a))
			continue
		}
		warnings = append(warnings, fmt.Sprintf(
			"%d recipes could not be checked for %s: no ingredient list available", len(ids[a]), a))
	}
	return warnings
}

// deriveSeed makes the default seed a function of the week so regenerating
// the same week with the same inputs gives the same plan.
func deriveSeed(weekStart time.Time) int64 {
	return weekStart.Unix() / int64(24*time.Hour/time.Second)
}
