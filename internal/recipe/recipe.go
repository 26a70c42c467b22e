package recipe

import (
	"fmt"
	"strings"
)

// Complexity is a coarse difficulty label used when scheduling recipes.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// Complexity score breakpoints. Scores below simpleBelow are Simple, scores
// above complexAbove are Complex.
const (
	simpleBelow  = 20.0
	complexAbove = 45.0
)

// CategoryAccompaniment marks recipes that are served alongside a main dish
// rather than filling a slot on their own.
const CategoryAccompaniment = "accompaniment"

// CategoryMain marks a main course that fits lunch or dinner.
const CategoryMain = "main"

// Recipe is the read-only projection of a recipe used for planning.
// Nil timing fields mean "unknown", never zero.
type Recipe struct {
	ID                      string     `json:"id" yaml:"id"`
	Title                   string     `json:"title" yaml:"title"`
	Category                string     `json:"category,omitempty" yaml:"category"`
	IngredientsCount        int        `json:"ingredients_count" yaml:"ingredients_count"`
	InstructionsCount       int        `json:"instructions_count" yaml:"instructions_count"`
	PrepTimeMinutes         *int       `json:"prep_time_minutes,omitempty" yaml:"prep_time_minutes"`
	CookTimeMinutes         *int       `json:"cook_time_minutes,omitempty" yaml:"cook_time_minutes"`
	AdvancePrepHours        *int       `json:"advance_prep_hours,omitempty" yaml:"advance_prep_hours"`
	Complexity              Complexity `json:"complexity,omitempty" yaml:"complexity"`
	DietaryTags             []string   `json:"dietary_tags,omitempty" yaml:"dietary_tags"`
	Cuisine                 string     `json:"cuisine,omitempty" yaml:"cuisine"`
	AcceptsAccompaniment    bool       `json:"accepts_accompaniment,omitempty" yaml:"accepts_accompaniment"`
	AccompanimentType       string     `json:"accompaniment_type,omitempty" yaml:"accompaniment_type"`
	PreferredAccompaniments []string   `json:"preferred_accompaniments,omitempty" yaml:"preferred_accompaniments"`
	Equipment               []string   `json:"equipment,omitempty" yaml:"equipment"`
	Perishable              bool       `json:"perishable,omitempty" yaml:"perishable"`
	Ingredients             []string   `json:"ingredients,omitempty" yaml:"ingredients"`
	UpdatedAt               string     `json:"updated_at,omitempty" yaml:"updated_at"`
}

// Validate checks the structural invariants of a recipe.
func (r Recipe) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("recipe id is required")
	}
	if r.IngredientsCount < 0 {
		return fmt.Errorf("recipe %s: ingredients_count must be non-negative", r.ID)
	}
	if r.InstructionsCount < 0 {
		return fmt.Errorf("recipe %s: instructions_count must be non-negative", r.ID)
	}
	timings := []struct {
		name  string
		value *int
	}{
		{"prep_time_minutes", r.PrepTimeMinutes},
		{"cook_time_minutes", r.CookTimeMinutes},
		{"advance_prep_hours", r.AdvancePrepHours},
	}
	for _, t := range timings {
		if t.value != nil && *t.value < 0 {
			return fmt.Errorf("recipe %s: %s must be non-negative", r.ID, t.name)
		}
	}
	switch r.Complexity {
	case "", ComplexitySimple, ComplexityModerate, ComplexityComplex:
	default:
		return fmt.Errorf("recipe %s: unknown complexity %q", r.ID, r.Complexity)
	}
	return nil
}

// IsAccompaniment reports whether the recipe is a side served with a main dish.
func (r Recipe) IsAccompaniment() bool {
	return strings.EqualFold(r.Category, CategoryAccompaniment)
}

// RequiresAdvancePrep reports whether the recipe needs work ahead of the meal.
func (r Recipe) RequiresAdvancePrep() bool {
	return r.AdvancePrepHours != nil && *r.AdvancePrepHours > 0
}

// TotalMinutes returns prep plus cook time. The second value is false when
// neither is known.
func (r Recipe) TotalMinutes() (int, bool) {
	if r.PrepTimeMinutes == nil && r.CookTimeMinutes == nil {
		return 0, false
	}
	total := 0
	if r.PrepTimeMinutes != nil {
		total += *r.PrepTimeMinutes
	}
	if r.CookTimeMinutes != nil {
		total += *r.CookTimeMinutes
	}
	return total, true
}

// HasTag reports whether the recipe carries the dietary tag, ignoring case
// and separator style ("gluten-free", "Gluten Free" and "gluten_free" match).
func (r Recipe) HasTag(tag string) bool {
	want := NormalizeTag(tag)
	for _, t := range r.DietaryTags {
		if NormalizeTag(t) == want {
			return true
		}
	}
	return false
}

// NormalizeTag lowercases a tag and folds spaces and dashes into underscores.
func NormalizeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	return strings.NewReplacer("-", "_", " ", "_").Replace(tag)
}

// ComplexityScore weighs ingredients, steps and cook time into a single number.
func ComplexityScore(r Recipe) float64 {
	cook := 0
	if r.CookTimeMinutes != nil {
		cook = *r.CookTimeMinutes
	}
	return float64(r.IngredientsCount)*0.3 + float64(r.InstructionsCount)*0.4 + float64(cook)*0.3
}

// Classify returns the recipe's complexity label, deriving it from
// ComplexityScore when none was pre-computed.
func Classify(r Recipe) Complexity {
	if r.Complexity != "" {
		return r.Complexity
	}
	score := ComplexityScore(r)
	switch {
	case score < simpleBelow:
		return ComplexitySimple
	case score > complexAbove:
		return ComplexityComplex
	default:
		return ComplexityModerate
	}
}

// IDs returns the identifiers of the given recipes in order.
func IDs(recipes []Recipe) []string {
	ids := make([]string, 0, len(recipes))
	for _, r := range recipes {
		ids = append(ids, r.ID)
	}
	return ids
}

// Minutes is a convenience for building optional timing fields.
func Minutes(n int) *int {
	return &n
}
