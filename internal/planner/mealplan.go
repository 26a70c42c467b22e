package planner

import (
	"fmt"
	"strings"
	"time"

	"meal-planner/internal/recipe"
	"meal-planner/internal/rotation"
)

// MealType is the course a slot is filled for.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
	Appetizer MealType = "appetizer"
	Main      MealType = "main"
	Dessert   MealType = "dessert"
)

// DefaultMealTypes is the three-meal day used when nothing else is configured.
var DefaultMealTypes = []MealType{Breakfast, Lunch, Dinner}

// ParseMealType accepts a meal type name in any case.
func ParseMealType(s string) (MealType, error) {
	mt := MealType(strings.ToLower(strings.TrimSpace(s)))
	switch mt {
	case Breakfast, Lunch, Dinner, Appetizer, Main, Dessert:
		return mt, nil
	}
	return "", fmt.Errorf("unknown meal type %q", s)
}

// Slot is one (date, meal type) cell of the week.
type Slot struct {
	Date     time.Time `json:"date"`
	MealType MealType  `json:"meal_type"`
	// DayIndex is 1 for the first day of the week window.
	DayIndex int `json:"day_index"`
}

// Weekday returns the English weekday name of the slot.
func (s Slot) Weekday() string {
	return s.Date.Weekday().String()
}

// IsWeekend reports whether the slot falls on a Saturday or Sunday.
func (s Slot) IsWeekend() bool {
	return IsWeekend(s.Date)
}

// Assignment is a recipe chosen for a slot.
type Assignment struct {
	Slot            Slot     `json:"slot"`
	RecipeID        string   `json:"recipe_id"`
	RecipeTitle     string   `json:"recipe_title"`
	AccompanimentID string   `json:"accompaniment_id,omitempty"`
	Alternatives    []string `json:"alternatives,omitempty"`
	PrepRequired    bool     `json:"prep_required"`
	Reasoning       string   `json:"reasoning"`
}

// Stats summarises a generation run.
type Stats struct {
	Slots          int `json:"slots"`
	Candidates     int `json:"candidates"`
	Excluded       int `json:"excluded"`
	Accompaniments int `json:"accompaniments"`
	RotationResets int `json:"rotation_resets"`
}

// WeekPlan is the result of one generation run.
type WeekPlan struct {
	WeekStart   string         `json:"week_start"`
	Seed        int64          `json:"seed"`
	Assignments []Assignment   `json:"assignments"`
	Rotation    rotation.State `json:"rotation"`
	Warnings    []string       `json:"warnings,omitempty"`
	Stats       Stats          `json:"stats"`
}

// AssignedIDs returns the recipe ids of all assignments in slot order.
func (p *WeekPlan) AssignedIDs() []string {
	ids := make([]string, 0, len(p.Assignments))
	for _, a := range p.Assignments {
		ids = append(ids, a.RecipeID)
	}
	return ids
}

// Preferences are the user's scheduling preferences.
type Preferences struct {
	// WeeknightMinutes is the cooking time available on weeknights. Nil means unconstrained.
	WeeknightMinutes *int                 `json:"weeknight_minutes,omitempty" yaml:"weeknight_minutes" validate:"omitempty,min=0,max=1440"`
	Restrictions     []recipe.Restriction `json:"restrictions,omitempty" yaml:"restrictions"`
	MealTypes        []MealType           `json:"meal_types,omitempty" yaml:"meal_types" validate:"omitempty,max=6,unique,dive,oneof=breakfast lunch dinner appetizer main dessert"`
}

// Input is everything a generation run needs. Recipes are the user's
// favorites, including accompaniments.
type Input struct {
	WeekStart   string
	Recipes     []recipe.Recipe
	Preferences Preferences
	Rotation    rotation.State
	// Seed controls tie-breaking. Nil derives a seed from WeekStart.
	Seed *int64
}
