package planner

import (
	"errors"
	"testing"

	"meal-planner/internal/recipe"
)

func TestValidatePreferences(t *testing.T) {
	tests := []struct {
		name  string
		prefs Preferences
		field string
	}{
		{
			name:  "Valid",
			prefs: Preferences{WeeknightMinutes: recipe.Minutes(45), MealTypes: []MealType{Dinner}},
		},
		{
			name:  "Empty",
			prefs: Preferences{},
		},
		{
			name:  "NegativeBudget",
			prefs: Preferences{WeeknightMinutes: recipe.Minutes(-5)},
			field: "WeeknightMinutes",
		},
		{
			name:  "DuplicateMealTypes",
			prefs: Preferences{MealTypes: []MealType{Dinner, Dinner}},
			field: "MealTypes",
		},
		{
			name:  "UnknownMealType",
			prefs: Preferences{MealTypes: []MealType{"brunch"}},
			field: "MealTypes[0]",
		},
		{
			name:  "EmptyCustomRestriction",
			prefs: Preferences{Restrictions: []recipe.Restriction{recipe.CustomRestriction("")}},
			field: "restrictions[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePreferences(tt.prefs)
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Expected valid preferences, got %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected *ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Expected field %q, got %q", tt.field, verr.Field)
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Error("Expected error to match ErrInvalidInput")
			}
		})
	}
}
