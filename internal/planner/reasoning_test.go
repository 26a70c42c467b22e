package planner

import (
	"regexp"
	"strings"
	"testing"

	"meal-planner/internal/recipe"
)

func TestGenerateReasoning(t *testing.T) {
	tests := []struct {
		name   string
		recipe recipe.Recipe
		slot   Slot
		prefs  Preferences
		want   string
	}{
		{
			name:   "AdvancePrepMarinade",
			recipe: recipe.Recipe{Title: "Tandoori Chicken", AdvancePrepHours: recipe.Minutes(8)},
			slot:   slotOn(2, Dinner),
			want:   "Prep Monday night for Tuesday: requires an 8-hour marinade",
		},
		{
			name:   "AdvancePrepRise",
			recipe: recipe.Recipe{Title: "Pizza Night", AdvancePrepHours: recipe.Minutes(12)},
			slot:   slotOn(5, Dinner),
			want:   "Prep Thursday night for Friday: requires a 12-hour rise",
		},
		{
			name:   "AdvancePrepChill",
			recipe: recipe.Recipe{Title: "Lemon Posset", Category: "dessert", AdvancePrepHours: recipe.Minutes(4)},
			slot:   slotOn(6, Dessert),
			want:   "Prep Friday night for Saturday: requires a 4-hour chill",
		},
		{
			name:   "AdvancePrepMultiDay",
			recipe: recipe.Recipe{Title: "Corned Beef", AdvancePrepHours: recipe.Minutes(48)},
			slot:   slotOn(4, Dinner),
			want:   "Start prep Tuesday for Thursday: requires a 48-hour marinade",
		},
		{
			name:   "QuickWeeknight",
			recipe: recipe.Recipe{IngredientsCount: 5, InstructionsCount: 4, PrepTimeMinutes: recipe.Minutes(10), CookTimeMinutes: recipe.Minutes(20)},
			slot:   slotOn(2, Dinner),
			prefs:  minutesPrefs(45),
			want:   "Quick weeknight meal for Tuesday, ready in 30 minutes",
		},
		{
			name:   "WeekendComplex",
			recipe: recipe.Recipe{IngredientsCount: 40, InstructionsCount: 50, PrepTimeMinutes: recipe.Minutes(30), CookTimeMinutes: recipe.Minutes(60)},
			slot:   slotOn(6, Dinner),
			want:   "More prep time available on Saturday for this complex recipe (90 minutes)",
		},
		{
			name:   "WeekendModerate",
			recipe: recipe.Recipe{Complexity: recipe.ComplexityModerate, CookTimeMinutes: recipe.Minutes(50)},
			slot:   slotOn(7, Lunch),
			want:   "More prep time available on Sunday for this moderate recipe (50 minutes)",
		},
		{
			name:   "FallbackOverBudget",
			recipe: recipe.Recipe{IngredientsCount: 3, CookTimeMinutes: recipe.Minutes(50)},
			slot:   slotOn(3, Dinner),
			prefs:  minutesPrefs(30),
			want:   "Best fit for Wednesday based on your preferences",
		},
		{
			name:   "FallbackUnknownTime",
			recipe: recipe.Recipe{},
			slot:   slotOn(1, Breakfast),
			want:   "Best fit for Monday based on your preferences",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GenerateReasoning(tt.recipe, tt.slot, tt.prefs); got != tt.want {
				t.Errorf("GenerateReasoning() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReasoningTextShape(t *testing.T) {
	isoDate := regexp.MustCompile(`\d{4}-\d{2}`)
	jargon := []string{"score", "algorithm", "constraint"}

	recipes := []recipe.Recipe{
		{},
		{AdvancePrepHours: recipe.Minutes(8)},
		{AdvancePrepHours: recipe.Minutes(72), Title: "Sourdough bread"},
		{IngredientsCount: 4, CookTimeMinutes: recipe.Minutes(15)},
		{IngredientsCount: 40, InstructionsCount: 50, CookTimeMinutes: recipe.Minutes(60)},
		{Complexity: recipe.ComplexityModerate},
	}
	start := testMonday.AddDate(0, -10, 0)

	for day := 0; day < 400; day++ {
		date := start.AddDate(0, 0, day)
		slot := Slot{Date: date, MealType: Dinner, DayIndex: day%7 + 1}
		weekday := date.Weekday().String()
		for _, r := range recipes {
			text := GenerateReasoning(r, slot, minutesPrefs(30))
			if !strings.Contains(text, weekday) {
				t.Fatalf("%q does not name %s", text, weekday)
			}
			if isoDate.MatchString(text) {
				t.Fatalf("%q contains a calendar date", text)
			}
			if len(text) < 20 || len(text) > 120 {
				t.Fatalf("%q has length %d", text, len(text))
			}
			lower := strings.ToLower(text)
			for _, word := range jargon {
				if strings.Contains(lower, word) {
					t.Fatalf("%q leaks %q", text, word)
				}
			}
		}
	}
}
