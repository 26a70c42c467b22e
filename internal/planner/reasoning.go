package planner

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"meal-planner/internal/recipe"
)

var (
	riseWords  = []string{"bread", "dough", "yeast", "pizza", "brioche", "focaccia"}
	chillWords = []string{"dessert", "cheesecake", "mousse", "panna cotta", "tiramisu", "terrine"}
)

// GenerateReasoning explains in plain words why the recipe suits the slot.
// It names the weekday and never the calendar date.
func GenerateReasoning(r recipe.Recipe, slot Slot, prefs Preferences) string {
	day := slot.Weekday()
	total, known := r.TotalMinutes()
	complexity := recipe.Classify(r)

	if r.RequiresAdvancePrep() {
		hours := *r.AdvancePrepHours
		kind := prepKind(r)
		if hours <= 24 {
			prev := slot.Date.AddDate(0, 0, -1).Weekday()
			return fmt.Sprintf("Prep %s night for %s: requires %s %d-hour %s", prev, day, article(hours), hours, kind)
		}
		days := int(math.Ceil(float64(hours) / 24))
		start := slot.Date.AddDate(0, 0, -days).Weekday()
		return fmt.Sprintf("Start prep %s for %s: requires %s %d-hour %s", start, day, article(hours), hours, kind)
	}

	if !slot.IsWeekend() && known && total > 0 && complexity == recipe.ComplexitySimple {
		budget := prefs.WeeknightMinutes
		if budget == nil || total <= *budget {
			return fmt.Sprintf("Quick weeknight meal for %s, ready in %d minutes", day, total)
		}
	}

	if slot.IsWeekend() && complexity != recipe.ComplexitySimple {
		if known && total > 0 {
			return fmt.Sprintf("More prep time available on %s for this %s recipe (%d minutes)", day, complexity, total)
		}
		return fmt.Sprintf("More prep time available on %s for this %s recipe", day, complexity)
	}

	return fmt.Sprintf("Best fit for %s based on your preferences", day)
}

func prepKind(r recipe.Recipe) string {
	text := strings.ToLower(r.Title + " " + strings.Join(r.DietaryTags, " "))
	for _, w := range riseWords {
		if strings.Contains(text, w) {
			return "rise"
		}
	}
	if strings.EqualFold(r.Category, string(Dessert)) {
		return "chill"
	}
	for _, w := range chillWords {
		if strings.Contains(text, w) {
			return "chill"
		}
	}
	return "marinade"
}

// article picks "a" or "an" for a spoken number: an 8-hour, an 11-hour, an 18-hour.
func article(n int) string {
	s := strconv.Itoa(n)
	if s[0] == '8' || s == "11" || s == "18" {
		return "an"
	}
	return "a"
}
