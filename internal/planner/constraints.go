package planner

import (
	"math"

	"meal-planner/internal/recipe"
)

// ConstraintKind identifies one of the fixed planning heuristics.
type ConstraintKind int

const (
	Availability ConstraintKind = iota
	Complexity
	AdvancePrep
	Dietary
	Freshness
	EquipmentConflict
)

// Constraints lists every kind in evaluation order.
var Constraints = []ConstraintKind{Availability, Complexity, AdvancePrep, Dietary, Freshness, EquipmentConflict}

func (k ConstraintKind) String() string {
	switch k {
	case Availability:
		return "availability"
	case Complexity:
		return "complexity"
	case AdvancePrep:
		return "advance_prep"
	case Dietary:
		return "dietary"
	case Freshness:
		return "freshness"
	case EquipmentConflict:
		return "equipment_conflict"
	}
	return "unknown"
}

// EvalContext is what a constraint may look at besides the recipe and slot.
type EvalContext struct {
	Preferences Preferences
	// SameDay holds the recipes already assigned on the slot's date.
	SameDay []recipe.Recipe
}

// Equipment that cannot serve two dishes for the same meal day.
var exclusiveEquipment = map[string]bool{
	"oven":            true,
	"grill":           true,
	"slow_cooker":     true,
	"pressure_cooker": true,
	"smoker":          true,
	"deep_fryer":      true,
}

// Evaluate scores a recipe for a slot on a single constraint. The result is
// always in [0, 1].
func Evaluate(kind ConstraintKind, r recipe.Recipe, slot Slot, ctx EvalContext) float64 {
	var score float64
	switch kind {
	case Availability:
		score = availabilityScore(r, slot, ctx.Preferences.WeeknightMinutes)
	case Complexity:
		score = complexityScore(r, slot)
	case AdvancePrep:
		score = advancePrepScore(r, slot)
	case Dietary:
		score = dietaryScore(r, ctx.Preferences.Restrictions)
	case Freshness:
		score = freshnessScore(r, slot)
	case EquipmentConflict:
		score = equipmentScore(r, ctx.SameDay)
	}
	return clamp(score)
}

func availabilityScore(r recipe.Recipe, slot Slot, budget *int) float64 {
	if slot.IsWeekend() {
		return 1.0
	}
	if budget == nil {
		return 0.9
	}
	total, ok := r.TotalMinutes()
	if !ok {
		return 0.6
	}
	if *budget <= 0 {
		if total == 0 {
			return 1.0
		}
		return 0.0
	}
	ratio := float64(total) / float64(*budget)
	switch {
	case ratio <= 0.75:
		return 1.0
	case ratio <= 1.0:
		// 1.0 at three quarters of the budget down to 0.8 at the full budget.
		return 1.0 - 0.8*(ratio-0.75)
	default:
		return 0.8 - (ratio - 1.0)
	}
}

func complexityScore(r recipe.Recipe, slot Slot) float64 {
	c := recipe.Classify(r)
	if slot.IsWeekend() {
		switch c {
		case recipe.ComplexitySimple:
			return 0.7
		case recipe.ComplexityComplex:
			return 1.0
		default:
			return 0.8
		}
	}
	switch c {
	case recipe.ComplexitySimple:
		return 1.0
	case recipe.ComplexityComplex:
		return 0.2
	default:
		return 0.6
	}
}

func advancePrepScore(r recipe.Recipe, slot Slot) float64 {
	if !r.RequiresAdvancePrep() {
		return 0.8
	}
	if slot.DayIndex <= 1 {
		return 0.3
	}
	hours := *r.AdvancePrepHours
	if hours <= 24 {
		return 1.0
	}
	daysNeeded := int(math.Ceil(float64(hours) / 24))
	if slot.DayIndex-1 >= daysNeeded {
		return 0.9
	}
	return 0.2
}

func dietaryScore(r recipe.Recipe, restrictions []recipe.Restriction) float64 {
	for _, restriction := range restrictions {
		if !recipe.Satisfies(r, restriction) {
			return 0.0
		}
	}
	return 1.0
}

func freshnessScore(r recipe.Recipe, slot Slot) float64 {
	if !r.Perishable {
		return 0.8
	}
	return 1.0 - 0.1*float64(slot.DayIndex-1)
}

func equipmentScore(r recipe.Recipe, sameDay []recipe.Recipe) float64 {
	if len(sameDay) == 0 {
		return 1.0
	}
	mine := exclusiveSet(r)
	if len(mine) == 0 {
		return 1.0
	}
	conflicts := 0
	for _, other := range sameDay {
		for eq := range exclusiveSet(other) {
			if mine[eq] {
				conflicts++
				break
			}
		}
	}
	return math.Max(0.1, 1.0-0.35*float64(conflicts))
}

func exclusiveSet(r recipe.Recipe) map[string]bool {
	set := make(map[string]bool)
	for _, eq := range r.Equipment {
		name := recipe.NormalizeTag(eq)
		if exclusiveEquipment[name] {
			set[name] = true
		}
	}
	return set
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
