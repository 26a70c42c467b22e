package planner

import (
	"fmt"

	"meal-planner/internal/recipe"
)

// Weights sets how much each constraint contributes to a candidate's total.
// Only the ratios matter; totals are normalised by the weight sum.
type Weights struct {
	Availability      float64 `koanf:"availability" json:"availability" validate:"min=0"`
	Complexity        float64 `koanf:"complexity" json:"complexity" validate:"min=0"`
	AdvancePrep       float64 `koanf:"advance_prep" json:"advance_prep" validate:"min=0"`
	Dietary           float64 `koanf:"dietary" json:"dietary" validate:"min=0"`
	Freshness         float64 `koanf:"freshness" json:"freshness" validate:"min=0"`
	EquipmentConflict float64 `koanf:"equipment_conflict" json:"equipment_conflict" validate:"min=0"`
}

// DefaultWeights favours fitting the weeknight budget and difficulty.
func DefaultWeights() Weights {
	return Weights{
		Availability:      0.25,
		Complexity:        0.20,
		AdvancePrep:       0.15,
		Dietary:           0.15,
		Freshness:         0.10,
		EquipmentConflict: 0.15,
	}
}

// Of returns the weight for a constraint kind.
func (w Weights) Of(kind ConstraintKind) float64 {
	switch kind {
	case Availability:
		return w.Availability
	case Complexity:
		return w.Complexity
	case AdvancePrep:
		return w.AdvancePrep
	case Dietary:
		return w.Dietary
	case Freshness:
		return w.Freshness
	case EquipmentConflict:
		return w.EquipmentConflict
	}
	return 0
}

func (w Weights) sum() float64 {
	total := 0.0
	for _, k := range Constraints {
		total += w.Of(k)
	}
	return total
}

// Validate requires non-negative weights with a positive sum.
func (w Weights) Validate() error {
	for _, k := range Constraints {
		if w.Of(k) < 0 {
			return fmt.Errorf("weight %s must be non-negative", k)
		}
	}
	if w.sum() <= 0 {
		return fmt.Errorf("at least one constraint weight must be positive")
	}
	return nil
}

// Scores holds one value per constraint, indexed by ConstraintKind.
type Scores [6]float64

// ScoreAll evaluates every constraint for the recipe.
func ScoreAll(r recipe.Recipe, slot Slot, ctx EvalContext) Scores {
	var s Scores
	for _, k := range Constraints {
		s[k] = Evaluate(k, r, slot, ctx)
	}
	return s
}

// Combine returns the weighted mean of the scores. The second value is false
// when the dietary gate disqualified the recipe.
func (w Weights) Combine(s Scores) (float64, bool) {
	if s[Dietary] == 0 {
		return 0, false
	}
	total := 0.0
	for _, k := range Constraints {
		total += w.Of(k) * s[k]
	}
	return total / w.sum(), true
}
