package planner

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientRecipes means the eligible favorite pool cannot fill a week.
	ErrInsufficientRecipes = errors.New("insufficient recipes")
	// ErrInvalidInput means the week start or preferences were rejected.
	ErrInvalidInput = errors.New("invalid planning input")
)

// InsufficientRecipesError carries the pool sizes behind ErrInsufficientRecipes.
type InsufficientRecipesError struct {
	Available int
	Required  int
	// Excluded counts favorites removed by dietary restrictions.
	Excluded int
}

func (e *InsufficientRecipesError) Error() string {
	msg := fmt.Sprintf("not enough recipes to plan a week: %d eligible, need at least %d", e.Available, e.Required)
	if e.Excluded > 0 {
		msg += fmt.Sprintf(" (%d excluded by dietary restrictions)", e.Excluded)
	}
	return msg + "; add more favorite recipes"
}

func (e *InsufficientRecipesError) Is(target error) bool {
	return target == ErrInsufficientRecipes
}

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}
