package planner

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidatePreferences rejects malformed preferences before they reach the
// assignment algorithm. Failures are *ValidationError.
func ValidatePreferences(p Preferences) error {
	if err := getValidator().Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ValidationError{Field: fieldName(fe.Namespace()), Message: describe(fe)}
		}
		return &ValidationError{Field: "preferences", Message: err.Error()}
	}
	for i, r := range p.Restrictions {
		if err := r.Validate(); err != nil {
			return &ValidationError{Field: fmt.Sprintf("restrictions[%d]", i), Message: err.Error()}
		}
	}
	return nil
}

func fieldName(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "unique":
		return "must not contain duplicates"
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
