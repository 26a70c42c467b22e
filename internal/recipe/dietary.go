package recipe

import (
	"fmt"
	"strings"
)

// RestrictionKind enumerates the supported dietary restrictions.
type RestrictionKind string

const (
	Vegetarian RestrictionKind = "vegetarian"
	Vegan      RestrictionKind = "vegan"
	GlutenFree RestrictionKind = "gluten_free"
	DairyFree  RestrictionKind = "dairy_free"
	NutFree    RestrictionKind = "nut_free"
	Halal      RestrictionKind = "halal"
	Kosher     RestrictionKind = "kosher"
	Custom     RestrictionKind = "custom"
)

const customPrefix = "custom:"

// Restriction is a single dietary restriction. Standard kinds map to a
// required dietary tag; Custom carries free-text allergen in Text.
type Restriction struct {
	Kind RestrictionKind
	Text string
}

// CustomRestriction builds a free-text allergen restriction.
func CustomRestriction(allergen string) Restriction {
	return Restriction{Kind: Custom, Text: allergen}
}

// ParseRestriction reads the text form produced by String: a standard kind
// such as "gluten_free" or "custom:<allergen>".
func ParseRestriction(s string) (Restriction, error) {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToLower(trimmed), customPrefix) {
		text := strings.TrimSpace(trimmed[len(customPrefix):])
		if text == "" {
			return Restriction{}, fmt.Errorf("custom restriction %q has no allergen text", s)
		}
		return CustomRestriction(text), nil
	}

	kind := RestrictionKind(NormalizeTag(trimmed))
	switch kind {
	case Vegetarian, Vegan, GlutenFree, DairyFree, NutFree, Halal, Kosher:
		return Restriction{Kind: kind}, nil
	}
	return Restriction{}, fmt.Errorf("unknown dietary restriction %q", s)
}

// ParseRestrictions parses a list of restriction strings.
func ParseRestrictions(values []string) ([]Restriction, error) {
	out := make([]Restriction, 0, len(values))
	for _, v := range values {
		r, err := ParseRestriction(v)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (r Restriction) String() string {
	if r.Kind == Custom {
		return customPrefix + r.Text
	}
	return string(r.Kind)
}

// Validate rejects unknown kinds and empty custom allergens.
func (r Restriction) Validate() error {
	_, err := ParseRestriction(r.String())
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (r Restriction) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Restriction) UnmarshalText(text []byte) error {
	parsed, err := ParseRestriction(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// RequiredTag is the dietary tag a recipe must carry to satisfy a standard
// restriction. Custom restrictions have no tag.
func (r Restriction) RequiredTag() string {
	if r.Kind == Custom {
		return ""
	}
	return string(r.Kind)
}

// Verdict is the outcome of checking one recipe against one restriction.
type Verdict int

const (
	Fails Verdict = iota
	Passes
	// Unverifiable means the recipe lacks the ingredient detail needed to
	// evaluate a custom allergen.
	Unverifiable
)

// Check evaluates a recipe against a single restriction. A missing tag is
// non-compliance.
func Check(r Recipe, restriction Restriction) Verdict {
	if restriction.Kind != Custom {
		if r.HasTag(restriction.RequiredTag()) {
			return Passes
		}
		return Fails
	}

	if r.Ingredients == nil {
		return Unverifiable
	}
	allergen := strings.ToLower(strings.TrimSpace(restriction.Text))
	for _, ing := range r.Ingredients {
		if strings.Contains(strings.ToLower(ing), allergen) {
			return Fails
		}
	}
	return Passes
}

// Satisfies reports whether the recipe is not known to violate the
// restriction. Unverifiable custom checks count as satisfied; Filter reports
// them separately.
func Satisfies(r Recipe, restriction Restriction) bool {
	return Check(r, restriction) != Fails
}

// Unverified records a recipe kept by Filter although a custom allergen could
// not be checked against its ingredients.
type Unverified struct {
	RecipeID string
	Allergen string
}

// FilterResult is the output of Filter.
type FilterResult struct {
	Recipes    []Recipe
	Unverified []Unverified
}

// Filter keeps the recipes that satisfy every restriction. With no
// restrictions the input is returned unchanged.
func Filter(recipes []Recipe, restrictions []Restriction) FilterResult {
	if len(restrictions) == 0 {
		return FilterResult{Recipes: recipes}
	}

	result := FilterResult{Recipes: make([]Recipe, 0, len(recipes))}
	for _, r := range recipes {
		ok := true
		var pending []Unverified
		for _, restriction := range restrictions {
			switch Check(r, restriction) {
			case Fails:
				ok = false
			case Unverifiable:
				pending = append(pending, Unverified{RecipeID: r.ID, Allergen: restriction.Text})
			}
			if !ok {
				break
			}
		}
		if ok {
			result.Recipes = append(result.Recipes, r)
			result.Unverified = append(result.Unverified, pending...)
		}
	}
	return result
}
