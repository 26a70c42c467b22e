package recipe

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// catalog is the on-disk layout of a recipe fixture file.
type catalog struct {
	Recipes []Recipe `yaml:"recipes"`
}

// LoadFile reads recipes from a YAML file of the form
//
//	recipes:
//	  - id: chili
//	    title: Weeknight Chili
//	    ingredients_count: 9
//
// Every recipe is validated; duplicate ids are rejected.
func LoadFile(path string) ([]Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML recipe catalog.
func Parse(data []byte) ([]Recipe, error) {
	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipe catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(c.Recipes))
	for _, r := range c.Recipes {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("duplicate recipe id %q", r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return c.Recipes, nil
}
