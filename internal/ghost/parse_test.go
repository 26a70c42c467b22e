package ghost

import (
	"reflect"
	"testing"

	"meal-planner/internal/recipe"
)

const stewHTML = `
<p>Category: dinner</p>
<p>Cuisine: French</p>
<p>Prep time: 20 minutes</p>
<p>Cook time: 1 hour 30 min</p>
<p>Advance prep: overnight</p>
<p>Equipment: Oven, stovetop</p>
<p>Serve with: rice, crusty bread</p>
<h2>Ingredients</h2>
<ul>
  <li>1 kg beef chuck</li>
  <li>2 carrots</li>
  <li>1 bottle red wine</li>
</ul>
<h2>Instructions</h2>
<ol>
  <li>Marinate the beef in wine.</li>
  <li>Brown the beef.</li>
  <li>Braise in the oven.</li>
  <li>Serve.</li>
</ol>
`

func TestParsePost(t *testing.T) {
	t.Run("FullRecipe", func(t *testing.T) {
		r, err := ParsePost(Post{
			ID:        "stew",
			Title:     " Beef Stew ",
			HTML:      stewHTML,
			UpdatedAt: "2024-01-01T00:00:00Z",
			Tags:      []Tag{{Name: "Gluten Free", Slug: "gluten-free"}, {Name: "Perishable", Slug: "perishable"}, {Name: "Recipe", Slug: "recipe"}},
		})
		if err != nil {
			t.Fatalf("ParsePost failed: %v", err)
		}

		if r.Title != "Beef Stew" || r.Category != "dinner" || r.Cuisine != "French" {
			t.Errorf("unexpected header fields: %+v", r)
		}
		if r.IngredientsCount != 3 || r.InstructionsCount != 4 {
			t.Errorf("counts = %d ingredients, %d steps", r.IngredientsCount, r.InstructionsCount)
		}
		if r.PrepTimeMinutes == nil || *r.PrepTimeMinutes != 20 {
			t.Errorf("PrepTimeMinutes = %v", r.PrepTimeMinutes)
		}
		if r.CookTimeMinutes == nil || *r.CookTimeMinutes != 90 {
			t.Errorf("CookTimeMinutes = %v", r.CookTimeMinutes)
		}
		if r.AdvancePrepHours == nil || *r.AdvancePrepHours != overnightHours {
			t.Errorf("AdvancePrepHours = %v", r.AdvancePrepHours)
		}
		if !reflect.DeepEqual(r.Equipment, []string{"oven", "stovetop"}) {
			t.Errorf("Equipment = %v", r.Equipment)
		}
		if !r.AcceptsAccompaniment || !reflect.DeepEqual(r.PreferredAccompaniments, []string{"rice", "crusty_bread"}) {
			t.Errorf("accompaniments = %v %v", r.AcceptsAccompaniment, r.PreferredAccompaniments)
		}
		if !reflect.DeepEqual(r.DietaryTags, []string{"gluten_free"}) || !r.Perishable {
			t.Errorf("tags = %v perishable=%v", r.DietaryTags, r.Perishable)
		}
		if !reflect.DeepEqual(r.Ingredients, []string{"1 kg beef chuck", "2 carrots", "1 bottle red wine"}) {
			t.Errorf("Ingredients = %v", r.Ingredients)
		}
	})

	t.Run("Accompaniment", func(t *testing.T) {
		r, err := ParsePost(Post{ID: "rice", Title: "Steamed Rice", HTML: `<p>Accompaniment: Rice</p><p>Cook time: 18</p>`})
		if err != nil {
			t.Fatalf("ParsePost failed: %v", err)
		}
		if !r.IsAccompaniment() || r.AccompanimentType != "rice" {
			t.Errorf("Expected rice accompaniment, got %+v", r)
		}
		if *r.CookTimeMinutes != 18 {
			t.Errorf("CookTimeMinutes = %d", *r.CookTimeMinutes)
		}
	})

	t.Run("NoStructure", func(t *testing.T) {
		r, err := ParsePost(Post{ID: "note", Title: "Just a note", HTML: `<p>Grandma's favourite.</p>`})
		if err != nil {
			t.Fatalf("ParsePost failed: %v", err)
		}
		if r.Ingredients != nil || r.PrepTimeMinutes != nil || r.CookTimeMinutes != nil {
			t.Errorf("Expected unknown fields to stay nil, got %+v", r)
		}
		if recipe.Classify(r) != recipe.ComplexitySimple {
			t.Errorf("Classify() = %s", recipe.Classify(r))
		}
	})

	t.Run("MissingID", func(t *testing.T) {
		if _, err := ParsePost(Post{Title: "orphan"}); err == nil {
			t.Error("Expected validation error for missing id")
		}
	})
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		inHours bool
		want    int
		ok      bool
	}{
		{"45", false, 45, true},
		{"45 mins", false, 45, true},
		{"1 hour 15 minutes", false, 75, true},
		{"2 hrs", false, 120, true},
		{"8", true, 8, true},
		{"8 hours", true, 8, true},
		{"90 minutes", true, 2, true},
		{"a while", false, 0, false},
		{"20-25 minutes", false, 25, true},
		{"20 to 25 min", false, 25, true},
		{"10 mins (plus 2 hours chilling)", false, 10, true},
		{"1h30m", false, 90, true},
		{"1 hour and 30 minutes", false, 90, true},
		{"1.5 hours", false, 90, true},
		{"2 hours, then 4 hours resting", false, 120, true},
		{"4-6 hours", true, 6, true},
		{"8 (or overnight)", true, 8, true},
	}
	for _, tt := range tests {
		got, ok := parseDuration(tt.in, tt.inHours)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseDuration(%q, %v) = %d, %v; want %d, %v", tt.in, tt.inHours, got, ok, tt.want, tt.ok)
		}
	}
}
