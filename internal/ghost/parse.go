package ghost

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"meal-planner/internal/recipe"
)

var (
	fieldPattern    = regexp.MustCompile(`^\s*([A-Za-z][A-Za-z \-]*?)\s*:\s*(.+?)\s*$`)
	durationPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)(?:\s*(?:-|–|to)\s*(\d+(?:\.\d+)?))?\s*([a-z]*)`)
)

const overnightHours = 12

var (
	ingredientHeadings  = []string{"ingredient"}
	instructionHeadings = []string{"instruction", "step", "method", "direction", "preparation"}
)

// tags recognised as dietary labels on a post
var dietaryTags = map[string]bool{
	"vegetarian":  true,
	"vegan":       true,
	"gluten_free": true,
	"dairy_free":  true,
	"nut_free":    true,
	"halal":       true,
	"kosher":      true,
}

// ParsePost converts a Ghost recipe post into the planning projection.
//
// Ingredients and steps are counted from the lists following headings such
// as "Ingredients" and "Instructions". Scheduling details come from
// "Label: value" lines (Prep time, Cook time, Advance prep, Equipment,
// Category, Cuisine, Serve with, Accompaniment). Dietary labels and the
// "perishable" flag come from post tags.
func ParsePost(p Post) (recipe.Recipe, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.HTML))
	if err != nil {
		return recipe.Recipe{}, fmt.Errorf("failed to parse post %s: %w", p.ID, err)
	}

	r := recipe.Recipe{
		ID:        p.ID,
		Title:     strings.TrimSpace(p.Title),
		UpdatedAt: p.UpdatedAt,
	}

	r.Ingredients = listAfterHeading(doc, ingredientHeadings)
	r.IngredientsCount = len(r.Ingredients)
	r.InstructionsCount = len(listAfterHeading(doc, instructionHeadings))
	if len(r.Ingredients) == 0 {
		r.Ingredients = nil
	}

	doc.Find("p, li").Each(func(_ int, s *goquery.Selection) {
		m := fieldPattern.FindStringSubmatch(s.Text())
		if m == nil {
			return
		}
		applyField(&r, strings.ToLower(m[1]), m[2])
	})

	for _, t := range p.Tags {
		slug := recipe.NormalizeTag(t.Slug)
		if slug == "" {
			slug = recipe.NormalizeTag(t.Name)
		}
		switch {
		case dietaryTags[slug]:
			r.DietaryTags = append(r.DietaryTags, slug)
		case slug == "perishable":
			r.Perishable = true
		case slug == recipe.CategoryAccompaniment:
			r.Category = recipe.CategoryAccompaniment
		}
	}

	if err := r.Validate(); err != nil {
		return recipe.Recipe{}, err
	}
	return r, nil
}

func applyField(r *recipe.Recipe, label, value string) {
	switch label {
	case "prep time", "prep":
		if n, ok := parseDuration(value, false); ok {
			r.PrepTimeMinutes = recipe.Minutes(n)
		}
	case "cook time", "cook", "cooking time":
		if n, ok := parseDuration(value, false); ok {
			r.CookTimeMinutes = recipe.Minutes(n)
		}
	case "advance prep", "make ahead":
		if strings.Contains(strings.ToLower(value), "overnight") {
			r.AdvancePrepHours = recipe.Minutes(overnightHours)
		} else if n, ok := parseDuration(value, true); ok {
			r.AdvancePrepHours = recipe.Minutes(n)
		}
	case "equipment":
		r.Equipment = splitList(value)
	case "category", "course":
		r.Category = strings.ToLower(strings.TrimSpace(value))
	case "cuisine":
		r.Cuisine = strings.TrimSpace(value)
	case "serve with", "goes with":
		r.AcceptsAccompaniment = true
		r.PreferredAccompaniments = splitList(value)
	case "accompaniment":
		r.Category = recipe.CategoryAccompaniment
		r.AccompanimentType = recipe.NormalizeTag(value)
	}
}

// listAfterHeading returns the items of the first list following a heading
// whose text contains one of the keywords.
func listAfterHeading(doc *goquery.Document, keywords []string) []string {
	var items []string
	doc.Find("h1, h2, h3, h4").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		text := strings.ToLower(h.Text())
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				list := h.NextAllFiltered("ul, ol").First()
				list.Find("li").Each(func(_ int, li *goquery.Selection) {
					if item := strings.TrimSpace(li.Text()); item != "" {
						items = append(items, item)
					}
				})
				return false
			}
		}
		return true
	})
	return items
}

// parseDuration reads values like "1 hour 30 min", "1h30m", "20-25 minutes"
// or "45". Bare numbers are minutes, or hours when inHours is set. A range
// counts as its upper bound. Only the leading duration is read, so a trailing
// note such as "(plus 2 hours chilling)" is ignored; minutes may follow
// hours. The result is in hours when inHours is set, rounded up.
func parseDuration(value string, inHours bool) (int, bool) {
	value = strings.ToLower(value)
	matches := durationPattern.FindAllStringSubmatchIndex(value, -1)
	if len(matches) == 0 {
		return 0, false
	}

	minutes := 0.0
	for i, m := range matches {
		n, err := strconv.ParseFloat(value[m[2]:m[3]], 64)
		if err != nil {
			return 0, false
		}
		if m[4] >= 0 {
			if n, err = strconv.ParseFloat(value[m[4]:m[5]], 64); err != nil {
				return 0, false
			}
		}

		unit := value[m[6]:m[7]]
		hours := strings.HasPrefix(unit, "h") || (unit == "" && inHours && i == 0)
		if i > 0 {
			// continue only with "1 hour 30" or "1 hour and 30 minutes"
			gap := strings.Trim(value[matches[i-1][1]:m[0]], " ,")
			prev := value[matches[i-1][6]:matches[i-1][7]]
			if hours || (gap != "" && gap != "and") || !(strings.HasPrefix(prev, "h") || (prev == "" && inHours && i == 1)) {
				break
			}
		}
		if hours {
			n *= 60
		}
		minutes += n
	}

	total := int(math.Round(minutes))
	if inHours {
		return (total + 59) / 60, true
	}
	return total, true
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, recipe.NormalizeTag(part))
		}
	}
	return out
}
