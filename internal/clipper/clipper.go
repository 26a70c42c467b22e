package clipper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"meal-planner/internal/ghost"
	"meal-planner/internal/recipe"
)

// ErrNoRecipe is returned when a page carries no schema.org Recipe data.
var ErrNoRecipe = errors.New("no recipe data found on page")

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:[\d.]+S)?)?$`)

// schema.org diets that map onto dietary tags
var dietTags = map[string]string{
	"VeganDiet":      string(recipe.Vegan),
	"VegetarianDiet": string(recipe.Vegetarian),
	"GlutenFreeDiet": string(recipe.GlutenFree),
	"HalalDiet":      string(recipe.Halal),
	"KosherDiet":     string(recipe.Kosher),
}

// schema.org recipeCategory words that map onto a planning course
var courses = []struct {
	words  []string
	course string
}{
	{[]string{"breakfast", "brunch"}, "breakfast"},
	{[]string{"lunch"}, "lunch"},
	{[]string{"dinner", "supper"}, "dinner"},
	{[]string{"side", "accompaniment"}, recipe.CategoryAccompaniment},
	{[]string{"main", "entree", "entrée"}, recipe.CategoryMain},
}

// Clipper handles fetching recipes from URLs and saving them to Ghost.
type Clipper struct {
	ghostClient ghost.Client
	httpClient  *http.Client
	tags        []string
}

// ExtractedRecipe is the recipe data read from a page's JSON-LD.
type ExtractedRecipe struct {
	Title       string
	Ingredients []string
	Steps       []string
	PrepMinutes *int
	CookMinutes *int
	Category    string
	Cuisine     string
	Diets       []string
}

// NewClipper creates a new Clipper. Tags are added to every clipped post.
func NewClipper(ghostClient ghost.Client, tags ...string) *Clipper {
	return &Clipper{
		ghostClient: ghostClient,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		tags:        tags,
	}
}

// ClipURL fetches the URL, extracts the recipe, publishes it to Ghost and
// returns the post together with its planning projection.
func (c *Clipper) ClipURL(ctx context.Context, url string) (*ghost.Post, recipe.Recipe, error) {
	body, err := c.fetch(ctx, url)
	if err != nil {
		return nil, recipe.Recipe{}, fmt.Errorf("failed to fetch content: %w", err)
	}
	defer body.Close()

	extracted, err := ExtractRecipe(body)
	if err != nil {
		return nil, recipe.Recipe{}, err
	}

	content := formatToHTML(extracted, url)
	tags := append(append([]string{}, c.tags...), extracted.Diets...)

	post, err := c.ghostClient.CreatePost(ctx, extracted.Title, content, tags, true)
	if err != nil {
		return nil, recipe.Recipe{}, fmt.Errorf("failed to save to ghost: %w", err)
	}

	parsed := ghost.Post{ID: post.ID, Title: extracted.Title, HTML: content, UpdatedAt: post.UpdatedAt}
	for _, t := range tags {
		parsed.Tags = append(parsed.Tags, ghost.Tag{Name: t, Slug: t})
	}
	r, err := ghost.ParsePost(parsed)
	if err != nil {
		return nil, recipe.Recipe{}, err
	}
	return post, r, nil
}

func (c *Clipper) fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// ExtractRecipe reads the first schema.org Recipe from the page's
// application/ld+json blocks.
func ExtractRecipe(r io.Reader) (ExtractedRecipe, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return ExtractedRecipe{}, fmt.Errorf("failed to parse page: %w", err)
	}

	var found map[string]any
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var v any
		if err := json.Unmarshal([]byte(s.Text()), &v); err != nil {
			return true
		}
		found = findRecipe(v)
		return found == nil
	})
	if found == nil {
		return ExtractedRecipe{}, ErrNoRecipe
	}

	ex := ExtractedRecipe{
		Title:       text(found["name"]),
		Ingredients: stringList(found["recipeIngredient"]),
		Steps:       steps(found["recipeInstructions"]),
		PrepMinutes: minutes(text(found["prepTime"])),
		CookMinutes: minutes(text(found["cookTime"])),
		Category:    courseOf(stringList(found["recipeCategory"])),
		Cuisine:     first(found["recipeCuisine"]),
	}
	if len(ex.Ingredients) == 0 {
		ex.Ingredients = stringList(found["ingredients"])
	}
	for _, d := range stringList(found["suitableForDiet"]) {
		if tag, ok := dietTags[d[strings.LastIndex(d, "/")+1:]]; ok {
			ex.Diets = append(ex.Diets, tag)
		}
	}
	if ex.Title == "" {
		return ExtractedRecipe{}, fmt.Errorf("%w: recipe has no name", ErrNoRecipe)
	}
	return ex, nil
}

func findRecipe(v any) map[string]any {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if r := findRecipe(item); r != nil {
				return r
			}
		}
	case map[string]any:
		for _, typ := range stringList(t["@type"]) {
			if typ == "Recipe" {
				return t
			}
		}
		if g, ok := t["@graph"]; ok {
			return findRecipe(g)
		}
	}
	return nil
}

// courseOf returns the course of the first category that names one, or ""
// so the recipe fits any slot.
func courseOf(categories []string) string {
	for _, c := range categories {
		words := strings.FieldsFunc(strings.ToLower(c), func(r rune) bool {
			return !unicode.IsLetter(r)
		})
		for _, entry := range courses {
			for _, w := range words {
				if slices.Contains(entry.words, w) {
					return entry.course
				}
			}
		}
	}
	return ""
}

func text(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(html.UnescapeString(s))
}

// stringList flattens a string or list of strings.
func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		if s := text(t); s != "" {
			return []string{s}
		}
	case []any:
		var out []string
		for _, item := range t {
			if s := text(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func first(v any) string {
	if list := stringList(v); len(list) > 0 {
		return list[0]
	}
	return ""
}

// steps flattens recipeInstructions, which may be a string, a list of
// strings, HowToStep objects or HowToSection groups.
func steps(v any) []string {
	switch t := v.(type) {
	case string:
		var out []string
		for _, line := range strings.Split(text(t), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
		return out
	case []any:
		var out []string
		for _, item := range t {
			switch step := item.(type) {
			case string:
				if s := text(step); s != "" {
					out = append(out, s)
				}
			case map[string]any:
				if list, ok := step["itemListElement"]; ok {
					out = append(out, steps(list)...)
				} else if s := text(step["text"]); s != "" {
					out = append(out, s)
				}
			}
		}
		return out
	}
	return nil
}

// minutes converts an ISO 8601 duration such as PT1H30M.
func minutes(d string) *int {
	m := isoDuration.FindStringSubmatch(d)
	if m == nil || d == "P" || d == "PT" {
		return nil
	}
	total := 0
	for i, scale := range []int{24 * 60, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return nil
		}
		total += n * scale
	}
	return recipe.Minutes(total)
}

func formatToHTML(r ExtractedRecipe, sourceURL string) string {
	esc := html.EscapeString

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<p><i>Imported from: <a href=\"%s\">%s</a></i></p>", esc(sourceURL), esc(sourceURL)))
	if r.Category != "" {
		sb.WriteString(fmt.Sprintf("<p>Category: %s</p>", esc(r.Category)))
	}
	if r.Cuisine != "" {
		sb.WriteString(fmt.Sprintf("<p>Cuisine: %s</p>", esc(r.Cuisine)))
	}
	if r.PrepMinutes != nil {
		sb.WriteString(fmt.Sprintf("<p>Prep time: %d minutes</p>", *r.PrepMinutes))
	}
	if r.CookMinutes != nil {
		sb.WriteString(fmt.Sprintf("<p>Cook time: %d minutes</p>", *r.CookMinutes))
	}

	sb.WriteString("<h2>Ingredients</h2><ul>")
	for _, ing := range r.Ingredients {
		sb.WriteString(fmt.Sprintf("<li>%s</li>", esc(ing)))
	}
	sb.WriteString("</ul>")

	sb.WriteString("<h2>Instructions</h2><ol>")
	for _, step := range r.Steps {
		sb.WriteString(fmt.Sprintf("<li>%s</li>", esc(step)))
	}
	sb.WriteString("</ol>")

	return sb.String()
}
