package app

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"meal-planner/internal/ghost"
	"meal-planner/internal/planner"
)

var planTemplate = template.Must(template.New("plan").Parse(`
{{- range .Days}}<h2>{{.Name}} {{.Date}}</h2>
<ul>
{{- range .Meals}}
<li><strong>{{.MealType}}</strong>: {{.Title}}{{if .Side}} with {{.Side}}{{end}}<br><em>{{.Reasoning}}</em></li>
{{- end}}
</ul>
{{end}}
{{- if .Warnings}}<h3>Notes</h3>
<ul>
{{- range .Warnings}}
<li>{{.}}</li>
{{- end}}
</ul>
{{end}}`))

// planTag marks published plans so recipe ingestion can tell them apart.
const planTag = "meal-plan"

type planDay struct {
	Name  string
	Date  string
	Meals []planMeal
}

type planMeal struct {
	MealType  string
	Title     string
	Side      string
	Reasoning string
}

// PublishPlan renders the user's latest plan for the week as HTML and posts
// it to Ghost.
func (a *App) PublishPlan(ctx context.Context, userID, weekStart string, publish bool) (*ghost.Post, error) {
	if a.ghostClient == nil {
		return nil, fmt.Errorf("ghost client is not configured")
	}
	stored, err := a.planRepo.LatestForWeek(ctx, userID, weekStart)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("no plan stored for week %s", weekStart)
	}

	html, err := a.RenderPlanHTML(ctx, &stored.Plan)
	if err != nil {
		return nil, err
	}
	post, err := a.ghostClient.CreatePost(ctx, "Meal plan for the week of "+stored.WeekStart, html, []string{planTag}, publish)
	if err != nil {
		return nil, fmt.Errorf("failed to publish plan: %w", err)
	}
	a.logger.Info().Str("user_id", userID).Str("week_start", weekStart).Str("post_id", post.ID).Msg("plan published")
	return post, nil
}

// RenderPlanHTML renders a plan grouped by day.
func (a *App) RenderPlanHTML(ctx context.Context, plan *planner.WeekPlan) (string, error) {
	sides, err := a.AccompanimentTitles(ctx, plan)
	if err != nil {
		return "", err
	}

	var days []planDay
	for _, as := range plan.Assignments {
		if len(days) == 0 || days[len(days)-1].Date != planner.FormatDate(as.Slot.Date) {
			days = append(days, planDay{Name: as.Slot.Weekday(), Date: planner.FormatDate(as.Slot.Date)})
		}
		day := &days[len(days)-1]
		day.Meals = append(day.Meals, planMeal{
			MealType:  string(as.Slot.MealType),
			Title:     as.RecipeTitle,
			Side:      sides[as.AccompanimentID],
			Reasoning: as.Reasoning,
		})
	}

	var buf bytes.Buffer
	err = planTemplate.Execute(&buf, struct {
		Days     []planDay
		Warnings []string
	}{days, plan.Warnings})
	if err != nil {
		return "", fmt.Errorf("failed to render plan: %w", err)
	}
	return buf.String(), nil
}

// AccompanimentTitles maps accompaniment ids in the plan to their titles,
// falling back to the id for recipes no longer stored.
func (a *App) AccompanimentTitles(ctx context.Context, plan *planner.WeekPlan) (map[string]string, error) {
	titles := make(map[string]string)
	for _, as := range plan.Assignments {
		id := as.AccompanimentID
		if id == "" {
			continue
		}
		if _, ok := titles[id]; ok {
			continue
		}
		r, err := a.recipeRepo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		titles[id] = id
		if r != nil {
			titles[id] = r.Title
		}
	}
	return titles, nil
}
