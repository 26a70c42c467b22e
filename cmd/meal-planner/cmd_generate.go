package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"meal-planner/internal/app"
	"meal-planner/internal/planner"
)

var (
	generateWeekStart string
	generateSeed      int64
	generateJSON      bool
	generatePublish   bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a week plan from the user's favorites",
	Long: `Generate a week plan, store it and advance the user's rotation.

Examples:
  # Plan next week
  meal-planner generate --user alice

  # Plan a specific week with a fixed seed
  meal-planner generate --user alice --week-start 2025-10-06 --seed 7

  # Print JSON and save the plan as a Ghost draft
  meal-planner generate --json --publish
`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateWeekStart, "week-start", "", "First day of the week (YYYY-MM-DD, default next Monday)")
	generateCmd.Flags().Int64Var(&generateSeed, "seed", 0, "Tie-break seed (default derived from the week)")
	generateCmd.Flags().BoolVar(&generateJSON, "json", false, "Print the plan as JSON")
	generateCmd.Flags().BoolVar(&generatePublish, "publish", false, "Save the plan as a Ghost draft")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, closeFn, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	req := app.GenerateRequest{WeekStart: generateWeekStart}
	if cmd.Flags().Changed("seed") {
		req.Seed = &generateSeed
	}

	res, err := a.GenerateWeek(ctx, userID, req)
	if err != nil {
		return err
	}

	if generatePublish {
		post, err := a.PublishPlan(ctx, userID, res.Plan.WeekStart, false)
		if err != nil {
			return err
		}
		logger.Info().Str("post_id", post.ID).Msg("plan saved as draft")
	}

	if generateJSON {
		return printJSON(res.Plan)
	}

	sides, err := a.AccompanimentTitles(ctx, res.Plan)
	if err != nil {
		return err
	}
	printPlan(res.Plan, sides)
	return nil
}

func printPlan(plan *planner.WeekPlan, sides map[string]string) {
	fmt.Printf("\n=== WEEK OF %s ===\n", plan.WeekStart)
	day := -1
	for _, a := range plan.Assignments {
		if a.Slot.DayIndex != day {
			day = a.Slot.DayIndex
			fmt.Printf("\n%s %s\n", a.Slot.Weekday(), planner.FormatDate(a.Slot.Date))
		}
		line := fmt.Sprintf("  %-10s %s", a.Slot.MealType+":", a.RecipeTitle)
		if side := sides[a.AccompanimentID]; side != "" {
			line += " with " + side
		}
		if a.PrepRequired {
			line += " [prep]"
		}
		fmt.Println(line)
		fmt.Printf("  %-10s %s\n", "", a.Reasoning)
	}

	if len(plan.Warnings) > 0 {
		fmt.Println("\n=== NOTES ===")
		for _, w := range plan.Warnings {
			fmt.Printf("- %s\n", w)
		}
	}
	fmt.Printf("\nRotation cycle %d, %d reset(s) this run, seed %d\n",
		plan.Rotation.CycleNumber, plan.Stats.RotationResets, plan.Seed)
}
