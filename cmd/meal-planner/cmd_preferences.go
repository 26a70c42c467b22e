package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"meal-planner/internal/planner"
	"meal-planner/internal/recipe"
)

var (
	prefsWeeknightMinutes int
	prefsRestrictions     []string
	prefsMealTypes        []string
)

var preferencesCmd = &cobra.Command{
	Use:   "preferences",
	Short: "Show or update planning preferences",
}

var preferencesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the user's effective preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, closeFn, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		p, err := a.Preferences(ctx, userID)
		if err != nil {
			return err
		}
		return printJSON(p)
	},
}

var preferencesSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Replace the user's preferences",
	Long: `Replace the user's preferences. Omitted flags are cleared.

Examples:
  meal-planner preferences set --weeknight-minutes 30 --restriction vegetarian --restriction custom:peanut
  meal-planner preferences set --meal-types dinner
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var p planner.Preferences
		if cmd.Flags().Changed("weeknight-minutes") {
			p.WeeknightMinutes = recipe.Minutes(prefsWeeknightMinutes)
		}
		restrictions, err := recipe.ParseRestrictions(prefsRestrictions)
		if err != nil {
			return err
		}
		p.Restrictions = restrictions
		for _, s := range prefsMealTypes {
			mt, err := planner.ParseMealType(s)
			if err != nil {
				return err
			}
			p.MealTypes = append(p.MealTypes, mt)
		}

		ctx := cmd.Context()
		a, closeFn, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := a.SetPreferences(ctx, userID, p); err != nil {
			return err
		}
		fmt.Printf("Preferences saved for %s.\n", userID)
		return nil
	},
}

func init() {
	preferencesSetCmd.Flags().IntVar(&prefsWeeknightMinutes, "weeknight-minutes", 0, "Cooking time available on weeknights")
	preferencesSetCmd.Flags().StringArrayVar(&prefsRestrictions, "restriction", nil, "Dietary restriction (vegetarian, vegan, gluten_free, dairy_free, nut_free, halal, kosher, custom:<allergen>)")
	preferencesSetCmd.Flags().StringSliceVar(&prefsMealTypes, "meal-types", nil, "Courses to plan per day")

	preferencesCmd.AddCommand(preferencesShowCmd, preferencesSetCmd)
	rootCmd.AddCommand(preferencesCmd)
}
