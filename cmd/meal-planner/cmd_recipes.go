package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var importFile string

var recipesCmd = &cobra.Command{
	Use:   "recipes",
	Short: "Manage the user's favorite recipes",
}

var recipesImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import recipes from a YAML catalog and mark them as favorites",
	Long: `Import recipes from a YAML file of the form

  recipes:
    - id: chili
      title: Weeknight Chili
      ingredients_count: 9
      instructions_count: 6
      cook_time_minutes: 30
      dietary_tags: [gluten_free]
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, closeFn, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		n, err := a.ImportFile(ctx, userID, importFile)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d recipes for %s.\n", n, userID)
		return nil
	},
}

var recipesIngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch recipe posts from Ghost and mark them as favorites",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, closeFn, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := cfg.RequireGhost(); err != nil {
			return err
		}
		res, err := a.IngestRecipes(ctx, userID)
		if err != nil {
			return err
		}
		fmt.Printf("Ingestion complete: %d saved, %d unchanged, %d failed.\n", res.Saved, res.Skipped, res.Failed)
		return nil
	},
}

var recipesClipCmd = &cobra.Command{
	Use:   "clip URL",
	Short: "Import a recipe web page into Ghost and mark it as a favorite",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, closeFn, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := cfg.RequireGhost(); err != nil {
			return err
		}
		r, err := a.ClipRecipe(ctx, userID, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Clipped %q (%s).\n", r.Title, r.ID)
		return nil
	},
}

func init() {
	recipesImportCmd.Flags().StringVarP(&importFile, "file", "f", "", "YAML recipe catalog")
	_ = recipesImportCmd.MarkFlagRequired("file")

	recipesCmd.AddCommand(recipesImportCmd, recipesIngestCmd, recipesClipCmd)
	rootCmd.AddCommand(recipesCmd)
}
