package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rotationJSON bool

var rotationCmd = &cobra.Command{
	Use:   "rotation",
	Short: "Inspect or reset the user's rotation cycle",
}

var rotationShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current rotation cycle",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, closeFn, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		status, err := a.RotationStatus(ctx, userID)
		if err != nil {
			return err
		}
		if rotationJSON {
			return printJSON(status)
		}
		fmt.Printf("Cycle %d: %d of %d favorites used, %d remaining.\n",
			status.CycleNumber, len(status.Used), status.Favorites, status.Remaining)
		for _, id := range status.Used {
			fmt.Printf("  - %s\n", id)
		}
		return nil
	},
}

var rotationResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Start a fresh rotation cycle",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, closeFn, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := a.ResetRotation(ctx, userID); err != nil {
			return err
		}
		fmt.Printf("Rotation reset for %s.\n", userID)
		return nil
	},
}

func init() {
	rotationShowCmd.Flags().BoolVar(&rotationJSON, "json", false, "Print as JSON")
	rotationCmd.AddCommand(rotationShowCmd, rotationResetCmd)
	rootCmd.AddCommand(rotationCmd)
}
