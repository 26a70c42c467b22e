package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"meal-planner/internal/app"
	"meal-planner/internal/config"
	"meal-planner/internal/logging"
)

var (
	logger zerolog.Logger
	cfg    *config.Config
	userID string
)

var rootCmd = &cobra.Command{
	Use:           "meal-planner",
	Short:         "Weekly meal planner",
	Long:          "Plans a week of meals from your favorite recipes, rotating through them before any repeats.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "default_user", "User whose favorites and rotation are used")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.NewFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger = logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return nil
}

// openApp loads configuration and wires the application. The caller must
// invoke the returned close function.
func openApp(ctx context.Context) (*app.App, func(), error) {
	if err := loadConfig(); err != nil {
		return nil, nil, err
	}
	a, closeFn, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return a, func() {
		if err := closeFn(); err != nil {
			logger.Warn().Err(err).Msg("failed to close resources")
		}
	}, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
