package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"TravelFX/internal/di"
	"TravelFX/internal/usecase"
	"TravelFX/pkg/config"
	"TravelFX/pkg/logger"
)

var (
	flagConfig  string
	flagModel   string
	flagJSON    bool
	flagTimeout time.Duration
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:           "fxctl",
	Short:         "Currency forecasts for trip planning",
	Long:          "Forecast exchange rates, summarize them by month and rank months for a trip budget.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "YAML config file (defaults when empty)")
	rootCmd.PersistentFlags().StringVarP(&flagModel, "model", "m", "", "forecast model: trend or sequence")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "print JSON instead of a table")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 5*time.Minute, "overall deadline")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log progress to stderr")
}

func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()

	var (
		cfg *config.Config
		err error
	)
	if flagConfig == "" {
		cfg = config.Default()
		cfg.ApplyEnv(os.Getenv)
	} else if cfg, err = config.LoadWithEnv(flagConfig); err != nil {
		return nil, err
	}
	if flagModel != "" {
		cfg.Forecast.Model = flagModel
	}
	return cfg, cfg.Validate()
}

// withService builds an in-process forecaster and hands it to fn.
func withService(fn func(svc *usecase.ForecastService) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	level := "warn"
	if flagVerbose {
		level = "info"
	}
	l, err := logger.New(&logger.Config{Level: level, Format: "console", Output: "stderr"})
	if err != nil {
		return err
	}

	svc, cleanup, err := di.NewLocalForecaster(cfg, l)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(svc)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func pairArgs(args []string) (string, string, error) {
	if len(args) != 2 {
		return "", "", fmt.Errorf("expected BASE QUOTE, got %d arguments", len(args))
	}
	return args[0], args[1], nil
}
