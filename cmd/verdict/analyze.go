package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verdictlabs/verdict/internal/app"
	"github.com/verdictlabs/verdict/internal/config"
	"github.com/verdictlabs/verdict/internal/logger"
)

var (
	accountValue float64
	showStats    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze SYMBOL [SYMBOL...]",
	Short: "Run the full analysis pipeline for one or more symbols",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().Float64VarP(&accountValue, "account", "a", 0, "account value for position sizing (0 skips sizing)")
	analyzeCmd.Flags().BoolVar(&showStats, "stats", false, "print cache and router statistics after the run")
	rootCmd.AddCommand(analyzeCmd)
}

func loadConfig(log *zap.Logger) (*config.Config, error) {
	if cfgFile == "" {
		log.Warn("no config file specified, using defaults")
		return config.Defaults(), nil
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	a, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("assembling pipeline: %w", err)
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	results, err := a.Analyze(ctx, args, accountValue)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return err
	}

	if showStats {
		fmt.Fprintf(os.Stderr, "cache: %+v\n", a.Cache.Stats())
		fmt.Fprintf(os.Stderr, "router: %+v\n", a.Router.Stats())
	}
	return nil
}
