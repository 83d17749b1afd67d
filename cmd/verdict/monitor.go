package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verdictlabs/verdict/internal/app"
	"github.com/verdictlabs/verdict/internal/logger"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor SYMBOL [SYMBOL...]",
	Short: "Analyze symbols and watch the results for drift until interrupted",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMonitor,
}

func init() {
	monitorCmd.Flags().Float64VarP(&accountValue, "account", "a", 0, "account value for position sizing (0 skips sizing)")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
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

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	runCtx, runCancel := context.WithTimeout(ctx, 10*time.Minute)
	results, err := a.Analyze(runCtx, args, accountValue)
	runCancel()
	if err != nil {
		return fmt.Errorf("initial analysis failed: %w", err)
	}
	for _, r := range results {
		log.Info("watching analysis",
			zap.String("symbol", r.Recommendation.Symbol),
			zap.String("action", string(r.Recommendation.Action)),
			zap.Bool("valid", r.Validation.IsValid))
	}

	if err := a.Monitor.Start(ctx); err != nil {
		return fmt.Errorf("starting drift monitor: %w", err)
	}

	if cfg.Metrics.Enabled && a.Metrics != nil {
		go func() {
			http.Handle(cfg.Metrics.Path, a.Metrics.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Addr, nil); err != nil {
				log.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down drift monitor")
	a.Monitor.Stop()
	return nil
}
