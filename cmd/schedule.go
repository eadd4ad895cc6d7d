package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/supportops/support-digest/internal/schedule"
)

var (
	scheduleConfigPath string
	scheduleAt         string
	scheduleDryRun     bool
	scheduleVerbose    bool
	scheduleQuiet      bool
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Deliver digests for every product on a daily schedule",
	Long: `Schedule blocks and posts the digest for every configured product once a
day at the given time, interpreted in the configured timezone. Stop it with
SIGINT or SIGTERM.`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringVar(&scheduleConfigPath, "config", "", "Config file path (default: CONFIG_FILE or config.yml)")
	scheduleCmd.Flags().StringVar(&scheduleAt, "at", "08:00", "Daily delivery time in HH:MM")
	scheduleCmd.Flags().BoolVar(&scheduleDryRun, "dry-run", false, "Print digests to stdout instead of posting to Slack")
	scheduleCmd.Flags().BoolVar(&scheduleVerbose, "verbose", false, "Enable verbose progress output")
	scheduleCmd.Flags().BoolVar(&scheduleQuiet, "quiet", false, "Suppress all progress output")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	logger := setupLogger(scheduleVerbose, scheduleQuiet)

	cfg, err := loadConfig(scheduleConfigPath, logger)
	if err != nil {
		return err
	}

	hoursBack, err := resolveHoursBack(0, cfg)
	if err != nil {
		return err
	}

	deps, err := buildDeps(ctx, cfg, hoursBack, cfg.Defaults.MaxWorkers, scheduleDryRun, logger)
	if err != nil {
		return err
	}

	sched := schedule.New(cfg.Location())
	err = sched.Schedule(scheduleAt, func() {
		if err := runAll(ctx, cfg, cfg.Products(), deps); err != nil {
			logger.Error("scheduled run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling daily run: %w", err)
	}

	sched.Start()
	defer sched.Stop()
	logger.Info("scheduler started",
		"at", scheduleAt,
		"timezone", cfg.Defaults.Timezone,
		"next", sched.Next().Format(time.RFC3339))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())
	return nil
}
