package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/supportops/support-digest/internal/config"
)

var (
	runConfigPath string
	runHoursBack  int
	runWorkers    int
	runDryRun     bool
	runVerbose    bool
	runQuiet      bool
)

var runCmd = &cobra.Command{
	Use:   "run [product]",
	Short: "Build and deliver support digests",
	Long: `Run builds the support digest for one product, addressed by shortname or
by product label, and posts it to the product's Slack webhook. Without an
argument it falls back to PRODUCT_SHORTNAME, and with neither it runs every
configured product independently.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runConfigPath, "config", "", "Config file path (default: CONFIG_FILE or config.yml)")
	runCmd.Flags().IntVar(&runHoursBack, "hours-back", 0, "Hours to look back (overrides HOURS_BACK and the config default)")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "Concurrent workers (overrides the config default)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Print the digest to stdout instead of posting to Slack")
	runCmd.Flags().BoolVar(&runVerbose, "verbose", false, "Enable verbose progress output")
	runCmd.Flags().BoolVar(&runQuiet, "quiet", false, "Suppress all progress output")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	logger := setupLogger(runVerbose, runQuiet)

	cfg, err := loadConfig(runConfigPath, logger)
	if err != nil {
		return err
	}

	hoursBack, err := resolveHoursBack(runHoursBack, cfg)
	if err != nil {
		return err
	}

	workers := cfg.Defaults.MaxWorkers
	if runWorkers > 0 {
		workers = runWorkers
	}

	deps, err := buildDeps(ctx, cfg, hoursBack, workers, runDryRun, logger)
	if err != nil {
		return err
	}

	products, err := selectProducts(cfg, args)
	if err != nil {
		return err
	}

	logger.Info("running support digest", "products", len(products), "hours_back", hoursBack)
	return runAll(ctx, cfg, products, deps)
}

// resolveHoursBack applies the override chain: flag, then HOURS_BACK
// env, then the config default.
func resolveHoursBack(flag int, cfg *config.Config) (int, error) {
	if flag < 0 {
		return 0, fmt.Errorf("--hours-back must be positive, got %d", flag)
	}
	if flag > 0 {
		return flag, nil
	}
	return config.HoursBack(cfg.Defaults.HoursBack)
}

// selectProducts resolves which products this invocation covers: the
// positional argument, then PRODUCT_SHORTNAME, then every product.
func selectProducts(cfg *config.Config, args []string) ([]config.ProductRef, error) {
	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}
	if arg == "" {
		arg = os.Getenv("PRODUCT_SHORTNAME")
	}
	if arg == "" {
		return cfg.Products(), nil
	}

	ref, ok := cfg.ResolveProduct(arg)
	if !ok {
		return nil, fmt.Errorf("product %q not found in configuration (as shortname or label); available shortnames: %s",
			arg, strings.Join(cfg.Shortnames(), ", "))
	}
	return []config.ProductRef{ref}, nil
}
