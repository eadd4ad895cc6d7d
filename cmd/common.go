package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/supportops/support-digest/internal/activity"
	"github.com/supportops/support-digest/internal/ai"
	"github.com/supportops/support-digest/internal/config"
	"github.com/supportops/support-digest/internal/digest"
	"github.com/supportops/support-digest/internal/github"
	"github.com/supportops/support-digest/internal/notify/slack"
)

// setupLogger creates a logger configured for progress output
func setupLogger(verbose, quiet bool) *slog.Logger {
	if quiet {
		// Discard all log output when quiet
		return slog.New(slog.NewTextHandler(os.NewFile(0, os.DevNull), &slog.HandlerOptions{
			Level: slog.LevelError + 1, // Higher than any log level to discard all
		}))
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	// Use stderr for progress so stdout stays clean for digest output
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Remove time stamps for cleaner progress output
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// loadConfig resolves the config path, loads team environment files,
// and loads the configuration.
func loadConfig(path string, logger *slog.Logger) (*config.Config, error) {
	if path == "" {
		path = config.Path()
	}
	config.LoadEnv(path, logger)

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	logger.Debug("configuration loaded", "file", path, "products", len(cfg.Products()))
	return cfg, nil
}

// initSummarizer creates the summarizer selected by the configuration.
// DISABLE_SUMMARY swaps in the plain link-and-title fallback.
func initSummarizer(cfg *config.Config, logger *slog.Logger) (digest.Summarizer, error) {
	if config.SummaryDisabled() {
		logger.Debug("AI summarization disabled")
		return ai.NewNoopSummarizer(), nil
	}

	d := cfg.Defaults
	switch d.Summarizer {
	case config.SummarizerOpenAI:
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, errors.New("OPENAI_API_KEY environment variable is required (or set DISABLE_SUMMARY=1)")
		}
		baseURL := os.Getenv("OPENAI_BASE_URL")
		if baseURL == "" {
			baseURL = ai.DefaultOpenAIBaseURL
		}
		logger.Debug("AI summarization enabled", "backend", d.Summarizer, "model", d.OpenAIModel)
		return ai.NewOpenAIClient(baseURL, d.OpenAIModel, apiKey, d.MaxTokens, logger), nil
	case config.SummarizerAnthropic:
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, errors.New("ANTHROPIC_API_KEY environment variable is required (or set DISABLE_SUMMARY=1)")
		}
		logger.Debug("AI summarization enabled", "backend", d.Summarizer, "model", d.AnthropicModel)
		return ai.NewAnthropicClient(apiKey, d.AnthropicModel, d.MaxTokens, logger), nil
	default:
		return nil, fmt.Errorf("unknown summarizer %q", d.Summarizer)
	}
}

// runDeps carries what every product run in one invocation shares.
type runDeps struct {
	source     digest.Source
	summarizer digest.Summarizer
	bots       *activity.Filter
	workers    int
	hoursBack  int
	dryRun     bool
	logger     *slog.Logger
}

// buildDeps assembles the shared dependencies for digest runs.
func buildDeps(ctx context.Context, cfg *config.Config, hoursBack, workers int, dryRun bool, logger *slog.Logger) (runDeps, error) {
	token := config.GitHubToken()
	if token == "" {
		return runDeps{}, errors.New("GH_TOKEN environment variable is required")
	}

	summarizer, err := initSummarizer(cfg, logger)
	if err != nil {
		return runDeps{}, fmt.Errorf("configuration error: %w", err)
	}

	return runDeps{
		source:     &github.Source{Client: github.New(ctx, token), Logger: logger},
		summarizer: summarizer,
		bots:       activity.NewFilter(cfg.Defaults.BotAuthors),
		workers:    workers,
		hoursBack:  hoursBack,
		dryRun:     dryRun || config.DryRun(),
		logger:     logger,
	}, nil
}

// runAll builds and delivers the digest for each product in turn. A
// failure in one product is logged and counted but does not stop the
// others.
func runAll(ctx context.Context, cfg *config.Config, products []config.ProductRef, deps runDeps) error {
	var failed int
	for _, ref := range products {
		if err := runProduct(ctx, cfg, ref, deps); err != nil {
			deps.logger.Error("product run failed", "product", ref.Label, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d product runs failed", failed, len(products))
	}
	return nil
}

// runProduct executes the pipeline for one product and delivers the
// result, or prints it in dry-run mode.
func runProduct(ctx context.Context, cfg *config.Config, ref config.ProductRef, deps runDeps) error {
	logger := deps.logger.With("run_id", ulid.Make().String(), "product", ref.Label)

	since := time.Now().UTC().Add(-time.Duration(deps.hoursBack) * time.Hour)

	pipe := &digest.Pipeline{
		Source:     deps.source,
		Summarizer: deps.summarizer,
		Bots:       deps.bots,
		Workers:    deps.workers,
		Timeout:    cfg.Defaults.SummaryTimeout(),
		Logger:     logger,
	}

	result, err := pipe.Run(ctx, digest.Request{
		Org:          ref.Product.GitHubOrg,
		Labels:       ref.SearchLabels(),
		Excluded:     ref.Org.ExcludedRepos,
		ProductLabel: ref.Label,
		ProductName:  ref.Product.Name,
		Since:        since,
		HoursBack:    deps.hoursBack,
		Location:     cfg.Location(),
	})
	if err != nil {
		return err
	}
	if result == nil {
		logger.Info("nothing to report")
		return nil
	}

	if deps.dryRun {
		logger.Info("dry run, printing digest instead of posting")
		fmt.Println(result.Text)
		return nil
	}

	webhook, envName := config.WebhookFor(ref.Product.Shortname)
	if webhook == "" {
		return fmt.Errorf("no webhook URL for %s: set %s or SLACK_WEBHOOK_URL", ref.Label, envName)
	}

	if err := slack.New(webhook).Send(ctx, result.Text); err != nil {
		// Keep the digest recoverable from the logs; delivery is not retried.
		logger.Debug("undelivered digest", "text", result.Text)
		return fmt.Errorf("delivering digest: %w", err)
	}

	logger.Info("digest delivered", "sections", len(result.Sections))
	return nil
}
