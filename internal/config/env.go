package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultPath is used when neither --config nor CONFIG_FILE is set.
const DefaultPath = "config.yml"

// Path returns the config file path from the CONFIG_FILE environment
// variable, falling back to DefaultPath.
func Path() string {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return path
	}
	return DefaultPath
}

// TeamFromPath extracts the team name from a config.<team>.yml path.
// Paths that do not follow that naming return "".
func TeamFromPath(path string) string {
	base := filepath.Base(path)
	const prefix, suffix = "config.", ".yml"
	if len(base) <= len(prefix)+len(suffix) ||
		!strings.HasPrefix(base, prefix) || !strings.HasSuffix(base, suffix) {
		return ""
	}
	return base[len(prefix) : len(base)-len(suffix)]
}

// TeamConfigPath returns the conventional config path for a team.
func TeamConfigPath(dir, team string) string {
	return filepath.Join(dir, fmt.Sprintf("config.%s.yml", team))
}

// Teams lists team names discovered from config.<team>.yml files in dir.
func Teams(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "config.*.yml"))
	if err != nil {
		return nil, err
	}
	var teams []string
	for _, match := range matches {
		if team := TeamFromPath(match); team != "" {
			teams = append(teams, team)
		}
	}
	slices.Sort(teams)
	return teams, nil
}

// LoadEnv loads environment variables before a run. A team-specific
// .env.<team> file next to the config file wins over a plain .env in
// the working directory; both are optional and never override
// variables already set.
func LoadEnv(configPath string, logger *slog.Logger) {
	if team := TeamFromPath(configPath); team != "" {
		envFile := filepath.Join(filepath.Dir(configPath), ".env."+team)
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err == nil {
				logger.Debug("loaded team environment", "file", envFile)
				return
			}
		}
		logger.Debug("team environment file not found", "file", envFile)
	}
	_ = godotenv.Load()
}

// GitHubToken returns the token used for GitHub API access. GH_TOKEN is
// the conventional variable; GITHUB_TOKEN is accepted as a fallback.
func GitHubToken() string {
	if token := os.Getenv("GH_TOKEN"); token != "" {
		return token
	}
	return os.Getenv("GITHUB_TOKEN")
}

// WebhookFor resolves the Slack webhook for a product. The
// product-specific SLACK_WEBHOOK_<SHORTNAME> wins over the shared
// SLACK_WEBHOOK_URL; the product-specific variable name is returned so
// callers can mention it in error messages.
func WebhookFor(shortname string) (url, envName string) {
	envName = "SLACK_WEBHOOK_" + strings.ToUpper(shortname)
	if v := os.Getenv(envName); v != "" {
		return v, envName
	}
	return os.Getenv("SLACK_WEBHOOK_URL"), envName
}

// HoursBack returns the HOURS_BACK override, or fallback when unset.
func HoursBack(fallback int) (int, error) {
	raw := os.Getenv("HOURS_BACK")
	if raw == "" {
		return fallback, nil
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours <= 0 {
		return 0, fmt.Errorf("invalid HOURS_BACK %q: want a positive integer", raw)
	}
	return hours, nil
}

// DryRun reports whether DRY_RUN is set to any non-empty value.
func DryRun() bool {
	return os.Getenv("DRY_RUN") != ""
}

// SummaryDisabled reports whether DISABLE_SUMMARY is set, which swaps
// the AI summarizer for the plain link-and-title fallback.
func SummaryDisabled() bool {
	return os.Getenv("DISABLE_SUMMARY") != ""
}
