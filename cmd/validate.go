package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	githubapi "github.com/google/go-github/v66/github"
	"github.com/spf13/cobra"

	"github.com/supportops/support-digest/internal/config"
	"github.com/supportops/support-digest/internal/github"
)

var (
	validateConfigPath string
	validateList       bool
	validateGitHub     bool
)

var validateCmd = &cobra.Command{
	Use:   "validate [team]",
	Short: "Validate a team configuration file",
	Long: `Validate loads config.<team>.yml (or the file from --config/CONFIG_FILE
when no team is given), prints the configured organizations, products, and
defaults, and reports every validation finding. With --github it also checks
token validity, organization access, and that the configured labels exist on
a sample of repositories.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateConfigPath, "config", "", "Config file path (default: CONFIG_FILE or config.yml)")
	validateCmd.Flags().BoolVar(&validateList, "list", false, "List teams with a config.<team>.yml in the current directory")
	validateCmd.Flags().BoolVar(&validateGitHub, "github", false, "Also verify GitHub token, organization access, and labels")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if validateList {
		return printTeams(out, ".")
	}

	logger := setupLogger(false, false)

	configPath := validateConfigPath
	switch {
	case len(args) > 0:
		configPath = config.TeamConfigPath(".", args[0])
		if _, err := os.Stat(configPath); err != nil {
			return teamNotFoundError(args[0], configPath, ".")
		}
	case configPath == "":
		configPath = config.Path()
	}

	config.LoadEnv(configPath, logger)
	fmt.Fprintf(out, "validating %s\n", configPath)

	cfg, err := config.Parse(configPath)
	if err != nil {
		return err
	}

	printStructure(out, cfg)

	validationErr := cfg.Validate()
	if validationErr != nil {
		for _, line := range strings.Split(validationErr.Error(), "\n") {
			fmt.Fprintf(out, "error: %s\n", line)
		}
	}

	var githubErr error
	if validateGitHub {
		fmt.Fprintln(out)
		githubErr = validateGitHubAccess(context.Background(), out, cfg)
		if githubErr != nil {
			fmt.Fprintf(out, "error: %v\n", githubErr)
		}
	}

	if validationErr != nil || githubErr != nil {
		return errors.New("configuration validation failed")
	}
	fmt.Fprintln(out, "configuration is valid")
	return nil
}

// teamNotFoundError reports a missing team config, listing the teams that
// do exist when discovery itself succeeds.
func teamNotFoundError(team, configPath, dir string) error {
	teams, err := config.Teams(dir)
	if err == nil && len(teams) > 0 {
		return fmt.Errorf("no config file for team %q (expected %s); available teams: %s",
			team, configPath, strings.Join(teams, ", "))
	}
	return fmt.Errorf("no config file for team %q (expected %s)", team, configPath)
}

// printTeams lists teams discovered from config.<team>.yml files.
func printTeams(out io.Writer, dir string) error {
	teams, err := config.Teams(dir)
	if err != nil {
		return err
	}
	if len(teams) == 0 {
		fmt.Fprintln(out, "no team config files found (config.<team>.yml)")
		return nil
	}
	fmt.Fprintln(out, "available teams:")
	for _, team := range teams {
		fmt.Fprintf(out, "  %s\n", team)
	}
	return nil
}

// printStructure summarizes the organizations, products, and defaults
// so a reviewer can eyeball what a run would cover.
func printStructure(out io.Writer, cfg *config.Config) {
	var lastOrg string
	count := 0
	for _, ref := range cfg.Products() {
		if ref.OrgKey != lastOrg {
			fmt.Fprintf(out, "\norganization %s (%s)\n", ref.OrgKey, ref.Org.Name)
			if len(ref.Org.ExcludedRepos) > 0 {
				fmt.Fprintf(out, "  excluded repos: %s\n", strings.Join(ref.Org.ExcludedRepos, ", "))
			}
			lastOrg = ref.OrgKey
		}
		fmt.Fprintf(out, "  %s: %s [%s] org=%s labels=%s\n",
			ref.Label, ref.Product.Name, ref.Product.Shortname, ref.Product.GitHubOrg,
			strings.Join(ref.Product.IssueLabels, ", "))
		count++
	}

	d := cfg.Defaults
	fmt.Fprintf(out, "\n%d products configured\n", count)
	fmt.Fprintf(out, "defaults: hours_back=%d timezone=%s max_workers=%d summarizer=%s max_tokens=%d summary_timeout=%ds\n\n",
		d.HoursBack, d.Timezone, d.MaxWorkers, d.Summarizer, d.MaxTokens, d.SummaryTimeoutSeconds)
}

// validateGitHubAccess verifies the token, each searched organization,
// and samples repositories for the configured labels. Label misses are
// warnings; token and organization failures are errors.
func validateGitHubAccess(ctx context.Context, out io.Writer, cfg *config.Config) error {
	token := config.GitHubToken()
	if token == "" {
		fmt.Fprintln(out, "warning: GH_TOKEN not set, skipping GitHub checks")
		return nil
	}

	client := github.New(ctx, token)

	user, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return fmt.Errorf("github token check failed: %w", err)
	}
	fmt.Fprintf(out, "github token valid, authenticated as %s\n", user.GetLogin())

	// Group products by the organization their searches hit.
	byOrg := map[string][]config.ProductRef{}
	var orgs []string
	for _, ref := range cfg.Products() {
		org := ref.Product.GitHubOrg
		if _, seen := byOrg[org]; !seen {
			orgs = append(orgs, org)
		}
		byOrg[org] = append(byOrg[org], ref)
	}

	var failed bool
	for _, org := range orgs {
		ghOrg, _, err := client.Organizations.Get(ctx, org)
		if err != nil {
			fmt.Fprintf(out, "error: cannot access organization %s: %v\n", org, err)
			failed = true
			continue
		}
		name := ghOrg.GetName()
		if name == "" {
			name = ghOrg.GetLogin()
		}
		fmt.Fprintf(out, "organization %s accessible (%s)\n", org, name)

		repos, _, err := client.Repositories.ListByOrg(ctx, org, &githubapi.RepositoryListByOrgOptions{
			ListOptions: githubapi.ListOptions{PerPage: 5},
		})
		if err != nil {
			fmt.Fprintf(out, "warning: cannot list repositories in %s: %v\n", org, err)
			continue
		}
		if len(repos) == 0 {
			fmt.Fprintf(out, "warning: no repositories visible in %s\n", org)
			continue
		}
		fmt.Fprintf(out, "  sampled %d repositories\n", len(repos))

		sample := repos
		if len(sample) > 3 {
			sample = sample[:3]
		}
		for _, ref := range byOrg[org] {
			missing := missingLabels(ctx, client, org, sample, ref.SearchLabels())
			if len(missing) == 0 {
				fmt.Fprintf(out, "  product %s: labels found in sampled repositories\n", ref.Label)
			} else {
				fmt.Fprintf(out, "  warning: product %s: labels not found in sampled repositories: %s\n",
					ref.Label, strings.Join(missing, ", "))
			}
		}
	}

	if failed {
		return errors.New("github access checks failed")
	}
	return nil
}

// missingLabels returns the required labels that none of the sampled
// repositories define.
func missingLabels(ctx context.Context, client *githubapi.Client, org string, repos []*githubapi.Repository, required []string) []string {
	found := map[string]bool{}
	for _, repo := range repos {
		labels, _, err := client.Issues.ListLabels(ctx, org, repo.GetName(), &githubapi.ListOptions{PerPage: 100})
		if err != nil {
			continue
		}
		for _, label := range labels {
			found[label.GetName()] = true
		}
	}

	var missing []string
	for _, name := range required {
		if !found[name] {
			missing = append(missing, name)
		}
	}
	return missing
}
