// Package config loads and validates the YAML team configuration that
// drives digest runs: the organizations and products to watch, plus
// shared defaults for the pipeline and summarizer.
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Summarizer backends accepted in defaults.summarizer.
const (
	SummarizerOpenAI    = "openai"
	SummarizerAnthropic = "anthropic"
)

// Config mirrors a config.<team>.yml file.
type Config struct {
	Organizations map[string]Organization `yaml:"organizations"`
	Defaults      Defaults                `yaml:"defaults"`

	loc *time.Location
}

// Organization groups the products watched under one GitHub organization
// entry, along with repositories excluded from every digest.
type Organization struct {
	Name          string             `yaml:"name"`
	ExcludedRepos []string           `yaml:"excluded_repos"`
	Products      map[string]Product `yaml:"products"`
}

// Product describes one support product, keyed in the config by the
// label that defines it (e.g. "product::kots").
type Product struct {
	Name        string   `yaml:"name"`
	DisplayName string   `yaml:"display_name"`
	Shortname   string   `yaml:"shortname"`
	GitHubOrg   string   `yaml:"github_org"`
	IssueLabels []string `yaml:"issue_labels"`
}

// Defaults carries the tunables shared by every product run.
type Defaults struct {
	HoursBack             int      `yaml:"hours_back"`
	Timezone              string   `yaml:"timezone"`
	MaxWorkers            int      `yaml:"max_workers"`
	Summarizer            string   `yaml:"summarizer"`
	OpenAIModel           string   `yaml:"openai_model"`
	AnthropicModel        string   `yaml:"anthropic_model"`
	MaxTokens             int      `yaml:"max_tokens"`
	SummaryTimeoutSeconds int      `yaml:"summary_timeout_seconds"`
	BotAuthors            []string `yaml:"bot_authors"`
}

// SummaryTimeout returns the per-summarization deadline as a duration.
func (d Defaults) SummaryTimeout() time.Duration {
	return time.Duration(d.SummaryTimeoutSeconds) * time.Second
}

// Load reads a YAML config file, applies defaults, and validates it.
func Load(path string) (*Config, error) {
	cfg, err := Parse(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Parse reads a YAML config file and applies defaults without
// validating. Load is the usual entry point; Parse exists for tooling
// that reports validation findings itself.
func Parse(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	d := &cfg.Defaults
	if d.HoursBack == 0 {
		d.HoursBack = 24
	}
	if d.Timezone == "" {
		d.Timezone = "America/New_York"
	}
	if d.MaxWorkers == 0 {
		d.MaxWorkers = 10
	}
	if d.Summarizer == "" {
		d.Summarizer = SummarizerOpenAI
	}
	if d.OpenAIModel == "" {
		d.OpenAIModel = "gpt-4o-mini"
	}
	if d.AnthropicModel == "" {
		d.AnthropicModel = "claude-sonnet-4-20250514"
	}
	if d.MaxTokens == 0 {
		d.MaxTokens = 1000
	}
	if d.SummaryTimeoutSeconds == 0 {
		d.SummaryTimeoutSeconds = 30
	}
	if d.BotAuthors == nil {
		d.BotAuthors = []string{"github-actions[bot]"}
	}
}

// Validate checks the configuration and returns every finding joined
// into one error, so callers can surface the full list at once.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Organizations) == 0 {
		errs = append(errs, errors.New("no organizations configured"))
	}

	shortnames := map[string]string{}
	for _, orgKey := range slices.Sorted(maps.Keys(c.Organizations)) {
		org := c.Organizations[orgKey]
		if org.Name == "" {
			errs = append(errs, fmt.Errorf("organization %q: name is required", orgKey))
		}
		if org.Products == nil {
			errs = append(errs, fmt.Errorf("organization %q: products section is required", orgKey))
		}
		for _, label := range slices.Sorted(maps.Keys(org.Products)) {
			product := org.Products[label]
			if product.Name == "" {
				errs = append(errs, fmt.Errorf("product %q: name is required", label))
			}
			if product.Shortname == "" {
				errs = append(errs, fmt.Errorf("product %q: shortname is required", label))
			} else if prev, ok := shortnames[product.Shortname]; ok {
				errs = append(errs, fmt.Errorf("product %q: shortname %q already used by %q", label, product.Shortname, prev))
			} else {
				shortnames[product.Shortname] = label
			}
			if product.GitHubOrg == "" {
				errs = append(errs, fmt.Errorf("product %q: github_org is required", label))
			}
			if len(product.IssueLabels) == 0 {
				errs = append(errs, fmt.Errorf("product %q: at least one issue label is required", label))
			}
		}
	}

	d := c.Defaults
	if d.HoursBack <= 0 {
		errs = append(errs, fmt.Errorf("defaults: hours_back must be positive, got %d", d.HoursBack))
	}
	if d.MaxWorkers <= 0 {
		errs = append(errs, fmt.Errorf("defaults: max_workers must be positive, got %d", d.MaxWorkers))
	}
	if d.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("defaults: max_tokens must be positive, got %d", d.MaxTokens))
	}
	if d.SummaryTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("defaults: summary_timeout_seconds must be positive, got %d", d.SummaryTimeoutSeconds))
	}
	switch d.Summarizer {
	case SummarizerOpenAI, SummarizerAnthropic:
	default:
		errs = append(errs, fmt.Errorf("defaults: unknown summarizer %q (want %q or %q)", d.Summarizer, SummarizerOpenAI, SummarizerAnthropic))
	}
	if loc, err := time.LoadLocation(d.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("defaults: invalid timezone %q: %w", d.Timezone, err))
	} else {
		c.loc = loc
	}

	return errors.Join(errs...)
}

// Location returns the configured timezone, resolved during validation.
func (c *Config) Location() *time.Location {
	if c.loc == nil {
		loc, err := time.LoadLocation(c.Defaults.Timezone)
		if err != nil {
			return time.UTC
		}
		c.loc = loc
	}
	return c.loc
}

// ProductRef pairs a product with the organization entry declaring it.
type ProductRef struct {
	OrgKey  string
	Org     Organization
	Label   string
	Product Product
}

// SearchLabels returns the labels every matching issue must carry: the
// product label itself plus the configured issue_labels.
func (r ProductRef) SearchLabels() []string {
	labels := make([]string, 0, len(r.Product.IssueLabels)+1)
	labels = append(labels, r.Label)
	labels = append(labels, r.Product.IssueLabels...)
	return labels
}

// Products returns every configured product in deterministic order:
// organizations sorted by key, then products sorted by label.
func (c *Config) Products() []ProductRef {
	var refs []ProductRef
	for _, orgKey := range slices.Sorted(maps.Keys(c.Organizations)) {
		org := c.Organizations[orgKey]
		for _, label := range slices.Sorted(maps.Keys(org.Products)) {
			refs = append(refs, ProductRef{
				OrgKey:  orgKey,
				Org:     org,
				Label:   label,
				Product: org.Products[label],
			})
		}
	}
	return refs
}

// ResolveProduct finds a product by shortname first, then by label.
func (c *Config) ResolveProduct(arg string) (ProductRef, bool) {
	var byLabel ProductRef
	var foundLabel bool
	for _, ref := range c.Products() {
		if ref.Product.Shortname == arg {
			return ref, true
		}
		if ref.Label == arg {
			byLabel = ref
			foundLabel = true
		}
	}
	return byLabel, foundLabel
}

// Shortnames returns every configured shortname, for error messages.
func (c *Config) Shortnames() []string {
	var names []string
	for _, ref := range c.Products() {
		names = append(names, ref.Product.Shortname)
	}
	return names
}
