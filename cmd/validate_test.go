package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/supportops/support-digest/internal/config"
)

func TestPrintTeams(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"config.alpha.yml", "config.beta.yml", "config.yml", "README.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	if err := printTeams(&buf, dir); err != nil {
		t.Fatalf("printTeams failed: %v", err)
	}
	want := "available teams:\n  alpha\n  beta\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestPrintTeamsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := printTeams(&buf, t.TempDir()); err != nil {
		t.Fatalf("printTeams failed: %v", err)
	}
	if !strings.Contains(buf.String(), "no team config files found") {
		t.Errorf("output = %q, want a no-teams notice", buf.String())
	}
}

func TestTeamNotFoundError(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"config.alpha.yml", "config.beta.yml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	err := teamNotFoundError("gamma", config.TeamConfigPath(dir, "gamma"), dir)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), `no config file for team "gamma"`) {
		t.Errorf("error = %v", err)
	}
	if !strings.Contains(err.Error(), "available teams: alpha, beta") {
		t.Errorf("error should list discovered teams, got: %v", err)
	}
}

func TestTeamNotFoundErrorNoTeams(t *testing.T) {
	dir := t.TempDir()

	err := teamNotFoundError("gamma", config.TeamConfigPath(dir, "gamma"), dir)
	if err == nil {
		t.Fatal("expected an error")
	}
	if strings.Contains(err.Error(), "available teams") {
		t.Errorf("error should not list teams, got: %v", err)
	}
	if !strings.Contains(err.Error(), `no config file for team "gamma"`) {
		t.Errorf("error = %v", err)
	}
}

func TestPrintStructure(t *testing.T) {
	var buf bytes.Buffer
	printStructure(&buf, testConfig())
	out := buf.String()

	for _, want := range []string{
		"organization acme (Acme Support)",
		"excluded repos: internal-tools",
		"support::orbit: Orbit [orbit] org=acme labels=kind::escalation",
		"support::comet: Comet [comet] org=acme labels=kind::escalation",
		"2 products configured",
		"defaults: hours_back=24 timezone=UTC max_workers=4 summarizer=openai max_tokens=1000 summary_timeout=30s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
