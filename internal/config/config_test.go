package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"viralvision/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndReadsEnv(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("VIRALVISION_ANALYSIS_API_KEY", "env-key")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("VIRALVISION_API_TOKEN", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "viralvision")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.UploadDir != filepath.Join(wantData, "uploads") {
		t.Fatalf("unexpected upload dir: %q", cfg.Paths.UploadDir)
	}
	if cfg.Analysis.APIKey != "env-key" {
		t.Fatalf("expected analysis key from env, got %q", cfg.Analysis.APIKey)
	}
	if cfg.Fetch.MaxDurationSeconds != 1500 {
		t.Fatalf("expected 25 minute ceiling, got %d", cfg.Fetch.MaxDurationSeconds)
	}
	if cfg.Analysis.RetryAttempts != 1 {
		t.Fatalf("expected single analysis attempt by default, got %d", cfg.Analysis.RetryAttempts)
	}
	if cfg.Credits.SignupBalance != 3.0 {
		t.Fatalf("unexpected signup balance %v", cfg.Credits.SignupBalance)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "viralvision.db") {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath())
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VIRALVISION_ANALYSIS_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	type override struct {
		Paths struct {
			DataDir string `toml:"data_dir"`
		} `toml:"paths"`
		Fetch struct {
			AllowedHosts       []string `toml:"allowed_hosts"`
			MaxDurationSeconds int      `toml:"max_duration_seconds"`
		} `toml:"fetch"`
		Workflow struct {
			Workers int `toml:"workers"`
		} `toml:"workflow"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	var doc override
	doc.Paths.DataDir = filepath.Join(dir, "data")
	doc.Fetch.AllowedHosts = []string{" WWW.YouTube.com ", "youtube.com", "tiktok.com"}
	doc.Fetch.MaxDurationSeconds = 600
	doc.Workflow.Workers = 2
	doc.Logging.Format = "JSON"
	encoded, err := toml.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %q, got %q exists=%v", path, resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(dir, "data") {
		t.Fatalf("data dir = %q", cfg.Paths.DataDir)
	}
	if got := strings.Join(cfg.Fetch.AllowedHosts, ","); got != "youtube.com,tiktok.com" {
		t.Fatalf("allowed hosts = %q", got)
	}
	if cfg.Fetch.MaxDurationSeconds != 600 || cfg.Workflow.Workers != 2 {
		t.Fatalf("unexpected overrides: %+v %+v", cfg.Fetch, cfg.Workflow)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("log format = %q", cfg.Logging.Format)
	}
	if cfg.AnalysisReady() {
		t.Fatal("expected analysis to be unconfigured without a key")
	}
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"chatty\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "logging.level") {
		t.Fatalf("expected logging.level error, got %v", err)
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Paths.APIBind != "127.0.0.1:7490" {
		t.Fatalf("unexpected api bind %q", cfg.Paths.APIBind)
	}
}

func TestEnsureDirectoriesCreatesLayout(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.UploadDir = filepath.Join(base, "uploads")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.UploadDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
