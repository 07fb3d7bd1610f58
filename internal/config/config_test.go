package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"comicadmin/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

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

	if want := filepath.Join(tempHome, "site"); cfg.Paths.SiteRoot != want {
		t.Fatalf("unexpected site root: got %q want %q", cfg.Paths.SiteRoot, want)
	}
	if want := filepath.Join(tempHome, "site", "admin", "config"); cfg.Paths.DataDir != want {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, want)
	}
	if cfg.API.Bind != "127.0.0.1:7590" {
		t.Fatalf("unexpected api bind: %q", cfg.API.Bind)
	}
	if cfg.Assets.StubExtension != ".php" {
		t.Fatalf("unexpected stub extension: %q", cfg.Assets.StubExtension)
	}
	if cfg.ComicsPath() != filepath.Join(cfg.Paths.DataDir, "comic_var.json") {
		t.Fatalf("unexpected comics path: %q", cfg.ComicsPath())
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg := config.Default()
	cfg.Paths.SiteRoot = filepath.Join(tempHome, "www")
	cfg.Assets.ImageDirs = []string{"/bilder/lowres/", "bilder/hires", " "}
	cfg.Assets.ImageExtensions = []string{"PNG", ".jpg", "png"}
	cfg.Assets.StubExtension = "php"
	cfg.Logging.Format = "JSON"

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	configPath := filepath.Join(tempHome, "custom.toml")
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loaded, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if got := strings.Join(loaded.Assets.ImageDirs, ","); got != "bilder/lowres,bilder/hires" {
		t.Fatalf("unexpected image dirs: %q", got)
	}
	if got := strings.Join(loaded.Assets.ImageExtensions, ","); got != ".png,.jpg" {
		t.Fatalf("unexpected image extensions: %q", got)
	}
	if loaded.Assets.StubExtension != ".php" {
		t.Fatalf("unexpected stub extension: %q", loaded.Assets.StubExtension)
	}
	if loaded.Logging.Format != "json" {
		t.Fatalf("expected lowercase format, got %q", loaded.Logging.Format)
	}
}

func TestLoadAppliesEnvironmentOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("COMICADMIN_SITE_ROOT", filepath.Join(tempHome, "from-env"))
	t.Setenv("COMICADMIN_API_BIND", "127.0.0.1:0")
	t.Setenv("COMICADMIN_LOG_LEVEL", "debug")

	cfg, _, _, err := config.Load(filepath.Join(tempHome, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.SiteRoot != filepath.Join(tempHome, "from-env") {
		t.Fatalf("expected env site root, got %q", cfg.Paths.SiteRoot)
	}
	if cfg.API.Bind != "127.0.0.1:0" {
		t.Fatalf("expected env bind, got %q", cfg.API.Bind)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected env level, got %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"stub dir escapes root": func(c *config.Config) { c.Assets.StubDir = "../outside" },
		"template lacks path":   func(c *config.Config) { c.Assets.StubTemplate = "<?php echo 1;" },
		"bad base url":          func(c *config.Config) { c.External.OriginalBaseURL = "ftp://example.com/" },
		"bad log format":        func(c *config.Config) { c.Logging.Format = "xml" },
		"negative probe rate":   func(c *config.Config) { c.External.ProbeRatePerSecond = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	path := filepath.Join(tempHome, ".config", "comicadmin", "config.toml")
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
	if cfg.Assets.StubDir != "comic" {
		t.Fatalf("unexpected stub dir from sample: %q", cfg.Assets.StubDir)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
