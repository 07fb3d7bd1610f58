package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directories every other section is resolved against.
type Paths struct {
	SiteRoot string `toml:"site_root" env:"SITE_ROOT"`
	DataDir  string `toml:"data_dir" env:"DATA_DIR"`
	LogDir   string `toml:"log_dir" env:"LOG_DIR"`
}

// Catalog names the JSON documents inside Paths.DataDir.
type Catalog struct {
	ComicsFile     string `toml:"comics_file" env:"COMICS_FILE"`
	CharactersFile string `toml:"characters_file" env:"CHARACTERS_FILE"`
	URLCacheFile   string `toml:"url_cache_file" env:"URL_CACHE_FILE"`
	SettingsFile   string `toml:"settings_file" env:"SETTINGS_FILE"`
}

// Assets describes the image and stub directories, relative to Paths.SiteRoot.
type Assets struct {
	ImageDirs       []string `toml:"image_dirs" env:"IMAGE_DIRS"`
	ImageExtensions []string `toml:"image_extensions" env:"IMAGE_EXTENSIONS"`
	StubDir         string   `toml:"stub_dir" env:"STUB_DIR"`
	StubExtension   string   `toml:"stub_extension" env:"STUB_EXTENSION"`
	Renderer        string   `toml:"renderer" env:"RENDERER"`
	// StubTemplate is a fmt template receiving the renderer path relative to StubDir.
	StubTemplate string `toml:"stub_template" env:"STUB_TEMPLATE"`
}

// External contains settings for probing externally hosted original images.
type External struct {
	OriginalBaseURL     string  `toml:"original_base_url" env:"ORIGINAL_BASE_URL"`
	SketchBaseURL       string  `toml:"sketch_base_url" env:"SKETCH_BASE_URL"`
	ProbeTimeoutSeconds int     `toml:"probe_timeout_seconds" env:"PROBE_TIMEOUT_SECONDS"`
	ProbeRatePerSecond  float64 `toml:"probe_rate_per_second" env:"PROBE_RATE_PER_SECOND"`
	UserAgent           string  `toml:"user_agent" env:"USER_AGENT"`
}

// API contains the admin HTTP server settings.
type API struct {
	Bind string `toml:"bind" env:"API_BIND"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" env:"LOG_FORMAT"`
	Level  string `toml:"level" env:"LOG_LEVEL"`
}

// Config encapsulates all configuration values for comicadmin.
//
// Configuration sections by subsystem:
//   - Paths: site root, data and log directories
//   - Catalog: JSON document file names inside the data directory
//   - Assets: image directories, stub directory and shared renderer
//   - External: original image hosting and probe behaviour
//   - API: admin HTTP server
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Catalog  Catalog  `toml:"catalog"`
	Assets   Assets   `toml:"assets"`
	External External `toml:"external"`
	API      API      `toml:"api"`
	Logging  Logging  `toml:"logging"`
}

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "COMICADMIN_"

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/comicadmin/config.toml")
}

// Load locates, parses, and validates a configuration file. Environment
// overrides are applied after the file. The returned config has all path fields
// expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, "", false, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("comicadmin.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories. The site root is
// never created: a missing site means scans come back empty.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ComicsPath returns the absolute path of the comic catalog document.
func (c *Config) ComicsPath() string {
	return filepath.Join(c.Paths.DataDir, c.Catalog.ComicsFile)
}

// CharactersPath returns the absolute path of the character catalog document.
func (c *Config) CharactersPath() string {
	return filepath.Join(c.Paths.DataDir, c.Catalog.CharactersFile)
}

// URLCachePath returns the absolute path of the external URL cache document.
func (c *Config) URLCachePath() string {
	return filepath.Join(c.Paths.DataDir, c.Catalog.URLCacheFile)
}

// SettingsPath returns the absolute path of the per-user settings document.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Paths.DataDir, c.Catalog.SettingsFile)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
