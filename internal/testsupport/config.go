package testsupport

import (
	"path/filepath"
	"testing"

	"comicadmin/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.SiteRoot = filepath.Join(base, "site")
	cfgVal.Paths.DataDir = filepath.Join(base, "site", "admin", "config")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.External.OriginalBaseURL = "https://originals.test/comics/"
	cfgVal.External.SketchBaseURL = "https://originals.test/sketches/"
	cfgVal.External.ProbeRatePerSecond = 0
	cfgVal.API.Bind = "127.0.0.1:0"
	cfgVal.Logging.Level = "debug"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithStubDir overrides the stub directory, relative to the site root.
func WithStubDir(dir string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Assets.StubDir = dir
	}
}

// WithRenderer overrides the renderer path, relative to the site root.
func WithRenderer(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Assets.Renderer = path
	}
}
