package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAssets(); err != nil {
		return err
	}
	if err := c.validateExternal(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAssets() error {
	if c.Assets.StubDir == "" || c.Assets.StubDir == "." {
		return errors.New("assets.stub_dir must name a directory below paths.site_root")
	}
	if strings.HasPrefix(c.Assets.StubDir, "..") {
		return fmt.Errorf("assets.stub_dir %q escapes paths.site_root", c.Assets.StubDir)
	}
	if c.Assets.Renderer == "" || strings.HasPrefix(c.Assets.Renderer, "..") {
		return fmt.Errorf("assets.renderer %q must be a file below paths.site_root", c.Assets.Renderer)
	}
	if !strings.Contains(c.Assets.StubTemplate, "%s") {
		return errors.New("assets.stub_template must contain a %s placeholder for the renderer path")
	}
	if strings.Count(c.Assets.StubTemplate, "%") != 1 {
		return errors.New("assets.stub_template must contain exactly one format directive")
	}
	return nil
}

func (c *Config) validateExternal() error {
	for key, raw := range map[string]string{
		"external.original_base_url": c.External.OriginalBaseURL,
		"external.sketch_base_url":   c.External.SketchBaseURL,
	} {
		if raw == "" {
			continue
		}
		parsed, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("%s must be an http(s) URL, got %q", key, raw)
		}
	}
	if c.External.ProbeRatePerSecond < 0 {
		return errors.New("external.probe_rate_per_second must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
