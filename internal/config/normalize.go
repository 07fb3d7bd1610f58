package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCatalog()
	c.normalizeAssets()
	c.normalizeExternal()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.SiteRoot) == "" {
		c.Paths.SiteRoot = defaultSiteRoot
	}
	if c.Paths.SiteRoot, err = expandPath(c.Paths.SiteRoot); err != nil {
		return fmt.Errorf("paths.site_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	return nil
}

func (c *Config) normalizeCatalog() {
	c.Catalog.ComicsFile = fallback(c.Catalog.ComicsFile, defaultComicsFile)
	c.Catalog.CharactersFile = fallback(c.Catalog.CharactersFile, defaultCharactersFile)
	c.Catalog.URLCacheFile = fallback(c.Catalog.URLCacheFile, defaultURLCacheFile)
	c.Catalog.SettingsFile = fallback(c.Catalog.SettingsFile, defaultSettingsFile)
}

func (c *Config) normalizeAssets() {
	dirs := make([]string, 0, len(c.Assets.ImageDirs))
	for _, dir := range c.Assets.ImageDirs {
		if cleaned := cleanRelative(dir); cleaned != "" {
			dirs = append(dirs, cleaned)
		}
	}
	c.Assets.ImageDirs = dirs

	exts := make([]string, 0, len(c.Assets.ImageExtensions))
	seen := make(map[string]struct{}, len(c.Assets.ImageExtensions))
	for _, ext := range c.Assets.ImageExtensions {
		ext = normalizeExtension(ext)
		if ext == "" {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultImageExtensions...)
	}
	c.Assets.ImageExtensions = exts

	c.Assets.StubDir = cleanRelative(fallback(c.Assets.StubDir, defaultStubDir))
	c.Assets.StubExtension = normalizeExtension(fallback(c.Assets.StubExtension, defaultStubExtension))
	c.Assets.Renderer = cleanRelative(fallback(c.Assets.Renderer, defaultRenderer))
	if strings.TrimSpace(c.Assets.StubTemplate) == "" {
		c.Assets.StubTemplate = defaultStubTemplate
	}
}

func (c *Config) normalizeExternal() {
	c.External.OriginalBaseURL = strings.TrimSpace(c.External.OriginalBaseURL)
	c.External.SketchBaseURL = strings.TrimSpace(c.External.SketchBaseURL)
	if c.External.ProbeTimeoutSeconds <= 0 {
		c.External.ProbeTimeoutSeconds = defaultProbeTimeoutSeconds
	}
	c.External.UserAgent = fallback(c.External.UserAgent, defaultUserAgent)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func fallback(value, def string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return def
}

// cleanRelative keeps site paths slash-separated and rooted at the site root.
func cleanRelative(value string) string {
	value = strings.TrimSpace(filepath.ToSlash(value))
	if value == "" {
		return ""
	}
	value = filepath.ToSlash(filepath.Clean(value))
	return strings.TrimPrefix(value, "/")
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
