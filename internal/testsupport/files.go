package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"comicadmin/internal/config"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path string, content []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReadFile returns the content at path or fails the test.
func ReadFile(t testing.TB, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// Exists reports whether path exists.
func Exists(t testing.TB, path string) bool {
	t.Helper()

	_, err := os.Stat(path)
	if err == nil {
		return true
	}
	if !os.IsNotExist(err) {
		t.Fatalf("stat %s: %v", path, err)
	}
	return false
}

// SitePath joins rel onto the configured site root.
func SitePath(cfg *config.Config, rel string) string {
	return filepath.Join(cfg.Paths.SiteRoot, filepath.FromSlash(rel))
}

// StubPath returns where the stub for id lives.
func StubPath(cfg *config.Config, id string) string {
	return SitePath(cfg, cfg.Assets.StubDir+"/"+id+cfg.Assets.StubExtension)
}
