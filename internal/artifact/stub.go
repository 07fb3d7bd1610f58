package artifact

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// DefaultTemplate is the stub body; %s receives the renderer path relative to
// the stub directory.
const DefaultTemplate = "<?php require_once __DIR__ . '/%s';\n"

var errEscapesRoot = errors.New("path escapes the site root")

// RelativeRendererPath returns the renderer location as seen from stubDir.
// Both arguments are relative to the same site root; the result always uses
// forward slashes.
func RelativeRendererPath(stubDir, renderer string) (string, error) {
	dir, err := cleanSitePath(stubDir)
	if err != nil {
		return "", fmt.Errorf("stub dir %q: %w", stubDir, err)
	}
	target, err := cleanSitePath(renderer)
	if err != nil {
		return "", fmt.Errorf("renderer %q: %w", renderer, err)
	}
	rel, err := filepath.Rel(filepath.FromSlash(dir), filepath.FromSlash(target))
	if err != nil {
		return "", fmt.Errorf("relative renderer path: %w", err)
	}
	return filepath.ToSlash(rel), nil
}

// StubContent renders the stub body for the given template.
func StubContent(template, rendererPath string) []byte {
	if strings.TrimSpace(template) == "" {
		template = DefaultTemplate
	}
	return []byte(fmt.Sprintf(template, rendererPath))
}

func cleanSitePath(p string) (string, error) {
	p = strings.TrimLeft(strings.ReplaceAll(strings.TrimSpace(p), "\\", "/"), "/")
	p = path.Clean(p)
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", errEscapesRoot
	}
	return p, nil
}
