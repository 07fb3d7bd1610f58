// Package scanner discovers comic page IDs from directory listings.
package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-git/go-billy/v5"

	"comicadmin/internal/entityid"
)

// ScanIDs lists every directory in dirs and returns the IDs whose file names
// are an eight digit stem plus, when exts is non-empty, one of the allowed
// extensions (compared case-insensitively, with or without the leading dot).
// Missing directories contribute nothing; sub-directories and other names are
// skipped.
func ScanIDs(fsys billy.Filesystem, dirs []string, exts []string) (entityid.Set, error) {
	allowed := extensionSet(exts)
	ids := entityid.NewSet()
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		entries, err := fsys.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("scan %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			id, ext, ok := entityid.FromFilename(entry.Name())
			if !ok {
				continue
			}
			if len(allowed) > 0 {
				if _, match := allowed[strings.ToLower(ext)]; !match {
					continue
				}
			}
			ids.Add(id)
		}
	}
	return ids, nil
}

// ScanDir is ScanIDs for a single directory.
func ScanDir(fsys billy.Filesystem, dir string, exts ...string) (entityid.Set, error) {
	return ScanIDs(fsys, []string{dir}, exts)
}

func extensionSet(exts []string) map[string]struct{} {
	out := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out[ext] = struct{}{}
	}
	return out
}
