package testsupport

import (
	"testing"

	"comicadmin/internal/config"
)

// Site describes the files a test starts from.
type Site struct {
	// Comics is written verbatim as the comic catalog when non-empty.
	Comics string
	// Characters is written verbatim as the character catalog when non-empty.
	Characters string
	// Images maps an image directory (relative to the site root) to the
	// file names inside it.
	Images map[string][]string
	// Stubs lists page IDs that already have a stub.
	Stubs []string
}

// SeedSite materializes site under cfg's directories.
func SeedSite(t testing.TB, cfg *config.Config, site Site) {
	t.Helper()

	if site.Comics != "" {
		WriteFile(t, cfg.ComicsPath(), []byte(site.Comics))
	}
	if site.Characters != "" {
		WriteFile(t, cfg.CharactersPath(), []byte(site.Characters))
	}
	for dir, names := range site.Images {
		for _, name := range names {
			WriteFile(t, SitePath(cfg, dir+"/"+name), []byte("img"))
		}
	}
	for _, id := range site.Stubs {
		WriteFile(t, StubPath(cfg, id), []byte("<?php // existing\n"))
	}
}
