package reconcile

import (
	"fmt"
	"log/slog"

	"github.com/go-git/go-billy/v5"

	"comicadmin/internal/catalog"
	"comicadmin/internal/entityid"
	"comicadmin/internal/logging"
	"comicadmin/internal/scanner"
)

// CatalogReader is the part of catalog.ComicStore the reconciler needs.
type CatalogReader interface {
	Load() catalog.Snapshot
}

// URLIndex reports which IDs have a cached original image URL.
type URLIndex interface {
	CachedOriginals() (entityid.Set, error)
}

// Layout names the directories scanned for provenance, relative to the site
// filesystem.
type Layout struct {
	ImageDirs       []string
	ImageExtensions []string
	StubDir         string
	StubExtension   string
}

// View is the reconciled catalog.
type View struct {
	Entries       []Entry          `json:"comics"`
	Revision      string           `json:"revision"`
	Status        catalog.Status   `json:"status"`
	SchemaVersion int              `json:"schema_version"`
	StoreError    string           `json:"store_error,omitempty"`
	Snapshot      catalog.Snapshot `json:"-"`
}

// Lookup returns the entry for id.
func (v View) Lookup(id string) (Entry, bool) {
	for _, e := range v.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Reconciler produces Views from the store, the site filesystem and the URL
// cache. It holds no state between calls.
type Reconciler struct {
	store  CatalogReader
	site   billy.Filesystem
	layout Layout
	urls   URLIndex
	logger *slog.Logger
}

// NewReconciler wires a reconciler. urls may be nil.
func NewReconciler(store CatalogReader, site billy.Filesystem, layout Layout, urls URLIndex, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Reconciler{
		store:  store,
		site:   site,
		layout: layout,
		urls:   urls,
		logger: logging.NewComponentLogger(logger, "reconcile"),
	}
}

// Presence is the result of scanning the site directories.
type Presence struct {
	Images entityid.Set
	Stubs  entityid.Set
	URLs   entityid.Set
}

// Scan lists the image and stub directories and reads the URL cache index.
func (r *Reconciler) Scan() (Presence, error) {
	images, err := scanner.ScanIDs(r.site, r.layout.ImageDirs, r.layout.ImageExtensions)
	if err != nil {
		return Presence{}, fmt.Errorf("scan images: %w", err)
	}
	stubs, err := scanner.ScanDir(r.site, r.layout.StubDir, r.layout.StubExtension)
	if err != nil {
		return Presence{}, fmt.Errorf("scan stubs: %w", err)
	}
	urls := entityid.NewSet()
	if r.urls != nil {
		cached, err := r.urls.CachedOriginals()
		if err != nil {
			r.logger.Warn("url cache unavailable",
				logging.String(logging.FieldEventType, "url_cache_read_failed"),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the url cache file"),
				logging.String(logging.FieldImpact, "url provenance tags only reflect stored records"))
		} else {
			urls = cached
		}
	}
	return Presence{Images: images, Stubs: stubs, URLs: urls}, nil
}

// View loads the store, scans the site and merges every ID in any source.
func (r *Reconciler) View() (View, error) {
	snap := r.store.Load()
	presence, err := r.Scan()
	if err != nil {
		return View{}, err
	}
	view := Merge(snap, presence)
	r.logger.Debug("reconciled catalog",
		logging.Int("entries", len(view.Entries)),
		logging.Int("stored", len(snap.Entities)),
		logging.Int("images", len(presence.Images)),
		logging.Int("stubs", len(presence.Stubs)),
		logging.String("status", string(snap.Status)))
	return view, nil
}

// Merge builds a View from an already loaded snapshot and presence scan.
func Merge(snap catalog.Snapshot, presence Presence) View {
	stored := entityid.KeysOf(snap.Entities)
	ids := BuildUniverse(stored, presence.Images, presence.Stubs)
	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		var rec *catalog.Record
		if r, ok := snap.Entities[id]; ok {
			rec = &r
		}
		entries = append(entries, MergeRecord(id, rec, presence.Images.Has(id), presence.Stubs.Has(id), presence.URLs.Has(id)))
	}
	view := View{
		Entries:       entries,
		Revision:      snap.Revision,
		Status:        snap.Status,
		SchemaVersion: snap.SchemaVersion,
		Snapshot:      snap,
	}
	if snap.Err != nil {
		view.StoreError = snap.Err.Error()
	}
	return view
}
