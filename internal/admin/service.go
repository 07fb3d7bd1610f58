package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"comicadmin/internal/artifact"
	"comicadmin/internal/catalog"
	"comicadmin/internal/entityid"
	"comicadmin/internal/logging"
	"comicadmin/internal/reconcile"
	"comicadmin/internal/services"
	"comicadmin/internal/settings"
	"comicadmin/internal/urlcache"
)

// BaseURLs are the external hosts originals are probed on.
type BaseURLs struct {
	Original string
	Sketch   string
}

// ComicCatalog is the comic store as the service uses it.
type ComicCatalog interface {
	Load() catalog.Snapshot
	Commit(entities map[string]catalog.Record, expectedRevision string) (string, error)
	Path() string
}

// Deps are the collaborators a Service is built from.
type Deps struct {
	Comics     ComicCatalog
	Characters *catalog.CharacterStore
	URLCache   *urlcache.Cache
	Resolver   *urlcache.Resolver
	Settings   *settings.Repository
	Stubs      *artifact.Synchronizer
	Reconciler *reconcile.Reconciler
	BaseURLs   BaseURLs
}

// Service implements the admin operations.
type Service struct {
	comics     ComicCatalog
	characters *catalog.CharacterStore
	cache      *urlcache.Cache
	resolver   *urlcache.Resolver
	settings   *settings.Repository
	stubs      *artifact.Synchronizer
	reconciler *reconcile.Reconciler
	bases      BaseURLs
	logger     *slog.Logger

	// saveMu serializes saves within the process; the revision check covers
	// other processes.
	saveMu sync.Mutex
}

// NewService wires a service from deps.
func NewService(deps Deps, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		comics:     deps.Comics,
		characters: deps.Characters,
		cache:      deps.URLCache,
		resolver:   deps.Resolver,
		settings:   deps.Settings,
		stubs:      deps.Stubs,
		reconciler: deps.Reconciler,
		bases:      deps.BaseURLs,
		logger:     logging.NewComponentLogger(logger, "admin"),
	}
}

// View returns the reconciled catalog.
func (s *Service) View(ctx context.Context) (reconcile.View, error) {
	view, err := s.reconciler.View()
	if err != nil {
		return reconcile.View{}, services.Wrap(services.ErrStorage, "admin", "view", "reconcile catalog", err)
	}
	if view.Snapshot.Err != nil {
		logging.WithContext(ctx, s.logger).Debug("serving defaults for unusable catalog",
			logging.String("status", string(view.Status)))
	}
	return view, nil
}

// Entry returns one merged page.
func (s *Service) Entry(ctx context.Context, id string) (reconcile.Entry, error) {
	if !entityid.Valid(id) {
		return reconcile.Entry{}, services.Wrap(services.ErrValidation, "admin", "entry", fmt.Sprintf("invalid id %q", id), nil)
	}
	view, err := s.View(ctx)
	if err != nil {
		return reconcile.Entry{}, err
	}
	entry, ok := view.Lookup(id)
	if !ok {
		return reconcile.Entry{}, services.Wrap(services.ErrNotFound, "admin", "entry", fmt.Sprintf("page %s not found", id), nil)
	}
	return entry, nil
}

// Plan is the outcome of a dry-run save.
type Plan struct {
	Delta    reconcile.Delta `json:"delta"`
	Revision string          `json:"revision"`
	Status   catalog.Status  `json:"status"`
	Stale    bool            `json:"stale"`
}

// PlanSave diffs a submission against the stored catalog without touching
// anything.
func (s *Service) PlanSave(ctx context.Context, sub Submission) (Plan, error) {
	if err := ValidateEntities(sub.Comics); err != nil {
		return Plan{}, err
	}
	snap := s.comics.Load()
	return Plan{
		Delta:    reconcile.Diff(entityid.KeysOf(snap.Entities), entityid.KeysOf(sub.Comics)),
		Revision: snap.Revision,
		Status:   snap.Status,
		Stale:    sub.Revision != "" && sub.Revision != snap.Revision,
	}, nil
}

// SaveReport describes a completed save.
type SaveReport struct {
	Delta    reconcile.Delta `json:"delta"`
	Stubs    artifact.Result `json:"stubs"`
	Revision string          `json:"revision"`
	Message  string          `json:"message"`
}

// SaveData replaces the comic catalog with sub. Stub files for added pages
// are created and those of removed pages deleted before the catalog is
// written; a failed write rolls the stub changes back.
func (s *Service) SaveData(ctx context.Context, sub Submission) (SaveReport, error) {
	logger := logging.WithContext(ctx, s.logger)
	if err := ValidateEntities(sub.Comics); err != nil {
		return SaveReport{}, err
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	snap := s.comics.Load()
	if !snap.Status.Writable() {
		return SaveReport{}, services.Wrap(services.ErrStorage, "admin", "save_data",
			fmt.Sprintf("catalog is %s; fix %s by hand before saving", snap.Status, s.comics.Path()), snap.Err)
	}
	if sub.Revision == "" {
		logger.Info("save without revision; staleness check skipped",
			logging.String(logging.FieldEventType, "save_unversioned"))
	} else if sub.Revision != snap.Revision {
		return SaveReport{}, catalog.ErrRevisionMismatch
	}

	delta := reconcile.Diff(entityid.KeysOf(snap.Entities), entityid.KeysOf(sub.Comics))
	txn, stubs := s.stubs.Apply(delta.Created, delta.Deleted)

	revision, err := s.comics.Commit(sub.Comics, snap.Revision)
	if err != nil {
		if rbErr := txn.Rollback(); rbErr != nil {
			err = errors.Join(err, rbErr)
		}
		logging.ErrorWithContext(logger, "catalog commit failed; stub changes rolled back", "save_failed",
			logging.String("txn", txn.ID()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the catalog file and retry the save"))
		return SaveReport{}, err
	}
	if err := txn.Commit(); err != nil {
		logger.Warn("stub backups not removed",
			logging.String(logging.FieldEventType, "stub_backup_cleanup_failed"),
			logging.String("txn", txn.ID()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete hidden .bak files in the stub directory"),
			logging.String(logging.FieldImpact, "none for readers; stale backups remain on disk"))
	}

	if stubs.Failed > 0 {
		logging.WarnWithContext(logger, "some stubs could not be synced", "stub_sync_partial",
			logging.Strings("failed_ids", stubs.FailedIDs),
			logging.String(logging.FieldErrorHint, "check permissions on the stub directory and save again"),
			logging.String(logging.FieldImpact, "affected pages are saved but their stub state is unchanged"))
	}

	report := SaveReport{
		Delta:    delta,
		Stubs:    stubs,
		Revision: revision,
		Message:  saveMessage(len(sub.Comics), stubs),
	}
	logger.Info("catalog saved",
		logging.String(logging.FieldEventType, "save_completed"),
		logging.Int("entities", len(sub.Comics)),
		logging.Int("created", len(delta.Created)),
		logging.Int("deleted", len(delta.Deleted)),
		logging.Int("stubs_failed", stubs.Failed))
	return report, nil
}

func saveMessage(total int, res artifact.Result) string {
	msg := fmt.Sprintf("Saved %d pages. Stubs: %d created, %d deleted", total, res.Created, res.Deleted)
	if res.Skipped > 0 {
		msg += fmt.Sprintf(", %d already present", res.Skipped)
	}
	if res.Failed > 0 {
		msg += fmt.Sprintf(", %d failed", res.Failed)
	}
	return msg + "."
}

// MigrateComics rewrites a legacy comic catalog in the current schema and
// reports whether it did.
func (s *Service) MigrateComics(ctx context.Context) (bool, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	snap := s.comics.Load()
	if !snap.Status.Writable() {
		return false, services.Wrap(services.ErrStorage, "admin", "migrate",
			fmt.Sprintf("catalog is %s", snap.Status), snap.Err)
	}
	if snap.SchemaVersion >= catalog.CurrentSchemaVersion {
		return false, nil
	}
	if _, err := s.comics.Commit(snap.Entities, snap.Revision); err != nil {
		return false, err
	}
	logging.WithContext(ctx, s.logger).Info("migrated comic catalog",
		logging.String(logging.FieldEventType, "catalog_migrated"),
		logging.Int("from_version", snap.SchemaVersion),
		logging.Int("entities", len(snap.Entities)))
	return true, nil
}

// MigrateCharacters rewrites a legacy character catalog.
func (s *Service) MigrateCharacters() (bool, error) {
	return s.characters.Migrate()
}

// Characters returns the character catalog; a legacy document surfaces as
// catalog.ErrLegacySchema.
func (s *Service) Characters() (catalog.CharacterCatalog, error) {
	return s.characters.Load()
}

// CachedURLs returns the URL cache entry for id.
func (s *Service) CachedURLs(id string) (urlcache.Entry, error) {
	if !entityid.Valid(id) {
		return urlcache.Entry{}, services.Wrap(services.ErrValidation, "admin", "url_cache", fmt.Sprintf("invalid id %q", id), nil)
	}
	entry, ok, err := s.cache.Entry(id)
	if err != nil {
		return urlcache.Entry{}, services.Wrap(services.ErrStorage, "admin", "url_cache", "read url cache", err)
	}
	if !ok {
		return urlcache.Entry{}, services.Wrap(services.ErrNotFound, "admin", "url_cache", fmt.Sprintf("no cached urls for %s", id), nil)
	}
	return entry, nil
}

// UpdateExternalURLCache stores url under (id, key) and returns the stored
// value with its cache-busting suffix.
func (s *Service) UpdateExternalURLCache(ctx context.Context, id, url, key string) (string, error) {
	stored, err := s.resolver.Update(id, key, url)
	if err != nil {
		return "", err
	}
	logging.WithContext(ctx, s.logger).Info("url cache updated",
		logging.String(logging.FieldEventType, "url_cache_updated"),
		logging.String(logging.FieldEntityID, id),
		logging.String("key", key))
	return stored, nil
}

// ResolveURL probes for the external original of a page. key selects the
// image or the sketch.
func (s *Service) ResolveURL(ctx context.Context, id, key string) (urlcache.Result, error) {
	entry, err := s.Entry(ctx, id)
	if err != nil {
		return urlcache.Result{}, err
	}
	var stem, base string
	switch key {
	case urlcache.KeyOriginalImage:
		stem, base = entry.Record.URLOriginalBild, s.bases.Original
	case urlcache.KeyOriginalSketch:
		stem, base = entry.Record.URLOriginalSketch, s.bases.Sketch
	default:
		return urlcache.Result{}, services.Wrap(services.ErrValidation, "admin", "resolve",
			fmt.Sprintf("key %q is not resolved by probing", key), nil)
	}
	ctx = services.WithEntityID(ctx, id)
	return s.resolver.ResolveResult(ctx, id, stem, base, key)
}

// Settings returns a user's preferences.
func (s *Service) Settings(userID string) (settings.Settings, error) {
	return s.settings.Get(userID)
}

// PutSettings stores a user's preferences.
func (s *Service) PutSettings(userID string, value settings.Settings) error {
	return s.settings.Put(userID, value)
}

// StatusReport summarizes the catalog and the site.
type StatusReport struct {
	ComicsPath    string         `json:"comics_path"`
	Status        catalog.Status `json:"status"`
	StoreError    string         `json:"store_error,omitempty"`
	SchemaVersion int            `json:"schema_version"`
	Revision      string         `json:"revision"`
	Entries       int            `json:"entries"`
	Stored        int            `json:"stored"`
	Images        int            `json:"images"`
	Stubs         int            `json:"stubs"`
	Originals     int            `json:"originals"`
}

// Status builds a StatusReport.
func (s *Service) Status(ctx context.Context) (StatusReport, error) {
	view, err := s.View(ctx)
	if err != nil {
		return StatusReport{}, err
	}
	report := StatusReport{
		ComicsPath:    s.comics.Path(),
		Status:        view.Status,
		StoreError:    view.StoreError,
		SchemaVersion: view.SchemaVersion,
		Revision:      view.Revision,
		Entries:       len(view.Entries),
	}
	for _, e := range view.Entries {
		if e.HasSource(catalog.SourceJSON) {
			report.Stored++
		}
		if e.HasSource(catalog.SourceImage) {
			report.Images++
		}
		if e.HasSource(catalog.SourceStub) {
			report.Stubs++
		}
		if e.HasSource(catalog.SourceURL) {
			report.Originals++
		}
	}
	return report, nil
}
