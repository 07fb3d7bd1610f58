package admin

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"comicadmin/internal/artifact"
	"comicadmin/internal/catalog"
	"comicadmin/internal/config"
	"comicadmin/internal/reconcile"
	"comicadmin/internal/settings"
	"comicadmin/internal/urlcache"
)

// Option adjusts how New wires a Service.
type Option func(*options)

type options struct {
	site   billy.Filesystem
	prober urlcache.Prober
	clock  func() time.Time
	comics func(ComicCatalog) ComicCatalog
}

// WithSite replaces the on-disk site filesystem.
func WithSite(site billy.Filesystem) Option {
	return func(o *options) { o.site = site }
}

// WithProber replaces the HTTP prober.
func WithProber(p urlcache.Prober) Option {
	return func(o *options) { o.prober = p }
}

// WithClock sets the clock used for URL cache suffixes.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// WithComicCatalog wraps the on-disk comic store, e.g. to observe or fail
// commits.
func WithComicCatalog(wrap func(ComicCatalog) ComicCatalog) Option {
	return func(o *options) { o.comics = wrap }
}

// New builds a Service from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("admin: config is required")
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.site == nil {
		o.site = osfs.New(cfg.Paths.SiteRoot)
	}
	if o.prober == nil {
		o.prober = urlcache.NewHTTPProber(urlcache.HTTPOptions{
			Timeout:       time.Duration(cfg.External.ProbeTimeoutSeconds) * time.Second,
			RatePerSecond: cfg.External.ProbeRatePerSecond,
			UserAgent:     cfg.External.UserAgent,
		})
	}

	stubs, err := artifact.NewSynchronizer(o.site, artifact.Options{
		StubDir:   cfg.Assets.StubDir,
		Extension: cfg.Assets.StubExtension,
		Renderer:  cfg.Assets.Renderer,
		Template:  cfg.Assets.StubTemplate,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("stub synchronizer: %w", err)
	}

	var comics ComicCatalog = catalog.NewComicStore(cfg.ComicsPath(), logger)
	if o.comics != nil {
		comics = o.comics(comics)
	}
	cache := urlcache.NewCache(cfg.URLCachePath(), logger)
	probeTimeout := time.Duration(cfg.External.ProbeTimeoutSeconds) * time.Second
	resolverOpts := []urlcache.Option{
		urlcache.WithResolveTimeout(probeTimeout * time.Duration(len(urlcache.Extensions))),
	}
	if o.clock != nil {
		resolverOpts = append(resolverOpts, urlcache.WithClock(o.clock))
	}
	layout := reconcile.Layout{
		ImageDirs:       cfg.Assets.ImageDirs,
		ImageExtensions: cfg.Assets.ImageExtensions,
		StubDir:         cfg.Assets.StubDir,
		StubExtension:   cfg.Assets.StubExtension,
	}

	return NewService(Deps{
		Comics:     comics,
		Characters: catalog.NewCharacterStore(cfg.CharactersPath(), logger),
		URLCache:   cache,
		Resolver:   urlcache.NewResolver(cache, o.prober, logger, resolverOpts...),
		Settings:   settings.NewRepository(cfg.SettingsPath(), logger),
		Stubs:      stubs,
		Reconciler: reconcile.NewReconciler(comics, o.site, layout, cache, logger),
		BaseURLs: BaseURLs{
			Original: cfg.External.OriginalBaseURL,
			Sketch:   cfg.External.SketchBaseURL,
		},
	}, logger), nil
}
