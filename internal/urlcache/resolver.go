package urlcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"comicadmin/internal/entityid"
	"comicadmin/internal/logging"
	"comicadmin/internal/services"
)

// Extensions is the probe order for candidate files.
var Extensions = []string{"png", "jpg", "gif", "jpeg", "webp"}

// Prober reports whether a candidate URL exists.
type Prober interface {
	Probe(ctx context.Context, url string) (bool, error)
}

// Store is the part of Cache the resolver needs.
type Store interface {
	Lookup(id, key string) (string, bool, error)
	Set(id, key, value string) error
}

// Result describes one resolution.
type Result struct {
	URL       string `json:"url,omitempty"`
	Found     bool   `json:"found"`
	FromCache bool   `json:"from_cache"`
	// PersistErr is set when the URL was found but could not be cached.
	PersistErr error `json:"-"`
}

// Resolver finds external original URLs by probing candidate extensions and
// memoizes hits in the cache. Misses are never cached.
type Resolver struct {
	store   Store
	prober  Prober
	now     func() time.Time
	timeout time.Duration
	group   singleflight.Group
	logger  *slog.Logger
}

// DefaultResolveTimeout bounds one shared probe run.
const DefaultResolveTimeout = time.Minute

// Option customizes a Resolver.
type Option func(*Resolver)

// WithClock sets the clock used for cache-busting suffixes.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithResolveTimeout bounds a probe run shared by coalesced callers.
func WithResolveTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewResolver builds a resolver.
func NewResolver(store Store, prober Prober, logger *slog.Logger, opts ...Option) *Resolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Resolver{
		store:   store,
		prober:  prober,
		now:     time.Now,
		timeout: DefaultResolveTimeout,
		logger:  logging.NewComponentLogger(logger, "urlcache"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the URL for (id, key) and whether one was found.
func (r *Resolver) Resolve(ctx context.Context, id, stem, baseURL, key string) (string, bool, error) {
	res, err := r.ResolveResult(ctx, id, stem, baseURL, key)
	return res.URL, res.Found, err
}

// ResolveResult is Resolve with the full outcome. Concurrent calls for the
// same candidate share one probe run.
func (r *Resolver) ResolveResult(ctx context.Context, id, stem, baseURL, key string) (Result, error) {
	if !entityid.Valid(id) {
		return Result{}, services.Wrap(services.ErrValidation, "urlcache", "resolve", fmt.Sprintf("invalid id %q", id), nil)
	}
	if !ValidKey(key) {
		return Result{}, ErrUnknownKey
	}
	stem = strings.TrimSpace(stem)
	if stem == "" {
		return Result{}, services.Wrap(services.ErrValidation, "urlcache", "resolve", "no original file name to resolve", nil)
	}
	base := baseURL + stem

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	// The shared run outlives any single caller; each caller stops waiting
	// when its own context ends.
	ch := r.group.DoChan(id+"\x00"+key+"\x00"+base, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.resolve(shared, id, base, key)
	})
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Result{}, res.Err
		}
		return res.Val.(Result), nil
	}
}

func (r *Resolver) resolve(ctx context.Context, id, base, key string) (Result, error) {
	logger := logging.WithContext(ctx, r.logger).With(logging.String(logging.FieldEntityID, id), logging.String("key", key))

	cached, ok, err := r.store.Lookup(id, key)
	if err != nil {
		logger.Warn("url cache unreadable",
			logging.String(logging.FieldEventType, "url_cache_read_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the url cache file"),
			logging.String(logging.FieldImpact, "urls are probed again"))
	} else if ok && stripVariant(cached) == base {
		return Result{URL: cached, Found: true, FromCache: true}, nil
	}

	for _, ext := range Extensions {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		candidate := base + "." + ext
		exists, err := r.prober.Probe(ctx, candidate)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, ctxErr
			}
			logger.Debug("probe failed", logging.String("url", candidate), logging.Error(err))
			continue
		}
		logger.Debug("probed candidate", logging.String("url", candidate), logging.Bool("exists", exists))
		if !exists {
			continue
		}

		url := candidate + r.suffix()
		res := Result{URL: url, Found: true}
		if err := r.store.Set(id, key, url); err != nil {
			res.PersistErr = err
			logger.Warn("resolved url not cached",
				logging.String(logging.FieldEventType, "url_cache_write_failed"),
				logging.String("url", url),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on the url cache file"),
				logging.String(logging.FieldImpact, "the url will be probed again next time"))
		} else {
			logger.Debug("cached resolved url", logging.String("url", url))
		}
		return res, nil
	}
	logger.Debug("no candidate found", logging.String("base", base))
	return Result{}, nil
}

// Update stores url under (id, key) with a fresh cache-busting suffix,
// replacing any query it carried, and returns the stored value.
func (r *Resolver) Update(id, key, url string) (string, error) {
	url = strings.TrimSpace(url)
	if i := strings.IndexByte(url, '?'); i >= 0 {
		url = url[:i]
	}
	if url == "" {
		return "", services.Wrap(services.ErrValidation, "urlcache", "update", "empty url", nil)
	}
	value := url + r.suffix()
	if err := r.store.Set(id, key, value); err != nil {
		if errors.Is(err, services.ErrValidation) {
			return "", err
		}
		return "", services.Wrap(services.ErrStorage, "urlcache", "update", "persist url", err)
	}
	return value, nil
}

func (r *Resolver) suffix() string {
	return "?c=" + r.now().UTC().Format("20060102")
}

// stripVariant drops the query and the file extension from a cached URL so it
// can be compared against a probe base.
func stripVariant(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}
	slash := strings.LastIndexByte(u, '/')
	if ext := path.Ext(u[slash+1:]); ext != "" {
		u = strings.TrimSuffix(u, ext)
	}
	return u
}
