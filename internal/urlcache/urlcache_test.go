package urlcache

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"comicadmin/internal/services"
)

var fixedNow = func() time.Time { return time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC) }

type fakeProber struct {
	mu     sync.Mutex
	exists map[string]bool
	calls  []string
}

func (f *fakeProber) Probe(_ context.Context, url string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	return f.exists[url], nil
}

type failingStore struct{}

func (failingStore) Lookup(string, string) (string, bool, error) { return "", false, nil }
func (failingStore) Set(string, string, string) error            { return errors.New("disk full") }

func newCache(t *testing.T) *Cache {
	t.Helper()
	return NewCache(filepath.Join(t.TempDir(), "comic_url_cache.json"), nil)
}

const base = "https://cdn.example.com/comics/"

func TestResolveProbesInFixedOrder(t *testing.T) {
	prober := &fakeProber{exists: map[string]bool{
		base + "abc.jpg":  true,
		base + "abc.webp": true,
	}}
	cache := newCache(t)
	r := NewResolver(cache, prober, nil, WithClock(fixedNow))

	url, found, err := r.Resolve(context.Background(), "20240101", "abc", base, KeyOriginalImage)
	if err != nil || !found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if url != base+"abc.jpg?c=20240309" {
		t.Fatalf("url = %q", url)
	}
	if want := []string{base + "abc.png", base + "abc.jpg"}; !slices.Equal(prober.calls, want) {
		t.Fatalf("calls = %v, want %v", prober.calls, want)
	}
	cached, ok, err := cache.Lookup("20240101", KeyOriginalImage)
	if err != nil || !ok || cached != url {
		t.Fatalf("cached = %q ok=%v err=%v", cached, ok, err)
	}
}

func TestResolveCacheHitShortCircuits(t *testing.T) {
	cache := newCache(t)
	if err := cache.Set("20240101", KeyOriginalImage, base+"abc.gif?c=20200101"); err != nil {
		t.Fatal(err)
	}
	prober := &fakeProber{}
	r := NewResolver(cache, prober, nil, WithClock(fixedNow))

	res, err := r.ResolveResult(context.Background(), "20240101", "abc", base, KeyOriginalImage)
	if err != nil {
		t.Fatal(err)
	}
	if !res.FromCache || res.URL != base+"abc.gif?c=20200101" {
		t.Fatalf("result = %+v", res)
	}
	if len(prober.calls) != 0 {
		t.Fatalf("prober called: %v", prober.calls)
	}
}

func TestResolveStaleCacheEntryIsReprobed(t *testing.T) {
	cache := newCache(t)
	if err := cache.Set("20240101", KeyOriginalImage, base+"old.png?c=20200101"); err != nil {
		t.Fatal(err)
	}
	prober := &fakeProber{exists: map[string]bool{base + "new.png": true}}
	r := NewResolver(cache, prober, nil, WithClock(fixedNow))

	url, found, err := r.Resolve(context.Background(), "20240101", "new", base, KeyOriginalImage)
	if err != nil || !found || url != base+"new.png?c=20240309" {
		t.Fatalf("url=%q found=%v err=%v", url, found, err)
	}
}

func TestResolveMissIsNotCached(t *testing.T) {
	cache := newCache(t)
	prober := &fakeProber{}
	r := NewResolver(cache, prober, nil, WithClock(fixedNow))

	_, found, err := r.Resolve(context.Background(), "20240101", "abc", base, KeyOriginalSketch)
	if err != nil || found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if len(prober.calls) != len(Extensions) {
		t.Fatalf("expected every extension probed, got %v", prober.calls)
	}
	if _, err := os.Stat(cache.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("negative result was written (err=%v)", err)
	}
}

func TestResolvePersistFailureStillReturnsURL(t *testing.T) {
	prober := &fakeProber{exists: map[string]bool{base + "abc.png": true}}
	r := NewResolver(failingStore{}, prober, nil, WithClock(fixedNow))

	res, err := r.ResolveResult(context.Background(), "20240101", "abc", base, KeyOriginalImage)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Found || res.URL != base+"abc.png?c=20240309" || res.PersistErr == nil {
		t.Fatalf("result = %+v", res)
	}
}

func TestResolveValidatesInput(t *testing.T) {
	r := NewResolver(newCache(t), &fakeProber{}, nil)
	if _, _, err := r.Resolve(context.Background(), "2024", "abc", base, KeyOriginalImage); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("bad id: %v", err)
	}
	if _, _, err := r.Resolve(context.Background(), "20240101", "abc", base, "bogus"); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("bad key: %v", err)
	}
	if _, _, err := r.Resolve(context.Background(), "20240101", " ", base, KeyOriginalImage); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("empty stem: %v", err)
	}
}

func TestResolveHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewResolver(newCache(t), &fakeProber{}, nil)
	if _, _, err := r.Resolve(ctx, "20240101", "abc", base, KeyOriginalImage); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

type blockingProber struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *blockingProber) Probe(ctx context.Context, url string) (bool, error) {
	p.once.Do(func() { close(p.started) })
	select {
	case <-p.release:
		return strings.HasSuffix(url, ".png"), nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func TestResolveSharedRunSurvivesFirstCallerCancel(t *testing.T) {
	prober := &blockingProber{started: make(chan struct{}), release: make(chan struct{})}
	r := NewResolver(newCache(t), prober, nil, WithClock(fixedNow))

	type outcome struct {
		res Result
		err error
	}
	first := make(chan outcome, 1)
	second := make(chan outcome, 1)

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	go func() {
		res, err := r.ResolveResult(ctxA, "20240101", "abc", base, KeyOriginalImage)
		first <- outcome{res, err}
	}()
	<-prober.started

	go func() {
		res, err := r.ResolveResult(context.Background(), "20240101", "abc", base, KeyOriginalImage)
		second <- outcome{res, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	a := <-first
	if !errors.Is(a.err, context.Canceled) {
		t.Fatalf("first caller: expected cancellation, got %+v", a)
	}

	close(prober.release)
	b := <-second
	if b.err != nil || !b.res.Found {
		t.Fatalf("second caller: found=%v err=%v", b.res.Found, b.err)
	}
	if b.res.URL != base+"abc.png?c=20240309" {
		t.Fatalf("second caller url = %q", b.res.URL)
	}
}

func TestUpdateReplacesQuery(t *testing.T) {
	cache := newCache(t)
	r := NewResolver(cache, &fakeProber{}, nil, WithClock(fixedNow))

	stored, err := r.Update("20240101", KeyHires, "https://example.com/a.png?c=19990101")
	if err != nil {
		t.Fatal(err)
	}
	if stored != "https://example.com/a.png?c=20240309" {
		t.Fatalf("stored = %q", stored)
	}
	if _, err := r.Update("20240101", "nope", "https://example.com/a.png"); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("expected unknown key, got %v", err)
	}
	entry, ok, err := cache.Entry("20240101")
	if err != nil || !ok || entry.Hires != stored {
		t.Fatalf("entry = %+v ok=%v err=%v", entry, ok, err)
	}
}

func TestCacheToleratesPHPEmptyArrayAndReplacesMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	cache := NewCache(path, nil)
	if doc, err := cache.Load(); err != nil || len(doc) != 0 {
		t.Fatalf("doc=%v err=%v", doc, err)
	}

	if err := os.WriteFile(path, []byte("{oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Load(); err == nil {
		t.Fatal("expected decode error")
	}
	if err := cache.Set("20240101", KeyOriginalImage, base+"x.png"); err != nil {
		t.Fatal(err)
	}
	ids, err := cache.CachedOriginals()
	if err != nil || !ids.Has("20240101") {
		t.Fatalf("ids=%v err=%v", ids, err)
	}
}

func TestHTTPProber(t *testing.T) {
	var userAgents []string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		userAgents = append(userAgents, r.UserAgent())
		mu.Unlock()
		switch {
		case strings.HasSuffix(r.URL.Path, "/ok.png"):
			w.WriteHeader(http.StatusOK)
		case strings.HasSuffix(r.URL.Path, "/gets.png"):
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			w.WriteHeader(http.StatusPartialContent)
		case strings.HasSuffix(r.URL.Path, "/broken.png"):
			w.WriteHeader(http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewHTTPProber(HTTPOptions{Timeout: time.Second, UserAgent: "comicadmin-test"})
	ctx := context.Background()
	if ok, err := p.Probe(ctx, srv.URL+"/ok.png"); !ok || err != nil {
		t.Fatalf("ok.png: %v %v", ok, err)
	}
	if ok, err := p.Probe(ctx, srv.URL+"/gets.png"); !ok || err != nil {
		t.Fatalf("gets.png: %v %v", ok, err)
	}
	if ok, err := p.Probe(ctx, srv.URL+"/missing.png"); ok || err != nil {
		t.Fatalf("missing.png: %v %v", ok, err)
	}
	if _, err := p.Probe(ctx, srv.URL+"/broken.png"); err == nil {
		t.Fatal("expected error for 5xx")
	}
	mu.Lock()
	defer mu.Unlock()
	for _, ua := range userAgents {
		if ua != "comicadmin-test" {
			t.Fatalf("user agent = %q", ua)
		}
	}
}

func TestFSProberWithResolver(t *testing.T) {
	site := memfs.New()
	if err := util.WriteFile(site, "originals/abc.gif", []byte("GIF89a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := site.MkdirAll("originals/abc.png", 0o755); err != nil {
		t.Fatal(err)
	}
	r := NewResolver(newCache(t), NewFSProber(site, "file://"), nil, WithClock(fixedNow))

	url, found, err := r.Resolve(context.Background(), "20240101", "abc", "file://originals/", KeyOriginalImage)
	if err != nil || !found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if url != "file://originals/abc.gif?c=20240309" {
		t.Fatalf("url = %q", url)
	}
}
