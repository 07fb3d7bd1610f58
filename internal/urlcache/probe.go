package urlcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"golang.org/x/time/rate"
)

// HTTPOptions configures an HTTPProber.
type HTTPOptions struct {
	Timeout       time.Duration
	RatePerSecond float64
	UserAgent     string
	// Client overrides the HTTP client; Timeout is ignored when set.
	Client *http.Client
}

// HTTPProber checks candidates with HEAD requests, falling back to a ranged
// GET for servers that refuse HEAD.
type HTTPProber struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewHTTPProber builds a prober. A zero rate disables limiting.
func NewHTTPProber(opts HTTPOptions) *HTTPProber {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	return &HTTPProber{
		client:    client,
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: strings.TrimSpace(opts.UserAgent),
	}
}

// Probe reports whether url answers with a success status.
func (p *HTTPProber) Probe(ctx context.Context, url string) (bool, error) {
	status, err := p.do(ctx, http.MethodHead, url)
	if err != nil {
		return false, err
	}
	if status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented {
		status, err = p.do(ctx, http.MethodGet, url)
		if err != nil {
			return false, err
		}
	}
	switch {
	case status >= 200 && status < 300:
		return true, nil
	case status >= 500:
		return false, fmt.Errorf("probe %s: server returned %d", url, status)
	default:
		return false, nil
	}
}

func (p *HTTPProber) do(ctx context.Context, method, url string) (int, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build probe request: %w", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, nil
}

// FSProber checks candidates against a filesystem. Candidates must start with
// prefix, which is stripped to get the path inside fsys.
type FSProber struct {
	fs     billy.Filesystem
	prefix string
}

// NewFSProber builds a filesystem prober.
func NewFSProber(fsys billy.Filesystem, prefix string) *FSProber {
	return &FSProber{fs: fsys, prefix: prefix}
}

// Probe reports whether the candidate names a regular file.
func (p *FSProber) Probe(ctx context.Context, url string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !strings.HasPrefix(url, p.prefix) {
		return false, nil
	}
	name := strings.TrimPrefix(strings.TrimPrefix(url, p.prefix), "/")
	info, err := p.fs.Stat(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}
