package testsupport

import (
	"context"
	"sync"
)

// Prober is a urlcache.Prober answering from a fixed set of URLs and
// recording every call.
type Prober struct {
	mu     sync.Mutex
	exists map[string]bool
	calls  []string
}

// NewProber returns a prober that reports the given URLs as present.
func NewProber(urls ...string) *Prober {
	p := &Prober{exists: make(map[string]bool, len(urls))}
	for _, u := range urls {
		p.exists[u] = true
	}
	return p
}

// Probe implements urlcache.Prober.
func (p *Prober) Probe(ctx context.Context, url string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, url)
	return p.exists[url], nil
}

// Calls returns the probed URLs in order.
func (p *Prober) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}
