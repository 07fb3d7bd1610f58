package api

import (
	"comicadmin/internal/artifact"
	"comicadmin/internal/reconcile"
	"comicadmin/internal/urlcache"
)

// SaveResponse reports a completed save.
type SaveResponse struct {
	Revision string          `json:"revision"`
	Message  string          `json:"message"`
	Delta    reconcile.Delta `json:"delta"`
	Stubs    artifact.Result `json:"stubs"`
}

// ResolveResponse reports one URL resolution.
type ResolveResponse struct {
	ID           string `json:"id"`
	Key          string `json:"key"`
	URL          string `json:"url,omitempty"`
	Found        bool   `json:"found"`
	FromCache    bool   `json:"from_cache"`
	PersistError string `json:"persist_error,omitempty"`
}

// URLCacheUpdate is the POST /api/url-cache body.
type URLCacheUpdate struct {
	ID  string `json:"id"`
	URL string `json:"url"`
	Key string `json:"key"`
}

// URLCacheEntry is a page's cached URLs.
type URLCacheEntry struct {
	ID      string         `json:"id"`
	Entries urlcache.Entry `json:"urls"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}
