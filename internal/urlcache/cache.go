package urlcache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"comicadmin/internal/entityid"
	"comicadmin/internal/jsonstore"
	"comicadmin/internal/logging"
	"comicadmin/internal/services"
)

// Cache keys. The first four are the site's own resolutions; the last two are
// external originals resolved by probing.
const (
	KeyLowres         = "lowres"
	KeyHires          = "hires"
	KeyThumbnails     = "thumbnails"
	KeySocialMedia    = "socialmedia"
	KeyOriginalImage  = "url_originalbild"
	KeyOriginalSketch = "url_originalsketch"
)

// ErrUnknownKey is returned for a key outside the fixed key set.
var ErrUnknownKey = fmt.Errorf("%w: unknown url cache key", services.ErrValidation)

// Keys lists every valid key.
func Keys() []string {
	return []string{KeyLowres, KeyHires, KeyThumbnails, KeySocialMedia, KeyOriginalImage, KeyOriginalSketch}
}

// ValidKey reports whether key belongs to the fixed key set.
func ValidKey(key string) bool {
	for _, k := range Keys() {
		if k == key {
			return true
		}
	}
	return false
}

// Entry holds the cached URLs of one page.
type Entry struct {
	Lowres         string `json:"lowres,omitempty"`
	Hires          string `json:"hires,omitempty"`
	Thumbnails     string `json:"thumbnails,omitempty"`
	SocialMedia    string `json:"socialmedia,omitempty"`
	OriginalImage  string `json:"url_originalbild,omitempty"`
	OriginalSketch string `json:"url_originalsketch,omitempty"`
}

// Get returns the value stored under key.
func (e Entry) Get(key string) (string, bool) {
	p := e.field(key)
	if p == nil || *p == "" {
		return "", false
	}
	return *p, true
}

// With returns a copy of e with key set to value.
func (e Entry) With(key, value string) Entry {
	if p := e.field(key); p != nil {
		*p = value
	}
	return e
}

func (e *Entry) field(key string) *string {
	switch key {
	case KeyLowres:
		return &e.Lowres
	case KeyHires:
		return &e.Hires
	case KeyThumbnails:
		return &e.Thumbnails
	case KeySocialMedia:
		return &e.SocialMedia
	case KeyOriginalImage:
		return &e.OriginalImage
	case KeyOriginalSketch:
		return &e.OriginalSketch
	}
	return nil
}

// Document is the whole cache file.
type Document map[string]Entry

// Decode parses the cache document. Empty input and an empty JSON array both
// yield an empty document.
func Decode(data []byte) (Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("[]")) || bytes.Equal(trimmed, []byte("null")) {
		return Document{}, nil
	}
	var doc Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("decode url cache: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// Cache is the URL cache file.
type Cache struct {
	file   *jsonstore.File
	logger *slog.Logger
}

// NewCache returns a cache backed by the file at path.
func NewCache(path string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Cache{
		file:   jsonstore.Open(path),
		logger: logging.NewComponentLogger(logger, "urlcache"),
	}
}

// Path returns the cache file location.
func (c *Cache) Path() string {
	return c.file.Path()
}

// Load reads the whole document. A missing file is an empty document.
func (c *Cache) Load() (Document, error) {
	data, err := c.file.Read()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Document{}, nil
		}
		return nil, fmt.Errorf("read url cache: %w", err)
	}
	return Decode(data)
}

// Entry returns the cached entry for id.
func (c *Cache) Entry(id string) (Entry, bool, error) {
	doc, err := c.Load()
	if err != nil {
		return Entry{}, false, err
	}
	e, ok := doc[id]
	return e, ok, nil
}

// Lookup returns the value cached under (id, key).
func (c *Cache) Lookup(id, key string) (string, bool, error) {
	if !ValidKey(key) {
		return "", false, ErrUnknownKey
	}
	e, _, err := c.Entry(id)
	if err != nil {
		return "", false, err
	}
	value, ok := e.Get(key)
	return value, ok, nil
}

// Set stores value under (id, key) with a locked read-modify-write of the
// whole document. A malformed document is replaced, since every value in it
// can be probed again.
func (c *Cache) Set(id, key, value string) error {
	if !entityid.Valid(id) {
		return services.Wrap(services.ErrValidation, "urlcache", "set", fmt.Sprintf("invalid id %q", id), nil)
	}
	if !ValidKey(key) {
		return ErrUnknownKey
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return services.Wrap(services.ErrValidation, "urlcache", "set", "empty url", nil)
	}
	return c.file.Update(func(current []byte) ([]byte, error) {
		doc, err := Decode(current)
		if err != nil {
			c.logger.Warn("replacing malformed url cache",
				logging.String(logging.FieldEventType, "url_cache_malformed"),
				logging.String(logging.FieldPath, c.file.Path()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "none; entries are re-probed on demand"),
				logging.String(logging.FieldImpact, "previously cached urls are forgotten"))
			doc = Document{}
		}
		doc[id] = doc[id].With(key, value)
		return jsonstore.Marshal(doc)
	})
}

// CachedOriginals returns the IDs with a cached original image URL.
func (c *Cache) CachedOriginals() (entityid.Set, error) {
	doc, err := c.Load()
	if err != nil {
		return nil, err
	}
	ids := entityid.NewSet()
	for id, e := range doc {
		if _, ok := e.Get(KeyOriginalImage); ok {
			ids.Add(id)
		}
	}
	return ids, nil
}
