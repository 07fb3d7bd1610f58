// Package jsonstore reads and writes whole JSON documents on disk.
//
// Every document is guarded by an advisory lock on a sidecar file
// (<path>.lock) so the lock survives the atomic rename that replaces the
// document itself. Writes go through a temp file in the same directory and a
// rename, so readers never observe a half-written document.
package jsonstore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"
)

// File is a lock-guarded JSON document.
type File struct {
	path string
	mu   sync.RWMutex
	lock *flock.Flock
}

// Open returns a handle for the document at path. The file is not touched
// until the first read or write.
func Open(path string) *File {
	return &File{path: path, lock: flock.New(path + ".lock")}
}

// Path returns the document location.
func (f *File) Path() string {
	return f.path
}

// Read returns the document bytes under a shared lock. A missing document
// yields an error matching fs.ErrNotExist.
func (f *File) Read() ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if err := f.ensureDir(); err != nil {
		return nil, err
	}
	if err := f.lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock %s: %w", f.path, err)
	}
	defer f.lock.Unlock()

	return os.ReadFile(f.path)
}

// CreateIfMissing writes data only when no document exists yet and reports
// whether it did. An existing document is never replaced, even if unreadable.
func (f *File) CreateIfMissing(data []byte) (bool, error) {
	created := false
	err := f.withExclusive(func() error {
		if _, err := os.Stat(f.path); err == nil {
			return nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", f.path, err)
		}
		if err := f.write(data); err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

// Write replaces the document under an exclusive lock.
func (f *File) Write(data []byte) error {
	return f.withExclusive(func() error {
		return f.write(data)
	})
}

// Update performs a read-modify-write cycle under one exclusive lock. fn
// receives the current bytes (nil when the document does not exist) and
// returns the replacement. Returning an error aborts without writing.
func (f *File) Update(fn func(current []byte) ([]byte, error)) error {
	return f.withExclusive(func() error {
		current, err := os.ReadFile(f.path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read %s: %w", f.path, err)
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		return f.write(next)
	})
}

func (f *File) withExclusive(fn func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ensureDir(); err != nil {
		return err
	}
	if err := f.lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", f.path, err)
	}
	defer f.lock.Unlock()
	return fn()
}

func (f *File) ensureDir() error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}

func (f *File) write(data []byte) error {
	_, statErr := os.Stat(f.path)
	if err := atomic.WriteFile(f.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	if errors.Is(statErr, fs.ErrNotExist) {
		// New files come out of a private temp file.
		if err := os.Chmod(f.path, 0o644); err != nil {
			return fmt.Errorf("chmod %s: %w", f.path, err)
		}
	}
	return nil
}

// Revision fingerprints document bytes. An absent document has the empty revision.
func Revision(data []byte) string {
	if data == nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Marshal encodes v the way every document is written: four-space indentation,
// HTML and Unicode left unescaped, trailing newline. Map keys come out sorted,
// which makes the output deterministic.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// IsEmpty reports whether data holds nothing but whitespace.
func IsEmpty(data []byte) bool {
	return len(bytes.TrimSpace(data)) == 0
}
