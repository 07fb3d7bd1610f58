package jsonstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestReadMissingFile(t *testing.T) {
	f := Open(filepath.Join(t.TempDir(), "nested", "doc.json"))
	if _, err := f.Read(); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestCreateIfMissingKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	f := Open(path)

	created, err := f.CreateIfMissing([]byte("{}\n"))
	if err != nil || !created {
		t.Fatalf("expected creation, got created=%v err=%v", created, err)
	}
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	created, err = f.CreateIfMissing([]byte("{}\n"))
	if err != nil || created {
		t.Fatalf("expected existing file to be kept, got created=%v err=%v", created, err)
	}
	data, err := f.Read()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "{broken" {
		t.Fatalf("existing content overwritten: %q", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Fatalf("unexpected mode %o", info.Mode().Perm())
	}
}

func TestUpdateSerializesConcurrentWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.json")
	f := Open(path)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.Update(func(current []byte) ([]byte, error) {
				return append(current, 'x'), nil
			})
			if err != nil {
				t.Errorf("update: %v", err)
			}
		}()
	}
	wg.Wait()

	data, err := f.Read()
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 20 {
		t.Fatalf("expected 20 appended bytes, got %d (%q)", len(data), data)
	}
}

func TestUpdateAbortsOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	f := Open(path)
	if err := f.Write([]byte("original")); err != nil {
		t.Fatal(err)
	}
	wantErr := fmt.Errorf("stale")
	err := f.Update(func([]byte) ([]byte, error) { return nil, wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected fn error, got %v", err)
	}
	data, _ := f.Read()
	if string(data) != "original" {
		t.Fatalf("document changed after aborted update: %q", data)
	}
}

func TestRevision(t *testing.T) {
	if Revision(nil) != "" {
		t.Fatal("expected empty revision for absent document")
	}
	a := Revision([]byte("{}"))
	b := Revision([]byte("{ }"))
	if a == "" || a == b {
		t.Fatalf("expected distinct non-empty revisions, got %q %q", a, b)
	}
}

func TestMarshalLeavesHTMLUnescaped(t *testing.T) {
	data, err := Marshal(map[string]string{"transcript": "<p>Füße & mehr</p>", "a": "1"})
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.Contains(text, "<p>Füße & mehr</p>") {
		t.Fatalf("expected raw HTML and umlauts, got %s", text)
	}
	if !strings.HasPrefix(text, "{\n    \"a\"") {
		t.Fatalf("expected sorted keys with four-space indent, got %s", text)
	}
	if !strings.HasSuffix(text, "}\n") {
		t.Fatalf("expected trailing newline, got %q", text)
	}
}
