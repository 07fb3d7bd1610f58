package settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"comicadmin/internal/services"
)

func TestGetUnknownUserReturnsDefaults(t *testing.T) {
	repo := NewRepository(filepath.Join(t.TempDir(), "admin_settings.json"), nil)
	got, err := repo.Get("alice")
	if err != nil {
		t.Fatal(err)
	}
	if got != Defaults() {
		t.Fatalf("got %+v", got)
	}
}

func TestPutKeepsUsersSeparate(t *testing.T) {
	repo := NewRepository(filepath.Join(t.TempDir(), "admin_settings.json"), nil)
	alice := Settings{PageSize: 20, ShowTranscripts: true, LastOpenedID: "20240101"}
	bob := Settings{PageSize: 100, SortDescending: true}
	if err := repo.Put("alice", alice); err != nil {
		t.Fatal(err)
	}
	if err := repo.Put("bob", bob); err != nil {
		t.Fatal(err)
	}

	if got, _ := repo.Get("alice"); got != alice {
		t.Fatalf("alice = %+v", got)
	}
	if got, _ := repo.Get("bob"); got != bob {
		t.Fatalf("bob = %+v", got)
	}
}

func TestPutValidates(t *testing.T) {
	repo := NewRepository(filepath.Join(t.TempDir(), "admin_settings.json"), nil)
	for _, s := range []Settings{{PageSize: 0}, {PageSize: 10, LastOpenedID: "yesterday"}} {
		if err := repo.Put("alice", s); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("%+v: expected validation error, got %v", s, err)
		}
	}
	if err := repo.Put(" ", Defaults()); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for blank user, got %v", err)
	}
}

func TestMalformedFileIsNotOverwritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admin_settings.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	repo := NewRepository(path, nil)
	if got, err := repo.Get("alice"); err != nil || got != Defaults() {
		t.Fatalf("got %+v err=%v", got, err)
	}
	if err := repo.Put("alice", Defaults()); !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "{nope" {
		t.Fatalf("file overwritten: %q", data)
	}
}
