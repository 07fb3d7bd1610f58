package catalog

import (
	"errors"
	"testing"
)

func TestDecodeComicsLegacy(t *testing.T) {
	doc, err := DecodeComics([]byte(`{"20240101": {"type": "Comicseite", "name": "Start"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := doc.(LegacyDocument); !ok {
		t.Fatalf("expected legacy document, got %T", doc)
	}
	entities, version := Normalize(doc)
	if version != 1 {
		t.Fatalf("version = %d", version)
	}
	if entities["20240101"].Name != "Start" {
		t.Fatalf("entities = %+v", entities)
	}
}

func TestDecodeComicsVersioned(t *testing.T) {
	for _, field := range []string{"comics", "entities"} {
		raw := `{"schema_version": 2, "` + field + `": {"20240101": {"name": "Start"}}}`
		doc, err := DecodeComics([]byte(raw))
		if err != nil {
			t.Fatalf("%s: %v", field, err)
		}
		if _, ok := doc.(VersionedDocument); !ok {
			t.Fatalf("%s: expected versioned document, got %T", field, doc)
		}
		entities, version := Normalize(doc)
		if version != 2 || len(entities) != 1 {
			t.Fatalf("%s: version=%d entities=%v", field, version, entities)
		}
	}
}

func TestDecodeComicsLowSchemaVersionIsLegacy(t *testing.T) {
	doc, err := DecodeComics([]byte(`{"schema_version": 1, "20240101": {"name": "Start"}}`))
	if err != nil {
		t.Fatal(err)
	}
	entities, version := Normalize(doc)
	if version != 1 {
		t.Fatalf("version = %d", version)
	}
	if _, ok := entities["schema_version"]; ok {
		t.Fatal("schema_version leaked into entities")
	}
	if len(entities) != 1 {
		t.Fatalf("entities = %v", entities)
	}
}

func TestDecodeComicsEmptyInputs(t *testing.T) {
	if _, err := DecodeComics([]byte("  \n")); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
	doc, err := DecodeComics([]byte("[]"))
	if err != nil {
		t.Fatal(err)
	}
	if entities, _ := Normalize(doc); len(entities) != 0 {
		t.Fatalf("expected no entities, got %v", entities)
	}
	if _, err := DecodeComics([]byte("{not json")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestMigrationIsPureAndIdempotent(t *testing.T) {
	legacy := []byte(`{"20240102": {"name": "B", "charaktere": ["z", "a"]}, "20240101": {"name": "A"}}`)
	doc, err := DecodeComics(legacy)
	if err != nil {
		t.Fatal(err)
	}
	first, _ := Normalize(doc)
	filled := make(map[string]Record, len(first))
	for id, rec := range first {
		filled[id] = rec.WithDefaults(id)
	}

	encoded, err := EncodeComics(filled)
	if err != nil {
		t.Fatal(err)
	}
	again, err := DecodeComics(encoded)
	if err != nil {
		t.Fatal(err)
	}
	second, version := Normalize(again)
	if version != CurrentSchemaVersion {
		t.Fatalf("version = %d", version)
	}
	if len(second) != len(filled) {
		t.Fatalf("entity count changed: %d vs %d", len(second), len(filled))
	}
	for id, rec := range filled {
		if !second[id].Equal(rec) {
			t.Fatalf("%s changed: %+v vs %+v", id, second[id], rec)
		}
	}

	// Normalize must not hand out the document's own map.
	first["20249999"] = Record{}
	if entities, _ := Normalize(doc); len(entities) != 2 {
		t.Fatalf("normalize aliased the document map: %v", entities)
	}

	reencoded, err := EncodeComics(second)
	if err != nil {
		t.Fatal(err)
	}
	if string(reencoded) != string(encoded) {
		t.Fatalf("encoding not deterministic:\n%s\n---\n%s", encoded, reencoded)
	}
}
