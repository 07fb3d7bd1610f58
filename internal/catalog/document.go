package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"

	"comicadmin/internal/jsonstore"
)

// CurrentSchemaVersion is the version every write emits.
const CurrentSchemaVersion = 2

const (
	keySchemaVersion = "schema_version"
	keyComics        = "comics"
	keyEntities      = "entities"
)

// Document is a decoded comic catalog: either a LegacyDocument (bare map of ID
// to record) or a VersionedDocument (schema_version >= 2 envelope).
type Document interface {
	SchemaVersion() int
	Entities() map[string]Record
	document()
}

// LegacyDocument is the schema v1 shape.
type LegacyDocument struct {
	Comics map[string]Record
}

func (LegacyDocument) SchemaVersion() int            { return 1 }
func (d LegacyDocument) Entities() map[string]Record { return d.Comics }
func (LegacyDocument) document()                     {}

// VersionedDocument is the schema v2+ envelope.
type VersionedDocument struct {
	Version int
	Comics  map[string]Record
}

func (d VersionedDocument) SchemaVersion() int          { return d.Version }
func (d VersionedDocument) Entities() map[string]Record { return d.Comics }
func (VersionedDocument) document()                     {}

// DecodeComics decodes raw catalog bytes into the matching Document variant.
// An empty JSON array is accepted as an empty legacy document.
func DecodeComics(data []byte) (Document, error) {
	if jsonstore.IsEmpty(data) {
		return nil, ErrEmptyDocument
	}
	trimmed := bytes.TrimSpace(data)
	if isEmptyArray(trimmed) {
		return LegacyDocument{Comics: map[string]Record{}}, nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &top); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	version, err := schemaVersion(top)
	if err != nil {
		return nil, err
	}
	if version >= CurrentSchemaVersion {
		body, ok := top[keyComics]
		if !ok {
			body = top[keyEntities]
		}
		comics, err := decodeRecordMap(body)
		if err != nil {
			return nil, err
		}
		return VersionedDocument{Version: version, Comics: comics}, nil
	}

	comics := make(map[string]Record, len(top))
	for id, raw := range top {
		if id == keySchemaVersion {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode record %q: %w", id, err)
		}
		comics[id] = rec
	}
	return LegacyDocument{Comics: comics}, nil
}

// Normalize returns the entity map of any Document variant and the schema
// version it was read as. It never mutates doc.
func Normalize(doc Document) (map[string]Record, int) {
	if doc == nil {
		return map[string]Record{}, CurrentSchemaVersion
	}
	entities := doc.Entities()
	out := make(map[string]Record, len(entities))
	for id, rec := range entities {
		out[id] = rec
	}
	return out, doc.SchemaVersion()
}

type comicsEnvelope struct {
	SchemaVersion int               `json:"schema_version"`
	Comics        map[string]Record `json:"comics"`
}

// EncodeComics writes entities inside the current versioned envelope. Keys come
// out in ascending ID order.
func EncodeComics(entities map[string]Record) ([]byte, error) {
	if entities == nil {
		entities = map[string]Record{}
	}
	return jsonstore.Marshal(comicsEnvelope{SchemaVersion: CurrentSchemaVersion, Comics: entities})
}

func schemaVersion(top map[string]json.RawMessage) (int, error) {
	raw, ok := top[keySchemaVersion]
	if !ok {
		return 1, nil
	}
	s, isNull, err := flexibleString(raw)
	if err != nil {
		return 0, fmt.Errorf("decode schema_version: %w", err)
	}
	if isNull {
		return 1, nil
	}
	n, err := json.Number(s).Int64()
	if err != nil {
		return 0, fmt.Errorf("decode schema_version %q: %w", s, err)
	}
	return int(n), nil
}

func decodeRecordMap(raw json.RawMessage) (map[string]Record, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || isEmptyArray(trimmed) {
		return map[string]Record{}, nil
	}
	var out map[string]Record
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, fmt.Errorf("decode comics: %w", err)
	}
	return out, nil
}

func isEmptyArray(data []byte) bool {
	if len(data) < 2 || data[0] != '[' || data[len(data)-1] != ']' {
		return false
	}
	return len(bytes.TrimSpace(data[1:len(data)-1])) == 0
}
