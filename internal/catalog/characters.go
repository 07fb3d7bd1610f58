package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"comicadmin/internal/jsonstore"
	"comicadmin/internal/logging"
)

// Character is one entry of the character catalog.
type Character struct {
	Name        string `json:"name"`
	PicURL      string `json:"pic_url"`
	Description string `json:"description"`
}

// CharacterCatalog is the versioned character document. Groups keep the
// author's ordering of their members.
type CharacterCatalog struct {
	SchemaVersion int                  `json:"schema_version"`
	Characters    map[string]Character `json:"characters"`
	Groups        map[string][]string  `json:"groups"`
}

// EmptyCharacterCatalog returns a usable catalog with no entries.
func EmptyCharacterCatalog() CharacterCatalog {
	return CharacterCatalog{
		SchemaVersion: CurrentSchemaVersion,
		Characters:    map[string]Character{},
		Groups:        map[string][]string{},
	}
}

// DecodeCharacters decodes a character catalog. Documents older than schema
// version 2 are refused with ErrLegacySchema and an empty catalog.
func DecodeCharacters(data []byte) (CharacterCatalog, error) {
	if jsonstore.IsEmpty(data) {
		return EmptyCharacterCatalog(), ErrEmptyDocument
	}
	trimmed := bytes.TrimSpace(data)
	if isEmptyArray(trimmed) {
		return EmptyCharacterCatalog(), ErrLegacySchema
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &top); err != nil {
		return EmptyCharacterCatalog(), fmt.Errorf("decode characters: %w", err)
	}
	version, err := schemaVersion(top)
	if err != nil {
		return EmptyCharacterCatalog(), err
	}
	if version < CurrentSchemaVersion {
		return EmptyCharacterCatalog(), ErrLegacySchema
	}
	return decodeCharacterBody(top, version)
}

// MigrateLegacyCharacters converts any known character document shape into
// the current schema: a flat map of ID to character, an envelope without a
// version, or an already-current document (returned unchanged).
func MigrateLegacyCharacters(data []byte) (CharacterCatalog, error) {
	if jsonstore.IsEmpty(data) {
		return EmptyCharacterCatalog(), ErrEmptyDocument
	}
	trimmed := bytes.TrimSpace(data)
	if isEmptyArray(trimmed) {
		return EmptyCharacterCatalog(), nil
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &top); err != nil {
		return EmptyCharacterCatalog(), fmt.Errorf("decode characters: %w", err)
	}
	_, hasChars := top["characters"]
	_, hasGroups := top["groups"]
	if hasChars || hasGroups {
		return decodeCharacterBody(top, CurrentSchemaVersion)
	}

	cat := EmptyCharacterCatalog()
	for id, raw := range top {
		if id == keySchemaVersion {
			continue
		}
		var ch Character
		if err := json.Unmarshal(raw, &ch); err != nil {
			return EmptyCharacterCatalog(), fmt.Errorf("decode character %q: %w", id, err)
		}
		cat.Characters[id] = ch
	}
	return cat, nil
}

func decodeCharacterBody(top map[string]json.RawMessage, version int) (CharacterCatalog, error) {
	cat := EmptyCharacterCatalog()
	if version > cat.SchemaVersion {
		cat.SchemaVersion = version
	}
	if raw := bytes.TrimSpace(top["characters"]); len(raw) > 0 && !isEmptyArray(raw) && !bytes.Equal(raw, []byte("null")) {
		if err := json.Unmarshal(raw, &cat.Characters); err != nil {
			return EmptyCharacterCatalog(), fmt.Errorf("decode characters: %w", err)
		}
	}
	if raw := bytes.TrimSpace(top["groups"]); len(raw) > 0 && !isEmptyArray(raw) && !bytes.Equal(raw, []byte("null")) {
		if err := json.Unmarshal(raw, &cat.Groups); err != nil {
			return EmptyCharacterCatalog(), fmt.Errorf("decode groups: %w", err)
		}
	}
	if cat.Characters == nil {
		cat.Characters = map[string]Character{}
	}
	if cat.Groups == nil {
		cat.Groups = map[string][]string{}
	}
	return cat, nil
}

// EncodeCharacters writes the catalog at the current schema version.
func EncodeCharacters(cat CharacterCatalog) ([]byte, error) {
	if cat.Characters == nil {
		cat.Characters = map[string]Character{}
	}
	if cat.Groups == nil {
		cat.Groups = map[string][]string{}
	}
	cat.SchemaVersion = CurrentSchemaVersion
	return jsonstore.Marshal(cat)
}

// CharacterStore reads and writes the character catalog file.
type CharacterStore struct {
	file   *jsonstore.File
	logger *slog.Logger
}

// NewCharacterStore returns a store for the catalog at path.
func NewCharacterStore(path string, logger *slog.Logger) *CharacterStore {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CharacterStore{
		file:   jsonstore.Open(path),
		logger: logging.NewComponentLogger(logger, "characters"),
	}
}

// Path returns the catalog file location.
func (s *CharacterStore) Path() string {
	return s.file.Path()
}

// Load returns the catalog. A missing file yields an empty catalog and no
// error; a legacy document yields an empty catalog and ErrLegacySchema.
func (s *CharacterStore) Load() (CharacterCatalog, error) {
	data, err := s.file.Read()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return EmptyCharacterCatalog(), nil
		}
		return EmptyCharacterCatalog(), fmt.Errorf("read characters: %w", err)
	}
	cat, err := DecodeCharacters(data)
	if errors.Is(err, ErrLegacySchema) {
		s.logger.Warn("character catalog uses legacy schema",
			logging.String(logging.FieldEventType, "characters_legacy_schema"),
			logging.String(logging.FieldPath, s.file.Path()),
			logging.String(logging.FieldErrorHint, "run comicadmin migrate --characters"),
			logging.String(logging.FieldImpact, "character list is empty until migrated"))
	}
	return cat, err
}

// Save replaces the catalog file.
func (s *CharacterStore) Save(cat CharacterCatalog) error {
	data, err := EncodeCharacters(cat)
	if err != nil {
		return fmt.Errorf("encode characters: %w", err)
	}
	return s.file.Write(data)
}

// Migrate rewrites the catalog file in the current schema and reports whether
// anything changed. A current document is left alone.
func (s *CharacterStore) Migrate() (bool, error) {
	migrated := false
	err := s.file.Update(func(current []byte) ([]byte, error) {
		if current == nil {
			return nil, fmt.Errorf("characters file %s: %w", s.file.Path(), fs.ErrNotExist)
		}
		if _, err := DecodeCharacters(current); err == nil {
			return nil, errUnchanged
		} else if !errors.Is(err, ErrLegacySchema) {
			return nil, err
		}
		cat, err := MigrateLegacyCharacters(current)
		if err != nil {
			return nil, err
		}
		migrated = true
		return EncodeCharacters(cat)
	})
	if errors.Is(err, errUnchanged) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.logger.Info("migrated character catalog",
		logging.String(logging.FieldEventType, "characters_migrated"),
		logging.String(logging.FieldPath, s.file.Path()))
	return migrated, nil
}

var errUnchanged = errors.New("document unchanged")
