// Package settings stores per-user admin preferences in one JSON document
// keyed by user ID.
package settings

import (
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

const schemaVersion = 2

// DefaultPageSize is used for users without stored settings.
const DefaultPageSize = 50

// Settings are one admin user's preferences.
type Settings struct {
	PageSize        int    `json:"page_size"`
	SortDescending  bool   `json:"sort_descending"`
	ShowTranscripts bool   `json:"show_transcripts"`
	LastOpenedID    string `json:"last_opened_id,omitempty"`
}

// Defaults returns the settings of a user who never saved any.
func Defaults() Settings {
	return Settings{PageSize: DefaultPageSize, SortDescending: true}
}

// Validate checks the values a user may submit.
func (s Settings) Validate() error {
	if s.PageSize < 1 || s.PageSize > 1000 {
		return services.Wrap(services.ErrValidation, "settings", "validate", fmt.Sprintf("page_size %d out of range 1-1000", s.PageSize), nil)
	}
	if s.LastOpenedID != "" && !entityid.Valid(s.LastOpenedID) {
		return services.Wrap(services.ErrValidation, "settings", "validate", fmt.Sprintf("last_opened_id %q is not a page id", s.LastOpenedID), nil)
	}
	return nil
}

type document struct {
	SchemaVersion int                 `json:"schema_version"`
	Users         map[string]Settings `json:"users"`
}

// Repository is the settings file.
type Repository struct {
	file   *jsonstore.File
	logger *slog.Logger
}

// NewRepository returns a repository for the file at path.
func NewRepository(path string, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Repository{
		file:   jsonstore.Open(path),
		logger: logging.NewComponentLogger(logger, "settings"),
	}
}

// Get returns the user's settings, or Defaults for an unknown user.
func (r *Repository) Get(userID string) (Settings, error) {
	userID, err := cleanUserID(userID)
	if err != nil {
		return Settings{}, err
	}
	data, err := r.file.Read()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Defaults(), nil
		}
		return Settings{}, services.Wrap(services.ErrStorage, "settings", "read", r.file.Path(), err)
	}
	doc, err := decode(data)
	if err != nil {
		r.logger.Warn("settings file malformed",
			logging.String(logging.FieldEventType, "settings_malformed"),
			logging.String(logging.FieldPath, r.file.Path()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix or delete the settings file"),
			logging.String(logging.FieldImpact, "defaults are shown"))
		return Defaults(), nil
	}
	s, ok := doc.Users[userID]
	if !ok {
		return Defaults(), nil
	}
	return withDefaults(s), nil
}

// Put validates and stores the user's settings, leaving other users alone.
func (r *Repository) Put(userID string, s Settings) error {
	userID, err := cleanUserID(userID)
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	err = r.file.Update(func(current []byte) ([]byte, error) {
		doc := document{SchemaVersion: schemaVersion, Users: map[string]Settings{}}
		if current != nil {
			decoded, err := decode(current)
			if err != nil {
				return nil, services.Wrap(services.ErrStorage, "settings", "update", "refusing to overwrite malformed settings", err)
			}
			doc = decoded
		}
		doc.Users[userID] = s
		return jsonstore.Marshal(doc)
	})
	if err != nil {
		if errors.Is(err, services.ErrStorage) {
			return err
		}
		return services.Wrap(services.ErrStorage, "settings", "update", r.file.Path(), err)
	}
	r.logger.Debug("stored user settings", logging.String(logging.FieldUserID, userID))
	return nil
}

func decode(data []byte) (document, error) {
	doc := document{SchemaVersion: schemaVersion, Users: map[string]Settings{}}
	if jsonstore.IsEmpty(data) {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{}, fmt.Errorf("decode settings: %w", err)
	}
	if doc.Users == nil {
		doc.Users = map[string]Settings{}
	}
	doc.SchemaVersion = schemaVersion
	return doc, nil
}

func withDefaults(s Settings) Settings {
	if s.PageSize <= 0 {
		s.PageSize = DefaultPageSize
	}
	return s
}

func cleanUserID(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", services.Wrap(services.ErrValidation, "settings", "", "user id is required", nil)
	}
	return userID, nil
}
