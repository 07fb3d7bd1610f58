package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"comicadmin/internal/jsonstore"
	"comicadmin/internal/logging"
	"comicadmin/internal/services"
)

// Status describes how a Snapshot was obtained.
type Status string

const (
	StatusLoaded     Status = "loaded"
	StatusCreated    Status = "created"
	StatusMalformed  Status = "malformed"
	StatusUnreadable Status = "unreadable"
)

// Writable reports whether a store in this state may be overwritten by a save.
func (s Status) Writable() bool {
	return s == StatusLoaded || s == StatusCreated
}

// Snapshot is the comic catalog as read at one point in time.
type Snapshot struct {
	Entities      map[string]Record
	SchemaVersion int
	// Revision fingerprints the bytes the snapshot was decoded from.
	Revision string
	Status   Status
	// Err carries the decode or read failure behind a non-writable status.
	Err error
}

// ComicStore is the comic metadata catalog on disk.
type ComicStore struct {
	file   *jsonstore.File
	logger *slog.Logger
}

// NewComicStore returns a store for the catalog at path.
func NewComicStore(path string, logger *slog.Logger) *ComicStore {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ComicStore{
		file:   jsonstore.Open(path),
		logger: logging.NewComponentLogger(logger, "catalog"),
	}
}

// Path returns the catalog file location.
func (s *ComicStore) Path() string {
	return s.file.Path()
}

// Load never fails. A missing catalog is created with the empty current
// document; an unreadable or malformed one yields empty entities and is left
// untouched on disk.
func (s *ComicStore) Load() Snapshot {
	data, err := s.file.Read()
	if errors.Is(err, fs.ErrNotExist) {
		return s.create()
	}
	if err != nil {
		s.logger.Warn("comic catalog unreadable",
			logging.String(logging.FieldEventType, "catalog_read_failed"),
			logging.String(logging.FieldPath, s.file.Path()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check file permissions"),
			logging.String(logging.FieldImpact, "catalog shown empty and saves are refused"))
		return Snapshot{
			Entities:      map[string]Record{},
			SchemaVersion: CurrentSchemaVersion,
			Status:        StatusUnreadable,
			Err:           err,
		}
	}

	doc, err := DecodeComics(data)
	if err != nil {
		s.logger.Warn("comic catalog malformed",
			logging.String(logging.FieldEventType, "catalog_malformed"),
			logging.String(logging.FieldPath, s.file.Path()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix the JSON by hand; the file is not overwritten"),
			logging.String(logging.FieldImpact, "catalog shown empty and saves are refused"))
		return Snapshot{
			Entities:      map[string]Record{},
			SchemaVersion: CurrentSchemaVersion,
			Revision:      jsonstore.Revision(data),
			Status:        StatusMalformed,
			Err:           err,
		}
	}

	entities, version := Normalize(doc)
	if version < CurrentSchemaVersion {
		s.logger.Debug("read legacy comic catalog",
			logging.String(logging.FieldPath, s.file.Path()),
			logging.Int("schema_version", version))
	}
	return Snapshot{
		Entities:      entities,
		SchemaVersion: version,
		Revision:      jsonstore.Revision(data),
		Status:        StatusLoaded,
	}
}

func (s *ComicStore) create() Snapshot {
	data, err := EncodeComics(nil)
	if err == nil {
		_, err = s.file.CreateIfMissing(data)
	}
	if err != nil {
		s.logger.Warn("comic catalog could not be created",
			logging.String(logging.FieldEventType, "catalog_create_failed"),
			logging.String(logging.FieldPath, s.file.Path()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the data directory is writable"),
			logging.String(logging.FieldImpact, "catalog shown empty"))
		return Snapshot{
			Entities:      map[string]Record{},
			SchemaVersion: CurrentSchemaVersion,
			Status:        StatusUnreadable,
			Err:           err,
		}
	}
	s.logger.Info("created comic catalog",
		logging.String(logging.FieldEventType, "catalog_created"),
		logging.String(logging.FieldPath, s.file.Path()))
	// Another process may have won the race; read whatever is there now.
	if current, readErr := s.file.Read(); readErr == nil {
		data = current
	}
	return Snapshot{
		Entities:      map[string]Record{},
		SchemaVersion: CurrentSchemaVersion,
		Revision:      jsonstore.Revision(data),
		Status:        StatusCreated,
	}
}

// Commit replaces the catalog with entities, each filled against the default
// record, and returns the new revision. A non-empty expectedRevision must match
// the bytes on disk at the time of the write.
func (s *ComicStore) Commit(entities map[string]Record, expectedRevision string) (string, error) {
	filled := make(map[string]Record, len(entities))
	for id, rec := range entities {
		filled[id] = rec.WithDefaults(id)
	}
	data, err := EncodeComics(filled)
	if err != nil {
		return "", services.Wrap(services.ErrStorage, "catalog", "encode", "encode comic catalog", err)
	}

	err = s.file.Update(func(current []byte) ([]byte, error) {
		if expectedRevision != "" && jsonstore.Revision(current) != expectedRevision {
			return nil, ErrRevisionMismatch
		}
		if current != nil {
			if _, decodeErr := DecodeComics(current); decodeErr != nil {
				return nil, services.Wrap(services.ErrStorage, "catalog", "commit",
					"refusing to overwrite malformed catalog", decodeErr)
			}
		}
		return data, nil
	})
	if err != nil {
		if errors.Is(err, ErrRevisionMismatch) || errors.Is(err, services.ErrStorage) {
			return "", err
		}
		return "", services.Wrap(services.ErrStorage, "catalog", "commit", fmt.Sprintf("write %s", s.file.Path()), err)
	}

	revision := jsonstore.Revision(data)
	s.logger.Info("committed comic catalog",
		logging.String(logging.FieldEventType, "catalog_committed"),
		logging.String(logging.FieldPath, s.file.Path()),
		logging.Int("entities", len(filled)))
	return revision, nil
}
