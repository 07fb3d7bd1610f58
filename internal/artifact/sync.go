package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"

	"comicadmin/internal/entityid"
	"comicadmin/internal/logging"
)

// Options configures where stubs live and what they contain. Paths are
// relative to the site filesystem root.
type Options struct {
	StubDir   string
	Extension string
	Renderer  string
	Template  string
}

// Result counts what one Apply did.
type Result struct {
	Created   int      `json:"created"`
	Deleted   int      `json:"deleted"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	FailedIDs []string `json:"failed_ids,omitempty"`
}

// Synchronizer creates and removes stub files.
type Synchronizer struct {
	fs      billy.Filesystem
	dir     string
	ext     string
	content []byte
	logger  *slog.Logger
}

// NewSynchronizer prepares a synchronizer over site.
func NewSynchronizer(site billy.Filesystem, opts Options, logger *slog.Logger) (*Synchronizer, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	dir, err := cleanSitePath(opts.StubDir)
	if err != nil {
		return nil, fmt.Errorf("stub dir %q: %w", opts.StubDir, err)
	}
	rel, err := RelativeRendererPath(dir, opts.Renderer)
	if err != nil {
		return nil, err
	}
	ext := strings.TrimSpace(opts.Extension)
	if ext == "" {
		ext = ".php"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &Synchronizer{
		fs:      site,
		dir:     dir,
		ext:     ext,
		content: StubContent(opts.Template, rel),
		logger:  logging.NewComponentLogger(logger, "artifact"),
	}, nil
}

// StubPath returns the stub location for id.
func (s *Synchronizer) StubPath(id string) string {
	return path.Join(s.dir, id+s.ext)
}

// Content returns the bytes every stub is written with.
func (s *Synchronizer) Content() []byte {
	return append([]byte(nil), s.content...)
}

// Apply writes a stub for every created ID that has none and stages removal
// of the stub of every deleted ID. Single failures are counted and logged and
// do not stop the run. The returned Txn must be committed or rolled back.
func (s *Synchronizer) Apply(created, deleted []string) (*Txn, Result) {
	txn := &Txn{fs: s.fs, id: uuid.NewString(), logger: s.logger}
	var res Result

	if len(created) > 0 {
		if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
			s.logger.Warn("stub directory unavailable",
				logging.String(logging.FieldEventType, "stub_dir_create_failed"),
				logging.String(logging.FieldPath, s.dir),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on the stub directory"),
				logging.String(logging.FieldImpact, "new pages have no public stub"))
		}
	}

	for _, id := range created {
		if !entityid.Valid(id) {
			res.fail(id)
			continue
		}
		target := s.StubPath(id)
		exists, err := s.exists(target)
		if err != nil {
			s.warnFailure("stub_create_failed", id, target, err)
			res.fail(id)
			continue
		}
		if exists {
			res.Skipped++
			continue
		}
		if err := s.create(target, txn.id); err != nil {
			s.warnFailure("stub_create_failed", id, target, err)
			res.fail(id)
			continue
		}
		txn.record(change{path: target})
		res.Created++
	}

	for _, id := range deleted {
		if !entityid.Valid(id) {
			res.fail(id)
			continue
		}
		target := s.StubPath(id)
		exists, err := s.exists(target)
		if err != nil {
			s.warnFailure("stub_delete_failed", id, target, err)
			res.fail(id)
			continue
		}
		if !exists {
			continue
		}
		backup := backupPath(target, txn.id)
		if err := s.fs.Rename(target, backup); err != nil {
			s.warnFailure("stub_delete_failed", id, target, err)
			res.fail(id)
			continue
		}
		txn.record(change{path: target, backup: backup})
		res.Deleted++
	}

	s.logger.Debug("stubs staged",
		logging.String("txn", txn.id),
		logging.Int("created", res.Created),
		logging.Int("deleted", res.Deleted),
		logging.Int("skipped", res.Skipped),
		logging.Int("failed", res.Failed))
	return txn, res
}

func (s *Synchronizer) create(target, txid string) error {
	tmp := hiddenPath(target, txid, ".tmp")
	if err := util.WriteFile(s.fs, tmp, s.content, 0o644); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, target); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func (s *Synchronizer) exists(p string) (bool, error) {
	_, err := s.fs.Stat(p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (s *Synchronizer) warnFailure(event, id, target string, err error) {
	s.logger.Warn("stub change failed",
		logging.String(logging.FieldEventType, event),
		logging.String(logging.FieldEntityID, id),
		logging.String(logging.FieldPath, target),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check permissions on the stub directory"),
		logging.String(logging.FieldImpact, "public stub out of step with the catalog"))
}

func (r *Result) fail(id string) {
	r.Failed++
	r.FailedIDs = append(r.FailedIDs, id)
}

func hiddenPath(target, txid, suffix string) string {
	dir, name := path.Split(target)
	return path.Join(dir, "."+name+"."+txid+suffix)
}

func backupPath(target, txid string) string {
	return hiddenPath(target, txid, ".bak")
}

type change struct {
	path   string
	backup string // empty for a created stub
}

// Txn is the set of stub changes made by one Apply.
type Txn struct {
	fs      billy.Filesystem
	id      string
	logger  *slog.Logger
	mu      sync.Mutex
	changes []change
	done    bool
}

// ID identifies the transaction in backup file names and logs.
func (t *Txn) ID() string {
	return t.id
}

func (t *Txn) record(c change) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.changes = append(t.changes, c)
}

// Commit makes the staged changes final by dropping the backups. Calling it
// again, or after Rollback, does nothing.
func (t *Txn) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true

	var errs []error
	for _, c := range t.changes {
		if c.backup == "" {
			continue
		}
		if err := t.fs.Remove(c.backup); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove backup %s: %w", c.backup, err))
		}
	}
	return errors.Join(errs...)
}

// Rollback removes the stubs this transaction created and restores the ones
// it removed. Stubs that existed before Apply and were left alone are never
// touched.
func (t *Txn) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true

	var errs []error
	for i := len(t.changes) - 1; i >= 0; i-- {
		c := t.changes[i]
		if c.backup == "" {
			if err := t.fs.Remove(c.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, fmt.Errorf("remove %s: %w", c.path, err))
			}
			continue
		}
		if err := t.fs.Rename(c.backup, c.path); err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", c.path, err))
		}
	}
	if len(errs) > 0 {
		t.logger.Warn("stub rollback incomplete",
			logging.String(logging.FieldEventType, "stub_rollback_failed"),
			logging.String("txn", t.id),
			logging.Error(errors.Join(errs...)),
			logging.String(logging.FieldErrorHint, "restore hidden .bak files in the stub directory by hand"),
			logging.String(logging.FieldImpact, "public stubs out of step with the catalog"))
	}
	return errors.Join(errs...)
}
