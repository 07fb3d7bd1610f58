package catalog

import (
	"errors"
	"fmt"

	"comicadmin/internal/services"
)

var (
	// ErrEmptyDocument marks a zero-length or whitespace-only document.
	ErrEmptyDocument = errors.New("document is empty")
	// ErrLegacySchema marks a character catalog older than schema version 2.
	ErrLegacySchema = fmt.Errorf("%w: character catalog uses a legacy schema version", services.ErrUnprocessable)
	// ErrRevisionMismatch marks a commit against a store that changed since it was read.
	ErrRevisionMismatch = fmt.Errorf("%w: catalog changed on disk since it was loaded", services.ErrConflict)
)
