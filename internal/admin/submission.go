package admin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"comicadmin/internal/catalog"
	"comicadmin/internal/entityid"
	"comicadmin/internal/services"
)

// Submission is a full replacement of the comic catalog.
type Submission struct {
	// Revision is the catalog revision the submitter edited. Empty skips the
	// staleness check.
	Revision string
	Comics   map[string]catalog.Record
}

// DecodeSubmission accepts either {"revision": ..., "comics": {...}} or a bare
// map of ID to record, and validates it.
func DecodeSubmission(data []byte) (Submission, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Submission{}, invalid("empty payload")
	}
	if bytes.Equal(trimmed, []byte("[]")) {
		return Submission{Comics: map[string]catalog.Record{}}, nil
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &top); err != nil {
		return Submission{}, invalid(fmt.Sprintf("payload is not a JSON object: %v", err))
	}

	var sub Submission
	body := trimmed
	if raw, ok := top["comics"]; ok {
		body = raw
		if rev, ok := top["revision"]; ok {
			if err := json.Unmarshal(rev, &sub.Revision); err != nil {
				return Submission{}, invalid("revision must be a string")
			}
		}
	}
	if b := bytes.TrimSpace(body); bytes.Equal(b, []byte("[]")) || bytes.Equal(b, []byte("null")) {
		body = []byte("{}")
	}
	if err := json.Unmarshal(body, &sub.Comics); err != nil {
		return Submission{}, invalid(fmt.Sprintf("comics: %v", err))
	}
	if sub.Comics == nil {
		sub.Comics = map[string]catalog.Record{}
	}
	if err := ValidateEntities(sub.Comics); err != nil {
		return Submission{}, err
	}
	return sub, nil
}

// ValidateEntities rejects keys that are not page IDs and unknown page types.
// All problems are reported together.
func ValidateEntities(entities map[string]catalog.Record) error {
	var problems []string
	for id, rec := range entities {
		if !entityid.Valid(id) {
			problems = append(problems, fmt.Sprintf("%q is not an 8 digit page id", id))
			continue
		}
		if rec.Type != "" && !rec.Type.Valid() {
			problems = append(problems, fmt.Sprintf("%s: unknown type %q", id, rec.Type))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return invalid(strings.Join(problems, "; "))
}

func invalid(msg string) error {
	return services.Wrap(services.ErrValidation, "admin", "save_data", msg, nil)
}
