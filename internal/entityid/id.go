// Package entityid defines the comic page identifier format and the set type the
// reconciliation engine works with.
//
// An ID is exactly eight ASCII digits (the publication date, YYYYMMDD). Any
// other string is not an ID; scanners drop such names silently.
package entityid

import (
	"path"
	"slices"
	"strings"
)

// Length is the number of digits in an ID.
const Length = 8

// Valid reports whether s is exactly eight ASCII digits.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FromFilename splits name into stem and extension and reports whether the stem
// is a valid ID. The extension keeps its leading dot and original case.
func FromFilename(name string) (id string, ext string, ok bool) {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	ext = path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if !Valid(stem) {
		return "", "", false
	}
	return stem, ext, true
}

// Set is an unordered collection of IDs.
type Set map[string]struct{}

// NewSet builds a set from the given IDs, skipping invalid ones.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id if it is valid and reports whether it was accepted.
func (s Set) Add(id string) bool {
	if !Valid(id) {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Has reports membership.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Merge adds every member of other to s.
func (s Set) Merge(other Set) {
	for id := range other {
		s[id] = struct{}{}
	}
}

// Ascending returns the members sorted oldest first.
func (s Set) Ascending() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Descending returns the members sorted most recent first.
func (s Set) Descending() []string {
	out := s.Ascending()
	slices.Reverse(out)
	return out
}

// KeysOf collects the valid ID keys of a map.
func KeysOf[V any](m map[string]V) Set {
	s := make(Set, len(m))
	for id := range m {
		s.Add(id)
	}
	return s
}
