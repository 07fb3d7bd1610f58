// Package reconcile joins the metadata store with the asset and stub
// directories: it builds the ID universe, merges per-ID records with their
// provenance and diffs submitted data against the stored catalog.
package reconcile

import (
	"comicadmin/internal/entityid"
)

// BuildUniverse returns the union of the given ID sets, most recent first.
func BuildUniverse(sets ...entityid.Set) []string {
	all := entityid.NewSet()
	for _, s := range sets {
		all.Merge(s)
	}
	return all.Descending()
}
