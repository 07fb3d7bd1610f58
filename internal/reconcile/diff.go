package reconcile

import (
	"comicadmin/internal/entityid"
)

// Delta is the set of page IDs a save adds or removes. Field edits on
// surviving IDs are not part of it.
type Delta struct {
	Created []string `json:"created"`
	Deleted []string `json:"deleted"`
}

// Empty reports whether the delta requires no artifact changes.
func (d Delta) Empty() bool {
	return len(d.Created) == 0 && len(d.Deleted) == 0
}

// Diff compares the ID key spaces of the previous and submitted catalogs.
// Both result lists are in ascending order.
func Diff(previous, submitted entityid.Set) Delta {
	d := Delta{Created: []string{}, Deleted: []string{}}
	for _, id := range submitted.Ascending() {
		if !previous.Has(id) {
			d.Created = append(d.Created, id)
		}
	}
	for _, id := range previous.Ascending() {
		if !submitted.Has(id) {
			d.Deleted = append(d.Deleted, id)
		}
	}
	return d
}
