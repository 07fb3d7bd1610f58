package reconcile

import (
	"bytes"
	"encoding/json"

	"comicadmin/internal/catalog"
)

// Entry is one merged page as shown to the admin.
type Entry struct {
	ID      string
	Record  catalog.Record
	Sources []catalog.Source
}

// MergeRecord fills the stored record (nil when the store has none) against
// the default template and derives its provenance. hasCachedURL reports
// whether the external URL cache already resolved the original image.
func MergeRecord(id string, stored *catalog.Record, inImages, inStubs, hasCachedURL bool) Entry {
	var rec catalog.Record
	if stored != nil {
		rec = stored.WithDefaults(id)
	} else {
		rec = catalog.DefaultRecord(id)
	}
	return Entry{
		ID:     id,
		Record: rec,
		Sources: catalog.ComputeSources(catalog.Provenance{
			Stored: stored != nil,
			Image:  inImages,
			Stub:   inStubs,
			ExtURL: rec.URLOriginalBild != "" || hasCachedURL,
		}),
	}
}

// HasSource reports whether the entry carries tag.
func (e Entry) HasSource(tag catalog.Source) bool {
	for _, s := range e.Sources {
		if s == tag {
			return true
		}
	}
	return false
}

// MarshalJSON writes the record fields plus "id" and the derived "sources".
func (e Entry) MarshalJSON() ([]byte, error) {
	recordJSON, err := json.Marshal(e.Record)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(recordJSON, &fields); err != nil {
		return nil, err
	}
	sources := e.Sources
	if sources == nil {
		sources = []catalog.Source{}
	}
	rawSources, err := json.Marshal(sources)
	if err != nil {
		return nil, err
	}
	rawID, err := json.Marshal(e.ID)
	if err != nil {
		return nil, err
	}
	fields["id"] = rawID
	fields["sources"] = rawSources

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
