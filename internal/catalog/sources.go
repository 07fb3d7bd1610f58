package catalog

// Source is a provenance tag naming a place that attests a page exists.
type Source string

const (
	SourceJSON  Source = "json"
	SourceImage Source = "image"
	SourceStub  Source = "php"
	SourceURL   Source = "url"
)

// Provenance lists the facts provenance is derived from.
type Provenance struct {
	Stored bool // the metadata store has a record
	Image  bool // an image file exists in any image directory
	Stub   bool // a stub file exists
	ExtURL bool // url_originalbild is set or cached
}

// ComputeSources derives the tag set in canonical order. It is the only place
// tags are produced; stored tags are discarded on decode.
func ComputeSources(p Provenance) []Source {
	out := make([]Source, 0, 4)
	if p.Stored {
		out = append(out, SourceJSON)
	}
	if p.Image {
		out = append(out, SourceImage)
	}
	if p.Stub {
		out = append(out, SourceStub)
	}
	if p.ExtURL {
		out = append(out, SourceURL)
	}
	return out
}
