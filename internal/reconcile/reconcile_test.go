package reconcile

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"comicadmin/internal/catalog"
	"comicadmin/internal/entityid"
)

func TestBuildUniverseIsCompleteAndDescending(t *testing.T) {
	stored := entityid.NewSet("20240101", "20240103")
	images := entityid.NewSet("20240102", "20240103")
	stubs := entityid.NewSet("20231231")

	got := BuildUniverse(stored, images, stubs)
	want := []string{"20240103", "20240102", "20240101", "20231231"}
	if !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if again := BuildUniverse(stubs, images, stored); !slices.Equal(again, want) {
		t.Fatalf("order of inputs changed result: %v", again)
	}
}

func TestMergeRecordProvenance(t *testing.T) {
	stored := catalog.Record{Name: "Stored", URLOriginalBild: "abc"}
	tests := []struct {
		name    string
		stored  *catalog.Record
		images  bool
		stubs   bool
		cached  bool
		want    []catalog.Source
		wantRec string
	}{
		{"image only", nil, true, false, false, []catalog.Source{catalog.SourceImage}, ""},
		{"stub only", nil, false, true, false, []catalog.Source{catalog.SourceStub}, ""},
		{"cached url without record", nil, false, false, true, []catalog.Source{catalog.SourceURL}, ""},
		{"stored with url", &stored, false, true, false, []catalog.Source{catalog.SourceJSON, catalog.SourceStub, catalog.SourceURL}, "Stored"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := MergeRecord("20240101", tt.stored, tt.images, tt.stubs, tt.cached)
			if !slices.Equal(entry.Sources, tt.want) {
				t.Fatalf("sources = %v, want %v", entry.Sources, tt.want)
			}
			if entry.Record.Name != tt.wantRec {
				t.Fatalf("name = %q", entry.Record.Name)
			}
			if entry.Record.Datum != "20240101" || entry.Record.Type != catalog.TypeComicPage {
				t.Fatalf("defaults not applied: %+v", entry.Record)
			}
		})
	}
}

func TestMergeRecordIsIdempotent(t *testing.T) {
	stored := catalog.Record{Name: "A", Characters: []string{"b", "a"}}
	first := MergeRecord("20240101", &stored, true, true, false)
	second := MergeRecord("20240101", &first.Record, true, true, false)
	if !first.Record.Equal(second.Record) || !slices.Equal(first.Sources, second.Sources) {
		t.Fatalf("merge not idempotent: %+v vs %+v", first, second)
	}
}

func TestEntryJSONCarriesDerivedSources(t *testing.T) {
	entry := MergeRecord("20240101", nil, true, false, false)
	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["id"] != "20240101" {
		t.Fatalf("id = %v", decoded["id"])
	}
	sources, ok := decoded["sources"].([]any)
	if !ok || len(sources) != 1 || sources[0] != "image" {
		t.Fatalf("sources = %v", decoded["sources"])
	}
}

func TestDiff(t *testing.T) {
	d := Diff(entityid.NewSet("20240101", "20240102"), entityid.NewSet("20240102", "20240103"))
	if !slices.Equal(d.Created, []string{"20240103"}) || !slices.Equal(d.Deleted, []string{"20240101"}) {
		t.Fatalf("delta = %+v", d)
	}
	if same := Diff(entityid.NewSet("20240101"), entityid.NewSet("20240101")); !same.Empty() {
		t.Fatalf("identical sets produced %+v", same)
	}
}

type staticStore catalog.Snapshot

func (s staticStore) Load() catalog.Snapshot { return catalog.Snapshot(s) }

type staticURLs struct {
	ids entityid.Set
	err error
}

func (s staticURLs) CachedOriginals() (entityid.Set, error) { return s.ids, s.err }

func TestReconcilerView(t *testing.T) {
	site := memfs.New()
	for _, name := range []string{
		"assets/comic_hires/20240102.png",
		"assets/comic_lowres/20240103.jpg",
		"comic/20240101.php",
		"comic/index.php",
	} {
		if err := util.WriteFile(site, name, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store := staticStore{
		Entities: map[string]catalog.Record{
			"20240101":  {Name: "First"},
			"not-an-id": {Name: "ignored"},
		},
		Revision: "rev",
		Status:   catalog.StatusLoaded,
	}
	layout := Layout{
		ImageDirs:       []string{"assets/comic_hires", "assets/comic_lowres"},
		ImageExtensions: []string{".png", ".jpg"},
		StubDir:         "comic",
		StubExtension:   ".php",
	}
	r := NewReconciler(store, site, layout, staticURLs{ids: entityid.NewSet("20240103")}, nil)

	view, err := r.View()
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, e := range view.Entries {
		ids = append(ids, e.ID)
	}
	if !slices.Equal(ids, []string{"20240103", "20240102", "20240101"}) {
		t.Fatalf("ids = %v", ids)
	}
	if view.Revision != "rev" {
		t.Fatalf("revision = %q", view.Revision)
	}
	first, _ := view.Lookup("20240101")
	if !slices.Equal(first.Sources, []catalog.Source{catalog.SourceJSON, catalog.SourceStub}) {
		t.Fatalf("20240101 sources = %v", first.Sources)
	}
	third, _ := view.Lookup("20240103")
	if !slices.Equal(third.Sources, []catalog.Source{catalog.SourceImage, catalog.SourceURL}) {
		t.Fatalf("20240103 sources = %v", third.Sources)
	}
}

func TestReconcilerToleratesBrokenURLCache(t *testing.T) {
	store := staticStore{Entities: map[string]catalog.Record{"20240101": {}}, Status: catalog.StatusLoaded}
	r := NewReconciler(store, memfs.New(), Layout{StubDir: "comic", StubExtension: ".php"}, staticURLs{err: errors.New("boom")}, nil)
	view, err := r.View()
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Entries) != 1 || view.Entries[0].HasSource(catalog.SourceURL) {
		t.Fatalf("entries = %+v", view.Entries)
	}
}

func TestConcreteSaveScenarioDelta(t *testing.T) {
	previous := map[string]catalog.Record{"20240101": {}}
	submitted := map[string]catalog.Record{"20240101": {}, "20240102": {}}
	d := Diff(entityid.KeysOf(previous), entityid.KeysOf(submitted))
	if !slices.Equal(d.Created, []string{"20240102"}) || len(d.Deleted) != 0 {
		t.Fatalf("delta = %+v", d)
	}
}
