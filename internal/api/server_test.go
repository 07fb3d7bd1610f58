package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"comicadmin/internal/admin"
	"comicadmin/internal/config"
	"comicadmin/internal/testsupport"
)

func newTestServer(t *testing.T, cfg *config.Config, prober *testsupport.Prober) *httptest.Server {
	t.Helper()
	if prober == nil {
		prober = testsupport.NewProber()
	}
	svc, err := admin.New(cfg, nil,
		admin.WithProber(prober),
		admin.WithClock(func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }))
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(NewServer("", svc, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, body string, out any) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode response: %v", method, url, err)
		}
	}
	return resp
}

type viewResponse struct {
	Revision string           `json:"revision"`
	Status   string           `json:"status"`
	Comics   []map[string]any `json:"comics"`
}

func TestListAndSaveComics(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.SeedSite(t, cfg, testsupport.Site{
		Comics: `{"schema_version": 2, "comics": {"20240101": {"name": "First", "transcript": "<p>Hi</p>"}}}`,
		Images: map[string][]string{"assets/comic_hires": {"20240103.png"}},
	})
	srv := newTestServer(t, cfg, nil)

	var view viewResponse
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/comics", "", &view)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("missing request id header")
	}
	if len(view.Comics) != 2 || view.Comics[0]["id"] != "20240103" {
		t.Fatalf("comics = %v", view.Comics)
	}
	if view.Comics[1]["transcript"] != "<p>Hi</p>" {
		t.Fatalf("transcript = %v", view.Comics[1]["transcript"])
	}

	body := `{"revision": "` + view.Revision + `", "comics": {"20240101": {"name": "First"}, "20240102": {"name": "Second"}}}`
	var saved SaveResponse
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/comics", body, &saved)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save status = %d", resp.StatusCode)
	}
	if saved.Stubs.Created != 1 || len(saved.Delta.Created) != 1 || saved.Delta.Created[0] != "20240102" {
		t.Fatalf("save = %+v", saved)
	}
	if !testsupport.Exists(t, testsupport.StubPath(cfg, "20240102")) {
		t.Fatal("stub not written")
	}

	// The old revision is now stale.
	var apiErr ErrorResponse
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/comics", body, &apiErr)
	if resp.StatusCode != http.StatusConflict || apiErr.Error == "" || apiErr.RequestID == "" {
		t.Fatalf("stale save: status=%d body=%+v", resp.StatusCode, apiErr)
	}
}

func TestSaveRejectsInvalidPayload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	srv := newTestServer(t, cfg, nil)

	for _, body := range []string{`{`, `{"comics": {"abc": {}}}`, `{"comics": {"20240101": {"type": "Cover"}}}`} {
		var apiErr ErrorResponse
		resp := doJSON(t, http.MethodPut, srv.URL+"/api/comics", body, &apiErr)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status = %d (%s)", body, resp.StatusCode, apiErr.Error)
		}
	}
}

func TestDiffEndpoint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.SeedSite(t, cfg, testsupport.Site{Comics: `{"20240101": {}, "20240102": {}}`})
	srv := newTestServer(t, cfg, nil)

	var plan admin.Plan
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/comics/diff", `{"20240102": {}, "20240103": {}}`, &plan)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(plan.Delta.Created) != 1 || plan.Delta.Created[0] != "20240103" || len(plan.Delta.Deleted) != 1 || plan.Delta.Deleted[0] != "20240101" {
		t.Fatalf("plan = %+v", plan)
	}
}

func TestGetComicNotFound(t *testing.T) {
	srv := newTestServer(t, testsupport.NewConfig(t), nil)
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/comics/20991231", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/comics/not-an-id", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestResolveAndURLCacheEndpoints(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.SeedSite(t, cfg, testsupport.Site{Comics: `{"20240101": {"url_originalbild": "p1"}}`})
	prober := testsupport.NewProber(cfg.External.OriginalBaseURL + "p1.png")
	srv := newTestServer(t, cfg, prober)

	var res ResolveResponse
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/comics/20240101/resolve", "", &res)
	if resp.StatusCode != http.StatusOK || !res.Found || res.FromCache {
		t.Fatalf("status=%d res=%+v", resp.StatusCode, res)
	}
	if res.URL != cfg.External.OriginalBaseURL+"p1.png?c=20240501" {
		t.Fatalf("url = %q", res.URL)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/comics/20240101/resolve?key=url_originalbild", "", &res)
	if resp.StatusCode != http.StatusOK || !res.FromCache {
		t.Fatalf("second resolve: status=%d res=%+v", resp.StatusCode, res)
	}

	var update URLCacheUpdate
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/url-cache", `{"id": "20240101", "key": "hires", "url": "/assets/comic_hires/20240101.png"}`, &update)
	if resp.StatusCode != http.StatusOK || update.URL != "/assets/comic_hires/20240101.png?c=20240501" {
		t.Fatalf("status=%d update=%+v", resp.StatusCode, update)
	}
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/url-cache", `{"id": "20240101", "key": "bogus", "url": "/x.png"}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown key status = %d", resp.StatusCode)
	}

	var cached URLCacheEntry
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/url-cache/20240101", "", &cached)
	if resp.StatusCode != http.StatusOK || cached.Entries.Hires == "" || cached.Entries.OriginalImage == "" {
		t.Fatalf("status=%d cached=%+v", resp.StatusCode, cached)
	}
}

func TestCharactersLegacyIsUnprocessable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.SeedSite(t, cfg, testsupport.Site{Characters: `{"trace": {"name": "Trace"}}`})
	srv := newTestServer(t, cfg, nil)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/characters", "", nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestSettingsEndpoints(t *testing.T) {
	srv := newTestServer(t, testsupport.NewConfig(t), nil)

	var got map[string]any
	resp := doJSON(t, http.MethodPut, srv.URL+"/api/settings/alice", `{"page_size": 10, "sort_descending": false}`, &got)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put status = %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/settings/alice", "", &got)
	if resp.StatusCode != http.StatusOK || got["page_size"] != float64(10) {
		t.Fatalf("status=%d settings=%v", resp.StatusCode, got)
	}
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/settings/alice", `{"page_size": 0}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid settings status = %d", resp.StatusCode)
	}
}

func TestStatusAndUnknownRoute(t *testing.T) {
	srv := newTestServer(t, testsupport.NewConfig(t), nil)

	var report admin.StatusReport
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/status", "", &report)
	if resp.StatusCode != http.StatusOK || report.Status != "created" {
		t.Fatalf("status=%d report=%+v", resp.StatusCode, report)
	}
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/nope", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown route status = %d", resp.StatusCode)
	}
}
