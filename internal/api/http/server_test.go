package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cybersmurf/mimm-music-search/internal/domain"
	"github.com/cybersmurf/mimm-music-search/internal/search"
)

type fakeSearchService struct {
	lastQuery string
	lastLimit int
	callCount int
	err       error
}

func (f *fakeSearchService) Search(ctx context.Context, query string, limit int) ([]domain.Track, error) {
	_ = ctx
	f.callCount++
	f.lastQuery = query
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []domain.Track{
		{Title: query + "-result", Artist: "Artist", Album: "Album", Source: domain.SourceMusicBrainz, ExternalID: "rec-1"},
	}, nil
}

func (f *fakeSearchService) Sources() []domain.TrackSource {
	return []domain.TrackSource{domain.SourceMusicBrainz, domain.SourceDeezer, domain.SourceITunes}
}

func (f *fakeSearchService) Diagnostics() []search.ProviderDiagnostics {
	return []search.ProviderDiagnostics{
		{Name: "musicbrainz"},
		{Name: "deezer"},
		{Name: "itunes"},
	}
}

func doRequest(t *testing.T, handler http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(method, target, nil))
	return recorder
}

func TestSearchEndpoint(t *testing.T) {
	service := &fakeSearchService{}
	handler := NewServer(service).Handler()

	recorder := doRequest(t, handler, http.MethodGet, "/search?query=yesterday&limit=5")
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", recorder.Code, recorder.Body.String())
	}
	if service.lastQuery != "yesterday" || service.lastLimit != 5 {
		t.Fatalf("unexpected service call: query=%q limit=%d", service.lastQuery, service.lastLimit)
	}

	var response domain.SearchResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response.Query != "yesterday" || len(response.Items) != 1 {
		t.Fatalf("unexpected response: %#v", response)
	}
	if response.Items[0].Source != domain.SourceMusicBrainz {
		t.Fatalf("unexpected item: %#v", response.Items[0])
	}
}

func TestSearchEndpointDefaultLimit(t *testing.T) {
	service := &fakeSearchService{}
	handler := NewServer(service).Handler()

	recorder := doRequest(t, handler, http.MethodGet, "/search?query=abba")
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	if service.lastLimit != defaultSearchLimit {
		t.Fatalf("expected default limit %d, got %d", defaultSearchLimit, service.lastLimit)
	}
}

func TestSearchEndpointRequiresQuery(t *testing.T) {
	service := &fakeSearchService{}
	handler := NewServer(service).Handler()

	for _, target := range []string{"/search", "/search?query=", "/search?query=%20%20"} {
		recorder := doRequest(t, handler, http.MethodGet, target)
		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, recorder.Code)
		}
	}
	if service.callCount != 0 {
		t.Fatalf("service must not be called for blank queries, got %d calls", service.callCount)
	}
}

func TestSearchEndpointInvalidLimit(t *testing.T) {
	handler := NewServer(&fakeSearchService{}).Handler()

	for _, target := range []string{"/search?query=x&limit=abc", "/search?query=x&limit=1.5"} {
		recorder := doRequest(t, handler, http.MethodGet, target)
		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, recorder.Code)
		}
	}
}

func TestSearchEndpointOutOfRangeLimitPassedThrough(t *testing.T) {
	cases := []struct {
		target string
		limit  int
	}{
		{target: "/search?query=x&limit=0", limit: 0},
		{target: "/search?query=x&limit=-3", limit: -3},
		{target: "/search?query=x&limit=100", limit: 100},
	}
	for _, tc := range cases {
		service := &fakeSearchService{}
		handler := NewServer(service).Handler()
		recorder := doRequest(t, handler, http.MethodGet, tc.target)
		if recorder.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tc.target, recorder.Code)
		}
		// The handler forwards bound ints untouched; clamping to [1,25]
		// happens in the search service.
		if service.lastLimit != tc.limit {
			t.Fatalf("%s: expected limit %d forwarded, got %d", tc.target, tc.limit, service.lastLimit)
		}
	}
}

func TestSearchEndpointMethodNotAllowed(t *testing.T) {
	handler := NewServer(&fakeSearchService{}).Handler()

	recorder := doRequest(t, handler, http.MethodPost, "/search?query=x")
	if recorder.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", recorder.Code)
	}
}

func TestSearchEndpointServiceError(t *testing.T) {
	handler := NewServer(&fakeSearchService{err: errors.New("store failed")}).Handler()

	recorder := doRequest(t, handler, http.MethodGet, "/search?query=x")
	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", recorder.Code)
	}
}

func TestSearchEndpointNoProviders(t *testing.T) {
	handler := NewServer(&fakeSearchService{err: search.ErrNoProviders}).Handler()

	recorder := doRequest(t, handler, http.MethodGet, "/search?query=x")
	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", recorder.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	handler := NewServer(&fakeSearchService{}).Handler()

	recorder := doRequest(t, handler, http.MethodGet, "/health")
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
}

func TestProvidersEndpoint(t *testing.T) {
	handler := NewServer(&fakeSearchService{}).Handler()

	recorder := doRequest(t, handler, http.MethodGet, "/search/providers")
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	var payload struct {
		Providers []string `json:"providers"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Providers) != 3 || payload.Providers[0] != "musicbrainz" {
		t.Fatalf("unexpected providers: %#v", payload.Providers)
	}
}

func TestProvidersHealthEndpoint(t *testing.T) {
	handler := NewServer(&fakeSearchService{}).Handler()

	recorder := doRequest(t, handler, http.MethodGet, "/search/providers/health")
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	var payload struct {
		Providers []search.ProviderDiagnostics `json:"providers"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Providers) != 3 {
		t.Fatalf("unexpected diagnostics: %#v", payload.Providers)
	}
}
