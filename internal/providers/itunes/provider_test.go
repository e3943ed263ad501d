package itunes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cybersmurf/mimm-music-search/internal/domain"
)

func TestSearchMapsResults(t *testing.T) {
	var gotTerm, gotMedia, gotEntity string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTerm = r.URL.Query().Get("term")
		gotMedia = r.URL.Query().Get("media")
		gotEntity = r.URL.Query().Get("entity")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"results": [
				{"trackId": 1440833098, "trackName": "Hey Jude", "artistName": "The Beatles",
				 "collectionName": "1 (2015 Version)", "artworkUrl100": "https://cdn.test/art.jpg",
				 "trackViewUrl": "https://music.test/hey-jude"},
				{"trackName": "", "artistName": "Ghost"}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(Config{Endpoint: server.URL, Client: server.Client()})
	tracks, err := client.Search(context.Background(), "hey jude", 10)
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if gotTerm != "hey jude" || gotMedia != "music" || gotEntity != "song" {
		t.Fatalf("unexpected request params: term=%q media=%q entity=%q", gotTerm, gotMedia, gotEntity)
	}

	if len(tracks) != 1 {
		t.Fatalf("blank track names must be dropped, got %d tracks", len(tracks))
	}
	track := tracks[0]
	if track.Title != "Hey Jude" || track.Artist != "The Beatles" || track.Album != "1 (2015 Version)" {
		t.Fatalf("unexpected track: %#v", track)
	}
	if track.Source != domain.SourceITunes || track.ExternalID != "1440833098" {
		t.Fatalf("unexpected source/id: %#v", track)
	}
}

func TestExternalIDFallbacks(t *testing.T) {
	cases := []struct {
		name     string
		item     resultItem
		expected string
	}{
		{name: "track id wins", item: resultItem{TrackID: 7, TrackName: "T", TrackViewURL: "https://x"}, expected: "7"},
		{name: "view url next", item: resultItem{TrackName: "T", TrackViewURL: "https://x"}, expected: "https://x"},
		{name: "name last", item: resultItem{TrackName: "T"}, expected: "T"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := externalID(tc.item); got != tc.expected {
				t.Fatalf("externalID = %q, want %q", got, tc.expected)
			}
		})
	}
}

func TestSearchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(Config{Endpoint: server.URL, Client: server.Client()})
	if _, err := client.Search(context.Background(), "x", 5); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}
