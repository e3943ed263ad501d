package search

import (
	"testing"

	"github.com/cybersmurf/mimm-music-search/internal/domain"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "lowercases and trims", input: "  Yesterday  ", expected: "yesterday"},
		{name: "strips parenthesized qualifier", input: "Yesterday (Remastered 2009)", expected: "yesterday"},
		{name: "strips bracketed qualifier", input: "Help! [Mono]", expected: "help!"},
		{name: "strips remaster suffix", input: "Come Together - 2019 Remaster", expected: "come together"},
		{name: "folds diacritics", input: "Beyoncé", expected: "beyonce"},
		{name: "collapses whitespace", input: "Hey   Jude", expected: "hey jude"},
		{name: "empty stays empty", input: "   ", expected: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.input); got != tc.expected {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestDedupeKeepsFirstOccurrence(t *testing.T) {
	tracks := []domain.Track{
		{Title: "Yesterday (Remastered 2009)", Artist: "The Beatles", ExternalID: "first"},
		{Title: "yesterday", Artist: "THE BEATLES", ExternalID: "second"},
		{Title: "Yesterday", Artist: "Boyz II Men", ExternalID: "third"},
	}

	deduped := Dedupe(tracks)
	if len(deduped) != 2 {
		t.Fatalf("expected 2 tracks, got %d: %#v", len(deduped), deduped)
	}
	if deduped[0].ExternalID != "first" {
		t.Fatalf("expected first occurrence to win, got %#v", deduped[0])
	}
	if deduped[1].ExternalID != "third" {
		t.Fatalf("different artist must survive dedupe, got %#v", deduped[1])
	}
}

func TestDedupeEmptyInput(t *testing.T) {
	if got := Dedupe(nil); len(got) != 0 {
		t.Fatalf("expected empty slice, got %#v", got)
	}
}
