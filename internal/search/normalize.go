package search

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/cybersmurf/mimm-music-search/internal/domain"
)

var (
	bracketGroupPattern   = regexp.MustCompile(`\s*\([^)]*?\)|\s*\[[^\]]*?\]|\s*\{[^}]*?\}`)
	remasterSuffixPattern = regexp.MustCompile(`\s*-\s*\d{4}\s+remaster(?:ed)?(?:\s+\d{4})?\s*$`)
	whitespacePattern     = regexp.MustCompile(`\s+`)
)

// foldMarks strips combining marks after NFD decomposition, so
// "Beyoncé" and "Beyonce" compare equal.
var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize canonicalizes a track or artist string for dedup comparison:
// lowercase, parenthesized/bracketed suffixes removed (non-greedy),
// trailing "- <year> Remaster[ed]" markers removed, diacritics folded,
// whitespace collapsed.
func Normalize(text string) string {
	value := strings.ToLower(strings.TrimSpace(text))
	if value == "" {
		return ""
	}

	value = bracketGroupPattern.ReplaceAllString(value, " ")
	value = remasterSuffixPattern.ReplaceAllString(value, "")

	if folded, _, err := transform.String(foldMarks, value); err == nil {
		value = folded
	}

	value = whitespacePattern.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}

type dedupeKey struct {
	title  string
	artist string
}

// Dedupe collapses tracks sharing a normalized (title, artist) pair,
// keeping the first-seen entry and preserving result order. Applied once
// per provider result list, before caching.
func Dedupe(tracks []domain.Track) []domain.Track {
	if len(tracks) < 2 {
		return tracks
	}
	seen := make(map[dedupeKey]struct{}, len(tracks))
	out := make([]domain.Track, 0, len(tracks))
	for _, track := range tracks {
		key := dedupeKey{title: Normalize(track.Title), artist: Normalize(track.Artist)}
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, track)
	}
	return out
}
