package search

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cybersmurf/mimm-music-search/internal/domain"
)

func TestBuildCacheKey(t *testing.T) {
	cases := []struct {
		query    string
		limit    int
		expected string
	}{
		{query: "Yesterday", limit: 10, expected: "yesterday::10"},
		{query: "  MIXED Case  ", limit: 5, expected: "mixed case::5"},
		{query: "beyoncé", limit: 25, expected: "beyoncé::25"},
	}
	for _, tc := range cases {
		if got := buildCacheKey(tc.query, tc.limit); got != tc.expected {
			t.Fatalf("buildCacheKey(%q, %d) = %q, want %q", tc.query, tc.limit, got, tc.expected)
		}
	}
}

func TestCacheTTLPerSource(t *testing.T) {
	if cacheTTLFor(domain.SourceMusicBrainz) != 12*time.Hour {
		t.Fatalf("musicbrainz ttl mismatch")
	}
	if cacheTTLFor(domain.SourceDeezer) != 8*time.Hour {
		t.Fatalf("deezer ttl mismatch")
	}
	if cacheTTLFor(domain.SourceITunes) != 6*time.Hour {
		t.Fatalf("itunes ttl mismatch")
	}
}

func TestCacheLookupExpiry(t *testing.T) {
	service := NewService([]Provider{&fakeProvider{source: domain.SourceMusicBrainz}}, time.Second)
	now := time.Now()

	service.cacheStoreMemory("key", []domain.Track{mbTrack("T", "A")}, time.Minute, now)

	if _, ok := service.cacheLookup(context.Background(), "key", now.Add(30*time.Second)); !ok {
		t.Fatalf("expected hit before expiry")
	}
	if _, ok := service.cacheLookup(context.Background(), "key", now.Add(2*time.Minute)); ok {
		t.Fatalf("expected miss after expiry")
	}
	// Expired entries are dropped on lookup.
	service.cacheMu.Lock()
	_, stillThere := service.cache["key"]
	service.cacheMu.Unlock()
	if stillThere {
		t.Fatalf("expired entry should be evicted")
	}
}

func TestCacheLookupReturnsCopy(t *testing.T) {
	service := NewService([]Provider{&fakeProvider{source: domain.SourceMusicBrainz}}, time.Second)
	now := time.Now()
	service.cacheStoreMemory("key", []domain.Track{mbTrack("Original", "A")}, time.Minute, now)

	tracks, ok := service.cacheLookup(context.Background(), "key", now)
	if !ok {
		t.Fatalf("expected hit")
	}
	tracks[0].Title = "Mutated"

	again, _ := service.cacheLookup(context.Background(), "key", now)
	if again[0].Title != "Original" {
		t.Fatalf("cache entry was mutated through a returned slice")
	}
}

func TestTrimCacheEvictsOldest(t *testing.T) {
	service := NewService([]Provider{&fakeProvider{source: domain.SourceMusicBrainz}}, time.Second)
	service.warmerCfg.cacheMaxEntries = 3
	base := time.Now()

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("key-%d", i)
		service.cacheStoreMemory(key, []domain.Track{mbTrack(key, "A")}, time.Hour, base.Add(time.Duration(i)*time.Second))
	}

	service.cacheMu.Lock()
	defer service.cacheMu.Unlock()
	if len(service.cache) != 3 {
		t.Fatalf("expected 3 entries after trim, got %d", len(service.cache))
	}
	for _, stale := range []string{"key-0", "key-1"} {
		if _, ok := service.cache[stale]; ok {
			t.Fatalf("expected oldest entry %s to be evicted", stale)
		}
	}
}

type fakeCacheBackend struct {
	tracks []domain.Track
	ttl    time.Duration
	gets   int
	sets   int
}

func (f *fakeCacheBackend) Get(ctx context.Context, key string) ([]domain.Track, time.Duration, bool, error) {
	_ = ctx
	_ = key
	f.gets++
	if len(f.tracks) == 0 {
		return nil, 0, false, nil
	}
	return append([]domain.Track(nil), f.tracks...), f.ttl, true, nil
}

func (f *fakeCacheBackend) Set(ctx context.Context, key string, tracks []domain.Track, ttl time.Duration) error {
	_ = ctx
	_ = key
	_ = tracks
	_ = ttl
	f.sets++
	return nil
}

func TestSharedCacheHitKeepsRemainingTTL(t *testing.T) {
	service := NewService([]Provider{&fakeProvider{source: domain.SourceMusicBrainz}}, time.Second)
	service.redisCache = &fakeCacheBackend{
		tracks: []domain.Track{mbTrack("Shared", "A")},
		ttl:    time.Minute,
	}
	now := time.Now()

	tracks, ok := service.cacheLookup(context.Background(), "shared::10", now)
	if !ok || len(tracks) != 1 {
		t.Fatalf("expected shared-tier hit, got ok=%v tracks=%#v", ok, tracks)
	}

	service.cacheMu.Lock()
	entry := service.cache["shared::10"]
	service.cacheMu.Unlock()
	if entry == nil {
		t.Fatal("expected a local mirror of the shared entry")
	}
	remaining := entry.expiresAt.Sub(now)
	if remaining > time.Minute {
		t.Fatalf("local copy must not outlive the shared entry, got %v", remaining)
	}
	if remaining <= 0 {
		t.Fatalf("local copy should carry the remaining ttl, got %v", remaining)
	}
}

func TestSharedCacheHitWithUnknownTTLNotMirrored(t *testing.T) {
	service := NewService([]Provider{&fakeProvider{source: domain.SourceMusicBrainz}}, time.Second)
	service.redisCache = &fakeCacheBackend{
		tracks: []domain.Track{mbTrack("Shared", "A")},
		ttl:    0,
	}

	if _, ok := service.cacheLookup(context.Background(), "shared::10", time.Now()); !ok {
		t.Fatal("expected shared-tier hit")
	}

	service.cacheMu.Lock()
	_, mirrored := service.cache["shared::10"]
	service.cacheMu.Unlock()
	if mirrored {
		t.Fatal("entries with unknown remaining ttl must not be mirrored locally")
	}
}

func TestCollectWarmSpecsPrefersHotQueries(t *testing.T) {
	service := NewService([]Provider{&fakeProvider{source: domain.SourceMusicBrainz}}, time.Second)
	service.warmerCfg.warmTopQueries = 2
	now := time.Now()

	for i, hits := range []int{1, 5, 3} {
		key := fmt.Sprintf("q-%d::10", i)
		for h := 0; h < hits; h++ {
			service.markPopular(key, fmt.Sprintf("q-%d", i), 10, now)
		}
	}

	specs := service.collectWarmSpecs(now)
	if len(specs) != 2 {
		t.Fatalf("expected 2 warm specs, got %d", len(specs))
	}
	if specs[0].query != "q-1" {
		t.Fatalf("hottest query should be warmed first, got %#v", specs)
	}
}

func TestCollectWarmSpecsSkipsFreshEntries(t *testing.T) {
	service := NewService([]Provider{&fakeProvider{source: domain.SourceMusicBrainz}}, time.Second)
	now := time.Now()

	service.markPopular("fresh::10", "fresh", 10, now)
	service.cacheStoreMemory("fresh::10", []domain.Track{mbTrack("T", "A")}, 12*time.Hour, now)

	if specs := service.collectWarmSpecs(now); len(specs) != 0 {
		t.Fatalf("fresh cache entries should not be rewarmed, got %#v", specs)
	}
}
