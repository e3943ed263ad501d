package search

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/cybersmurf/mimm-music-search/internal/domain"
	"github.com/cybersmurf/mimm-music-search/internal/metrics"
)

const (
	defaultWarmInterval      = 10 * time.Minute
	defaultWarmLeadTime      = 30 * time.Minute
	defaultWarmTopQueries    = 12
	defaultCacheMaxEntries   = 500
	defaultPopularMaxEntries = 200

	// Bounded warm refreshes so the warmer never hammers the catalogs.
	maxConcurrentWarmRefreshes = 3
)

type warmerConfig struct {
	warmInterval      time.Duration
	warmLeadTime      time.Duration
	warmTopQueries    int
	cacheMaxEntries   int
	popularMaxEntries int
}

func defaultWarmerConfig() warmerConfig {
	return warmerConfig{
		warmInterval:      defaultWarmInterval,
		warmLeadTime:      defaultWarmLeadTime,
		warmTopQueries:    defaultWarmTopQueries,
		cacheMaxEntries:   defaultCacheMaxEntries,
		popularMaxEntries: defaultPopularMaxEntries,
	}
}

type cachedTracks struct {
	tracks    []domain.Track
	updatedAt time.Time
	expiresAt time.Time
}

type popularQuery struct {
	query    string
	limit    int
	hits     int
	lastSeen time.Time
	lastWarm time.Time
}

type warmSpec struct {
	key   string
	query string
	limit int
}

func (s *Service) cacheLookup(ctx context.Context, key string, now time.Time) ([]domain.Track, bool) {
	if s.redisCache != nil {
		tracks, remaining, found, err := s.redisCache.Get(ctx, key)
		if err == nil && found && len(tracks) > 0 {
			metrics.CacheHitsTotal.Inc()
			// Mirror into the local tier with the remaining shared TTL so
			// the copy expires with the Redis entry, not a fresh full TTL.
			if remaining > 0 {
				s.cacheStoreMemory(key, tracks, remaining, now)
			}
			return tracks, true
		}
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	entry, ok := s.cache[key]
	if !ok {
		metrics.CacheMissesTotal.Inc()
		return nil, false
	}
	if now.Before(entry.expiresAt) {
		metrics.CacheHitsTotal.Inc()
		return cloneTracks(entry.tracks), true
	}

	metrics.CacheMissesTotal.Inc()
	delete(s.cache, key)
	return nil, false
}

func (s *Service) cacheStore(ctx context.Context, key string, tracks []domain.Track, ttl time.Duration, now time.Time) {
	if len(tracks) == 0 || ttl <= 0 {
		return
	}
	if s.redisCache != nil {
		_ = s.redisCache.Set(ctx, key, tracks, ttl)
	}
	s.cacheStoreMemory(key, tracks, ttl, now)
}

func (s *Service) cacheStoreMemory(key string, tracks []domain.Track, ttl time.Duration, now time.Time) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.cache[key] = &cachedTracks{
		tracks:    cloneTracks(tracks),
		updatedAt: now,
		expiresAt: now.Add(ttl),
	}
	s.trimCacheLocked(now)
}

func (s *Service) trimCacheLocked(now time.Time) {
	for key, entry := range s.cache {
		if now.After(entry.expiresAt) {
			delete(s.cache, key)
		}
	}

	maxEntries := s.warmerCfg.cacheMaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultCacheMaxEntries
	}
	if len(s.cache) <= maxEntries {
		return
	}

	type pair struct {
		key   string
		entry *cachedTracks
	}
	items := make([]pair, 0, len(s.cache))
	for key, entry := range s.cache {
		items = append(items, pair{key: key, entry: entry})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].entry.updatedAt.Before(items[j].entry.updatedAt)
	})
	for i := 0; i < len(items)-maxEntries; i++ {
		delete(s.cache, items[i].key)
	}
}

func (s *Service) markPopular(key, query string, limit int, now time.Time) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	pop, ok := s.popular[key]
	if !ok {
		s.popular[key] = &popularQuery{query: query, limit: limit, hits: 1, lastSeen: now}
	} else {
		pop.hits++
		pop.lastSeen = now
	}

	maxEntries := s.warmerCfg.popularMaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultPopularMaxEntries
	}
	if len(s.popular) <= maxEntries {
		return
	}

	// Drop the least popular, oldest queries.
	type pair struct {
		key   string
		value *popularQuery
	}
	items := make([]pair, 0, len(s.popular))
	for popKey, value := range s.popular {
		items = append(items, pair{key: popKey, value: value})
	}
	sort.Slice(items, func(i, j int) bool {
		left := items[i].value
		right := items[j].value
		if left.hits != right.hits {
			return left.hits < right.hits
		}
		return left.lastSeen.Before(right.lastSeen)
	})
	for i := 0; i < len(items)-maxEntries; i++ {
		delete(s.popular, items[i].key)
	}
}

func (s *Service) runWarmer(ctx context.Context) {
	ticker := time.NewTicker(s.warmerCfg.warmInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runWarmCycle(ctx)
		}
	}
}

func (s *Service) runWarmCycle(ctx context.Context) {
	specs := s.collectWarmSpecs(time.Now())
	if len(specs) == 0 {
		return
	}

	sem := semaphore.NewWeighted(maxConcurrentWarmRefreshes)
	for _, spec := range specs {
		if ctx.Err() != nil {
			return
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			return
		}
		go func(spec warmSpec) {
			defer sem.Release(1)
			refreshCtx, cancel := context.WithTimeout(ctx, s.timeout+2*time.Second)
			defer cancel()
			_ = s.searchUncached(refreshCtx, spec.query, spec.limit)
		}(spec)
	}
	_ = sem.Acquire(context.Background(), maxConcurrentWarmRefreshes)
	sem.Release(maxConcurrentWarmRefreshes)
}

// collectWarmSpecs picks the hottest queries whose cache entries are gone
// or about to expire.
func (s *Service) collectWarmSpecs(now time.Time) []warmSpec {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if len(s.popular) == 0 {
		return nil
	}

	keys := make([]string, 0, len(s.popular))
	for key := range s.popular {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		left := s.popular[keys[i]]
		right := s.popular[keys[j]]
		if left.hits != right.hits {
			return left.hits > right.hits
		}
		return left.lastSeen.After(right.lastSeen)
	})

	limit := s.warmerCfg.warmTopQueries
	if limit <= 0 {
		limit = defaultWarmTopQueries
	}
	if len(keys) < limit {
		limit = len(keys)
	}

	specs := make([]warmSpec, 0, limit)
	for _, key := range keys[:limit] {
		pop := s.popular[key]
		if pop == nil {
			continue
		}
		if !pop.lastWarm.IsZero() && now.Sub(pop.lastWarm) < s.warmerCfg.warmInterval/2 {
			continue
		}
		if entry, ok := s.cache[key]; ok && now.Before(entry.expiresAt.Add(-s.warmerCfg.warmLeadTime)) {
			continue
		}
		pop.lastWarm = now
		specs = append(specs, warmSpec{key: key, query: pop.query, limit: pop.limit})
	}
	return specs
}

func cloneTracks(tracks []domain.Track) []domain.Track {
	if tracks == nil {
		return nil
	}
	return append([]domain.Track(nil), tracks...)
}
