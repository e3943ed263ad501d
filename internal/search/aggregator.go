package search

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cybersmurf/mimm-music-search/internal/domain"
)

// Search resolves a free-text song/artist query into deduplicated track
// metadata. Catalogs are consulted strictly in order; each fallback step
// runs only when every step before it produced zero tracks. A provider
// failure is swallowed into "zero tracks" (fail-soft), a metadata store
// failure is not.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]domain.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Track{}, nil
	}
	limit = clampLimit(limit)

	if s.cacheDisabled {
		return s.executeSearch(ctx, query, limit)
	}

	startedAt := time.Now()
	key := buildCacheKey(query, limit)

	if tracks, ok := s.cacheLookup(ctx, key, startedAt); ok {
		s.markPopular(key, query, limit, startedAt)
		return tracks, nil
	}

	tracks, err := s.executeSearch(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	// Empty results are never cached: a later identical query should retry
	// all catalogs instead of sticking to a negative answer.
	if len(tracks) > 0 && ctx.Err() == nil {
		now := time.Now()
		s.cacheStore(ctx, key, tracks, cacheTTLFor(tracks[0].Source), now)
		s.markPopular(key, query, limit, now)
	}
	return tracks, nil
}

func (s *Service) executeSearch(ctx context.Context, query string, limit int) ([]domain.Track, error) {
	if len(s.providers) == 0 {
		return nil, ErrNoProviders
	}

	runCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	for _, provider := range s.providers {
		name := string(provider.Source())

		if blocked, until, lastErr := s.isProviderBlocked(name, time.Now()); blocked {
			slog.Warn("catalog temporarily disabled, falling through",
				slog.String("catalog", name),
				slog.Time("until", until),
				slog.String("lastError", lastErr),
			)
			continue
		}

		providerStartedAt := time.Now()
		var (
			tracks   []domain.Track
			payloads []domain.RecordingPayload
		)
		searchErr := RetryWithBackoff(runCtx, DefaultRetryConfig(), func() error {
			var err error
			if src, ok := provider.(MetadataSource); ok && s.store != nil {
				tracks, payloads, err = src.SearchWithMetadata(runCtx, query, limit)
			} else {
				tracks, err = provider.Search(runCtx, query, limit)
			}
			return err
		})
		s.recordProviderResult(name, searchErr, time.Since(providerStartedAt), time.Now())

		if searchErr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("catalog search failed",
				slog.String("catalog", name),
				slog.String("query", query),
				slog.Int64("elapsedMs", time.Since(providerStartedAt).Milliseconds()),
				slog.String("error", searchErr.Error()),
			)
			continue
		}
		if len(tracks) == 0 {
			continue
		}

		if len(payloads) > 0 {
			if err := s.store.SaveRecordings(runCtx, payloads); err != nil {
				return nil, fmt.Errorf("persist %s metadata: %w", name, err)
			}
		}

		return Dedupe(tracks), nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []domain.Track{}, nil
}

// searchUncached re-runs the full pipeline for the cache warmer, writing
// back through the cache on success.
func (s *Service) searchUncached(ctx context.Context, query string, limit int) error {
	tracks, err := s.executeSearch(ctx, query, limit)
	if err != nil {
		return err
	}
	if len(tracks) > 0 && ctx.Err() == nil {
		s.cacheStore(ctx, buildCacheKey(query, limit), tracks, cacheTTLFor(tracks[0].Source), time.Now())
	}
	return nil
}

func clampLimit(limit int) int {
	if limit < minSearchLimit {
		return minSearchLimit
	}
	if limit > maxSearchLimit {
		return maxSearchLimit
	}
	return limit
}

func buildCacheKey(query string, limit int) string {
	return strings.ToLower(strings.TrimSpace(query)) + "::" + strconv.Itoa(limit)
}

func cacheTTLFor(source domain.TrackSource) time.Duration {
	switch source {
	case domain.SourceMusicBrainz:
		return musicbrainzCacheTTL
	case domain.SourceDeezer:
		return deezerCacheTTL
	default:
		return itunesCacheTTL
	}
}
