package search

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cybersmurf/mimm-music-search/internal/domain"
)

var ErrNoProviders = errors.New("no catalog providers configured")

// Provider wraps one external music catalog. Implementations return their
// mapped tracks or an error; the orchestrator converts errors into empty
// results (fail-soft), so a failing catalog is indistinguishable from one
// with no matches.
type Provider interface {
	Source() domain.TrackSource
	Search(ctx context.Context, query string, limit int) ([]domain.Track, error)
}

// MetadataSource is an optional interface for providers that surface
// canonical entities worth persisting. Only the primary catalog
// (MusicBrainz) implements it.
type MetadataSource interface {
	Provider
	SearchWithMetadata(ctx context.Context, query string, limit int) ([]domain.Track, []domain.RecordingPayload, error)
}

// MetadataStore persists entities discovered from the primary catalog.
// Implementations must be safe for concurrent use.
type MetadataStore interface {
	SaveRecordings(ctx context.Context, payloads []domain.RecordingPayload) error
}

// resultCacheBackend is the shared second cache tier. Get reports the
// entry's remaining TTL so local copies never outlive the shared one.
type resultCacheBackend interface {
	Get(ctx context.Context, key string) ([]domain.Track, time.Duration, bool, error)
	Set(ctx context.Context, key string, tracks []domain.Track, ttl time.Duration) error
}

// Result cache TTLs per source tier. Primary results are the most stable
// (canonical MBIDs), so they live longest.
const (
	musicbrainzCacheTTL = 12 * time.Hour
	deezerCacheTTL      = 8 * time.Hour
	itunesCacheTTL      = 6 * time.Hour
)

const (
	minSearchLimit = 1
	maxSearchLimit = 25
)

type Service struct {
	providers     []Provider
	store         MetadataStore
	timeout       time.Duration
	cacheDisabled bool
	cacheMu       sync.Mutex
	cache         map[string]*cachedTracks
	popular       map[string]*popularQuery
	warmerCfg     warmerConfig
	warmerRun     atomic.Bool
	redisCache    resultCacheBackend
	healthMu      sync.Mutex
	health        map[string]*providerHealth
}

type ServiceOption func(*Service)

func WithRedisCache(backend *RedisCacheBackend) ServiceOption {
	return func(s *Service) {
		s.redisCache = backend
	}
}

func WithCacheDisabled(disabled bool) ServiceOption {
	return func(s *Service) {
		s.cacheDisabled = disabled
	}
}

func WithMetadataStore(store MetadataStore) ServiceOption {
	return func(s *Service) {
		s.store = store
	}
}

// NewService builds the orchestrator. The provider slice is the explicit
// fallback order: each provider is consulted only when every one before it
// produced zero tracks.
func NewService(providers []Provider, timeout time.Duration, opts ...ServiceOption) *Service {
	ordered := make([]Provider, 0, len(providers))
	for _, provider := range providers {
		if provider != nil {
			ordered = append(ordered, provider)
		}
	}

	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	svc := &Service{
		providers: ordered,
		timeout:   timeout,
		cache:     make(map[string]*cachedTracks),
		popular:   make(map[string]*popularQuery),
		warmerCfg: defaultWarmerConfig(),
		health:    make(map[string]*providerHealth),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// StartBackground launches the popular-query cache warmer. Safe to call
// more than once; only the first call starts the goroutine.
func (s *Service) StartBackground(ctx context.Context) {
	if s.cacheDisabled {
		return
	}
	if s.warmerRun.CompareAndSwap(false, true) {
		go s.runWarmer(ctx)
	}
}

// Sources lists the configured catalogs in fallback order.
func (s *Service) Sources() []domain.TrackSource {
	out := make([]domain.TrackSource, 0, len(s.providers))
	for _, provider := range s.providers {
		out = append(out, provider.Source())
	}
	return out
}
