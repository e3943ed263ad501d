package musicbrainz

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMinInterval is the floor the MusicBrainz terms of service ask
// for, with a small margin over the nominal 1 req/s.
const DefaultMinInterval = 1100 * time.Millisecond

// Throttle enforces the minimum interval between MusicBrainz calls.
// One instance is shared by the whole process, so concurrent searches
// serialize against the same clock. This is a soft politeness throttle,
// not strict compliance.
type Throttle struct {
	limiter *rate.Limiter
}

func NewThrottle(minInterval time.Duration) *Throttle {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Every(minInterval), 1)}
}

// Wait blocks until a call is allowed or ctx is cancelled.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil {
		return nil
	}
	return t.limiter.Wait(ctx)
}
