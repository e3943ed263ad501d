package search

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cybersmurf/mimm-music-search/internal/metrics"
)

const (
	providerFailureThreshold = 3
	providerBlockBase        = 2 * time.Minute
	providerBlockMax         = 15 * time.Minute
)

// providerHealth tracks consecutive failures per catalog. After the
// threshold a catalog is skipped for an exponentially growing cooldown;
// under the fail-soft contract a skipped catalog looks like an empty one,
// so the fallback chain keeps working.
type providerHealth struct {
	consecutiveFailures int
	blockedUntil        time.Time
	lastError           string
	lastSuccessAt       time.Time
	lastFailureAt       time.Time
	lastLatency         time.Duration
	totalRequests       int64
	totalFailures       int64
}

func (s *Service) isProviderBlocked(name string, now time.Time) (bool, time.Time, string) {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	state := s.health[name]
	if state == nil {
		return false, time.Time{}, ""
	}
	if state.blockedUntil.IsZero() || now.After(state.blockedUntil) {
		return false, time.Time{}, ""
	}
	return true, state.blockedUntil, state.lastError
}

func (s *Service) recordProviderResult(name string, err error, latency time.Duration, now time.Time) {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	state := s.health[name]
	if state == nil {
		state = &providerHealth{}
		s.health[name] = state
	}
	state.totalRequests++
	if latency > 0 {
		state.lastLatency = latency
		metrics.ProviderRequestDuration.WithLabelValues(name).Observe(latency.Seconds())
	}

	if err == nil {
		state.consecutiveFailures = 0
		state.blockedUntil = time.Time{}
		state.lastError = ""
		state.lastSuccessAt = now
		metrics.ProviderRequestsTotal.WithLabelValues(name, "ok").Inc()
		metrics.ProviderAvailable.WithLabelValues(name).Set(1)
		return
	}

	state.consecutiveFailures++
	state.totalFailures++
	state.lastFailureAt = now
	state.lastError = err.Error()

	status := "error"
	if isTimeoutLikeError(err) {
		status = "timeout"
	}
	metrics.ProviderRequestsTotal.WithLabelValues(name, status).Inc()

	if state.consecutiveFailures >= providerFailureThreshold {
		state.blockedUntil = now.Add(blockDuration(state.consecutiveFailures))
		metrics.ProviderAvailable.WithLabelValues(name).Set(0)
	}
}

// blockDuration doubles the cooldown for every failure past the
// threshold, capped at providerBlockMax.
func blockDuration(consecutiveFailures int) time.Duration {
	exponent := consecutiveFailures - providerFailureThreshold
	if exponent < 0 {
		exponent = 0
	}
	d := providerBlockBase
	for i := 0; i < exponent; i++ {
		d *= 2
		if d > providerBlockMax {
			return providerBlockMax
		}
	}
	return d
}

func isTimeoutLikeError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "timeout") || strings.Contains(value, "deadline exceeded")
}

// ProviderDiagnostics is a point-in-time health snapshot for one catalog.
type ProviderDiagnostics struct {
	Name                string     `json:"name"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	BlockedUntil        *time.Time `json:"blockedUntil,omitempty"`
	LastError           string     `json:"lastError,omitempty"`
	LastSuccessAt       *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *time.Time `json:"lastFailureAt,omitempty"`
	LastLatencyMS       int64      `json:"lastLatencyMs"`
	TotalRequests       int64      `json:"totalRequests"`
	TotalFailures       int64      `json:"totalFailures"`
}

func (s *Service) Diagnostics() []ProviderDiagnostics {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	items := make([]ProviderDiagnostics, 0, len(s.providers))
	for _, provider := range s.providers {
		name := string(provider.Source())
		item := ProviderDiagnostics{Name: name}
		if state := s.health[name]; state != nil {
			item.ConsecutiveFailures = state.consecutiveFailures
			if !state.blockedUntil.IsZero() {
				blockedUntil := state.blockedUntil
				item.BlockedUntil = &blockedUntil
			}
			item.LastError = state.lastError
			if !state.lastSuccessAt.IsZero() {
				lastSuccessAt := state.lastSuccessAt
				item.LastSuccessAt = &lastSuccessAt
			}
			if !state.lastFailureAt.IsZero() {
				lastFailureAt := state.lastFailureAt
				item.LastFailureAt = &lastFailureAt
			}
			item.LastLatencyMS = state.lastLatency.Milliseconds()
			item.TotalRequests = state.totalRequests
			item.TotalFailures = state.totalFailures
		}
		items = append(items, item)
	}
	return items
}
