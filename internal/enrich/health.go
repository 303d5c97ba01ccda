package enrich

import (
	"strings"
	"time"

	"iptvstream/ratingservice/internal/domain"
	"iptvstream/ratingservice/internal/metrics"
)

// providerHealth tracks lookup outcomes for diagnostics. It never gates
// calls; a failing provider is simply asked again on the next miss.
type providerHealth struct {
	totalRequests int64
	found         int64
	notFound      int64
	failures      int64
	timeouts      int64
	lastReason    string
	lastLatency   time.Duration
	lastSuccessAt time.Time
	lastFailureAt time.Time
}

func outcomeLabel(outcome domain.ProviderOutcome) string {
	if outcome.Status == domain.OutcomeFailed && outcome.Timeout {
		return "timeout"
	}
	return string(outcome.Status)
}

func (s *Service) recordProviderResult(providerName string, outcome domain.ProviderOutcome, latency time.Duration, now time.Time) {
	name := strings.ToLower(strings.TrimSpace(providerName))
	if name == "" {
		return
	}

	metrics.ProviderRequestsTotal.WithLabelValues(name, outcomeLabel(outcome)).Inc()
	if latency > 0 {
		metrics.ProviderRequestDuration.WithLabelValues(name).Observe(latency.Seconds())
	}

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
	}
	state.lastReason = outcome.Reason

	switch outcome.Status {
	case domain.OutcomeFound:
		state.found++
		state.lastSuccessAt = now
	case domain.OutcomeNotFound:
		state.notFound++
		state.lastSuccessAt = now
	default:
		state.failures++
		state.lastFailureAt = now
		if outcome.Timeout {
			state.timeouts++
		}
	}
}

// ProviderDiagnostics reports per-provider counters in a fixed order:
// tmdb first, then omdb.
func (s *Service) ProviderDiagnostics() []domain.ProviderDiagnostics {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	out := make([]domain.ProviderDiagnostics, 0, 2)
	for _, provider := range []Provider{s.tmdb, s.omdb} {
		if provider == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(provider.Name()))
		item := domain.ProviderDiagnostics{
			Name:    name,
			Enabled: provider.Enabled(),
		}
		if state := s.health[name]; state != nil {
			item.TotalRequests = state.totalRequests
			item.Found = state.found
			item.NotFound = state.notFound
			item.Failures = state.failures
			item.Timeouts = state.timeouts
			item.LastReason = state.lastReason
			item.LastLatencyMS = state.lastLatency.Milliseconds()
			if !state.lastSuccessAt.IsZero() {
				ts := state.lastSuccessAt
				item.LastSuccessAt = &ts
			}
			if !state.lastFailureAt.IsZero() {
				ts := state.lastFailureAt
				item.LastFailureAt = &ts
			}
		}
		out = append(out, item)
	}
	return out
}
