package provider

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ProviderStatus represents the health state of a provider.
type ProviderStatus int

const (
	StatusHealthy   ProviderStatus = iota // working normally
	StatusDegraded                        // slow but working
	StatusThrottled                       // cooling down after 429s
	StatusBlocked                         // cooling down after a 403
)

func (s ProviderStatus) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusThrottled:
		return "throttled"
	case StatusBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// MarshalText renders the status by name in health payloads.
func (s ProviderStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// MonitorStats holds monitoring statistics for a provider.
type MonitorStats struct {
	Status            ProviderStatus `json:"status"`
	AverageLatency    time.Duration  `json:"average_latency"`
	ThrottleCount429  int            `json:"throttle_count_429"`
	ThrottleCount403  int            `json:"throttle_count_403"`
	RequestsLastHour  int            `json:"requests_last_hour"`
	RetryAfterSeconds float64        `json:"retry_after_seconds,omitempty"`
}

// Defaults for the throttle cooldowns.
const (
	defaultRetryAfter   = 30 * time.Second
	blockedRetryAfter   = 5 * time.Minute
	throttleTripCount   = 3
	latencyWindowSize   = 50
	requestWindow       = time.Hour
	slowLatencyBoundary = 3 * time.Second
)

// ProviderMonitor tracks provider latency and throttle signals.
//
// A 429 with Retry-After puts the provider into StatusThrottled until the
// deadline passes. Repeated 429s without the header trip the default cooldown.
// A 403 blocks the provider for a longer fixed period.
type ProviderMonitor struct {
	mu sync.RWMutex

	latencies []time.Duration
	requests  []time.Time

	status429Count int
	status403Count int
	consecutive429 int
	cooldownUntil  time.Time
	blocked        bool

	throttlePatterns []string
	now              func() time.Time
}

// NewProviderMonitor creates a new monitor with default settings.
func NewProviderMonitor() *ProviderMonitor {
	return &ProviderMonitor{
		latencies: make([]time.Duration, 0, latencyWindowSize),
		throttlePatterns: []string{
			"rate limit",
			"too many requests",
			"daily request count exceeded",
			"monthly quota exceeded",
			"capacity exceeded",
		},
		now: time.Now,
	}
}

// RecordRequest records a successful request with its latency.
func (pm *ProviderMonitor) RecordRequest(latency time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	now := pm.now()
	pm.consecutive429 = 0

	pm.latencies = append(pm.latencies, latency)
	if len(pm.latencies) > latencyWindowSize {
		pm.latencies = pm.latencies[1:]
	}

	pm.requests = append(pm.requests, now)
	cutoff := now.Add(-requestWindow)
	i := 0
	for i < len(pm.requests) && !pm.requests[i].After(cutoff) {
		i++
	}
	pm.requests = pm.requests[i:]
}

// RecordThrottle records a rate limiting or blocking response.
func (pm *ProviderMonitor) RecordThrottle(statusCode int, retryAfter string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	now := pm.now()

	switch statusCode {
	case http.StatusTooManyRequests:
		pm.status429Count++
		pm.consecutive429++
		if d, ok := parseRetryAfter(retryAfter, now); ok {
			pm.extendCooldown(now.Add(d))
		} else if pm.consecutive429 >= throttleTripCount {
			pm.extendCooldown(now.Add(defaultRetryAfter))
		}
	case http.StatusForbidden:
		pm.status403Count++
		pm.blocked = true
		pm.extendCooldown(now.Add(blockedRetryAfter))
	}
}

func (pm *ProviderMonitor) extendCooldown(until time.Time) {
	if until.After(pm.cooldownUntil) {
		pm.cooldownUntil = until
	}
}

// parseRetryAfter accepts both delta-seconds and HTTP-date forms.
func parseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}

// DetectThrottlePattern checks if a message contains throttle patterns.
func (pm *ProviderMonitor) DetectThrottlePattern(message string) bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	lowerMsg := strings.ToLower(message)
	for _, pattern := range pm.throttlePatterns {
		if strings.Contains(lowerMsg, pattern) {
			return true
		}
	}
	return false
}

// CheckProviderStatus returns the current status of the provider.
func (pm *ProviderMonitor) CheckProviderStatus() ProviderStatus {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.statusLocked()
}

func (pm *ProviderMonitor) statusLocked() ProviderStatus {
	if pm.now().Before(pm.cooldownUntil) {
		if pm.blocked {
			return StatusBlocked
		}
		return StatusThrottled
	}
	if len(pm.latencies) >= 10 && pm.averageLocked() > slowLatencyBoundary {
		return StatusDegraded
	}
	return StatusHealthy
}

// GetRetryAfter returns remaining time before retry is allowed.
func (pm *ProviderMonitor) GetRetryAfter() time.Duration {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	if remaining := pm.cooldownUntil.Sub(pm.now()); remaining > 0 {
		return remaining
	}
	return 0
}

// GetAverageLatency returns the average latency of recent requests.
func (pm *ProviderMonitor) GetAverageLatency() time.Duration {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.averageLocked()
}

func (pm *ProviderMonitor) averageLocked() time.Duration {
	if len(pm.latencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, lat := range pm.latencies {
		total += lat
	}
	return total / time.Duration(len(pm.latencies))
}

// GetStats returns current monitoring statistics.
func (pm *ProviderMonitor) GetStats() MonitorStats {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	stats := MonitorStats{
		Status:           pm.statusLocked(),
		AverageLatency:   pm.averageLocked(),
		ThrottleCount429: pm.status429Count,
		ThrottleCount403: pm.status403Count,
		RequestsLastHour: len(pm.requests),
	}
	if remaining := pm.cooldownUntil.Sub(pm.now()); remaining > 0 {
		stats.RetryAfterSeconds = remaining.Seconds()
	}
	return stats
}
