// Package routing handles provider selection, failover and retry.
//
// This package contains:
//   - Router: ordered primary/fallback providers per chain with a circuit breaker
//   - Retry: retry logic with exponential backoff and failover
package routing

import (
	"net/url"
	"sync"
	"time"

	"github.com/vietddude/balancewatch/internal/core/domain"
	"github.com/vietddude/balancewatch/internal/infra/rpc/provider"
)

// Circuit breaker defaults.
const (
	DefaultOpenAfter = 5
	DefaultCooldown  = 30 * time.Second
)

type providerMetrics struct {
	successCount     int
	failureCount     int
	totalLatency     time.Duration
	lastSuccessAt    time.Time
	lastFailureAt    time.Time
	lastError        string
	consecutiveFails int
	circuitOpenUntil time.Time
}

// ProviderReport is a point-in-time view of a provider for health output.
type ProviderReport struct {
	Name             string                `json:"name"`
	Endpoint         string                `json:"endpoint,omitempty"`
	CircuitOpen      bool                  `json:"circuit_open"`
	SuccessCount     int                   `json:"success_count"`
	FailureCount     int                   `json:"failure_count"`
	ConsecutiveFails int                   `json:"consecutive_fails"`
	AverageLatency   time.Duration         `json:"average_latency"`
	LastError        string                `json:"last_error,omitempty"`
	Health           provider.HealthStatus `json:"health"`
}

// Router keeps the configured provider order for each chain and skips
// providers whose circuit is open or whose monitor reports them blocked.
type Router struct {
	mu             sync.RWMutex
	chainProviders map[domain.ChainID][]provider.Provider
	providerHealth map[string]*providerMetrics
	openAfter      int
	cooldown       time.Duration
	now            func() time.Time
}

// NewRouter creates a router with the default circuit breaker settings.
func NewRouter() *Router {
	return &Router{
		chainProviders: make(map[domain.ChainID][]provider.Provider),
		providerHealth: make(map[string]*providerMetrics),
		openAfter:      DefaultOpenAfter,
		cooldown:       DefaultCooldown,
		now:            time.Now,
	}
}

// AddProvider registers a provider for a chain. Registration order is the
// failover order: the first provider added is the primary.
func (r *Router) AddProvider(chainID domain.ChainID, p provider.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.chainProviders[chainID] = append(r.chainProviders[chainID], p)
	r.providerHealth[p.GetName()] = &providerMetrics{}
}

// GetAllProviders returns all providers for a chain in registration order.
func (r *Router) GetAllProviders(chainID domain.ChainID) []provider.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := r.chainProviders[chainID]
	result := make([]provider.Provider, len(providers))
	copy(result, providers)
	return result
}

// Candidates returns the providers to try, in order. Unavailable providers
// are moved to the back instead of dropped so a chain never ends up with
// nothing to call.
func (r *Router) Candidates(chainID domain.ChainID) []provider.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := r.chainProviders[chainID]
	now := r.now()

	ready := make([]provider.Provider, 0, len(providers))
	var parked []provider.Provider
	for _, p := range providers {
		m := r.providerHealth[p.GetName()]
		if (m != nil && now.Before(m.circuitOpenUntil)) || !p.IsAvailable() {
			parked = append(parked, p)
			continue
		}
		ready = append(ready, p)
	}
	return append(ready, parked...)
}

// RecordSuccess records a successful call and closes the circuit.
func (r *Router) RecordSuccess(providerName string, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.providerHealth[providerName]
	if !ok {
		return
	}

	m.successCount++
	m.totalLatency += latency
	m.lastSuccessAt = r.now()
	m.consecutiveFails = 0
	m.circuitOpenUntil = time.Time{}
}

// RecordFailure records a failed call and opens the circuit after
// openAfter consecutive failures.
func (r *Router) RecordFailure(providerName string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.providerHealth[providerName]
	if !ok {
		return
	}

	m.failureCount++
	m.lastFailureAt = r.now()
	m.consecutiveFails++
	if err != nil {
		m.lastError = err.Error()
	}

	if m.consecutiveFails >= r.openAfter {
		m.circuitOpenUntil = r.now().Add(r.cooldown)
	}
}

// Report returns the state of every provider registered for a chain.
func (r *Router) Report(chainID domain.ChainID) []ProviderReport {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.now()
	providers := r.chainProviders[chainID]
	reports := make([]ProviderReport, 0, len(providers))
	for _, p := range providers {
		rep := ProviderReport{Name: p.GetName(), Health: p.GetHealth()}
		if e, ok := p.(endpointer); ok {
			rep.Endpoint = redactEndpoint(e.Endpoint())
		}
		if m := r.providerHealth[p.GetName()]; m != nil {
			rep.CircuitOpen = now.Before(m.circuitOpenUntil)
			rep.SuccessCount = m.successCount
			rep.FailureCount = m.failureCount
			rep.ConsecutiveFails = m.consecutiveFails
			rep.LastError = m.lastError
			if m.successCount > 0 {
				rep.AverageLatency = m.totalLatency / time.Duration(m.successCount)
			}
		}
		reports = append(reports, rep)
	}
	return reports
}

type endpointer interface {
	Endpoint() string
}

// redactEndpoint keeps only scheme and host. Providers often carry API keys
// in the path, query or userinfo.
func redactEndpoint(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
