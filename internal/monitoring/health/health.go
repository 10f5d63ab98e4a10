// Package health provides system health monitoring and status reporting.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/balancewatch/internal/core/domain"
	"github.com/vietddude/balancewatch/internal/infra/rpc"
	"github.com/vietddude/balancewatch/internal/monitoring/report"
)

// SystemStatus represents the overall health state of the system.
type SystemStatus string

const (
	StatusStarting SystemStatus = "starting"
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// ProviderReporter exposes endpoint health for one chain. *rpc.Client
// satisfies it.
type ProviderReporter interface {
	ChainID() domain.ChainID
	ProviderReport() []rpc.ProviderReport
}

// StateFunc returns the current loop state name.
type StateFunc func() string

// HealthReport contains the full system health report.
type HealthReport struct {
	SystemStatus SystemStatus                            `json:"system_status"`
	LoopState    string                                  `json:"loop_state"`
	LastTickAt   *time.Time                              `json:"last_tick_at,omitempty"`
	SuccessRatio float64                                 `json:"success_ratio"`
	LastTick     *report.TickSummary                     `json:"last_tick,omitempty"`
	Providers    map[domain.ChainID][]rpc.ProviderReport `json:"providers,omitempty"`
}

// Monitor keeps the last tick summary and derives system status from it.
// It implements report.Reporter.
type Monitor struct {
	interval  time.Duration
	state     StateFunc
	providers []ProviderReporter
	now       func() time.Time

	mu   sync.RWMutex
	last *report.TickSummary
}

// NewMonitor creates a health monitor. A tick older than three intervals
// makes the system critical.
func NewMonitor(interval time.Duration, state StateFunc, providers []ProviderReporter) *Monitor {
	if state == nil {
		state = func() string { return "unknown" }
	}
	return &Monitor{
		interval:  interval,
		state:     state,
		providers: providers,
		now:       time.Now,
	}
}

// Report implements report.Reporter.
func (m *Monitor) Report(_ context.Context, s report.TickSummary) {
	m.mu.Lock()
	m.last = &s
	m.mu.Unlock()
}

// Status returns the aggregate status and success ratio of the last tick.
func (m *Monitor) Status() (SystemStatus, float64) {
	m.mu.RLock()
	last := m.last
	m.mu.RUnlock()

	if last == nil {
		return StatusStarting, 0
	}
	if m.interval > 0 && m.now().Sub(last.FinishedAt) > 3*m.interval {
		return StatusCritical, ratio(last)
	}

	r := ratio(last)
	switch {
	case len(last.Wallets) == 0 || r == 1:
		return StatusHealthy, r
	case r == 0:
		return StatusCritical, r
	default:
		return StatusDegraded, r
	}
}

// CheckHealth builds the detailed report.
func (m *Monitor) CheckHealth() HealthReport {
	status, r := m.Status()

	m.mu.RLock()
	last := m.last
	m.mu.RUnlock()

	rep := HealthReport{
		SystemStatus: status,
		LoopState:    m.state(),
		SuccessRatio: r,
		LastTick:     last,
	}
	if last != nil {
		at := last.FinishedAt
		rep.LastTickAt = &at
	}
	if len(m.providers) > 0 {
		rep.Providers = make(map[domain.ChainID][]rpc.ProviderReport, len(m.providers))
		for _, p := range m.providers {
			rep.Providers[p.ChainID()] = p.ProviderReport()
		}
	}
	return rep
}

func ratio(s *report.TickSummary) float64 {
	if len(s.Wallets) == 0 {
		return 1
	}
	return float64(s.Succeeded()) / float64(len(s.Wallets))
}
