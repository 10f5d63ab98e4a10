// Package provider implements RPC provider interfaces.
//
// This package contains:
//   - Provider interface: core abstraction for a chain endpoint
//   - HTTPProvider: JSON-RPC 2.0 and REST over HTTP
//   - ProviderMonitor: latency and throttle tracking
//   - typed transport errors used by callers to classify failures
package provider

import (
	"context"
	"time"
)

// Operation represents a call to execute against a provider.
// It abstracts the wire shape so adapters stay transport-agnostic.
type Operation struct {
	// Name is the JSON-RPC method (e.g. "eth_getBalance") or, for REST, the
	// request path relative to the endpoint (e.g. "accounts/0x1/resource/...").
	Name string

	// Params for JSON-RPC calls ([]any) or the JSON body for REST calls.
	Params any

	// IsREST indicates a REST resource call instead of JSON-RPC.
	IsREST bool

	// RESTMethod is the HTTP method for REST calls. Defaults to GET.
	RESTMethod string
}

// Provider defines the core interface for any chain endpoint.
type Provider interface {
	// GetName returns the provider identifier (e.g. "primary", "fallback-1")
	GetName() string

	// GetHealth returns current health metrics
	GetHealth() HealthStatus

	// IsAvailable checks if the provider is healthy enough to use
	IsAvailable() bool

	// Execute performs the operation with monitoring and error handling
	Execute(ctx context.Context, op Operation) (any, error)

	// Close cleans up resources
	Close() error
}

// HealthStatus represents the health state of a provider.
type HealthStatus struct {
	Available     bool          `json:"available"`
	Latency       time.Duration `json:"latency"`
	ErrorRate     float64       `json:"error_rate"`
	LastSuccessAt time.Time     `json:"last_success_at"`
	LastFailureAt time.Time     `json:"last_failure_at"`
	MonitorStats  *MonitorStats `json:"monitor_stats,omitempty"`
}
