package domain

import (
	"fmt"
	"strings"
)

// AdapterErrorKind classifies a failed balance query.
type AdapterErrorKind int

const (
	AdapterTimeout AdapterErrorKind = iota
	AdapterRateLimited
	AdapterInvalidAddress
	AdapterEndpointUnreachable
	AdapterMalformedResponse
)

func (k AdapterErrorKind) String() string {
	switch k {
	case AdapterTimeout:
		return "timeout"
	case AdapterRateLimited:
		return "rate_limited"
	case AdapterInvalidAddress:
		return "invalid_address"
	case AdapterEndpointUnreachable:
		return "endpoint_unreachable"
	case AdapterMalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// AdapterError is a per-wallet, tick-scoped balance query failure.
type AdapterError struct {
	Kind    AdapterErrorKind
	Chain   ChainID
	Address string
	Err     error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s balance %s: %s: %v", e.Chain, e.Address, e.Kind, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// OracleErrorKind classifies a failed price lookup.
type OracleErrorKind int

const (
	OracleRateLimited OracleErrorKind = iota
	OracleEndpointUnreachable
	OracleUnknownSymbol
)

func (k OracleErrorKind) String() string {
	switch k {
	case OracleRateLimited:
		return "rate_limited"
	case OracleEndpointUnreachable:
		return "endpoint_unreachable"
	case OracleUnknownSymbol:
		return "unknown_symbol"
	default:
		return "unknown"
	}
}

// OracleError is a tick-scoped price lookup failure.
type OracleError struct {
	Kind    OracleErrorKind
	Symbols []string
	Err     error
}

func (e *OracleError) Error() string {
	msg := fmt.Sprintf("price oracle: %s [%s]", e.Kind, strings.Join(e.Symbols, ","))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OracleError) Unwrap() error { return e.Err }

// DispatchError is a channel-scoped delivery failure.
type DispatchError struct {
	Channel string
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("notify %s: %v", e.Channel, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// ConfigurationError rejects an invalid configuration at startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}
