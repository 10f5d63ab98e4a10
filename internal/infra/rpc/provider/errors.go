package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrRateLimited is returned on HTTP 429 or a throttle message in the body.
	ErrRateLimited = errors.New("rate limited")

	// ErrBlocked is returned on HTTP 403.
	ErrBlocked = errors.New("ip blocked")

	// ErrThrottled is returned without a request while the provider cools down.
	ErrThrottled = errors.New("provider throttled")

	// ErrMalformedResponse wraps body decoding failures.
	ErrMalformedResponse = errors.New("malformed response")
)

// StatusError is a non-2xx HTTP response that is not a throttle.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

// RPCError is a JSON-RPC error object returned by the endpoint.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// JSON-RPC 2.0 reserved error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
)

// IsRequestError reports whether the endpoint rejected the request itself,
// so retrying the same request cannot succeed.
func (e *RPCError) IsRequestError() bool {
	switch e.Code {
	case CodeParseError, CodeInvalidRequest, CodeMethodNotFound, CodeInvalidParams:
		return true
	}
	return false
}
