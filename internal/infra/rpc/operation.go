package rpc

import "github.com/vietddude/balancewatch/internal/infra/rpc/provider"

// NewHTTPOperation creates an Operation for JSON-RPC 2.0 calls.
func NewHTTPOperation(method string, params any) Operation {
	return provider.Operation{
		Name:   method,
		Params: params,
	}
}

// NewRESTOperation creates an Operation for REST API calls.
func NewRESTOperation(path string, method string, body any) Operation {
	return provider.Operation{
		Name:       path,
		Params:     body,
		IsREST:     true,
		RESTMethod: method,
	}
}
