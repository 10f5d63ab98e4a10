package aptos

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/vietddude/balancewatch/internal/core/domain"
	"github.com/vietddude/balancewatch/internal/infra/rpc"
)

type MockRPCClient struct {
	ExecFunc func(ctx context.Context, op rpc.Operation) (any, error)
}

func (m *MockRPCClient) Execute(ctx context.Context, op rpc.Operation) (any, error) {
	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, op)
	}
	return nil, nil
}

const testAddress = "0x190d44266241744264b964a37b8f09863167a12d3e70cda39376cfb4e3561e12"

func TestAdapter_FetchBalance(t *testing.T) {
	mock := &MockRPCClient{
		ExecFunc: func(ctx context.Context, op rpc.Operation) (any, error) {
			if !op.IsREST || op.RESTMethod != http.MethodGet {
				t.Errorf("expected REST GET, got %+v", op)
			}
			if !strings.HasSuffix(op.Name, "/resource/"+CoinStoreResource) {
				t.Errorf("unexpected path %s", op.Name)
			}
			return map[string]any{
				"type": CoinStoreResource,
				"data": map[string]any{
					"coin":           map[string]any{"value": "1234500000"},
					"frozen":         false,
					"deposit_events": map[string]any{},
				},
			}, nil
		},
	}

	balance, err := NewAdapter(mock).FetchBalance(context.Background(), testAddress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance.String() != "12.345" {
		t.Errorf("expected 12.345 APT, got %s", balance)
	}
}

func TestAdapter_NotFoundIsZero(t *testing.T) {
	mock := &MockRPCClient{
		ExecFunc: func(ctx context.Context, op rpc.Operation) (any, error) {
			return nil, &rpc.StatusError{StatusCode: http.StatusNotFound, Body: `{"error_code":"resource_not_found"}`}
		},
	}

	balance, err := NewAdapter(mock).FetchBalance(context.Background(), "0x1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("expected zero, got %s", balance)
	}
}

func TestAdapter_ServerError(t *testing.T) {
	mock := &MockRPCClient{
		ExecFunc: func(ctx context.Context, op rpc.Operation) (any, error) {
			return nil, &rpc.StatusError{StatusCode: http.StatusServiceUnavailable}
		},
	}

	_, err := NewAdapter(mock).FetchBalance(context.Background(), testAddress)
	var ae *domain.AdapterError
	if !errors.As(err, &ae) || ae.Kind != domain.AdapterEndpointUnreachable {
		t.Fatalf("expected EndpointUnreachable, got %v", err)
	}
}

func TestAdapter_InvalidAddress(t *testing.T) {
	for _, addr := range []string{"", "0x", "190d44", "0xZZ", "0x" + strings.Repeat("a", 65)} {
		_, err := NewAdapter(&MockRPCClient{}).FetchBalance(context.Background(), addr)
		var ae *domain.AdapterError
		if !errors.As(err, &ae) || ae.Kind != domain.AdapterInvalidAddress {
			t.Errorf("address %q: expected InvalidAddress, got %v", addr, err)
		}
	}
}

func TestAdapter_MalformedResource(t *testing.T) {
	mock := &MockRPCClient{
		ExecFunc: func(ctx context.Context, op rpc.Operation) (any, error) {
			return map[string]any{"data": map[string]any{}}, nil
		},
	}

	_, err := NewAdapter(mock).FetchBalance(context.Background(), testAddress)
	var ae *domain.AdapterError
	if !errors.As(err, &ae) || ae.Kind != domain.AdapterMalformedResponse {
		t.Fatalf("expected MalformedResponse, got %v", err)
	}
}
