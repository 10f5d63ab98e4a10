package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vietddude/balancewatch/internal/core/domain"
	"github.com/vietddude/balancewatch/internal/infra/rpc"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestNewAdapterError_Classification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.AdapterErrorKind
	}{
		{"deadline", fmt.Errorf("wrap: %w", context.DeadlineExceeded), domain.AdapterTimeout},
		{"net timeout", &net.OpError{Op: "read", Err: timeoutErr{}}, domain.AdapterTimeout},
		{"429", fmt.Errorf("%w (429)", rpc.ErrRateLimited), domain.AdapterRateLimited},
		{"throttled", rpc.ErrThrottled, domain.AdapterRateLimited},
		{"invalid address", fmt.Errorf("%w: bad", ErrInvalidAddress), domain.AdapterInvalidAddress},
		{"rpc invalid params", &rpc.RPCError{Code: rpc.CodeInvalidParams}, domain.AdapterInvalidAddress},
		{"rpc other", &rpc.RPCError{Code: -32000}, domain.AdapterMalformedResponse},
		{"malformed", Malformed("bad shape"), domain.AdapterMalformedResponse},
		{"http 400", &rpc.StatusError{StatusCode: 400}, domain.AdapterInvalidAddress},
		{"http 500", &rpc.StatusError{StatusCode: 500}, domain.AdapterEndpointUnreachable},
		{"dial", errors.New("dial tcp: connection refused"), domain.AdapterEndpointUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ae := NewAdapterError(domain.ChainETH, "0xabc", tt.err)
			if ae.Kind != tt.want {
				t.Errorf("got %s, want %s", ae.Kind, tt.want)
			}
			if !errors.Is(ae, tt.err) {
				t.Error("AdapterError should unwrap to the cause")
			}
		})
	}
}

func TestNewAdapterError_KeepsExisting(t *testing.T) {
	orig := &domain.AdapterError{Kind: domain.AdapterTimeout, Chain: domain.ChainSOL}
	if got := NewAdapterError(domain.ChainETH, "x", fmt.Errorf("wrap: %w", orig)); got != orig {
		t.Errorf("expected the existing AdapterError to be returned")
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      any
		want    string
		wantErr bool
	}{
		{json.Number("123456789012345678901234567890"), "123456789012345678901234567890", false},
		{"42", "42", false},
		{"0x2a", "42", false},
		{float64(1000), "1000", false},
		{int64(7), "7", false},
		{"0x", "", true},
		{"abc", "", true},
		{nil, "", true},
		{true, "", true},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if tt.wantErr {
			if !errors.Is(err, rpc.ErrMalformedResponse) {
				t.Errorf("ParseAmount(%v): expected malformed error, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%v): unexpected error %v", tt.in, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("ParseAmount(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestToNative(t *testing.T) {
	got := ToNative(decimal.RequireFromString("1500000000000000000"), 18)
	if got.String() != "1.5" {
		t.Errorf("expected 1.5, got %s", got)
	}
	if Decimals(domain.ChainTRX) != 6 {
		t.Errorf("expected 6 decimals for TRX")
	}
}

type fakeProvider struct{ id domain.ChainID }

func (f fakeProvider) FetchBalance(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (f fakeProvider) ValidateAddress(string) error { return nil }
func (f fakeProvider) Chain() domain.ChainID        { return f.id }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(fakeProvider{id: domain.ChainSOL})
	r.Register(fakeProvider{id: domain.ChainETH})

	if _, ok := r.Get(domain.ChainETH); !ok {
		t.Error("expected ETH provider")
	}
	if _, ok := r.Get(domain.ChainAPT); ok {
		t.Error("did not expect APT provider")
	}
	chains := r.Chains()
	if len(chains) != 2 || chains[0] != domain.ChainETH || chains[1] != domain.ChainSOL {
		t.Errorf("unexpected chain order %v", chains)
	}
}
