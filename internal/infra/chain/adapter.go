package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vietddude/balancewatch/internal/core/domain"
	"github.com/vietddude/balancewatch/internal/infra/rpc"
)

// BalanceProvider is the uniform balance-query contract implemented by every
// supported network. Implementations hold no per-call state and are safe for
// concurrent use across wallets.
type BalanceProvider interface {
	// FetchBalance returns the balance of address in whole native units
	// (e.g. ETH, not wei). Failures are *domain.AdapterError.
	FetchBalance(ctx context.Context, address string) (decimal.Decimal, error)

	// ValidateAddress checks the address format without any network call.
	ValidateAddress(address string) error

	// Chain returns the network the provider serves.
	Chain() domain.ChainID
}

// Executor runs a transport-agnostic operation against a chain endpoint.
// *rpc.Client satisfies it.
type Executor interface {
	Execute(ctx context.Context, op rpc.Operation) (any, error)
}

// ErrInvalidAddress is returned by ValidateAddress implementations.
var ErrInvalidAddress = errors.New("invalid address")

// Registry maps chains to their balance providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[domain.ChainID]BalanceProvider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[domain.ChainID]BalanceProvider)}
}

// Register adds or replaces the provider for its chain.
func (r *Registry) Register(p BalanceProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Chain()] = p
}

// Get returns the provider for a chain.
func (r *Registry) Get(chainID domain.ChainID) (BalanceProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[chainID]
	return p, ok
}

// Chains returns the registered chains in a stable order.
func (r *Registry) Chains() []domain.ChainID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]domain.ChainID, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// NewAdapterError classifies a transport or decoding failure into an
// AdapterError kind.
func NewAdapterError(chainID domain.ChainID, address string, err error) *domain.AdapterError {
	var ae *domain.AdapterError
	if errors.As(err, &ae) {
		return ae
	}
	return &domain.AdapterError{
		Kind:    classify(err),
		Chain:   chainID,
		Address: address,
		Err:     err,
	}
}

func classify(err error) domain.AdapterErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.AdapterTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.AdapterTimeout
	}

	if errors.Is(err, rpc.ErrRateLimited) ||
		errors.Is(err, rpc.ErrBlocked) ||
		errors.Is(err, rpc.ErrThrottled) {
		return domain.AdapterRateLimited
	}

	if errors.Is(err, ErrInvalidAddress) {
		return domain.AdapterInvalidAddress
	}

	var rpcErr *rpc.RPCError
	if errors.As(err, &rpcErr) {
		if rpcErr.Code == rpc.CodeInvalidParams {
			return domain.AdapterInvalidAddress
		}
		return domain.AdapterMalformedResponse
	}

	var statusErr *rpc.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusBadRequest {
		return domain.AdapterInvalidAddress
	}

	if errors.Is(err, rpc.ErrMalformedResponse) {
		return domain.AdapterMalformedResponse
	}

	return domain.AdapterEndpointUnreachable
}

// Malformed wraps a response shape error so it classifies as MalformedResponse.
func Malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", rpc.ErrMalformedResponse, fmt.Sprintf(format, args...))
}

// ParseAmount reads an integer base-unit amount from a decoded JSON value:
// json.Number, float64, a decimal string or a 0x-prefixed hex string.
func ParseAmount(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case json.Number:
		return parseDecimalString(n.String())
	case string:
		s := strings.TrimSpace(n)
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			return parseHexAmount(s)
		}
		return parseDecimalString(s)
	case float64:
		return decimal.NewFromFloat(n), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case nil:
		return decimal.Decimal{}, Malformed("missing amount")
	default:
		return decimal.Decimal{}, Malformed("unexpected amount type %T", v)
	}
}

func parseDecimalString(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, Malformed("amount %q: %v", s, err)
	}
	return d, nil
}

func parseHexAmount(s string) (decimal.Decimal, error) {
	digits := s[2:]
	if digits == "" {
		return decimal.Decimal{}, Malformed("empty hex amount")
	}
	i, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return decimal.Decimal{}, Malformed("hex amount %q", s)
	}
	return decimal.NewFromBigInt(i, 0), nil
}

// ToNative converts an integer base-unit amount to whole native units.
func ToNative(baseUnits decimal.Decimal, decimals int32) decimal.Decimal {
	return baseUnits.Shift(-decimals)
}

// Decimals returns the native unit precision of a chain.
func Decimals(chainID domain.ChainID) int32 {
	if info, ok := chainID.Info(); ok {
		return info.Decimals
	}
	return 0
}
