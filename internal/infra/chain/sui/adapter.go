package sui

import (
	"context"
	"fmt"
	"regexp"

	logger "log/slog"

	"github.com/shopspring/decimal"

	"github.com/vietddude/balancewatch/internal/core/domain"
	"github.com/vietddude/balancewatch/internal/infra/chain"
	"github.com/vietddude/balancewatch/internal/infra/rpc"
)

// CoinType is the native SUI coin type.
const CoinType = "0x2::sui::SUI"

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{1,64}$`)

// Adapter reads MIST balances over suix_getBalance.
type Adapter struct {
	chainID domain.ChainID
	client  chain.Executor
	log     *logger.Logger
}

func NewAdapter(client chain.Executor) *Adapter {
	return &Adapter{
		chainID: domain.ChainSUI,
		client:  client,
		log:     logger.Default().With("chain", domain.ChainSUI),
	}
}

func (a *Adapter) Chain() domain.ChainID {
	return a.chainID
}

func (a *Adapter) ValidateAddress(address string) error {
	if !addressPattern.MatchString(address) {
		return fmt.Errorf("%w: %q is not a 0x-prefixed hex address", chain.ErrInvalidAddress, address)
	}
	return nil
}

func (a *Adapter) FetchBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	if err := a.ValidateAddress(address); err != nil {
		return decimal.Decimal{}, chain.NewAdapterError(a.chainID, address, err)
	}

	op := rpc.NewHTTPOperation("suix_getBalance", []any{address, CoinType})
	res, err := a.client.Execute(ctx, op)
	if err != nil {
		return decimal.Decimal{}, chain.NewAdapterError(a.chainID, address, fmt.Errorf("suix_getBalance failed: %w", err))
	}

	// {"coinType": "0x2::sui::SUI", "coinObjectCount": N, "totalBalance": "123", ...}
	m, ok := res.(map[string]any)
	if !ok {
		return decimal.Decimal{}, chain.NewAdapterError(a.chainID, address,
			chain.Malformed("suix_getBalance result is %T", res))
	}
	mist, err := chain.ParseAmount(m["totalBalance"])
	if err != nil {
		return decimal.Decimal{}, chain.NewAdapterError(a.chainID, address, err)
	}

	a.log.Debug("balance fetched", "address", address, "mist", mist.String())
	return chain.ToNative(mist, chain.Decimals(a.chainID)), nil
}
