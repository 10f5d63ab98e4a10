package solana

import (
	"context"
	"fmt"

	logger "log/slog"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"

	"github.com/vietddude/balancewatch/internal/core/domain"
	"github.com/vietddude/balancewatch/internal/infra/chain"
	"github.com/vietddude/balancewatch/internal/infra/rpc"
)

const publicKeyLength = 32

// Adapter reads lamport balances over the getBalance JSON-RPC method.
type Adapter struct {
	chainID    domain.ChainID
	client     chain.Executor
	commitment string
	log        *logger.Logger
}

func NewAdapter(client chain.Executor) *Adapter {
	return &Adapter{
		chainID:    domain.ChainSOL,
		client:     client,
		commitment: "confirmed",
		log:        logger.Default().With("chain", domain.ChainSOL),
	}
}

func (a *Adapter) Chain() domain.ChainID {
	return a.chainID
}

func (a *Adapter) ValidateAddress(address string) error {
	raw, err := base58.Decode(address)
	if err != nil || len(raw) != publicKeyLength {
		return fmt.Errorf("%w: %q is not a base58 ed25519 public key", chain.ErrInvalidAddress, address)
	}
	return nil
}

func (a *Adapter) FetchBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	if err := a.ValidateAddress(address); err != nil {
		return decimal.Decimal{}, chain.NewAdapterError(a.chainID, address, err)
	}

	op := rpc.NewHTTPOperation("getBalance", []any{
		address,
		map[string]any{"commitment": a.commitment},
	})
	res, err := a.client.Execute(ctx, op)
	if err != nil {
		return decimal.Decimal{}, chain.NewAdapterError(a.chainID, address, fmt.Errorf("getBalance failed: %w", err))
	}

	// {"context": {"slot": N}, "value": lamports}
	m, ok := res.(map[string]any)
	if !ok {
		return decimal.Decimal{}, chain.NewAdapterError(a.chainID, address,
			chain.Malformed("getBalance result is %T", res))
	}
	lamports, err := chain.ParseAmount(m["value"])
	if err != nil {
		return decimal.Decimal{}, chain.NewAdapterError(a.chainID, address, err)
	}

	a.log.Debug("balance fetched", "address", address, "lamports", lamports.String())
	return chain.ToNative(lamports, chain.Decimals(a.chainID)), nil
}
