package evm

import (
	"context"
	"fmt"
	"strings"

	logger "log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"github.com/vietddude/balancewatch/internal/core/domain"
	"github.com/vietddude/balancewatch/internal/infra/chain"
	"github.com/vietddude/balancewatch/internal/infra/rpc"
)

// EVMAdapter reads native balances over eth_getBalance.
type EVMAdapter struct {
	chainID  domain.ChainID
	client   chain.Executor
	decimals int32
	log      *logger.Logger
}

func NewEVMAdapter(client chain.Executor) *EVMAdapter {
	return &EVMAdapter{
		chainID:  domain.ChainETH,
		client:   client,
		decimals: chain.Decimals(domain.ChainETH),
		log:      logger.Default().With("chain", domain.ChainETH),
	}
}

func (a *EVMAdapter) Chain() domain.ChainID {
	return a.chainID
}

func (a *EVMAdapter) ValidateAddress(address string) error {
	if !common.IsHexAddress(address) || !strings.HasPrefix(strings.ToLower(address), "0x") {
		return fmt.Errorf("%w: %q is not a 0x-prefixed 20-byte hex address", chain.ErrInvalidAddress, address)
	}
	return nil
}

func (a *EVMAdapter) FetchBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	if err := a.ValidateAddress(address); err != nil {
		return decimal.Decimal{}, chain.NewAdapterError(a.chainID, address, err)
	}

	op := rpc.NewHTTPOperation("eth_getBalance", []any{common.HexToAddress(address).Hex(), "latest"})
	result, err := a.client.Execute(ctx, op)
	if err != nil {
		return decimal.Decimal{}, chain.NewAdapterError(a.chainID, address, fmt.Errorf("eth_getBalance failed: %w", err))
	}

	wei, err := parseWei(result)
	if err != nil {
		return decimal.Decimal{}, chain.NewAdapterError(a.chainID, address, err)
	}

	a.log.Debug("balance fetched", "address", address, "wei", wei.String())
	return chain.ToNative(wei, a.decimals), nil
}

func parseWei(result any) (decimal.Decimal, error) {
	hex, ok := result.(string)
	if !ok {
		return decimal.Decimal{}, chain.Malformed("eth_getBalance result is %T, want hex string", result)
	}
	wei, err := hexutil.DecodeBig(hex)
	if err != nil {
		return decimal.Decimal{}, chain.Malformed("eth_getBalance result %q: %v", hex, err)
	}
	return decimal.NewFromBigInt(wei, 0), nil
}
