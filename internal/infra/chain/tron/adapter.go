package tron

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"

	logger "log/slog"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"

	"github.com/vietddude/balancewatch/internal/core/domain"
	"github.com/vietddude/balancewatch/internal/infra/chain"
	"github.com/vietddude/balancewatch/internal/infra/rpc"
)

const (
	addressPrefix = 0x41
	addressLength = 21
)

// TronAdapter reads sun balances from the full node HTTP API.
type TronAdapter struct {
	chainID domain.ChainID
	client  chain.Executor
	log     *logger.Logger
}

func NewTronAdapter(client chain.Executor) *TronAdapter {
	return &TronAdapter{
		chainID: domain.ChainTRX,
		client:  client,
		log:     logger.Default().With("chain", domain.ChainTRX),
	}
}

func (a *TronAdapter) Chain() domain.ChainID {
	return a.chainID
}

// ValidateAddress checks a base58check T-address: 0x41 prefix, 20-byte
// account id and a double-sha256 checksum.
func (a *TronAdapter) ValidateAddress(address string) error {
	raw, err := base58.Decode(address)
	if err != nil || len(raw) != addressLength+4 {
		return fmt.Errorf("%w: %q is not a base58check address", chain.ErrInvalidAddress, address)
	}
	payload, checksum := raw[:addressLength], raw[addressLength:]
	if payload[0] != addressPrefix {
		return fmt.Errorf("%w: %q has prefix 0x%x, want 0x41", chain.ErrInvalidAddress, address, payload[0])
	}
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	if !bytes.Equal(second[:4], checksum) {
		return fmt.Errorf("%w: %q checksum mismatch", chain.ErrInvalidAddress, address)
	}
	return nil
}

func (a *TronAdapter) FetchBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	if err := a.ValidateAddress(address); err != nil {
		return decimal.Decimal{}, chain.NewAdapterError(a.chainID, address, err)
	}

	op := rpc.NewRESTOperation("wallet/getaccount", http.MethodPost, map[string]any{
		"address": address,
		"visible": true,
	})
	res, err := a.client.Execute(ctx, op)
	if err != nil {
		return decimal.Decimal{}, chain.NewAdapterError(a.chainID, address, fmt.Errorf("getaccount failed: %w", err))
	}

	account, ok := res.(map[string]any)
	if !ok {
		return decimal.Decimal{}, chain.NewAdapterError(a.chainID, address,
			chain.Malformed("getaccount result is %T", res))
	}

	// Unactivated accounts come back as {} and activated accounts with no
	// TRX omit the balance field.
	raw, ok := account["balance"]
	if !ok {
		a.log.Debug("account has no balance field, treating as zero", "address", address)
		return decimal.Zero, nil
	}

	sun, err := chain.ParseAmount(raw)
	if err != nil {
		return decimal.Decimal{}, chain.NewAdapterError(a.chainID, address, err)
	}
	return chain.ToNative(sun, chain.Decimals(a.chainID)), nil
}
