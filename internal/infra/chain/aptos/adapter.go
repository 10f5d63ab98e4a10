package aptos

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	logger "log/slog"

	"github.com/shopspring/decimal"

	"github.com/vietddude/balancewatch/internal/core/domain"
	"github.com/vietddude/balancewatch/internal/infra/chain"
	"github.com/vietddude/balancewatch/internal/infra/rpc"
)

// CoinStoreResource is the account resource holding native APT.
const CoinStoreResource = "0x1::coin::CoinStore<0x1::aptos_coin::AptosCoin>"

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{1,64}$`)

// Adapter reads octas from the account's CoinStore resource over the
// fullnode REST API. The endpoint URL is expected to include the /v1 prefix.
type Adapter struct {
	chainID domain.ChainID
	client  chain.Executor
	log     *logger.Logger
}

func NewAdapter(client chain.Executor) *Adapter {
	return &Adapter{
		chainID: domain.ChainAPT,
		client:  client,
		log:     logger.Default().With("chain", domain.ChainAPT),
	}
}

func (a *Adapter) Chain() domain.ChainID {
	return a.chainID
}

func (a *Adapter) ValidateAddress(address string) error {
	if !addressPattern.MatchString(address) {
		return fmt.Errorf("%w: %q is not a 0x-prefixed hex account address", chain.ErrInvalidAddress, address)
	}
	return nil
}

func (a *Adapter) FetchBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	if err := a.ValidateAddress(address); err != nil {
		return decimal.Decimal{}, chain.NewAdapterError(a.chainID, address, err)
	}

	path := fmt.Sprintf("accounts/%s/resource/%s", address, CoinStoreResource)
	res, err := a.client.Execute(ctx, rpc.NewRESTOperation(path, http.MethodGet, nil))
	if err != nil {
		// No CoinStore: the account does not exist or never held APT.
		var statusErr *rpc.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			a.log.Debug("coin store not found, treating as zero", "address", address)
			return decimal.Zero, nil
		}
		return decimal.Decimal{}, chain.NewAdapterError(a.chainID, address, fmt.Errorf("get coin store: %w", err))
	}

	octas, err := parseCoinValue(res)
	if err != nil {
		return decimal.Decimal{}, chain.NewAdapterError(a.chainID, address, err)
	}

	return chain.ToNative(octas, chain.Decimals(a.chainID)), nil
}

// parseCoinValue extracts data.coin.value from the resource body.
func parseCoinValue(res any) (decimal.Decimal, error) {
	m, ok := res.(map[string]any)
	if !ok {
		return decimal.Decimal{}, chain.Malformed("resource is %T", res)
	}
	data, ok := m["data"].(map[string]any)
	if !ok {
		return decimal.Decimal{}, chain.Malformed("resource has no data")
	}
	coin, ok := data["coin"].(map[string]any)
	if !ok {
		return decimal.Decimal{}, chain.Malformed("resource has no coin")
	}
	return chain.ParseAmount(coin["value"])
}
