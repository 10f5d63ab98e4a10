// Package price resolves USD unit prices for native assets.
package price

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/shopspring/decimal"

	"github.com/vietddude/balancewatch/internal/core/domain"
	"github.com/vietddude/balancewatch/internal/infra/rpc"
)

// Oracle returns USD unit prices for asset symbols.
//
// GetPrices always returns the prices it could resolve. A non-nil error is a
// *domain.OracleError listing the symbols that are missing or were served
// from the last-known cache.
type Oracle interface {
	GetPrices(ctx context.Context, symbols mapset.Set[string]) (map[string]decimal.Decimal, error)
}

// Executor runs a REST operation. *rpc.HTTPProvider satisfies it.
type Executor interface {
	Execute(ctx context.Context, op rpc.Operation) (any, error)
}

// DefaultCoinIDs maps native symbols to CoinGecko ids.
var DefaultCoinIDs = map[string]string{
	"ETH": "ethereum",
	"SOL": "solana",
	"APT": "aptos",
	"TRX": "tron",
	"SUI": "sui",
}

const cacheSize = 256

type cachedPrice struct {
	price     decimal.Decimal
	fetchedAt time.Time
}

// CoinGeckoOracle queries the /simple/price endpoint.
//
// Prices younger than freshFor are served from cache without a request.
// Older entries remain in the cache until the fallback window expires and are
// used only when a live fetch fails.
type CoinGeckoOracle struct {
	client   Executor
	coinIDs  map[string]string
	freshFor time.Duration
	cache    *expirable.LRU[string, cachedPrice]
	now      func() time.Time
	log      *slog.Logger
}

// Options configures a CoinGeckoOracle.
type Options struct {
	CoinIDs  map[string]string
	CacheTTL time.Duration
	Interval time.Duration
	Logger   *slog.Logger
}

// NewCoinGeckoOracle creates an oracle over client. The fresh window is
// CacheTTL clamped to Interval; the last-known fallback lasts two intervals.
func NewCoinGeckoOracle(client Executor, opts Options) *CoinGeckoOracle {
	ids := make(map[string]string, len(DefaultCoinIDs)+len(opts.CoinIDs))
	for k, v := range DefaultCoinIDs {
		ids[k] = v
	}
	for k, v := range opts.CoinIDs {
		ids[strings.ToUpper(k)] = v
	}

	fresh := opts.CacheTTL
	if opts.Interval > 0 && (fresh <= 0 || fresh > opts.Interval) {
		fresh = opts.Interval
	}
	fallback := 2 * opts.Interval
	if fallback < fresh {
		fallback = fresh
	}
	if fallback <= 0 {
		fallback = time.Minute
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return &CoinGeckoOracle{
		client:   client,
		coinIDs:  ids,
		freshFor: fresh,
		cache:    expirable.NewLRU[string, cachedPrice](cacheSize, nil, fallback),
		now:      time.Now,
		log:      log.With("component", "price"),
	}
}

// GetPrices implements Oracle.
func (o *CoinGeckoOracle) GetPrices(
	ctx context.Context,
	symbols mapset.Set[string],
) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal, symbols.Cardinality())
	now := o.now()

	var unknown []string
	need := make(map[string]string) // symbol -> coin id
	for _, sym := range sortedSymbols(symbols) {
		if cp, ok := o.cache.Get(sym); ok && now.Sub(cp.fetchedAt) < o.freshFor {
			prices[sym] = cp.price
			continue
		}
		id, ok := o.coinIDs[sym]
		if !ok {
			unknown = append(unknown, sym)
			continue
		}
		need[sym] = id
	}

	if len(need) == 0 {
		return prices, unknownErr(unknown)
	}

	live, err := o.fetch(ctx, need)
	if err != nil {
		// Degrade to the last known price for anything still in the cache.
		var stale []string
		for sym := range need {
			if cp, ok := o.cache.Get(sym); ok {
				prices[sym] = cp.price
				stale = append(stale, sym)
			} else {
				unknown = append(unknown, sym)
			}
		}
		o.log.Warn("price fetch failed",
			"error", err,
			"stale", strings.Join(sortStrings(stale), ","),
			"unknown", strings.Join(sortStrings(unknown), ","),
		)
		var oe *domain.OracleError
		if errors.As(err, &oe) {
			oe.Symbols = sortStrings(append(stale, unknown...))
		}
		return prices, err
	}

	for sym, id := range need {
		p, ok := live[id]
		if !ok {
			unknown = append(unknown, sym)
			continue
		}
		prices[sym] = p
		o.cache.Add(sym, cachedPrice{price: p, fetchedAt: now})
	}

	return prices, unknownErr(unknown)
}

// fetch requests the USD price for each distinct coin id in a single call.
// Symbols sharing an id share the request entry.
func (o *CoinGeckoOracle) fetch(ctx context.Context, need map[string]string) (map[string]decimal.Decimal, error) {
	idSet := mapset.NewThreadUnsafeSet[string]()
	for _, id := range need {
		idSet.Add(id)
	}
	ids := idSet.ToSlice()
	sort.Strings(ids)

	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", "usd")

	res, err := o.client.Execute(ctx, rpc.NewRESTOperation("simple/price?"+q.Encode(), http.MethodGet, nil))
	if err != nil {
		kind := domain.OracleEndpointUnreachable
		if errors.Is(err, rpc.ErrRateLimited) || errors.Is(err, rpc.ErrThrottled) || errors.Is(err, rpc.ErrBlocked) {
			kind = domain.OracleRateLimited
		}
		return nil, &domain.OracleError{Kind: kind, Err: err}
	}

	body, ok := res.(map[string]any)
	if !ok {
		return nil, &domain.OracleError{
			Kind: domain.OracleEndpointUnreachable,
			Err:  fmt.Errorf("%w: price response is %T", rpc.ErrMalformedResponse, res),
		}
	}

	out := make(map[string]decimal.Decimal, len(ids))
	for _, id := range ids {
		entry, ok := body[id].(map[string]any)
		if !ok {
			continue
		}
		p, err := toDecimal(entry["usd"])
		if err != nil {
			o.log.Debug("unusable price", "coin", id, "error", err)
			continue
		}
		out[id] = p
	}
	return out, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case interface{ String() string }:
		return decimal.NewFromString(n.String())
	case float64:
		return decimal.NewFromFloat(n), nil
	case string:
		return decimal.NewFromString(n)
	default:
		return decimal.Decimal{}, fmt.Errorf("unexpected price type %T", v)
	}
}

func unknownErr(unknown []string) error {
	if len(unknown) == 0 {
		return nil
	}
	return &domain.OracleError{Kind: domain.OracleUnknownSymbol, Symbols: sortStrings(unknown)}
}

func sortedSymbols(s mapset.Set[string]) []string {
	return sortStrings(s.ToSlice())
}

func sortStrings(s []string) []string {
	sort.Strings(s)
	return s
}
