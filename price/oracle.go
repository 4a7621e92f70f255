// Package price resolves fiat unit prices from a CoinGecko compatible API.
package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	conf "github.com/sgawallet/sga-wallet/config"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

var (
	ErrUnknownSymbol = errors.New("no oracle id for symbol")
	ErrNoQuote       = errors.New("oracle returned no quote")
)

// Oracle prices one unit of an asset in the configured fiat currency.
type Oracle interface {
	PriceBySymbol(ctx context.Context, symbol string) (float64, error)
	PriceByContract(ctx context.Context, platform, contract string) (float64, error)
}

type quote struct {
	value float64
	at    time.Time
}

type CoinGecko struct {
	base   string
	apiKey string
	vs     string
	ids    map[string]string
	ttl    time.Duration
	client *http.Client

	limiter *rate.Limiter
	group   singleflight.Group

	mtx   sync.Mutex
	cache map[string]quote
	now   func() time.Time
}

var _ Oracle = (*CoinGecko)(nil)

func NewCoinGecko(cfg conf.Price, client *http.Client) *CoinGecko {
	if client == nil {
		client = http.DefaultClient
	}
	ids := make(map[string]string, len(cfg.SymbolIDs))
	for sym, id := range cfg.SymbolIDs {
		ids[strings.ToUpper(sym)] = id
	}
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(cfg.RequestsPerMinute) / 60)
	}
	return &CoinGecko{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		vs:      strings.ToLower(cfg.VsCurrency),
		ids:     ids,
		ttl:     time.Duration(cfg.CacheTTLSec) * time.Second,
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		cache:   make(map[string]quote),
		now:     time.Now,
	}
}

// PriceBySymbol maps symbol to an oracle id through the configured table.
func (p *CoinGecko) PriceBySymbol(ctx context.Context, symbol string) (float64, error) {
	id, ok := p.ids[strings.ToUpper(symbol)]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	q := url.Values{"ids": {id}, "vs_currencies": {p.vs}}
	return p.lookup(ctx, "id:"+id, "/simple/price?"+q.Encode(), id)
}

// PriceByContract prices a token by contract or mint address on a platform
// ("ethereum", "solana", ...).
func (p *CoinGecko) PriceByContract(ctx context.Context, platform, contract string) (float64, error) {
	if platform == "" || contract == "" {
		return 0, fmt.Errorf("%w: missing platform or contract", ErrNoQuote)
	}
	q := url.Values{"contract_addresses": {contract}, "vs_currencies": {p.vs}}
	path := "/simple/token_price/" + url.PathEscape(platform) + "?" + q.Encode()
	return p.lookup(ctx, "contract:"+platform+":"+strings.ToLower(contract), path, contract)
}

func (p *CoinGecko) lookup(ctx context.Context, key, path, field string) (float64, error) {
	if v, ok := p.cached(key); ok {
		return v, nil
	}
	v, err, _ := p.group.Do(key, func() (interface{}, error) {
		if v, ok := p.cached(key); ok {
			return v, nil
		}
		v, err := p.fetch(ctx, path, field)
		if err != nil {
			return 0.0, err
		}
		p.mtx.Lock()
		p.cache[key] = quote{value: v, at: p.now()}
		p.mtx.Unlock()
		return v, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

func (p *CoinGecko) cached(key string) (float64, bool) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	q, ok := p.cache[key]
	if !ok || p.now().Sub(q.at) >= p.ttl {
		return 0, false
	}
	return q.value, true
}

func (p *CoinGecko) fetch(ctx context.Context, path, field string) (float64, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.base+path, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", p.apiKey)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("price request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("price request: unexpected status %d", resp.StatusCode)
	}
	var body map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("price response: %w", err)
	}

	entry, ok := body[field]
	if !ok {
		// contract keys come back lower-cased for EVM platforms
		for k, v := range body {
			if strings.EqualFold(k, field) {
				entry, ok = v, true
				break
			}
		}
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoQuote, field)
	}
	v, ok := entry[p.vs]
	if !ok {
		return 0, fmt.Errorf("%w: %s has no %s quote", ErrNoQuote, field, p.vs)
	}
	return v, nil
}
