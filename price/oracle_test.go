package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	conf "github.com/sgawallet/sga-wallet/config"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, hits *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		require.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		switch r.URL.Path {
		case "/simple/price":
			switch r.URL.Query().Get("ids") {
			case "ethereum":
				w.Write([]byte(`{"ethereum":{"usd":3150.25}}`))
			default:
				w.Write([]byte(`{}`))
			}
		case "/simple/token_price/ethereum":
			require.Equal(t, "test-key", r.Header.Get("x-cg-demo-api-key"))
			w.Write([]byte(`{"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48":{"usd":0.9998}}`))
		case "/simple/token_price/solana":
			w.Write([]byte(`{"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v":{"usd":1.0001}}`))
		default:
			w.WriteHeader(http.StatusTooManyRequests)
		}
	}))
}

func newOracle(srv *httptest.Server) *CoinGecko {
	return NewCoinGecko(conf.Price{
		BaseURL:     srv.URL + "/",
		APIKey:      "test-key",
		VsCurrency:  "USD",
		CacheTTLSec: 60,
		SymbolIDs:   map[string]string{"eth": "ethereum", "BTC": "bitcoin"},
	}, srv.Client())
}

func TestPriceBySymbol(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	defer srv.Close()
	o := newOracle(srv)

	v, err := o.PriceBySymbol(context.Background(), "ETH")
	require.NoError(t, err)
	require.Equal(t, 3150.25, v)

	_, err = o.PriceBySymbol(context.Background(), "DOGE")
	require.ErrorIs(t, err, ErrUnknownSymbol)

	_, err = o.PriceBySymbol(context.Background(), "btc")
	require.ErrorIs(t, err, ErrNoQuote)
}

func TestPriceByContract(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	defer srv.Close()
	o := newOracle(srv)

	v, err := o.PriceByContract(context.Background(), "ethereum", "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	require.NoError(t, err)
	require.Equal(t, 0.9998, v)

	v, err = o.PriceByContract(context.Background(), "solana", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	require.NoError(t, err)
	require.Equal(t, 1.0001, v)

	_, err = o.PriceByContract(context.Background(), "", "x")
	require.ErrorIs(t, err, ErrNoQuote)

	_, err = o.PriceByContract(context.Background(), "unknown-chain", "0x01")
	require.Error(t, err)
}

func TestCacheTTL(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	defer srv.Close()
	o := newOracle(srv)

	now := time.Unix(1700000000, 0)
	o.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		_, err := o.PriceBySymbol(context.Background(), "ETH")
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, atomic.LoadInt32(&hits))

	now = now.Add(61 * time.Second)
	_, err := o.PriceBySymbol(context.Background(), "ETH")
	require.NoError(t, err)
	require.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestConcurrentLookupsShareRequest(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	defer srv.Close()
	o := newOracle(srv)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := o.PriceBySymbol(context.Background(), "ETH")
			require.NoError(t, err)
			require.Equal(t, 3150.25, v)
		}()
	}
	wg.Wait()
	require.LessOrEqual(t, atomic.LoadInt32(&hits), int32(16))
	require.GreaterOrEqual(t, atomic.LoadInt32(&hits), int32(1))
}

func TestRateLimitHonoursContext(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	defer srv.Close()
	o := NewCoinGecko(conf.Price{BaseURL: srv.URL, VsCurrency: "usd", RequestsPerMinute: 1,
		SymbolIDs: map[string]string{"ETH": "ethereum", "BTC": "bitcoin"}}, srv.Client())

	_, err := o.PriceBySymbol(context.Background(), "ETH")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = o.PriceBySymbol(ctx, "BTC")
	require.Error(t, err)
	require.EqualValues(t, 1, atomic.LoadInt32(&hits))
}
