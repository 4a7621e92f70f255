package bitcoin

import (
	"bytes"
	"context"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sgawallet/sga-wallet/chain"
	conf "github.com/sgawallet/sga-wallet/config"
	"github.com/stretchr/testify/require"
)

func one() []byte {
	b := make([]byte, 32)
	b[31] = 1
	return b
}

func TestKnownAnswers(t *testing.T) {
	f := Family{}
	addr, err := f.DeriveAddress(one())
	require.NoError(t, err)
	require.Equal(t, "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH", addr)

	wif, err := f.EncodeSecret(one())
	require.NoError(t, err)
	require.Equal(t, "KwDiBf89QgGbjEhKnhXJuH7LrciVrZi3qYjgd9M7rFU73sVHnoWn", wif)

	raw, err := DecodeSecret(wif)
	require.NoError(t, err)
	require.Equal(t, one(), raw)
}

func TestGenerateKeyRejectsOutOfRange(t *testing.T) {
	var stream []byte
	stream = append(stream, bytes.Repeat([]byte{0xff}, 32)...) // >= n
	stream = append(stream, make([]byte, 32)...)               // zero
	stream = append(stream, one()...)

	key, err := Family{}.GenerateKey(bytes.NewReader(stream))
	require.NoError(t, err)
	require.Equal(t, one(), key.Secret)
	require.Equal(t, "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH", key.Address)
}

func TestGenerateKeyStopsOnEntropyFailure(t *testing.T) {
	// one rejected candidate, then the source dries up
	_, err := Family{}.GenerateKey(bytes.NewReader(bytes.Repeat([]byte{0xff}, 40)))
	require.ErrorIs(t, err, chain.ErrRandomnessUnavailable)
}

func TestTwoGenerationsDistinct(t *testing.T) {
	f := Family{}
	a, err := f.GenerateKey(rand.Reader)
	require.NoError(t, err)
	b, err := f.GenerateKey(rand.Reader)
	require.NoError(t, err)
	require.NotEqual(t, a.Address, b.Address)

	for _, k := range []*chain.Key{a, b} {
		require.NoError(t, f.ValidateAddress(k.Address))
		require.Equal(t, byte('1'), k.Address[0])
		wif, err := f.EncodeSecret(k.Secret)
		require.NoError(t, err)
		raw, err := DecodeSecret(wif)
		require.NoError(t, err)
		addr, err := f.DeriveAddress(raw)
		require.NoError(t, err)
		require.Equal(t, k.Address, addr)
	}
}

func TestValidateAddress(t *testing.T) {
	f := Family{}
	for _, ok := range []string{
		"1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH",
		"3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy",
		"bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4",
	} {
		require.NoError(t, f.ValidateAddress(ok), ok)
	}
	for _, bad := range []string{
		"",
		"1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMX", // checksum
		"mipcBbFg9gMiCh81Kj8tqqdgoZub1ZJRfn", // testnet
		"0x9858EfFD232B4033E47d90003D41EC34EcaEda94", // evm
	} {
		require.ErrorIs(t, f.ValidateAddress(bad), chain.ErrInvalidAddressEncoding, bad)
	}
}

func TestSourceConfirmedBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/address/1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH":
			w.Write([]byte(`{"address":"1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH","chain_stats":{"funded_txo_sum":150000000,"spent_txo_sum":100000000},"mempool_stats":{"funded_txo_sum":999,"spent_txo_sum":0}}`))
		default:
			http.Error(w, "Invalid Bitcoin address", http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	src := NewSource(conf.Bitcoin{APIBase: srv.URL + "/"}, srv.Client())
	units := src.Units("1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH")
	require.Len(t, units, 1)

	h, err := units[0].Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, h, 1)
	require.Equal(t, NativeSymbol, h[0].Symbol)
	require.InDelta(t, 0.5, h[0].Amount, 1e-12)

	_, err = src.Units("nope")[0].Fetch(context.Background())
	require.Error(t, err)
}
