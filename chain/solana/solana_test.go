package solana

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sgawallet/sga-wallet/chain"
	conf "github.com/sgawallet/sga-wallet/config"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeyKnownSeed(t *testing.T) {
	seed, _ := hex.DecodeString("9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60")
	key, err := Family{}.GenerateKey(bytes.NewReader(seed))
	require.NoError(t, err)
	require.Equal(t, "FVen3X669xLzsi6N2V91DoiyzHzg1uAgqiT8jZ9nS96Z", key.Address)
	require.Len(t, key.Secret, SecretSize)
	require.Equal(t, seed, key.Secret[:32])

	enc, err := Family{}.EncodeSecret(key.Secret)
	require.NoError(t, err)
	require.Len(t, enc, 128)
}

func TestGenerateKeyRoundTrip(t *testing.T) {
	f := Family{}
	a, err := f.GenerateKey(bytes.NewReader(bytes.Repeat([]byte{7}, 32)))
	require.NoError(t, err)
	b, err := f.GenerateKey(bytes.NewReader(bytes.Repeat([]byte{8}, 32)))
	require.NoError(t, err)
	require.NotEqual(t, a.Address, b.Address)

	for _, k := range []*chain.Key{a, b} {
		require.NoError(t, f.ValidateAddress(k.Address))
		addr, err := f.DeriveAddress(k.Secret)
		require.NoError(t, err)
		require.Equal(t, k.Address, addr)
	}

	tampered := append([]byte(nil), a.Secret...)
	tampered[40] ^= 0xff
	_, err = f.DeriveAddress(tampered)
	require.ErrorIs(t, err, chain.ErrInvalidSecret)

	_, err = f.GenerateKey(bytes.NewReader(nil))
	require.ErrorIs(t, err, chain.ErrRandomnessUnavailable)
}

func TestValidateAddress(t *testing.T) {
	f := Family{}
	require.NoError(t, f.ValidateAddress("FVen3X669xLzsi6N2V91DoiyzHzg1uAgqiT8jZ9nS96Z"))
	require.NoError(t, f.ValidateAddress(TokenProgramID))
	for _, bad := range []string{"", "0OIl", "FVen3X669xLzsi6N2V91Doiy", "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"} {
		require.ErrorIs(t, f.ValidateAddress(bad), chain.ErrInvalidAddressEncoding, bad)
	}
}

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// newRPCServer answers JSON-RPC 2.0 calls with the result returned by handle.
func newRPCServer(t *testing.T, handle func(method string, params []json.RawMessage) (interface{}, *rpcError)) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		result, rerr := handle(req.Method, req.Params)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rerr != nil {
			resp["error"] = rerr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func tokenAccount(mint, amount string, decimals int, ui string) map[string]interface{} {
	return map[string]interface{}{
		"pubkey": "acc-" + mint,
		"account": map[string]interface{}{
			"data": map[string]interface{}{
				"parsed": map[string]interface{}{
					"info": map[string]interface{}{
						"mint": mint,
						"tokenAmount": map[string]interface{}{
							"amount":         amount,
							"decimals":       decimals,
							"uiAmountString": ui,
						},
					},
				},
			},
		},
	}
}

func TestSourceUnits(t *testing.T) {
	const owner = "FVen3X669xLzsi6N2V91DoiyzHzg1uAgqiT8jZ9nS96Z"
	const usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	srv := newRPCServer(t, func(method string, params []json.RawMessage) (interface{}, *rpcError) {
		var addr string
		require.NoError(t, json.Unmarshal(params[0], &addr))
		require.Equal(t, owner, addr)
		switch method {
		case "getBalance":
			return map[string]interface{}{"context": map[string]int{"slot": 1}, "value": 2500000000}, nil
		case "getTokenAccountsByOwner":
			var filter map[string]string
			require.NoError(t, json.Unmarshal(params[1], &filter))
			if filter["programId"] == Token2022ProgramID {
				return nil, &rpcError{Code: -32602, Message: "unsupported"}
			}
			return map[string]interface{}{"value": []interface{}{
				tokenAccount(usdcMint, "12500000", 6, "12.5"),
				tokenAccount("EmptyMint1111111111111111111111111111111111", "0", 6, "0"),
				tokenAccount("RawOnlyMint111111111111111111111111111111111", "3000", 3, ""),
			}}, nil
		}
		return nil, &rpcError{Code: -32601, Message: "method not found"}
	})
	defer srv.Close()

	src := NewSource(conf.Solana{RPC: srv.URL, Commitment: "finalized"}, nil)
	units := src.Units(owner)
	require.Len(t, units, 3)

	ctx := context.Background()
	native, err := units[0].Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, native, 1)
	require.Equal(t, NativeSymbol, native[0].Symbol)
	require.InDelta(t, 2.5, native[0].Amount, 1e-12)

	tokens, err := units[1].Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	require.Equal(t, usdcMint, tokens[0].Price.Contract)
	require.Equal(t, PricePlatform, tokens[0].Price.Platform)
	require.InDelta(t, 12.5, tokens[0].Amount, 1e-12)
	require.InDelta(t, 3.0, tokens[1].Amount, 1e-12)

	_, err = units[2].Fetch(ctx)
	require.Error(t, err)
}
