// Package families assembles the closed set of supported chain families.
package families

import (
	"net/http"

	"github.com/sgawallet/sga-wallet/chain"
	"github.com/sgawallet/sga-wallet/chain/bitcoin"
	"github.com/sgawallet/sga-wallet/chain/evm"
	"github.com/sgawallet/sga-wallet/chain/solana"
	"github.com/sgawallet/sga-wallet/chain/xrpl"
	conf "github.com/sgawallet/sga-wallet/config"
)

// Registry returns the offline families (key generation, address codecs).
func Registry() *chain.Registry {
	return chain.NewRegistry(evm.Family{}, solana.Family{}, bitcoin.Family{}, xrpl.Family{})
}

// WithSources returns the families plus their balance sources built from cfg.
func WithSources(cfg *conf.Config, client *http.Client) (*chain.Registry, error) {
	evmSource, err := evm.NewSource(cfg.EVM, nil)
	if err != nil {
		return nil, err
	}
	return Registry().WithSources(
		evmSource,
		solana.NewSource(cfg.Solana, nil),
		bitcoin.NewSource(cfg.Bitcoin, client),
		xrpl.NewSource(cfg.XRPL, nil),
	), nil
}
