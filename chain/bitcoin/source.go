package bitcoin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sgawallet/sga-wallet/chain"
	conf "github.com/sgawallet/sga-wallet/config"
	prt "github.com/sgawallet/sga-wallet/protocol"
)

const (
	NativeSymbol   = "BTC"
	NativeDecimals = 8
	satPerBTC      = 1e8
)

type addressStats struct {
	FundedTxoSum int64 `json:"funded_txo_sum"`
	SpentTxoSum  int64 `json:"spent_txo_sum"`
}

type addressInfo struct {
	Address      string       `json:"address"`
	ChainStats   addressStats `json:"chain_stats"`
	MempoolStats addressStats `json:"mempool_stats"`
}

// Source reads confirmed balances from an Esplora (blockstream) endpoint.
type Source struct {
	base   string
	client *http.Client
}

var _ chain.Source = (*Source)(nil)

func NewSource(cfg conf.Bitcoin, client *http.Client) *Source {
	if client == nil {
		client = http.DefaultClient
	}
	return &Source{base: strings.TrimRight(cfg.APIBase, "/"), client: client}
}

func (p *Source) Family() prt.Family { return prt.FamilyBitcoin }

func (p *Source) Units(owner string) []chain.Unit {
	return []chain.Unit{{
		Name: "bitcoin/" + NativeSymbol,
		Fetch: func(ctx context.Context) ([]chain.Holding, error) {
			sats, err := p.ConfirmedBalance(ctx, owner)
			if err != nil {
				return nil, err
			}
			return []chain.Holding{{
				Symbol:  NativeSymbol,
				Network: "bitcoin",
				Amount:  float64(sats) / satPerBTC,
				Price:   chain.PriceRef{Symbol: NativeSymbol},
			}}, nil
		},
	}}
}

// ConfirmedBalance returns funded minus spent satoshis over confirmed outputs.
func (p *Source) ConfirmedBalance(ctx context.Context, address string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.base+"/address/"+address, nil)
	if err != nil {
		return 0, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("address lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("address lookup: unexpected status %d", resp.StatusCode)
	}
	var info addressInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return 0, fmt.Errorf("address lookup: %w", err)
	}
	sats := info.ChainStats.FundedTxoSum - info.ChainStats.SpentTxoSum
	if sats < 0 {
		return 0, fmt.Errorf("address lookup: negative confirmed balance %d", sats)
	}
	return sats, nil
}
