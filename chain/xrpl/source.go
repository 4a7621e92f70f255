package xrpl

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sgawallet/sga-wallet/chain"
	"github.com/sgawallet/sga-wallet/common/utils"
	conf "github.com/sgawallet/sga-wallet/config"
	prt "github.com/sgawallet/sga-wallet/protocol"
)

const (
	NativeSymbol   = "XRP"
	NativeDecimals = 6 // drops
)

// Caller is the JSON-RPC surface used by the source (rpc.Client).
type Caller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

type DialFunc func(ctx context.Context, url string) (Caller, error)

func dialRPC(ctx context.Context, url string) (Caller, error) {
	return rpc.DialContext(ctx, url)
}

type request struct {
	Account     string `json:"account"`
	LedgerIndex string `json:"ledger_index"`
}

// rippled reports failures inside result rather than as JSON-RPC errors.
type status struct {
	Status       string `json:"status"`
	Error        string `json:"error"`
	ErrorMessage string `json:"error_message"`
}

func (s status) err(method string) error {
	if s.Status == "success" {
		return nil
	}
	return fmt.Errorf("%s: %s %s", method, s.Error, s.ErrorMessage)
}

type accountInfoResult struct {
	status
	AccountData struct {
		Balance string `json:"Balance"`
	} `json:"account_data"`
}

type accountLinesResult struct {
	status
	Lines []struct {
		Account  string `json:"account"`
		Balance  string `json:"balance"`
		Currency string `json:"currency"`
	} `json:"lines"`
}

type Source struct {
	cfg  conf.XRPL
	dial DialFunc

	mtx    sync.Mutex
	client Caller
}

var _ chain.Source = (*Source)(nil)

func NewSource(cfg conf.XRPL, dial DialFunc) *Source {
	if dial == nil {
		dial = dialRPC
	}
	return &Source{cfg: cfg, dial: dial}
}

func (p *Source) Family() prt.Family { return prt.FamilyXRPL }

func (p *Source) Units(owner string) []chain.Unit {
	return []chain.Unit{
		{Name: "xrpl/" + NativeSymbol, Fetch: func(ctx context.Context) ([]chain.Holding, error) {
			return p.native(ctx, owner)
		}},
		{Name: "xrpl/trustlines", Fetch: func(ctx context.Context) ([]chain.Holding, error) {
			return p.lines(ctx, owner)
		}},
	}
}

func (p *Source) rpcClient(ctx context.Context) (Caller, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if p.client != nil {
		return p.client, nil
	}
	c, err := p.dial(ctx, p.cfg.RPC)
	if err != nil {
		return nil, fmt.Errorf("failed to dial xrpl rpc: %w", err)
	}
	p.client = c
	return c, nil
}

func (p *Source) native(ctx context.Context, owner string) ([]chain.Holding, error) {
	c, err := p.rpcClient(ctx)
	if err != nil {
		return nil, err
	}
	var res accountInfoResult
	if err := c.CallContext(ctx, &res, "account_info", request{Account: owner, LedgerIndex: "validated"}); err != nil {
		return nil, fmt.Errorf("account_info: %w", err)
	}
	if res.Error == "actNotFound" {
		return nil, nil // unfunded
	}
	if err := res.err("account_info"); err != nil {
		return nil, err
	}
	drops, err := utils.ParseUnits(res.AccountData.Balance)
	if err != nil {
		return nil, fmt.Errorf("account_info: %w", err)
	}
	return []chain.Holding{{
		Symbol:  NativeSymbol,
		Network: "xrpl",
		Amount:  utils.UnitsToFloat(drops, NativeDecimals),
		Price:   chain.PriceRef{Symbol: NativeSymbol},
	}}, nil
}

// lines reports issued currencies; they stay unpriced.
func (p *Source) lines(ctx context.Context, owner string) ([]chain.Holding, error) {
	c, err := p.rpcClient(ctx)
	if err != nil {
		return nil, err
	}
	var res accountLinesResult
	if err := c.CallContext(ctx, &res, "account_lines", request{Account: owner, LedgerIndex: "validated"}); err != nil {
		return nil, fmt.Errorf("account_lines: %w", err)
	}
	if res.Error == "actNotFound" {
		return nil, nil
	}
	if err := res.err("account_lines"); err != nil {
		return nil, err
	}

	var out []chain.Holding
	for _, l := range res.Lines {
		amount, err := utils.ParseAmount(l.Balance)
		if err != nil {
			continue // negative: owed to the counterparty
		}
		out = append(out, chain.Holding{
			Symbol:  CurrencyCode(l.Currency) + "." + l.Account,
			Network: "xrpl",
			Amount:  amount,
			Price:   chain.PriceRef{Unpriced: true},
		})
	}
	return out, nil
}

// CurrencyCode renders 160-bit hex currency codes as text when printable.
func CurrencyCode(c string) string {
	if len(c) != 40 {
		return c
	}
	raw, err := hex.DecodeString(c)
	if err != nil {
		return c
	}
	raw = bytes.TrimRight(raw, "\x00")
	if len(raw) == 0 || raw[0] == 0 {
		return c
	}
	for _, b := range raw {
		if b < 0x20 || b > 0x7e {
			return c
		}
	}
	return string(raw)
}
