package solana

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sgawallet/sga-wallet/chain"
	"github.com/sgawallet/sga-wallet/common/utils"
	conf "github.com/sgawallet/sga-wallet/config"
	prt "github.com/sgawallet/sga-wallet/protocol"
)

const (
	NativeSymbol   = "SOL"
	NativeDecimals = 9
	PricePlatform  = "solana"

	TokenProgramID     = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	Token2022ProgramID = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PE9Hbz1h9ZCNeeb"
)

// Caller is the JSON-RPC surface used by the source (rpc.Client).
type Caller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

type DialFunc func(ctx context.Context, url string) (Caller, error)

func dialRPC(ctx context.Context, url string) (Caller, error) {
	return rpc.DialContext(ctx, url)
}

type balanceResult struct {
	Value uint64 `json:"value"`
}

type tokenAmount struct {
	Amount         string `json:"amount"`
	Decimals       uint8  `json:"decimals"`
	UIAmountString string `json:"uiAmountString"`
}

type tokenAccountsResult struct {
	Value []struct {
		Pubkey  string `json:"pubkey"`
		Account struct {
			Data struct {
				Parsed struct {
					Info struct {
						Mint        string      `json:"mint"`
						TokenAmount tokenAmount `json:"tokenAmount"`
					} `json:"info"`
				} `json:"parsed"`
			} `json:"data"`
		} `json:"account"`
	} `json:"value"`
}

type Source struct {
	cfg  conf.Solana
	dial DialFunc

	mtx    sync.Mutex
	client Caller
}

var _ chain.Source = (*Source)(nil)

func NewSource(cfg conf.Solana, dial DialFunc) *Source {
	if dial == nil {
		dial = dialRPC
	}
	return &Source{cfg: cfg, dial: dial}
}

func (p *Source) Family() prt.Family { return prt.FamilySolana }

// Units yields the lamport balance plus one listing per token program.
func (p *Source) Units(owner string) []chain.Unit {
	return []chain.Unit{
		{Name: "solana/" + NativeSymbol, Fetch: func(ctx context.Context) ([]chain.Holding, error) {
			return p.native(ctx, owner)
		}},
		{Name: "solana/spl-token", Fetch: func(ctx context.Context) ([]chain.Holding, error) {
			return p.tokens(ctx, owner, TokenProgramID)
		}},
		{Name: "solana/token-2022", Fetch: func(ctx context.Context) ([]chain.Holding, error) {
			return p.tokens(ctx, owner, Token2022ProgramID)
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
		return nil, fmt.Errorf("failed to dial solana rpc: %w", err)
	}
	p.client = c
	return c, nil
}

func (p *Source) native(ctx context.Context, owner string) ([]chain.Holding, error) {
	c, err := p.rpcClient(ctx)
	if err != nil {
		return nil, err
	}
	var res balanceResult
	if err := c.CallContext(ctx, &res, "getBalance", owner, map[string]string{"commitment": p.cfg.Commitment}); err != nil {
		return nil, fmt.Errorf("getBalance: %w", err)
	}
	if res.Value == 0 {
		return nil, nil
	}
	return []chain.Holding{{
		Symbol:  NativeSymbol,
		Network: "solana",
		Amount:  utils.UnitsToFloat(new(big.Int).SetUint64(res.Value), NativeDecimals),
		Price:   chain.PriceRef{Symbol: NativeSymbol},
	}}, nil
}

func (p *Source) tokens(ctx context.Context, owner, programID string) ([]chain.Holding, error) {
	c, err := p.rpcClient(ctx)
	if err != nil {
		return nil, err
	}
	var res tokenAccountsResult
	err = c.CallContext(ctx, &res, "getTokenAccountsByOwner", owner,
		map[string]string{"programId": programID},
		map[string]string{"encoding": "jsonParsed", "commitment": p.cfg.Commitment})
	if err != nil {
		return nil, fmt.Errorf("getTokenAccountsByOwner: %w", err)
	}

	var out []chain.Holding
	for _, acc := range res.Value {
		info := acc.Account.Data.Parsed.Info
		amount, err := uiAmount(info.TokenAmount)
		if err != nil || amount <= 0 {
			continue
		}
		out = append(out, chain.Holding{
			Symbol:  info.Mint,
			Network: "solana",
			Amount:  amount,
			Price:   chain.PriceRef{Platform: PricePlatform, Contract: info.Mint},
		})
	}
	return out, nil
}

func uiAmount(t tokenAmount) (float64, error) {
	if t.UIAmountString != "" {
		return utils.ParseAmount(t.UIAmountString)
	}
	raw, err := utils.ParseUnits(t.Amount)
	if err != nil {
		return 0, err
	}
	return utils.UnitsToFloat(raw, t.Decimals), nil
}
