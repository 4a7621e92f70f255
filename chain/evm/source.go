package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sgawallet/sga-wallet/chain"
	"github.com/sgawallet/sga-wallet/common/utils"
	conf "github.com/sgawallet/sga-wallet/config"
	prt "github.com/sgawallet/sga-wallet/protocol"
)

const NativeDecimals = 18

const erc20ABI = `[{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`

// Backend is the subset of ethclient.Client used for balance queries.
type Backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type DialFunc func(ctx context.Context, rpcURL string) (Backend, error)

func dialEthClient(ctx context.Context, rpcURL string) (Backend, error) {
	return ethclient.DialContext(ctx, rpcURL)
}

// Source queries every configured EVM network for an owner.
type Source struct {
	networks []conf.EVMNetwork
	erc20    abi.ABI
	dial     DialFunc

	mtx      sync.Mutex
	backends map[string]Backend
}

var _ chain.Source = (*Source)(nil)

func NewSource(cfg conf.EVM, dial DialFunc) (*Source, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 abi: %w", err)
	}
	if dial == nil {
		dial = dialEthClient
	}
	return &Source{
		networks: cfg.Networks,
		erc20:    parsed,
		dial:     dial,
		backends: make(map[string]Backend),
	}, nil
}

func (p *Source) Family() prt.Family { return prt.FamilyEVM }

// Units yields one native query per network plus one per configured token.
func (p *Source) Units(owner string) []chain.Unit {
	account := common.HexToAddress(owner)
	var units []chain.Unit
	for _, n := range p.networks {
		n := n
		units = append(units, chain.Unit{
			Name: n.Name + "/" + n.NativeSymbol,
			Fetch: func(ctx context.Context) ([]chain.Holding, error) {
				return p.native(ctx, n, account)
			},
		})
		for _, t := range n.Tokens {
			t := t
			units = append(units, chain.Unit{
				Name: n.Name + "/" + t.Symbol,
				Fetch: func(ctx context.Context) ([]chain.Holding, error) {
					return p.token(ctx, n, t, account)
				},
			})
		}
	}
	return units
}

func (p *Source) backend(ctx context.Context, n conf.EVMNetwork) (Backend, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if b, ok := p.backends[n.Name]; ok {
		return b, nil
	}
	b, err := p.dial(ctx, n.RPC)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s rpc: %w", n.Name, err)
	}
	p.backends[n.Name] = b
	return b, nil
}

func (p *Source) native(ctx context.Context, n conf.EVMNetwork, owner common.Address) ([]chain.Holding, error) {
	b, err := p.backend(ctx, n)
	if err != nil {
		return nil, err
	}
	wei, err := b.BalanceAt(ctx, owner, nil)
	if err != nil {
		return nil, fmt.Errorf("%s native balance: %w", n.Name, err)
	}
	if wei.Sign() <= 0 {
		return nil, nil
	}
	return []chain.Holding{{
		Symbol:  n.NativeSymbol,
		Network: n.Name,
		Amount:  utils.UnitsToFloat(wei, NativeDecimals),
		Price:   chain.PriceRef{Symbol: n.NativeSymbol},
	}}, nil
}

func (p *Source) token(ctx context.Context, n conf.EVMNetwork, t conf.Token, owner common.Address) ([]chain.Holding, error) {
	b, err := p.backend(ctx, n)
	if err != nil {
		return nil, err
	}
	raw, err := p.BalanceOf(ctx, b, common.HexToAddress(t.Address), owner)
	if err != nil {
		return nil, fmt.Errorf("%s %s balanceOf: %w", n.Name, t.Symbol, err)
	}
	if raw.Sign() <= 0 {
		return nil, nil
	}
	return []chain.Holding{{
		Symbol:  t.Symbol,
		Network: n.Name,
		Amount:  utils.UnitsToFloat(raw, t.Decimals),
		Price:   chain.PriceRef{Symbol: t.Symbol, Platform: n.PricePlatform, Contract: t.Address},
	}}, nil
}

// BalanceOf calls ERC-20 balanceOf(owner) on token.
func (p *Source) BalanceOf(ctx context.Context, b Backend, token, owner common.Address) (*big.Int, error) {
	input, err := p.erc20.Pack("balanceOf", owner)
	if err != nil {
		return nil, err
	}
	out, err := b.CallContract(ctx, ethereum.CallMsg{To: &token, Data: input}, nil)
	if err != nil {
		return nil, err
	}
	res, err := p.erc20.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode balanceOf: %w", err)
	}
	if len(res) != 1 {
		return nil, fmt.Errorf("unexpected balanceOf output length %d", len(res))
	}
	bal, ok := res[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf output type %T", res[0])
	}
	return bal, nil
}
