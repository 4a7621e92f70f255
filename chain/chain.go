// Package chain defines the per-family contract for key generation, address
// encoding and balance lookup. Each supported chain family implements Family
// (pure, offline) and Source (network-facing); callers select implementations
// through a Registry instead of branching on family names.
package chain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	prt "github.com/sgawallet/sga-wallet/protocol"
)

var (
	ErrUnsupportedFamily      = errors.New("unsupported chain family")
	ErrInvalidAddressEncoding = errors.New("invalid address encoding")
	ErrInvalidSecret          = errors.New("invalid secret material")
	// ErrRandomnessUnavailable is returned when the entropy source fails.
	// It must surface to the caller; generation never retries on it.
	ErrRandomnessUnavailable = errors.New("randomness unavailable")
)

// Key is freshly generated key material. Secret is the raw key of the family
// (32-byte scalar, 64-byte ed25519 key, 16-byte XRPL seed).
type Key struct {
	Address  string
	Secret   []byte
	Mnemonic []byte // EVM only
}

// Family is the offline half of a chain family.
type Family interface {
	ID() prt.Family
	// SecretSize is the byte length of Key.Secret.
	SecretSize() int
	GenerateKey(rand io.Reader) (*Key, error)
	// DeriveAddress recomputes the address from a raw secret.
	DeriveAddress(secret []byte) (string, error)
	// EncodeSecret renders a raw secret in the family's export format
	// (hex, WIF, family seed).
	EncodeSecret(secret []byte) (string, error)
	ValidateAddress(address string) error
	Providers() []prt.ProviderKind
}

// PriceRef tells the valuation step how to price a holding.
type PriceRef struct {
	Symbol   string // priced by symbol when Contract is empty
	Platform string // oracle platform id for contract pricing
	Contract string // token contract or mint address
	Unpriced bool   // no oracle is wired (e.g. XRPL issued currencies)
}

// Holding is one balance reported by a Source.
type Holding struct {
	Symbol  string
	Network string
	Amount  float64
	Price   PriceRef
}

// Unit is one independent balance query for an owner. Fetch may return more
// than one holding (token account listings, trust lines).
type Unit struct {
	Name  string
	Fetch func(ctx context.Context) ([]Holding, error)
}

// Source is the network half of a chain family.
type Source interface {
	Family() prt.Family
	Units(owner string) []Unit
}

// Registry is the closed set of families known to the process.
type Registry struct {
	families map[prt.Family]Family
	sources  map[prt.Family]Source
}

func NewRegistry(families ...Family) *Registry {
	r := &Registry{
		families: make(map[prt.Family]Family, len(families)),
		sources:  make(map[prt.Family]Source),
	}
	for _, f := range families {
		r.families[f.ID()] = f
	}
	return r
}

// WithSources attaches balance sources. A source for an unregistered family
// is ignored.
func (p *Registry) WithSources(sources ...Source) *Registry {
	for _, s := range sources {
		if _, ok := p.families[s.Family()]; ok {
			p.sources[s.Family()] = s
		}
	}
	return p
}

func (p *Registry) Family(id prt.Family) (Family, error) {
	f, ok := p.families[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFamily, id)
	}
	return f, nil
}

func (p *Registry) Source(id prt.Family) (Source, error) {
	s, ok := p.sources[id]
	if !ok {
		return nil, fmt.Errorf("%w: no balance source for %q", ErrUnsupportedFamily, id)
	}
	return s, nil
}

// Families returns registered ids in a stable order.
func (p *Registry) Families() []prt.Family {
	out := make([]prt.Family, 0, len(p.families))
	for id := range p.families {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return order(out[i]) < order(out[j]) })
	return out
}

func order(f prt.Family) int {
	for i, v := range prt.Families {
		if v == f {
			return i
		}
	}
	return len(prt.Families)
}

// ValidateAddress checks address against the family's canonical encoding.
func (p *Registry) ValidateAddress(id prt.Family, address string) error {
	f, err := p.Family(id)
	if err != nil {
		return err
	}
	return f.ValidateAddress(address)
}

// Parse accepts a family name ("evm") or a CAIP-2 chain id ("eip155:1",
// "solana:5eykt4...", "bip122:000000000019d6689c085ae165831e93", "xrpl:0").
func Parse(s string) (prt.Family, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	ns := s
	if i := strings.IndexByte(s, ':'); i >= 0 {
		ns = s[:i]
	}
	switch ns {
	case "evm", "eip155", "ethereum":
		return prt.FamilyEVM, nil
	case "solana", "sol":
		return prt.FamilySolana, nil
	case "bitcoin", "bip122", "btc":
		return prt.FamilyBitcoin, nil
	case "xrpl", "xrp", "ripple":
		return prt.FamilyXRPL, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFamily, s)
}

// mainnetCAIP2 is the CAIP-2 chain id requested from relay wallets.
var mainnetCAIP2 = map[prt.Family]string{
	prt.FamilyEVM:     "eip155:1",
	prt.FamilySolana:  "solana:5eykt4UsFv8P8NJdTREpY1vzqKqZKvdp",
	prt.FamilyBitcoin: "bip122:000000000019d6689c085ae165831e93",
	prt.FamilyXRPL:    "xrpl:0",
}

// CAIP2 returns the mainnet chain id of a family.
func CAIP2(f prt.Family) (string, error) {
	id, ok := mainnetCAIP2[f]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFamily, f)
	}
	return id, nil
}

// AccountAddress strips a CAIP-10 prefix ("eip155:1:0xabc" -> "0xabc").
// Bare addresses are returned unchanged.
func AccountAddress(account string) string {
	parts := strings.SplitN(account, ":", 3)
	if len(parts) == 3 {
		return parts[2]
	}
	return account
}

// Normalizer is implemented by families whose addresses have more than one
// textual form (EVM hex case).
type Normalizer interface {
	NormalizeAddress(address string) string
}

// NormalizeAddress returns the canonical form used as the connection key.
func (p *Registry) NormalizeAddress(id prt.Family, address string) string {
	if n, ok := p.families[id].(Normalizer); ok {
		return n.NormalizeAddress(address)
	}
	return address
}

// ReadEntropy fills n bytes from rand, mapping any failure to
// ErrRandomnessUnavailable.
func ReadEntropy(rand io.Reader, n int) ([]byte, error) {
	if rand == nil {
		return nil, fmt.Errorf("%w: no entropy source", ErrRandomnessUnavailable)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRandomnessUnavailable, err)
	}
	return buf, nil
}

// Zero overwrites b.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
