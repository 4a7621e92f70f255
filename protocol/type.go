package protocol

// Family is a blockchain protocol class with its own key and address encoding.
type Family string

const (
	FamilyEVM     Family = "evm"
	FamilySolana  Family = "solana"
	FamilyBitcoin Family = "bitcoin"
	FamilyXRPL    Family = "xrpl"
)

// Families lists every supported family in display order.
var Families = []Family{FamilyEVM, FamilySolana, FamilyBitcoin, FamilyXRPL}

func (f Family) String() string { return string(f) }

// ProviderKind is a wallet-approval capability (injected object, relay, SDK...).
type ProviderKind string

const (
	ProviderInjected      ProviderKind = "injected-extension"
	ProviderRelay         ProviderKind = "relay-protocol"
	ProviderWalletAdapter ProviderKind = "solana-wallet-adapter"
	ProviderVendorSDK     ProviderKind = "vendor-sdk"
)

func (k ProviderKind) String() string { return string(k) }

// ChainConnection is an approved link to an existing wallet. The active set
// is keyed by (Family, Address).
type ChainConnection struct {
	Family      Family       `json:"family"`
	Address     string       `json:"address"`
	Provider    ProviderKind `json:"provider"`
	Label       string       `json:"label,omitempty"`
	ConnectedAt int64        `json:"connectedAt"` // unix seconds
}

// Key identifies a connection within the active set.
func (c ChainConnection) Key() string { return string(c.Family) + ":" + c.Address }
