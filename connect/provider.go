package connect

import (
	"context"

	prt "github.com/sgawallet/sga-wallet/protocol"
)

// Provider asks a wallet for approval and returns the approved accounts
// (bare or CAIP-10).
type Provider interface {
	Kind() prt.ProviderKind
	RequestAccounts(ctx context.Context, family prt.Family, onPairing func(uri string)) ([]string, error)
}

type presentedKey struct{}

type presented struct {
	kind     prt.ProviderKind
	accounts []string
}

// WithPresentedAccounts carries the accounts an in-browser wallet (injected
// extension, wallet adapter, vendor SDK) approved on the caller's side.
// A nil slice means no wallet was detected; an empty slice means the user
// declined.
func WithPresentedAccounts(ctx context.Context, kind prt.ProviderKind, accounts []string) context.Context {
	return context.WithValue(ctx, presentedKey{}, presented{kind: kind, accounts: accounts})
}

// BridgeProvider relays approvals performed by a wallet that lives with the
// caller rather than in this process.
type BridgeProvider struct {
	kind prt.ProviderKind
}

func NewBridgeProvider(kind prt.ProviderKind) *BridgeProvider {
	return &BridgeProvider{kind: kind}
}

func (p *BridgeProvider) Kind() prt.ProviderKind { return p.kind }

func (p *BridgeProvider) RequestAccounts(ctx context.Context, family prt.Family, _ func(string)) ([]string, error) {
	v, ok := ctx.Value(presentedKey{}).(presented)
	if !ok || v.kind != p.kind || v.accounts == nil {
		return nil, ErrProviderNotDetected
	}
	if len(v.accounts) == 0 {
		return nil, ErrConnectionRefused
	}
	return v.accounts, nil
}
