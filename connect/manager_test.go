package connect

import (
	"context"
	"sync"
	"testing"

	"github.com/sgawallet/sga-wallet/chain"
	"github.com/sgawallet/sga-wallet/chain/families"
	prt "github.com/sgawallet/sga-wallet/protocol"
	"github.com/sgawallet/sga-wallet/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	evmAddr = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"
	solAddr = "FVen3X669xLzsi6N2V91DoiyzHzg1uAgqiT8jZ9nS96Z"
	btcAddr = "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH"
)

// countingProvider approves fixed accounts and counts prompts.
type countingProvider struct {
	kind     prt.ProviderKind
	accounts []string
	err      error

	mtx   sync.Mutex
	calls int
}

func (p *countingProvider) Kind() prt.ProviderKind { return p.kind }

func (p *countingProvider) RequestAccounts(ctx context.Context, family prt.Family, onPairing func(string)) ([]string, error) {
	p.mtx.Lock()
	p.calls++
	p.mtx.Unlock()
	if onPairing != nil {
		onPairing("wc:test")
	}
	return p.accounts, p.err
}

func (p *countingProvider) Calls() int {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.calls
}

type recorder struct {
	mtx     sync.Mutex
	added   []string
	removed []string
}

func (r *recorder) ConnectionAdded(c prt.ChainConnection) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.added = append(r.added, c.Key())
}

func (r *recorder) ConnectionRemoved(family prt.Family, address string) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.removed = append(r.removed, string(family)+":"+address)
}

func newStore(t *testing.T) *storage.ConnectionStore {
	db, err := storage.OpenMemDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return storage.NewConnectionStore(db)
}

func TestListProviders(t *testing.T) {
	kinds, err := ListProviders(prt.FamilySolana)
	require.NoError(t, err)
	require.Equal(t, []prt.ProviderKind{prt.ProviderWalletAdapter, prt.ProviderRelay}, kinds)

	kinds, err = ListProviders(prt.FamilyXRPL)
	require.NoError(t, err)
	require.Equal(t, []prt.ProviderKind{prt.ProviderRelay}, kinds)

	_, err = ListProviders("tron")
	require.ErrorIs(t, err, chain.ErrUnsupportedFamily)
}

func TestConnectDeduplicates(t *testing.T) {
	relay := &countingProvider{kind: prt.ProviderRelay, accounts: []string{"eip155:1:" + evmAddr}}
	m := NewManager(families.Registry(), newStore(t), relay, NewBridgeProvider(prt.ProviderInjected))
	rec := &recorder{}
	m.AddObserver(rec)

	c1, err := m.Connect(context.Background(), prt.FamilyEVM, prt.ProviderRelay, WithLabel("cold"))
	require.NoError(t, err)
	require.Equal(t, evmAddr, c1.Address)
	require.Equal(t, "cold", c1.Label)

	// same address, different case, different provider
	ctx := WithPresentedAccounts(context.Background(), prt.ProviderInjected, []string{"0x9858effd232b4033e47d90003d41ec34ecaeda94"})
	c2, err := m.Connect(ctx, prt.FamilyEVM, prt.ProviderInjected)
	require.NoError(t, err)
	require.Equal(t, c1, c2)

	require.Len(t, m.List(), 1)
	require.Equal(t, []string{"evm:" + evmAddr}, rec.added)
	require.Equal(t, StateConnected, m.State(prt.FamilyEVM))

	require.True(t, m.IsActive(prt.FamilyEVM, evmAddr))
	require.True(t, m.IsActive(prt.FamilyEVM, "0x9858effd232b4033e47d90003d41ec34ecaeda94"))
	require.False(t, m.IsActive(prt.FamilySolana, evmAddr))
}

func TestConnectConcurrentSameAddress(t *testing.T) {
	relay := &countingProvider{kind: prt.ProviderRelay, accounts: []string{btcAddr}}
	m := NewManager(families.Registry(), nil, relay)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Connect(context.Background(), prt.FamilyBitcoin, prt.ProviderRelay)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	require.Len(t, m.List(), 1)
}

func TestConnectErrorsAreDistinguishable(t *testing.T) {
	m := NewManager(families.Registry(), nil,
		NewBridgeProvider(prt.ProviderWalletAdapter),
		&countingProvider{kind: prt.ProviderRelay, err: ErrOriginNotWhitelisted},
	)

	// no wallet presented
	_, err := m.Connect(context.Background(), prt.FamilySolana, prt.ProviderWalletAdapter)
	require.ErrorIs(t, err, ErrProviderNotDetected)
	require.Equal(t, StateError, m.State(prt.FamilySolana))

	// wallet present, user declined
	ctx := WithPresentedAccounts(context.Background(), prt.ProviderWalletAdapter, []string{})
	_, err = m.Connect(ctx, prt.FamilySolana, prt.ProviderWalletAdapter)
	require.ErrorIs(t, err, ErrConnectionRefused)
	require.Equal(t, StateRejected, m.State(prt.FamilySolana))

	_, err = m.Connect(context.Background(), prt.FamilySolana, prt.ProviderRelay)
	require.ErrorIs(t, err, ErrOriginNotWhitelisted)

	// vendor SDK is a bitcoin capability with no provider wired
	_, err = m.Connect(context.Background(), prt.FamilyBitcoin, prt.ProviderVendorSDK)
	require.ErrorIs(t, err, ErrProviderNotDetected)

	// injected extensions only exist for evm
	_, err = m.Connect(context.Background(), prt.FamilyXRPL, prt.ProviderInjected)
	require.ErrorIs(t, err, ErrUnsupportedProvider)

	// an address from the wrong family
	ctx = WithPresentedAccounts(context.Background(), prt.ProviderWalletAdapter, []string{evmAddr})
	_, err = m.Connect(ctx, prt.FamilySolana, prt.ProviderWalletAdapter)
	require.ErrorIs(t, err, chain.ErrInvalidAddressEncoding)

	require.Empty(t, m.List())
}

func TestConnectThenDisconnectSolana(t *testing.T) {
	store := newStore(t)
	m := NewManager(families.Registry(), store, NewBridgeProvider(prt.ProviderWalletAdapter))
	rec := &recorder{}
	m.AddObserver(rec)

	ctx := WithPresentedAccounts(context.Background(), prt.ProviderWalletAdapter, []string{solAddr})
	c, err := m.Connect(ctx, prt.FamilySolana, prt.ProviderWalletAdapter)
	require.NoError(t, err)
	require.True(t, m.IsActive(prt.FamilySolana, solAddr))

	require.NoError(t, m.Disconnect(prt.FamilySolana, c.Address))
	require.NoError(t, m.Disconnect(prt.FamilySolana, c.Address))

	require.Empty(t, m.List())
	require.Equal(t, StateDisconnected, m.State(prt.FamilySolana))
	require.Equal(t, []string{"solana:" + solAddr}, rec.removed)

	stored, errs := store.List(prt.FamilySolana)
	require.Empty(t, errs)
	require.Empty(t, stored)
}

func TestRestoreDoesNotPrompt(t *testing.T) {
	store := newStore(t)
	relay := &countingProvider{kind: prt.ProviderRelay, accounts: []string{btcAddr}}
	m := NewManager(families.Registry(), store, relay, NewBridgeProvider(prt.ProviderInjected))

	_, err := m.Connect(context.Background(), prt.FamilyBitcoin, prt.ProviderRelay, WithLabel("savings"))
	require.NoError(t, err)
	ctx := WithPresentedAccounts(context.Background(), prt.ProviderInjected, []string{evmAddr})
	_, err = m.Connect(ctx, prt.FamilyEVM, prt.ProviderInjected)
	require.NoError(t, err)
	require.Equal(t, 1, relay.Calls())

	// junk that must be skipped
	require.NoError(t, store.Put(prt.ChainConnection{Family: prt.FamilyXRPL, Address: "not-an-account"}))

	restarted := &countingProvider{kind: prt.ProviderRelay, accounts: []string{btcAddr}}
	m2 := NewManager(families.Registry(), store, restarted)
	rec := &recorder{}
	m2.AddObserver(rec)

	require.Equal(t, 2, m2.Restore())
	require.Zero(t, restarted.Calls())
	require.Len(t, rec.added, 2)

	list := m2.List()
	require.Len(t, list, 2)
	require.Equal(t, prt.FamilyBitcoin, list[0].Family)
	require.Equal(t, "savings", list[0].Label)
	require.Equal(t, StateConnected, m2.State(prt.FamilyEVM))

	// replaying again adds nothing
	require.Zero(t, m2.Restore())
}

func TestRelabel(t *testing.T) {
	store := newStore(t)
	m := NewManager(families.Registry(), store, NewBridgeProvider(prt.ProviderInjected))
	ctx := WithPresentedAccounts(context.Background(), prt.ProviderInjected, []string{evmAddr})
	_, err := m.Connect(ctx, prt.FamilyEVM, prt.ProviderInjected)
	require.NoError(t, err)

	c, err := m.Relabel(prt.FamilyEVM, evmAddr, "trading")
	require.NoError(t, err)
	require.Equal(t, "trading", c.Label)

	stored, ok, err := store.Get(prt.FamilyEVM, evmAddr)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "trading", stored.Label)

	_, err = m.Relabel(prt.FamilySolana, solAddr, "x")
	require.ErrorIs(t, err, ErrNotConnected)
}
