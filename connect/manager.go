package connect

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sgawallet/sga-wallet/chain"
	"github.com/sgawallet/sga-wallet/chain/families"
	"github.com/sgawallet/sga-wallet/common/logger"
	"github.com/sgawallet/sga-wallet/common/metrics"
	prt "github.com/sgawallet/sga-wallet/protocol"
	"github.com/sgawallet/sga-wallet/storage"
)

// State of a family: Disconnected -> Connecting -> Connected | Rejected | Error.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateRejected     State = "rejected"
	StateError        State = "error"
)

// Observer is told about changes to the active set. Calls happen outside the
// manager's lock, after the set has changed.
type Observer interface {
	ConnectionAdded(c prt.ChainConnection)
	ConnectionRemoved(family prt.Family, address string)
}

type Option func(*connectOptions)

type connectOptions struct {
	label     string
	onPairing func(uri string)
}

// WithLabel sets the display label of a new connection.
func WithLabel(label string) Option {
	return func(o *connectOptions) { o.label = label }
}

// WithPairing receives the relay pairing URI to show to the user.
func WithPairing(fn func(uri string)) Option {
	return func(o *connectOptions) { o.onPairing = fn }
}

// Manager owns the active connection set.
type Manager struct {
	registry  *chain.Registry
	store     *storage.ConnectionStore
	providers map[prt.ProviderKind]Provider

	// seq orders set changes with their observer notifications
	seq sync.Mutex

	mtx       sync.RWMutex
	active    map[string]prt.ChainConnection
	states    map[prt.Family]State
	observers []Observer
	now       func() time.Time
}

// NewManager wires providers by kind. store may be nil for an in-memory set.
func NewManager(registry *chain.Registry, store *storage.ConnectionStore, providers ...Provider) *Manager {
	m := &Manager{
		registry:  registry,
		store:     store,
		providers: make(map[prt.ProviderKind]Provider),
		active:    make(map[string]prt.ChainConnection),
		states:    make(map[prt.Family]State),
		now:       time.Now,
	}
	for _, p := range providers {
		m.providers[p.Kind()] = p
	}
	return m
}

func (p *Manager) AddObserver(o Observer) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.observers = append(p.observers, o)
}

// ListProviders is the capability set of a family.
func ListProviders(family prt.Family) ([]prt.ProviderKind, error) {
	f, err := families.Registry().Family(family)
	if err != nil {
		return nil, err
	}
	return f.Providers(), nil
}

func (p *Manager) ListProviders(family prt.Family) ([]prt.ProviderKind, error) {
	f, err := p.registry.Family(family)
	if err != nil {
		return nil, err
	}
	return f.Providers(), nil
}

// Connect asks the selected provider for approval and adds the first
// approved account to the active set. Connecting an address that is already
// active returns the existing connection.
func (p *Manager) Connect(ctx context.Context, family prt.Family, kind prt.ProviderKind, opts ...Option) (prt.ChainConnection, error) {
	var o connectOptions
	for _, opt := range opts {
		opt(&o)
	}

	kinds, err := p.ListProviders(family)
	if err != nil {
		return prt.ChainConnection{}, err
	}
	if !containsKind(kinds, kind) {
		return prt.ChainConnection{}, fmt.Errorf("%w: %s on %s", ErrUnsupportedProvider, kind, family)
	}

	p.setState(family, StateConnecting)
	conn, err := p.connect(ctx, family, kind, o)
	if err != nil {
		if errors.Is(err, ErrConnectionRefused) || errors.Is(err, ErrOriginNotWhitelisted) {
			p.setState(family, StateRejected)
		} else {
			p.setState(family, StateError)
		}
		metrics.ConnectAttempts.WithLabelValues(string(family), string(kind), outcome(err)).Inc()
		logger.Warn("[Connect] ", family, " via ", kind, " failed: ", err)
		return prt.ChainConnection{}, err
	}
	p.setState(family, StateConnected)
	metrics.ConnectAttempts.WithLabelValues(string(family), string(kind), "ok").Inc()
	return conn, nil
}

func (p *Manager) connect(ctx context.Context, family prt.Family, kind prt.ProviderKind, o connectOptions) (prt.ChainConnection, error) {
	provider, ok := p.providers[kind]
	if !ok {
		return prt.ChainConnection{}, ErrProviderNotDetected
	}
	accounts, err := provider.RequestAccounts(ctx, family, o.onPairing)
	if err != nil {
		return prt.ChainConnection{}, err
	}
	if len(accounts) == 0 {
		return prt.ChainConnection{}, ErrConnectionRefused
	}

	address := chain.AccountAddress(accounts[0])
	if err := p.registry.ValidateAddress(family, address); err != nil {
		return prt.ChainConnection{}, err
	}
	address = p.registry.NormalizeAddress(family, address)

	c := prt.ChainConnection{
		Family:      family,
		Address:     address,
		Provider:    kind,
		Label:       o.label,
		ConnectedAt: p.now().Unix(),
	}
	p.seq.Lock()
	defer p.seq.Unlock()

	c, added := p.insert(c)
	if !added {
		return c, nil
	}
	if p.store != nil {
		if err := p.store.Put(c); err != nil {
			logger.Error("[Connect] failed to persist connection: ", err)
		}
	}
	logger.Info("[Connect] connected ", family, " ", address, " via ", kind)
	p.notifyAdded(c)
	return c, nil
}

// insert adds c unless its key is present; the stored value is returned.
func (p *Manager) insert(c prt.ChainConnection) (prt.ChainConnection, bool) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if existing, ok := p.active[c.Key()]; ok {
		return existing, false
	}
	p.active[c.Key()] = c
	metrics.ActiveConnections.WithLabelValues(string(c.Family)).Inc()
	return c, true
}

// Disconnect removes a connection and, through observers, its asset records.
// Removing an unknown pair is a no-op.
func (p *Manager) Disconnect(family prt.Family, address string) error {
	address = p.registry.NormalizeAddress(family, address)
	key := prt.ChainConnection{Family: family, Address: address}.Key()

	p.seq.Lock()
	defer p.seq.Unlock()

	p.mtx.Lock()
	_, ok := p.active[key]
	if ok {
		delete(p.active, key)
		metrics.ActiveConnections.WithLabelValues(string(family)).Dec()
	}
	if p.countLocked(family) == 0 {
		p.states[family] = StateDisconnected
	}
	p.mtx.Unlock()

	var err error
	if p.store != nil {
		err = p.store.Delete(family, address)
	}
	if ok {
		logger.Info("[Connect] disconnected ", family, " ", address)
		p.notifyRemoved(family, address)
	}
	return err
}

// Relabel changes the display label of an active connection.
func (p *Manager) Relabel(family prt.Family, address, label string) (prt.ChainConnection, error) {
	address = p.registry.NormalizeAddress(family, address)
	key := prt.ChainConnection{Family: family, Address: address}.Key()

	p.mtx.Lock()
	c, ok := p.active[key]
	if ok {
		c.Label = label
		p.active[key] = c
	}
	p.mtx.Unlock()

	if !ok {
		return c, fmt.Errorf("%w: %s %s", ErrNotConnected, family, address)
	}
	if p.store != nil {
		if err := p.store.Put(c); err != nil {
			return c, err
		}
	}
	return c, nil
}

// Restore replays persisted connections into the active set without asking
// any provider. Relay sessions are not re-verified.
func (p *Manager) Restore() int {
	if p.store == nil {
		return 0
	}
	stored, errs := p.store.List("")
	for _, err := range errs {
		logger.Warn("[Connect] skipping stored connection: ", err)
	}

	p.seq.Lock()
	defer p.seq.Unlock()

	restored := 0
	for _, c := range stored {
		if err := p.registry.ValidateAddress(c.Family, c.Address); err != nil {
			logger.Warn("[Connect] skipping stored connection: ", err)
			continue
		}
		c, added := p.insert(c)
		if !added {
			continue
		}
		p.setState(c.Family, StateConnected)
		p.notifyAdded(c)
		restored++
	}
	logger.Info("[Connect] restored ", restored, " connections")
	return restored
}

// List returns a copy of the active set ordered by family then connect time.
func (p *Manager) List() []prt.ChainConnection {
	p.mtx.RLock()
	out := make([]prt.ChainConnection, 0, len(p.active))
	for _, c := range p.active {
		out = append(out, c)
	}
	p.mtx.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Family != out[j].Family {
			return out[i].Family < out[j].Family
		}
		if out[i].ConnectedAt != out[j].ConnectedAt {
			return out[i].ConnectedAt < out[j].ConnectedAt
		}
		return out[i].Address < out[j].Address
	})
	return out
}

func (p *Manager) IsActive(family prt.Family, address string) bool {
	address = p.registry.NormalizeAddress(family, address)
	p.mtx.RLock()
	defer p.mtx.RUnlock()
	_, ok := p.active[prt.ChainConnection{Family: family, Address: address}.Key()]
	return ok
}

func (p *Manager) State(family prt.Family) State {
	p.mtx.RLock()
	defer p.mtx.RUnlock()
	if s, ok := p.states[family]; ok {
		return s
	}
	return StateDisconnected
}

func (p *Manager) setState(family prt.Family, s State) {
	p.mtx.Lock()
	p.states[family] = s
	p.mtx.Unlock()
}

func (p *Manager) countLocked(family prt.Family) int {
	n := 0
	for _, c := range p.active {
		if c.Family == family {
			n++
		}
	}
	return n
}

func (p *Manager) notifyAdded(c prt.ChainConnection) {
	p.mtx.RLock()
	obs := append([]Observer(nil), p.observers...)
	p.mtx.RUnlock()
	for _, o := range obs {
		o.ConnectionAdded(c)
	}
}

func (p *Manager) notifyRemoved(family prt.Family, address string) {
	p.mtx.RLock()
	obs := append([]Observer(nil), p.observers...)
	p.mtx.RUnlock()
	for _, o := range obs {
		o.ConnectionRemoved(family, address)
	}
}

func containsKind(kinds []prt.ProviderKind, k prt.ProviderKind) bool {
	for _, v := range kinds {
		if v == k {
			return true
		}
	}
	return false
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrProviderNotDetected):
		return "not_detected"
	case errors.Is(err, ErrOriginNotWhitelisted):
		return "origin"
	case errors.Is(err, ErrConnectionRefused):
		return "refused"
	case errors.Is(err, chain.ErrInvalidAddressEncoding):
		return "invalid_address"
	}
	return "error"
}
