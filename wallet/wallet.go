package wallet

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"

	"github.com/sgawallet/sga-wallet/chain"
	"github.com/sgawallet/sga-wallet/common/logger"
	prt "github.com/sgawallet/sga-wallet/protocol"
)

// Generator produces fresh key material for a chain family. Calls are
// serialized; State reports the progress of the current or latest call.
type Generator struct {
	registry *chain.Registry
	rand     io.Reader

	gen sync.Mutex // one generation at a time

	mtx   sync.Mutex
	state State
	last  error
}

func NewGenerator(registry *chain.Registry) *Generator {
	return NewGeneratorWithRand(registry, rand.Reader)
}

// NewGeneratorWithRand uses r as the only entropy source.
func NewGeneratorWithRand(registry *chain.Registry, r io.Reader) *Generator {
	return &Generator{registry: registry, rand: r, state: StateIdle}
}

// Generate draws new key material. Entropy failures surface as
// ErrRandomnessUnavailable and are never retried.
func (p *Generator) Generate(family prt.Family) (*KeyMaterial, error) {
	p.gen.Lock()
	defer p.gen.Unlock()

	p.set(StateGenerating, nil)

	codec, err := p.registry.Family(family)
	if err != nil {
		p.fail(family, err)
		return nil, err
	}

	key, err := codec.GenerateKey(p.rand)
	if err != nil {
		p.fail(family, err)
		return nil, err
	}
	if len(key.Secret) != codec.SecretSize() {
		chain.Zero(key.Secret)
		err = fmt.Errorf("%w: %s secret is %d bytes", chain.ErrInvalidSecret, family, len(key.Secret))
		p.fail(family, err)
		return nil, err
	}

	p.set(StateReady, nil)
	logger.Info("[Wallet] generated ", family, " address: ", key.Address)
	return newKeyMaterial(codec, key), nil
}

func (p *Generator) set(state State, err error) {
	p.mtx.Lock()
	p.state = state
	p.last = err
	p.mtx.Unlock()
}

func (p *Generator) fail(family prt.Family, err error) {
	p.set(StateFailed, err)
	logger.Warn("[Wallet] generation failed for ", family, ": ", err)
}

func (p *Generator) State() State {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.state
}

// Err is the failure of the latest call, nil unless State is StateFailed.
func (p *Generator) Err() error {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.last
}
