package wallet

import (
	"sync"

	"github.com/google/uuid"
)

// Vault holds the KeyMaterial of one session in memory. It is never written
// to disk; Clear wipes everything on logout or shutdown.
type Vault struct {
	mtx   sync.Mutex
	items map[string]*KeyMaterial
	order []string
}

func NewVault() *Vault {
	return &Vault{items: make(map[string]*KeyMaterial)}
}

// Put stores km and returns its session handle.
func (p *Vault) Put(km *KeyMaterial) string {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	id := uuid.NewString()
	p.items[id] = km
	p.order = append(p.order, id)
	return id
}

func (p *Vault) Get(id string) (*KeyMaterial, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	km, ok := p.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return km, nil
}

// Discard clears and forgets one entry. Unknown ids are ignored.
func (p *Vault) Discard(id string) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if km, ok := p.items[id]; ok {
		km.Clear()
		delete(p.items, id)
		for i, v := range p.order {
			if v == id {
				p.order = append(p.order[:i], p.order[i+1:]...)
				break
			}
		}
	}
}

// IDs lists handles in insertion order.
func (p *Vault) IDs() []string {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return append([]string(nil), p.order...)
}

func (p *Vault) Len() int {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return len(p.items)
}

// Clear zeroes every held secret and empties the vault.
func (p *Vault) Clear() {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	for _, km := range p.items {
		km.Clear()
	}
	p.items = make(map[string]*KeyMaterial)
	p.order = nil
}
