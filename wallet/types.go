package wallet

import (
	"errors"
	"fmt"

	"github.com/sgawallet/sga-wallet/chain"
	prt "github.com/sgawallet/sga-wallet/protocol"
)

// ErrRandomnessUnavailable aliases the chain sentinel so callers only need
// this package.
var ErrRandomnessUnavailable = chain.ErrRandomnessUnavailable

var (
	ErrKeyCleared = errors.New("key material cleared")
	ErrNotFound   = errors.New("key material not found")
)

// State of a Generator: Idle -> Generating -> Ready | Failed.
type State int32

const (
	StateIdle State = iota
	StateGenerating
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGenerating:
		return "generating"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// KeyMaterial is a generated key held in memory only. Printing, formatting or
// JSON-encoding it never reveals the secret; use Export to hand it to the
// owner.
type KeyMaterial struct {
	Family  prt.Family
	Address string

	secret   []byte
	mnemonic []byte
	codec    chain.Family
}

// ExportedKey is the owner-facing rendering of KeyMaterial.
type ExportedKey struct {
	Family   prt.Family `json:"family"`
	Address  string     `json:"address"`
	Secret   string     `json:"secret"`
	Mnemonic string     `json:"mnemonic,omitempty"`
}

func newKeyMaterial(codec chain.Family, key *chain.Key) *KeyMaterial {
	return &KeyMaterial{
		Family:   codec.ID(),
		Address:  key.Address,
		secret:   key.Secret,
		mnemonic: key.Mnemonic,
		codec:    codec,
	}
}

// SecretLen is the raw secret size, zero once cleared.
func (p *KeyMaterial) SecretLen() int { return len(p.secret) }

func (p *KeyMaterial) HasMnemonic() bool { return len(p.mnemonic) > 0 }

func (p *KeyMaterial) Cleared() bool { return p.secret == nil }

// Export renders the secret in the family's export format.
func (p *KeyMaterial) Export() (*ExportedKey, error) {
	if p.Cleared() {
		return nil, ErrKeyCleared
	}
	enc, err := p.codec.EncodeSecret(p.secret)
	if err != nil {
		return nil, err
	}
	return &ExportedKey{
		Family:   p.Family,
		Address:  p.Address,
		Secret:   enc,
		Mnemonic: string(p.mnemonic),
	}, nil
}

// Verify re-derives the address from the secret.
func (p *KeyMaterial) Verify() error {
	if p.Cleared() {
		return ErrKeyCleared
	}
	addr, err := p.codec.DeriveAddress(p.secret)
	if err != nil {
		return err
	}
	if addr != p.Address {
		return fmt.Errorf("derived address %s does not match %s", addr, p.Address)
	}
	return nil
}

// Clear zeroes the secret and mnemonic bytes.
func (p *KeyMaterial) Clear() {
	chain.Zero(p.secret)
	chain.Zero(p.mnemonic)
	p.secret = nil
	p.mnemonic = nil
}

func (p KeyMaterial) String() string {
	return fmt.Sprintf("KeyMaterial{%s %s secret=[REDACTED]}", p.Family, p.Address)
}

// Format keeps %v, %+v and %#v from printing the secret fields.
func (p KeyMaterial) Format(f fmt.State, verb rune) {
	fmt.Fprint(f, p.String())
}

func (p KeyMaterial) GoString() string { return p.String() }

func (p KeyMaterial) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`{"family":%q,"address":%q}`, p.Family, p.Address)), nil
}
