package solana

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/mr-tron/base58"
	"github.com/sgawallet/sga-wallet/chain"
	prt "github.com/sgawallet/sga-wallet/protocol"
)

// SecretSize is the ed25519 private key length (seed || public key).
const SecretSize = ed25519.PrivateKeySize

type Family struct{}

var _ chain.Family = Family{}

func (Family) ID() prt.Family  { return prt.FamilySolana }
func (Family) SecretSize() int { return SecretSize }

func (Family) Providers() []prt.ProviderKind {
	return []prt.ProviderKind{prt.ProviderWalletAdapter, prt.ProviderRelay}
}

func (Family) GenerateKey(rand io.Reader) (*chain.Key, error) {
	seed, err := chain.ReadEntropy(rand, ed25519.SeedSize)
	if err != nil {
		return nil, err
	}
	defer chain.Zero(seed)

	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &chain.Key{Address: base58.Encode(pub), Secret: []byte(priv)}, nil
}

// DeriveAddress recomputes the public key from the seed half and checks it
// against the embedded public half.
func (Family) DeriveAddress(secret []byte) (string, error) {
	if len(secret) != SecretSize {
		return "", fmt.Errorf("%w: key must be %d bytes", chain.ErrInvalidSecret, SecretSize)
	}
	priv := ed25519.NewKeyFromSeed(secret[:ed25519.SeedSize])
	defer chain.Zero(priv)

	pub := priv.Public().(ed25519.PublicKey)
	if !pub.Equal(ed25519.PublicKey(secret[ed25519.SeedSize:])) {
		return "", fmt.Errorf("%w: public half does not match seed", chain.ErrInvalidSecret)
	}
	return base58.Encode(pub), nil
}

// EncodeSecret renders the 64-byte key as lowercase hex.
func (Family) EncodeSecret(secret []byte) (string, error) {
	if len(secret) != SecretSize {
		return "", fmt.Errorf("%w: key must be %d bytes", chain.ErrInvalidSecret, SecretSize)
	}
	return hex.EncodeToString(secret), nil
}

func (Family) ValidateAddress(address string) error {
	raw, err := base58.Decode(address)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: %q is not a solana address", chain.ErrInvalidAddressEncoding, address)
	}
	return nil
}
