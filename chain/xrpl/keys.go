package xrpl

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/sgawallet/sga-wallet/chain"
	"github.com/sgawallet/sga-wallet/common/crypto"
	prt "github.com/sgawallet/sga-wallet/protocol"
)

const (
	SeedSize = 16

	seedVersion    = 0x21 // family seed, "s..."
	accountVersion = 0x00 // account id, "r..."

	bitcoinAlphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
	rippleAlphabet  = "rpshnaf39wBUDNEGHJKLM4PQRST7VWXYZ2bcdeCg65jkm8oFqi1tuvAxyz"
)

var (
	toRipple  = strings.NewReplacer(pairs(bitcoinAlphabet, rippleAlphabet)...)
	toBitcoin = strings.NewReplacer(pairs(rippleAlphabet, bitcoinAlphabet)...)
)

func pairs(from, to string) []string {
	out := make([]string, 0, 2*len(from))
	for i := range from {
		out = append(out, from[i:i+1], to[i:i+1])
	}
	return out
}

// checkEncode is base58check over the ripple alphabet.
func checkEncode(payload []byte, version byte) string {
	return toRipple.Replace(base58.CheckEncode(payload, version))
}

func checkDecode(s string) ([]byte, byte, error) {
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(rippleAlphabet, s[i]) < 0 {
			return nil, 0, base58.ErrInvalidFormat
		}
	}
	return base58.CheckDecode(toBitcoin.Replace(s))
}

type Family struct{}

var _ chain.Family = Family{}

func (Family) ID() prt.Family  { return prt.FamilyXRPL }
func (Family) SecretSize() int { return SeedSize }

func (Family) Providers() []prt.ProviderKind {
	return []prt.ProviderKind{prt.ProviderRelay}
}

// GenerateKey draws a secp256k1 family seed and derives account 0.
func (f Family) GenerateKey(rand io.Reader) (*chain.Key, error) {
	seed, err := chain.ReadEntropy(rand, SeedSize)
	if err != nil {
		return nil, err
	}
	address, err := f.DeriveAddress(seed)
	if err != nil {
		chain.Zero(seed)
		return nil, err
	}
	return &chain.Key{Address: address, Secret: seed}, nil
}

func (Family) DeriveAddress(secret []byte) (string, error) {
	_, pub, err := DeriveKeypair(secret)
	if err != nil {
		return "", err
	}
	return AccountAddress(pub), nil
}

// EncodeSecret returns the family seed ("s...").
func (Family) EncodeSecret(secret []byte) (string, error) {
	if len(secret) != SeedSize {
		return "", fmt.Errorf("%w: seed must be %d bytes", chain.ErrInvalidSecret, SeedSize)
	}
	return checkEncode(secret, seedVersion), nil
}

// DecodeSeed parses a secp256k1 family seed.
func DecodeSeed(s string) ([]byte, error) {
	raw, version, err := checkDecode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", chain.ErrInvalidSecret, err)
	}
	if version != seedVersion || len(raw) != SeedSize {
		return nil, fmt.Errorf("%w: not a family seed", chain.ErrInvalidSecret)
	}
	return raw, nil
}

func (Family) ValidateAddress(address string) error {
	raw, version, err := checkDecode(address)
	if err != nil || version != accountVersion || len(raw) != 20 {
		return fmt.Errorf("%w: %q is not an xrpl account", chain.ErrInvalidAddressEncoding, address)
	}
	return nil
}

// DeriveKeypair derives the account 0 secp256k1 keypair from a seed:
// root = scalar(seed), account = scalar(rootPub || 0) + root mod n.
func DeriveKeypair(seed []byte) (priv, pub []byte, err error) {
	if len(seed) != SeedSize {
		return nil, nil, fmt.Errorf("%w: seed must be %d bytes", chain.ErrInvalidSecret, SeedSize)
	}
	root, err := deriveScalar(seed, nil)
	if err != nil {
		return nil, nil, err
	}
	defer chain.Zero(root)

	rootPub, err := crypto.PointFromScalar(root, true)
	if err != nil {
		return nil, nil, err
	}
	var account uint32
	intermediate, err := deriveScalar(rootPub, &account)
	if err != nil {
		return nil, nil, err
	}
	defer chain.Zero(intermediate)

	if priv, err = crypto.PrivateAdd(intermediate, root); err != nil {
		return nil, nil, err
	}
	if pub, err = crypto.PointFromScalar(priv, true); err != nil {
		return nil, nil, err
	}
	return priv, pub, nil
}

func deriveScalar(b []byte, discrim *uint32) ([]byte, error) {
	var buf [4]byte
	for i := uint32(0); i < 0xffffffff; i++ {
		parts := [][]byte{b}
		if discrim != nil {
			d := make([]byte, 4)
			binary.BigEndian.PutUint32(d, *discrim)
			parts = append(parts, d)
		}
		binary.BigEndian.PutUint32(buf[:], i)
		parts = append(parts, buf[:])

		k := crypto.SHA512Half(parts...)
		if crypto.IsPrivate(k) {
			return k, nil
		}
	}
	return nil, fmt.Errorf("%w: no valid scalar for seed", crypto.ErrInvalidScalar)
}

// AccountAddress encodes Hash160(pub) as an "r..." account id.
func AccountAddress(pub []byte) string {
	return checkEncode(crypto.Hash160(pub), accountVersion)
}
