package bitcoin

import (
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/sgawallet/sga-wallet/chain"
	"github.com/sgawallet/sga-wallet/common/crypto"
	prt "github.com/sgawallet/sga-wallet/protocol"
)

const SecretSize = crypto.ScalarSize

// Params is the network every address and WIF is encoded for.
var Params = &chaincfg.MainNetParams

type Family struct{}

var _ chain.Family = Family{}

func (Family) ID() prt.Family  { return prt.FamilyBitcoin }
func (Family) SecretSize() int { return SecretSize }

func (Family) Providers() []prt.ProviderKind {
	return []prt.ProviderKind{prt.ProviderRelay, prt.ProviderVendorSDK}
}

// GenerateKey draws 32-byte candidates until one lies in [1, n-1]. A failed
// read ends generation immediately.
func (f Family) GenerateKey(rand io.Reader) (*chain.Key, error) {
	for {
		candidate, err := chain.ReadEntropy(rand, SecretSize)
		if err != nil {
			return nil, err
		}
		if !crypto.IsPrivate(candidate) {
			chain.Zero(candidate)
			continue
		}
		address, err := f.DeriveAddress(candidate)
		if err != nil {
			chain.Zero(candidate)
			return nil, err
		}
		return &chain.Key{Address: address, Secret: candidate}, nil
	}
}

// DeriveAddress returns the P2PKH address of the compressed public key.
func (Family) DeriveAddress(secret []byte) (string, error) {
	pub, err := crypto.PointFromScalar(secret, true)
	if err != nil {
		return "", err
	}
	addr, err := btcutil.NewAddressPubKeyHash(crypto.Hash160(pub), Params)
	if err != nil {
		return "", err
	}
	return addr.EncodeAddress(), nil
}

// EncodeSecret returns the compressed-key mainnet WIF.
func (Family) EncodeSecret(secret []byte) (string, error) {
	priv, err := crypto.PrivateKey(secret)
	if err != nil {
		return "", err
	}
	wif, err := btcutil.NewWIF(priv, Params, true)
	if err != nil {
		return "", err
	}
	return wif.String(), nil
}

// DecodeSecret parses a mainnet WIF back into the raw scalar.
func DecodeSecret(s string) ([]byte, error) {
	wif, err := btcutil.DecodeWIF(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", chain.ErrInvalidSecret, err)
	}
	if !wif.IsForNet(Params) {
		return nil, fmt.Errorf("%w: wif is not for mainnet", chain.ErrInvalidSecret)
	}
	return wif.PrivKey.Serialize(), nil
}

// ValidateAddress accepts any mainnet address type (P2PKH, P2SH, segwit v0/v1).
func (Family) ValidateAddress(address string) error {
	addr, err := btcutil.DecodeAddress(address, Params)
	if err != nil {
		return fmt.Errorf("%w: %v", chain.ErrInvalidAddressEncoding, err)
	}
	if !addr.IsForNet(Params) {
		return fmt.Errorf("%w: %q is not a mainnet address", chain.ErrInvalidAddressEncoding, address)
	}
	return nil
}
