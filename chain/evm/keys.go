package evm

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sgawallet/sga-wallet/chain"
	"github.com/sgawallet/sga-wallet/common/crypto"
	prt "github.com/sgawallet/sga-wallet/protocol"
	"github.com/tyler-smith/go-bip39"
)

const (
	SecretSize = 32
	// 128 bits of entropy, 12 words
	EntropySize = 16
)

// BIP-44 path constants
const (
	BIP44Purpose  = 44
	BIP44CoinType = 60 // Ethereum
	BIP44Account  = 0
	BIP44Change   = 0 // External
	BIP44Index    = 0
)

const DerivationPath = "m/44'/60'/0'/0/0"

type Family struct{}

var _ chain.Family = Family{}

func (Family) ID() prt.Family  { return prt.FamilyEVM }
func (Family) SecretSize() int { return SecretSize }

func (Family) Providers() []prt.ProviderKind {
	return []prt.ProviderKind{prt.ProviderInjected, prt.ProviderRelay}
}

// GenerateKey draws mnemonic entropy and derives the first external account.
func (f Family) GenerateKey(rand io.Reader) (*chain.Key, error) {
	entropy, err := chain.ReadEntropy(rand, EntropySize)
	if err != nil {
		return nil, err
	}
	defer chain.Zero(entropy)

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("failed to create mnemonic: %w", err)
	}
	priv, err := KeyFromMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}
	address, err := f.DeriveAddress(priv)
	if err != nil {
		chain.Zero(priv)
		return nil, err
	}
	return &chain.Key{Address: address, Secret: priv, Mnemonic: []byte(mnemonic)}, nil
}

// KeyFromMnemonic derives the private key at m/44'/60'/0'/0/0 with an empty
// passphrase.
func KeyFromMnemonic(mnemonic string) ([]byte, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("%w: invalid mnemonic", chain.ErrInvalidSecret)
	}
	seed := bip39.NewSeed(mnemonic, "")
	defer chain.Zero(seed)

	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}
	path := []uint32{
		hdkeychain.HardenedKeyStart + BIP44Purpose,
		hdkeychain.HardenedKeyStart + BIP44CoinType,
		hdkeychain.HardenedKeyStart + BIP44Account,
		BIP44Change,
		BIP44Index,
	}
	for _, idx := range path {
		if key, err = key.Derive(idx); err != nil {
			return nil, fmt.Errorf("failed to derive %s: %w", DerivationPath, err)
		}
	}
	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get private key: %w", err)
	}
	return priv.Serialize(), nil
}

// DeriveAddress returns the EIP-55 checksummed address of a 32-byte key.
func (Family) DeriveAddress(secret []byte) (string, error) {
	if len(secret) != SecretSize {
		return "", fmt.Errorf("%w: key must be %d bytes", chain.ErrInvalidSecret, SecretSize)
	}
	pub, err := crypto.PointFromScalar(secret, false)
	if err != nil {
		return "", err
	}
	addr, err := crypto.EVMAddressFromPubKey(pub)
	if err != nil {
		return "", err
	}
	return common.Address(addr).Hex(), nil
}

func (Family) EncodeSecret(secret []byte) (string, error) {
	if len(secret) != SecretSize {
		return "", fmt.Errorf("%w: key must be %d bytes", chain.ErrInvalidSecret, SecretSize)
	}
	return "0x" + hex.EncodeToString(secret), nil
}

// ValidateAddress accepts 0x-prefixed 20-byte hex. Mixed-case input must carry
// a valid EIP-55 checksum.
func (Family) ValidateAddress(address string) error {
	if !strings.HasPrefix(address, "0x") || !common.IsHexAddress(address) {
		return fmt.Errorf("%w: %q is not an evm address", chain.ErrInvalidAddressEncoding, address)
	}
	body := address[2:]
	if strings.ToLower(body) == body || strings.ToUpper(body) == body {
		return nil
	}
	if common.HexToAddress(address).Hex() != address {
		return fmt.Errorf("%w: %q fails EIP-55 checksum", chain.ErrInvalidAddressEncoding, address)
	}
	return nil
}

// NormalizeAddress returns the checksummed form of a valid address.
func (Family) NormalizeAddress(address string) string {
	return common.HexToAddress(address).Hex()
}
