package crypto

import (
	"crypto/sha256"
	"crypto/sha512"

	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"
)

// Keccak256 is the legacy (pre-NIST) keccak used by EVM chains.
func Keccak256(data ...[]byte) []byte {
	hash := sha3.NewLegacyKeccak256()
	for _, b := range data {
		hash.Write(b)
	}
	return hash.Sum(nil)
}

// EVMAddressFromPubKey returns the last 20 bytes of keccak256 over the
// uncompressed public key without its 0x04 prefix.
func EVMAddressFromPubKey(pub []byte) ([20]byte, error) {
	var addr [20]byte

	uncompressed, err := PointCompress(pub, false)
	if err != nil {
		return addr, err
	}
	hashBytes := Keccak256(uncompressed[1:]) // Remove prefix
	copy(addr[:], hashBytes[len(hashBytes)-20:])
	return addr, nil
}

// Hash160 is RIPEMD160(SHA256(b)).
func Hash160(b []byte) []byte {
	sum := sha256.Sum256(b)
	h := ripemd160.New()
	h.Write(sum[:])
	return h.Sum(nil)
}

// SHA512Half returns the first 32 bytes of SHA-512 over the concatenated input.
func SHA512Half(data ...[]byte) []byte {
	h := sha512.New()
	for _, b := range data {
		h.Write(b)
	}
	return h.Sum(nil)[:32]
}
