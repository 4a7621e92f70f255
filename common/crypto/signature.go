package crypto

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	secp "github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// SignatureSize is the length of a compact r||s ECDSA or a BIP340 signature.
const SignatureSize = 64

// Sign produces a deterministic (RFC6979) low-S ECDSA signature over a
// 32-byte hash, encoded as compact r||s. A 32-byte extraEntropy is mixed
// into the nonce derivation as RFC6979 additional data; without it the
// result matches btcec's ecdsa.Sign.
func Sign(hash, priv, extraEntropy []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHash, len(hash))
	}
	d, err := parsePrivate(priv)
	if err != nil {
		return nil, err
	}
	if len(extraEntropy) != 0 && len(extraEntropy) != 32 {
		return nil, fmt.Errorf("extra entropy must be 32 bytes, got %d", len(extraEntropy))
	}

	var e btcec.ModNScalar
	e.SetByteSlice(hash)

	for iteration := uint32(0); ; iteration++ {
		k := secp.NonceRFC6979(priv, hash, extraEntropy, nil, iteration)

		var R btcec.JacobianPoint
		btcec.ScalarBaseMultNonConst(k, &R)
		R.ToAffine()

		var r btcec.ModNScalar
		r.SetBytes(R.X.Bytes())
		if r.IsZero() {
			k.Zero()
			continue
		}

		// s = k^-1 * (e + r*d)
		var s, kInv btcec.ModNScalar
		kInv.InverseValNonConst(k)
		s.Mul2(&r, d).Add(&e).Mul(&kInv)
		k.Zero()
		if s.IsZero() {
			continue
		}
		if s.IsOverHalfOrder() {
			s.Negate()
		}

		out := make([]byte, 0, SignatureSize)
		out = append(out, scalarBytes(&r)...)
		return append(out, scalarBytes(&s)...), nil
	}
}

// Verify checks a compact (64-byte) or DER encoded ECDSA signature.
func Verify(hash, pub, sig []byte) bool {
	if len(hash) != 32 {
		return false
	}
	key, err := btcec.ParsePubKey(pub)
	if err != nil {
		return false
	}
	parsed, err := parseECDSA(sig)
	if err != nil {
		return false
	}
	return parsed.Verify(hash, key)
}

func parseECDSA(sig []byte) (*ecdsa.Signature, error) {
	if len(sig) != SignatureSize {
		return ecdsa.ParseDERSignature(sig)
	}
	var r, s btcec.ModNScalar
	if r.SetByteSlice(sig[:32]) || r.IsZero() {
		return nil, fmt.Errorf("%w: r out of range", ErrInvalidScalar)
	}
	if s.SetByteSlice(sig[32:]) || s.IsZero() {
		return nil, fmt.Errorf("%w: s out of range", ErrInvalidScalar)
	}
	return ecdsa.NewSignature(&r, &s), nil
}

// SignSchnorr produces a BIP340 signature. auxRand, when given, must be 32
// bytes and is used as the auxiliary randomness of the nonce derivation.
func SignSchnorr(hash, priv, auxRand []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHash, len(hash))
	}
	key, err := PrivateKey(priv)
	if err != nil {
		return nil, err
	}

	var opts []schnorr.SignOption
	if auxRand != nil {
		if len(auxRand) != 32 {
			return nil, fmt.Errorf("aux rand must be 32 bytes, got %d", len(auxRand))
		}
		var aux [32]byte
		copy(aux[:], auxRand)
		opts = append(opts, schnorr.CustomNonce(aux))
	}

	sig, err := schnorr.Sign(key, hash, opts...)
	if err != nil {
		return nil, fmt.Errorf("schnorr sign: %w", err)
	}
	return sig.Serialize(), nil
}

// VerifySchnorr checks a BIP340 signature against an x-only (32-byte) or
// compressed (33-byte) public key.
func VerifySchnorr(hash, pub, sig []byte) bool {
	if len(hash) != 32 {
		return false
	}
	if len(pub) == 33 {
		pub = pub[1:]
	}
	key, err := schnorr.ParsePubKey(pub)
	if err != nil {
		return false
	}
	parsed, err := schnorr.ParseSignature(sig)
	if err != nil {
		return false
	}
	return parsed.Verify(hash, key)
}

// XOnly drops the parity prefix of a compressed point.
func XOnly(pub []byte) ([]byte, error) {
	key, err := btcec.ParsePubKey(pub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPoint, err)
	}
	return schnorr.SerializePubKey(key), nil
}
