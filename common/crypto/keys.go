package crypto

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	secp "github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// ScalarSize is the byte length of every scalar handled by this package.
const ScalarSize = 32

var (
	ErrInvalidScalar   = errors.New("invalid scalar")
	ErrInvalidPoint    = errors.New("invalid point")
	ErrInvalidHash     = errors.New("invalid hash length")
	ErrDegenerateTweak = errors.New("tweak results in zero scalar")
)

// parseScalar reads a 32-byte big-endian integer and rejects values >= n.
// Zero is accepted; callers that need a private key check it separately.
func parseScalar(b []byte) (*btcec.ModNScalar, error) {
	if len(b) != ScalarSize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidScalar, ScalarSize, len(b))
	}
	var s btcec.ModNScalar
	if overflow := s.SetByteSlice(b); overflow {
		return nil, fmt.Errorf("%w: not below curve order", ErrInvalidScalar)
	}
	return &s, nil
}

func parsePrivate(b []byte) (*btcec.ModNScalar, error) {
	s, err := parseScalar(b)
	if err != nil {
		return nil, err
	}
	if s.IsZero() {
		return nil, fmt.Errorf("%w: zero", ErrInvalidScalar)
	}
	return s, nil
}

func scalarBytes(s *btcec.ModNScalar) []byte {
	out := s.Bytes()
	return out[:]
}

// IsPrivate reports whether b is a valid private key, i.e. in [1, n-1].
func IsPrivate(b []byte) bool {
	_, err := parsePrivate(b)
	return err == nil
}

// IsPoint reports whether b is a valid SEC1 encoded curve point.
func IsPoint(b []byte) bool {
	_, err := btcec.ParsePubKey(b)
	return err == nil
}

// PrivateKey converts a validated scalar into a btcec private key.
func PrivateKey(priv []byte) (*btcec.PrivateKey, error) {
	s, err := parsePrivate(priv)
	if err != nil {
		return nil, err
	}
	return secp.NewPrivateKey(s), nil
}

// PointFromScalar returns d·G serialized compressed (33 bytes) or
// uncompressed (65 bytes).
func PointFromScalar(priv []byte, compressed bool) ([]byte, error) {
	key, err := PrivateKey(priv)
	if err != nil {
		return nil, err
	}
	return serializePoint(key.PubKey(), compressed), nil
}

// PointCompress re-encodes a point in the requested form.
func PointCompress(point []byte, compressed bool) ([]byte, error) {
	pub, err := btcec.ParsePubKey(point)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPoint, err)
	}
	return serializePoint(pub, compressed), nil
}

func serializePoint(pub *btcec.PublicKey, compressed bool) []byte {
	if compressed {
		return pub.SerializeCompressed()
	}
	return pub.SerializeUncompressed()
}

// PrivateAdd computes (d + tweak) mod n. A zero sum is reported as
// ErrDegenerateTweak.
func PrivateAdd(d, tweak []byte) ([]byte, error) {
	ds, err := parsePrivate(d)
	if err != nil {
		return nil, err
	}
	ts, err := parseScalar(tweak)
	if err != nil {
		return nil, err
	}

	var sum btcec.ModNScalar
	sum.Add2(ds, ts)
	if sum.IsZero() {
		return nil, ErrDegenerateTweak
	}
	return scalarBytes(&sum), nil
}

// PrivateNegate computes (n - d) mod n.
func PrivateNegate(d []byte) ([]byte, error) {
	s, err := parseScalar(d)
	if err != nil {
		return nil, err
	}
	var neg btcec.ModNScalar
	neg.NegateVal(s)
	return scalarBytes(&neg), nil
}
