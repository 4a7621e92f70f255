package crypto

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
)

// XOnlyTweakResult is the tweaked x-only key plus the parity of its full
// point's Y coordinate.
type XOnlyTweakResult struct {
	Parity   int
	XOnlyKey []byte
}

// XOnlyPointAddTweak lifts the x-only key to the point with even Y, adds
// tweak·G and returns the x coordinate and Y parity of the sum. ok is false
// when the sum is the point at infinity.
func XOnlyPointAddTweak(xOnlyPubkey, tweak []byte) (res XOnlyTweakResult, ok bool, err error) {
	if len(xOnlyPubkey) != 32 {
		return res, false, fmt.Errorf("%w: x-only key must be 32 bytes", ErrInvalidPoint)
	}
	P, err := btcec.ParsePubKey(append([]byte{0x02}, xOnlyPubkey...))
	if err != nil {
		return res, false, fmt.Errorf("%w: %v", ErrInvalidPoint, err)
	}
	t, err := parseScalar(tweak)
	if err != nil {
		return res, false, err
	}

	var pJ, tJ, qJ btcec.JacobianPoint
	P.AsJacobian(&pJ)
	btcec.ScalarBaseMultNonConst(t, &tJ)
	btcec.AddNonConst(&pJ, &tJ, &qJ)

	if qJ.Z.Normalize().IsZero() || (qJ.X.IsZero() && qJ.Y.IsZero()) {
		return res, false, nil
	}
	qJ.ToAffine()

	x := qJ.X.Bytes()
	res.XOnlyKey = append([]byte(nil), x[:]...)
	if qJ.Y.IsOdd() {
		res.Parity = 1
	}
	return res, true, nil
}
