package crypto

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// secp256k1 group order n
var curveOrder = btcec.S256().N

func mustHex(t testing.TB, s string) []byte {
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func drawPrivate(t *rapid.T, label string) []byte {
	b := rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, label)
	if !IsPrivate(b) {
		t.Skip("scalar out of range")
	}
	return b
}

func TestPointFromScalarGenerator(t *testing.T) {
	one := make([]byte, 32)
	one[31] = 1

	pub, err := PointFromScalar(one, true)
	require.NoError(t, err)
	require.Equal(t,
		"0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798",
		hex.EncodeToString(pub))

	full, err := PointFromScalar(one, false)
	require.NoError(t, err)
	require.Len(t, full, 65)
	require.Equal(t, byte(0x04), full[0])

	again, err := PointCompress(full, true)
	require.NoError(t, err)
	require.Equal(t, pub, again)
}

func TestPointFromScalarRejectsOutOfRange(t *testing.T) {
	zero := make([]byte, 32)
	_, err := PointFromScalar(zero, true)
	require.ErrorIs(t, err, ErrInvalidScalar)

	order := curveOrder.FillBytes(make([]byte, 32))
	_, err = PointFromScalar(order, true)
	require.ErrorIs(t, err, ErrInvalidScalar)

	_, err = PointFromScalar([]byte{1, 2, 3}, true)
	require.ErrorIs(t, err, ErrInvalidScalar)

	nMinusOne := new(btcec.ModNScalar)
	nMinusOne.SetInt(1).Negate()
	b := nMinusOne.Bytes()
	require.True(t, IsPrivate(b[:]))
}

func TestIsPoint(t *testing.T) {
	require.True(t, IsPoint(mustHex(t, "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798")))
	require.False(t, IsPoint(mustHex(t, "0579be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798")))
	require.False(t, IsPoint(make([]byte, 33)))
	require.False(t, IsPoint(nil))
}

func TestPrivateAddDegenerate(t *testing.T) {
	d := mustHex(t, "0000000000000000000000000000000000000000000000000000000000000005")
	neg, err := PrivateNegate(d)
	require.NoError(t, err)

	_, err = PrivateAdd(d, neg)
	require.ErrorIs(t, err, ErrDegenerateTweak)
}

func TestPrivateNegateZero(t *testing.T) {
	neg, err := PrivateNegate(make([]byte, 32))
	require.NoError(t, err)
	require.Equal(t, make([]byte, 32), neg)
}

func TestTweakRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d := drawPrivate(t, "d")
		tweak := drawPrivate(t, "tweak")

		sum, err := PrivateAdd(d, tweak)
		if err != nil {
			t.Skip("degenerate tweak")
		}

		// (d + tweak) + (-d) == tweak
		negD, err := PrivateNegate(d)
		require.NoError(t, err)
		got, err := PrivateAdd(sum, negD)
		require.NoError(t, err)
		require.Equal(t, tweak, got)

		// -( -(d + tweak) + d ) == tweak
		negSum, err := PrivateNegate(sum)
		require.NoError(t, err)
		negTweak, err := PrivateAdd(negSum, d)
		require.NoError(t, err)
		back, err := PrivateNegate(negTweak)
		require.NoError(t, err)
		require.Equal(t, tweak, back)
	})
}

func TestXOnlyPointAddTweakMatchesPrivateAdd(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d := drawPrivate(t, "d")
		tweak := drawPrivate(t, "tweak")

		pub, err := PointFromScalar(d, true)
		require.NoError(t, err)

		// The x-only key stands for the even-Y point, whose scalar is
		// d or n-d.
		even := d
		if pub[0] == 0x03 {
			even, err = PrivateNegate(d)
			require.NoError(t, err)
		}

		sum, err := PrivateAdd(even, tweak)
		if err != nil {
			t.Skip("degenerate tweak")
		}
		want, err := PointFromScalar(sum, true)
		require.NoError(t, err)

		res, ok, err := XOnlyPointAddTweak(pub[1:], tweak)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, want[1:], res.XOnlyKey)
		require.Equal(t, int(want[0]-0x02), res.Parity)
	})
}

func TestXOnlyPointAddTweakInfinity(t *testing.T) {
	// P = G has even Y, so adding (n-1)·G lands on infinity.
	g := mustHex(t, "79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798")
	one := make([]byte, 32)
	one[31] = 1
	negOne, err := PrivateNegate(one)
	require.NoError(t, err)

	_, ok, err := XOnlyPointAddTweak(g, negOne)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestXOnlyPointAddTweakBadInput(t *testing.T) {
	_, _, err := XOnlyPointAddTweak(make([]byte, 31), make([]byte, 32))
	require.ErrorIs(t, err, ErrInvalidPoint)

	// BIP340 vector 5: not on the curve
	notOnCurve := mustHex(t, "eefdea4cdb677750a420fee807eacf21eb9898ae79b9768766e4faa04a2d4a34")
	_, _, err = XOnlyPointAddTweak(notOnCurve, make([]byte, 32))
	require.ErrorIs(t, err, ErrInvalidPoint)
}

func TestEVMAddressFromPubKey(t *testing.T) {
	one := make([]byte, 32)
	one[31] = 1
	pub, err := PointFromScalar(one, true)
	require.NoError(t, err)

	addr, err := EVMAddressFromPubKey(pub)
	require.NoError(t, err)
	require.Equal(t, "7e5f4552091a69125d5dfcb7b8c2659029395bdf", hex.EncodeToString(addr[:]))
}

func TestHash160(t *testing.T) {
	one := make([]byte, 32)
	one[31] = 1
	pub, err := PointFromScalar(one, true)
	require.NoError(t, err)

	require.Equal(t, "751e76e8199196d454941c45d1b3a323f1433bd6", hex.EncodeToString(Hash160(pub)))
	require.True(t, bytes.Equal(SHA512Half([]byte("a"), []byte("b")), SHA512Half([]byte("ab"))))
}
