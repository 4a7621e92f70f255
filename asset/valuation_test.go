package asset

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDerive(t *testing.T) {
	v, err := Derive(2, 1500, AmountToFiat)
	require.NoError(t, err)
	require.Equal(t, 3000.0, v)

	v, err = Derive(3000, 1500, FiatToAmount)
	require.NoError(t, err)
	require.Equal(t, 2.0, v)

	_, err = Derive(10, 0, FiatToAmount)
	require.ErrorIs(t, err, ErrNoPrice)

	v, err = Derive(10, 0, AmountToFiat)
	require.NoError(t, err)
	require.Zero(t, v)

	_, err = Derive(-1, 1, AmountToFiat)
	require.Error(t, err)
	_, err = Derive(1, 1, Direction(7))
	require.Error(t, err)
}

func TestDeriveRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		amount := rapid.Float64Range(0, 1e9).Draw(t, "amount")
		price := rapid.Float64Range(1e-6, 1e6).Draw(t, "price")

		fiat, err := Derive(amount, price, AmountToFiat)
		if err != nil {
			t.Fatal(err)
		}
		back, err := Derive(fiat, price, FiatToAmount)
		if err != nil {
			t.Fatal(err)
		}
		if diff := back - amount; diff > 1e-6*(amount+1) || diff < -1e-6*(amount+1) {
			t.Fatalf("round trip %v -> %v -> %v", amount, fiat, back)
		}
	})
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("fiat")
	require.NoError(t, err)
	require.Equal(t, FiatToAmount, d)
	d, err = ParseDirection("amount")
	require.NoError(t, err)
	require.Equal(t, AmountToFiat, d)
	_, err = ParseDirection("sideways")
	require.Error(t, err)
}
