package chain

import (
	"bytes"
	"errors"
	"testing"
	"testing/iotest"

	prt "github.com/sgawallet/sga-wallet/protocol"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := map[string]prt.Family{
		"evm":               prt.FamilyEVM,
		"eip155:1":          prt.FamilyEVM,
		"eip155:1666600000": prt.FamilyEVM,
		"solana:5eykt4UsFv8P8NJdTREpY1vzqKqZKvdp": prt.FamilySolana,
		"Solana": prt.FamilySolana,
		"bip122:000000000019d6689c085ae165831e93": prt.FamilyBitcoin,
		"bitcoin": prt.FamilyBitcoin,
		"xrpl:0":  prt.FamilyXRPL,
		" xrpl ":  prt.FamilyXRPL,
	}
	for in, want := range cases {
		got, err := Parse(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := Parse("cosmos:cosmoshub-4")
	require.ErrorIs(t, err, ErrUnsupportedFamily)
	_, err = Parse("")
	require.ErrorIs(t, err, ErrUnsupportedFamily)
}

func TestReadEntropy(t *testing.T) {
	b, err := ReadEntropy(bytes.NewReader([]byte{1, 2, 3, 4}), 4)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, b)

	_, err = ReadEntropy(bytes.NewReader([]byte{1}), 4)
	require.ErrorIs(t, err, ErrRandomnessUnavailable)
	_, err = ReadEntropy(iotest.ErrReader(errors.New("eio")), 4)
	require.ErrorIs(t, err, ErrRandomnessUnavailable)
	_, err = ReadEntropy(nil, 4)
	require.ErrorIs(t, err, ErrRandomnessUnavailable)
}

func TestZero(t *testing.T) {
	b := []byte{1, 2, 3}
	Zero(b)
	require.Equal(t, []byte{0, 0, 0}, b)
}

func TestRegistryEmpty(t *testing.T) {
	reg := NewRegistry()
	require.Empty(t, reg.Families())
	_, err := reg.Source(prt.FamilyEVM)
	require.ErrorIs(t, err, ErrUnsupportedFamily)
	require.ErrorIs(t, reg.ValidateAddress(prt.FamilyEVM, "0x00"), ErrUnsupportedFamily)
}

func TestCAIP(t *testing.T) {
	for _, f := range prt.Families {
		id, err := CAIP2(f)
		require.NoError(t, err)
		back, err := Parse(id)
		require.NoError(t, err)
		require.Equal(t, f, back)
	}
	_, err := CAIP2("cosmos")
	require.ErrorIs(t, err, ErrUnsupportedFamily)

	require.Equal(t, "0xabc", AccountAddress("eip155:1:0xabc"))
	require.Equal(t, "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh", AccountAddress("xrpl:0:rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"))
	require.Equal(t, "0xabc", AccountAddress("0xabc"))
}
