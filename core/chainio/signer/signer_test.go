package signer

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	// well known development key (anvil/hardhat account #0)
	devKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	devAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestFromPrivateKeyHex(t *testing.T) {
	s, err := FromPrivateKeyHex(devKey)
	require.NoError(t, err)
	assert.Equal(t, devAddress, s.Address().Hex())
	assert.Equal(t, devKey, s.PrivateKeyHex())

	prefixed, err := FromPrivateKeyHex("0x" + devKey)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), prefixed.Address())
}

func TestDeriveAddressIsChecksummed(t *testing.T) {
	addr, err := DeriveAddress(strings.ToUpper(devKey))
	require.NoError(t, err)
	assert.Equal(t, devAddress, addr)
	assert.Equal(t, common.HexToAddress(addr).Hex(), addr)

	again, err := DeriveAddress(devKey)
	require.NoError(t, err)
	assert.Equal(t, addr, again)
}

func TestFromPrivateKeyHexRejectsInvalidKeys(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"not hex":        "zz0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
		"too short":      "ac0974bec39a17e36ba4a6b4d238ff94",
		"too long":       devKey + "00",
		"zero scalar":    strings.Repeat("0", 64),
		"above n":        strings.Repeat("f", 64),
		"odd characters": devKey[:63],
	}

	for name, key := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromPrivateKeyHex(key)
			require.ErrorIs(t, err, ErrInvalidPrivateKey)
			// the error never echoes the input
			if key != "" {
				assert.NotContains(t, err.Error(), key)
			}
		})
	}
}

func TestGenerateProducesDistinctKeys(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)

	assert.NotEqual(t, a.Address(), b.Address())
	assert.Len(t, a.PrivateKeyHex(), 64)
}

func TestSignMessageRecoversToSigner(t *testing.T) {
	s, err := FromPrivateKeyHex(devKey)
	require.NoError(t, err)

	hash := crypto.Keccak256([]byte("user operation"))
	sig, err := s.SignMessage(hash)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	assert.Contains(t, []byte{27, 28}, sig[64])

	recovered, err := RecoverAddress(hash, sig)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), recovered)

	// signing is deterministic (RFC6979)
	again, err := s.SignMessage(hash)
	require.NoError(t, err)
	assert.Equal(t, sig, again)
}

func TestRecoverAddressRejectsShortSignature(t *testing.T) {
	_, err := RecoverAddress([]byte("x"), []byte{1, 2, 3})
	assert.Error(t, err)
}
