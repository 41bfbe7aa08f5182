package caip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	c, err := Parse("eip155:11155111")
	require.NoError(t, err)
	assert.Equal(t, NamespaceEIP155, c.Namespace)
	assert.Equal(t, "11155111", c.Reference)
	assert.Equal(t, "eip155:11155111", c.String())

	c, err = Parse("bip122:000000000019d6689c085ae165831e93")
	require.NoError(t, err)
	assert.Equal(t, "bip122", c.Namespace)

	for _, bad := range []string{"", "eip155", "eip155:", ":1", "EIP155:1", "ab:1", "eip155:1:2", "eip155:" + string(make([]byte, 33))} {
		_, err := Parse(bad)
		assert.ErrorIs(t, err, ErrInvalidChainID, bad)
	}
}

func TestIsEvmChain(t *testing.T) {
	assert.True(t, IsEvmChain("eip155:1"))
	assert.True(t, IsEvmChain(EVM(288)))
	assert.False(t, IsEvmChain("solana:5eykt4UsFv8P8NJdTREpY1vzqKqZKvdp"))
	assert.False(t, IsEvmChain("eip155"))
	assert.False(t, IsEvmChain("not a chain"))
}
