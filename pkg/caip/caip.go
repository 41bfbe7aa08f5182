// Package caip parses CAIP-2 chain identifiers such as "eip155:1".
package caip

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

const NamespaceEIP155 = "eip155"

var (
	ErrInvalidChainID = errors.New("invalid CAIP-2 chain id")

	chainIDPattern = regexp.MustCompile(`^([-a-z0-9]{3,8}):([-_a-zA-Z0-9]{1,32})$`)
)

// ChainID is a parsed CAIP-2 identifier.
type ChainID struct {
	Namespace string
	Reference string
}

func (c ChainID) String() string {
	return c.Namespace + ":" + c.Reference
}

// Parse splits a CAIP-2 string into namespace and reference.
func Parse(s string) (ChainID, error) {
	m := chainIDPattern.FindStringSubmatch(s)
	if m == nil {
		return ChainID{}, fmt.Errorf("%w: %q", ErrInvalidChainID, s)
	}
	return ChainID{Namespace: m[1], Reference: m[2]}, nil
}

// IsEvmChain reports whether s is a well formed eip155 chain id.
func IsEvmChain(s string) bool {
	c, err := Parse(s)
	return err == nil && c.Namespace == NamespaceEIP155
}

// EVM builds the eip155 scope for a numeric chain id.
func EVM(chainID uint64) string {
	return NamespaceEIP155 + ":" + strconv.FormatUint(chainID, 10)
}
