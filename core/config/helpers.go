package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var gweiExp = int32(9)

// parseGwei converts a decimal gwei amount such as "1.5" to wei. An empty
// value yields fallback.
func parseGwei(v string, fallback *big.Int) (*big.Int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback, nil
	}

	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, fmt.Errorf("invalid gwei amount %q: %w", v, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("gwei amount %q is negative", v)
	}

	wei := d.Shift(gweiExp)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("gwei amount %q has sub-wei precision", v)
	}
	return wei.BigInt(), nil
}
