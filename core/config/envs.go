package config

import "fmt"

// FeeMode selects how the combined prepare-and-sign path prices operations.
type FeeMode string

const (
	// FeeModeFixed uses max_fee_per_gas and max_priority_fee_per_gas as is.
	FeeModeFixed = FeeMode("fixed")
	// FeeModeSuggested asks the node for an EIP-1559 tip and base fee.
	FeeModeSuggested = FeeMode("suggested")
)

func ParseFeeMode(v string) (FeeMode, error) {
	switch FeeMode(v) {
	case "", FeeModeFixed:
		return FeeModeFixed, nil
	case FeeModeSuggested:
		return FeeModeSuggested, nil
	}
	return "", fmt.Errorf("config: unknown fee_mode %q", v)
}
