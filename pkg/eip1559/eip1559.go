// Package eip1559 suggests fee caps for UserOperations from the current tip
// and base fee of a chain.
package eip1559

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
)

// ChainReader is the part of *ethclient.Client the fee suggestion reads.
type ChainReader interface {
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// Policy bounds the suggested fees.
type Policy struct {
	// TipBufferPercent is added on top of the node's tip suggestion.
	TipBufferPercent int64
	MinPriorityFee   *big.Int
	// MinMaxFee applies to chains with a base fee only.
	MinMaxFee *big.Int
}

var DefaultPolicy = Policy{
	TipBufferPercent: 13,
	MinPriorityFee:   big.NewInt(2_000_000_000),
	MinMaxFee:        big.NewInt(20_000_000_000),
}

// Suggester prices operations against a live chain.
type Suggester struct {
	client ChainReader
	policy Policy
}

func NewSuggester(client ChainReader, policy Policy) *Suggester {
	return &Suggester{client: client, policy: policy}
}

func (s *Suggester) SuggestFee(ctx context.Context) (*big.Int, *big.Int, error) {
	return SuggestFee(ctx, s.client, s.policy)
}

// SuggestFee returns (maxFeePerGas, maxPriorityFeePerGas). With a base fee the
// max fee is 2*baseFee + tip so the operation survives a doubling of the base
// fee; legacy chains get the tip as max fee.
func SuggestFee(ctx context.Context, client ChainReader, policy Policy) (*big.Int, *big.Int, error) {
	tipCap, err := client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot suggest gas tip: %w", err)
	}

	header, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot read latest header: %w", err)
	}

	buffer := new(big.Int).Div(tipCap, big.NewInt(100))
	buffer.Mul(buffer, big.NewInt(policy.TipBufferPercent))
	maxPriorityFeePerGas := new(big.Int).Add(tipCap, buffer)
	if policy.MinPriorityFee != nil && maxPriorityFeePerGas.Cmp(policy.MinPriorityFee) < 0 {
		maxPriorityFeePerGas = new(big.Int).Set(policy.MinPriorityFee)
	}

	if header.BaseFee == nil {
		return new(big.Int).Set(maxPriorityFeePerGas), maxPriorityFeePerGas, nil
	}

	maxFeePerGas := new(big.Int).Mul(header.BaseFee, big.NewInt(2))
	maxFeePerGas.Add(maxFeePerGas, maxPriorityFeePerGas)
	if policy.MinMaxFee != nil && maxFeePerGas.Cmp(policy.MinMaxFee) < 0 {
		maxFeePerGas = new(big.Int).Set(policy.MinMaxFee)
	}

	return maxFeePerGas, maxPriorityFeePerGas, nil
}
