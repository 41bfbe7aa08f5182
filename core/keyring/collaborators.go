package keyring

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/AvaProtocol/aa-keyring/pkg/erc4337/userop"
)

// Provider is the slice of an RPC client the keyring reads the chain with.
// *ethclient.Client satisfies it.
type Provider interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
}

type Factory interface {
	Address() common.Address
	GetAddress(ctx context.Context, owner common.Address, salt *big.Int) (common.Address, error)
	GetInitCode(owner common.Address, salt *big.Int) ([]byte, error)
}

type SmartAccount interface {
	GetNonce(ctx context.Context) (*big.Int, error)
	PackExecute(target common.Address, value *big.Int, calldata []byte) ([]byte, error)
}

type VerifyingPaymaster interface {
	Address() common.Address
	GetHash(ctx context.Context, op *userop.UserOperation, validUntil, validAfter uint64) (common.Hash, error)
}

// Contracts binds contract proxies at an address.
type Contracts interface {
	Factory(address common.Address) (Factory, error)
	Account(address common.Address) (SmartAccount, error)
	VerifyingPaymaster(address common.Address) (VerifyingPaymaster, error)
}

// StateStore persists the keyring state. Save is called after every mutation
// and must be atomic.
type StateStore interface {
	Load() (*State, error)
	Save(state *State) error
}

// Emitter notifies the host about account lifecycle changes. An error aborts
// the change.
type Emitter interface {
	Emit(ctx context.Context, event EventKind, payload map[string]interface{}) error
}

type Metrics interface {
	IncRequest(method, status string)
	IncAccountEvent(event string)
	IncOperationSigned(entryPointVersion string)
}

// FeeSource prices UserOperations built by the combined prepare-and-sign path.
type FeeSource interface {
	SuggestFee(ctx context.Context) (maxFeePerGas, maxPriorityFeePerGas *big.Int, err error)
}

// FixedFees always returns the same fees.
type FixedFees struct {
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

var oneGwei = big.NewInt(1_000_000_000)

// DefaultFees is 1 gwei for both fee fields.
func DefaultFees() *FixedFees {
	return &FixedFees{
		MaxFeePerGas:         new(big.Int).Set(oneGwei),
		MaxPriorityFeePerGas: new(big.Int).Set(oneGwei),
	}
}

func (f *FixedFees) SuggestFee(ctx context.Context) (*big.Int, *big.Int, error) {
	return new(big.Int).Set(f.MaxFeePerGas), new(big.Int).Set(f.MaxPriorityFeePerGas), nil
}

type noopEmitter struct{}

func (noopEmitter) Emit(ctx context.Context, event EventKind, payload map[string]interface{}) error {
	return nil
}

type noopMetrics struct{}

func (noopMetrics) IncRequest(method, status string)            {}
func (noopMetrics) IncAccountEvent(event string)                {}
func (noopMetrics) IncOperationSigned(entryPointVersion string) {}
