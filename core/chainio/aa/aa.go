// Package aa talks to the ERC-4337 contracts a smart wallet depends on: the
// SimpleAccount factory, the account itself and a verifying paymaster.
package aa

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/AvaProtocol/aa-keyring/pkg/erc4337/userop"
)

var (
	abiOnce               sync.Once
	factoryABI            abi.ABI
	simpleAccountABI      abi.ABI
	verifyingPaymasterABI abi.ABI
	errABI                error

	defaultSalt = big.NewInt(0)
)

func buildABIs() error {
	abiOnce.Do(func() {
		if factoryABI, errABI = abi.JSON(strings.NewReader(SimpleAccountFactoryABI)); errABI != nil {
			errABI = fmt.Errorf("invalid factory ABI: %w", errABI)
			return
		}
		if simpleAccountABI, errABI = abi.JSON(strings.NewReader(SimpleAccountABI)); errABI != nil {
			errABI = fmt.Errorf("invalid account ABI: %w", errABI)
			return
		}
		if verifyingPaymasterABI, errABI = abi.JSON(strings.NewReader(VerifyingPaymasterABI)); errABI != nil {
			errABI = fmt.Errorf("invalid paymaster ABI: %w", errABI)
		}
	})
	return errABI
}

// Factory is a SimpleAccountFactory deployed at a fixed address.
type Factory struct {
	address  common.Address
	contract *bind.BoundContract
}

func NewFactory(address common.Address, caller bind.ContractCaller) (*Factory, error) {
	if err := buildABIs(); err != nil {
		return nil, err
	}
	return &Factory{
		address:  address,
		contract: bind.NewBoundContract(address, factoryABI, caller, nil, nil),
	}, nil
}

func (f *Factory) Address() common.Address {
	return f.address
}

// GetAddress returns the counterfactual account address for (owner, salt).
func (f *Factory) GetAddress(ctx context.Context, owner common.Address, salt *big.Int) (common.Address, error) {
	if salt == nil {
		salt = defaultSalt
	}

	var out []interface{}
	if err := f.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getAddress", owner, salt); err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// PackCreateAccount returns the createAccount(owner, salt) calldata.
func (f *Factory) PackCreateAccount(owner common.Address, salt *big.Int) ([]byte, error) {
	return PackCreateAccount(owner, salt)
}

// GetInitCode returns factory address followed by the createAccount calldata,
// the initCode that deploys the account on its first operation.
func (f *Factory) GetInitCode(owner common.Address, salt *big.Int) ([]byte, error) {
	return GetInitCodeForFactory(f.address, owner, salt)
}

func PackCreateAccount(owner common.Address, salt *big.Int) ([]byte, error) {
	if err := buildABIs(); err != nil {
		return nil, err
	}
	if salt == nil {
		salt = defaultSalt
	}
	return factoryABI.Pack("createAccount", owner, salt)
}

func GetInitCodeForFactory(factory common.Address, owner common.Address, salt *big.Int) ([]byte, error) {
	calldata, err := PackCreateAccount(owner, salt)
	if err != nil {
		return nil, err
	}

	var data []byte
	data = append(data, factory.Bytes()...)
	data = append(data, calldata...)
	return data, nil
}

// Account is a deployed (or yet to be deployed) SimpleAccount.
type Account struct {
	address  common.Address
	contract *bind.BoundContract
}

func NewAccount(address common.Address, caller bind.ContractCaller) (*Account, error) {
	if err := buildABIs(); err != nil {
		return nil, err
	}
	return &Account{
		address:  address,
		contract: bind.NewBoundContract(address, simpleAccountABI, caller, nil, nil),
	}, nil
}

func (a *Account) Address() common.Address {
	return a.address
}

// GetNonce reads the account nonce. It fails with bind.ErrNoCode while the
// account is not deployed.
func (a *Account) GetNonce(ctx context.Context) (*big.Int, error) {
	var out []interface{}
	if err := a.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getNonce"); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (a *Account) PackExecute(target common.Address, value *big.Int, calldata []byte) ([]byte, error) {
	return PackExecute(target, value, calldata)
}

// Generate calldata for UserOps
func PackExecute(targetAddress common.Address, ethValue *big.Int, calldata []byte) ([]byte, error) {
	if err := buildABIs(); err != nil {
		return nil, err
	}
	if ethValue == nil {
		ethValue = big.NewInt(0)
	}
	if calldata == nil {
		calldata = []byte{}
	}
	return simpleAccountABI.Pack("execute", targetAddress, ethValue, calldata)
}

// VerifyingPaymaster is a paymaster that sponsors operations carrying an
// off-chain signature of its configured signer.
type VerifyingPaymaster struct {
	address  common.Address
	contract *bind.BoundContract
}

func NewVerifyingPaymaster(address common.Address, caller bind.ContractCaller) (*VerifyingPaymaster, error) {
	if err := buildABIs(); err != nil {
		return nil, err
	}
	return &VerifyingPaymaster{
		address:  address,
		contract: bind.NewBoundContract(address, verifyingPaymasterABI, caller, nil, nil),
	}, nil
}

func (p *VerifyingPaymaster) Address() common.Address {
	return p.address
}

// paymasterUserOp mirrors the v0.6 UserOperation tuple the paymaster hashes.
type paymasterUserOp struct {
	Sender               common.Address
	Nonce                *big.Int
	InitCode             []byte
	CallData             []byte
	CallGasLimit         *big.Int
	VerificationGasLimit *big.Int
	PreVerificationGas   *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	PaymasterAndData     []byte
	Signature            []byte
}

func toPaymasterUserOp(op *userop.UserOperation) paymasterUserOp {
	orZero := func(v *big.Int) *big.Int {
		if v == nil {
			return new(big.Int)
		}
		return v
	}
	orEmpty := func(b []byte) []byte {
		if b == nil {
			return []byte{}
		}
		return b
	}

	return paymasterUserOp{
		Sender:               op.Sender,
		Nonce:                orZero(op.Nonce),
		InitCode:             orEmpty(op.InitCode),
		CallData:             orEmpty(op.CallData),
		CallGasLimit:         orZero(op.CallGasLimit),
		VerificationGasLimit: orZero(op.VerificationGasLimit),
		PreVerificationGas:   orZero(op.PreVerificationGas),
		MaxFeePerGas:         orZero(op.MaxFeePerGas),
		MaxPriorityFeePerGas: orZero(op.MaxPriorityFeePerGas),
		PaymasterAndData:     orEmpty(op.PaymasterAndData),
		Signature:            orEmpty(op.Signature),
	}
}

// GetHash returns the hash the paymaster signer must sign to sponsor op within
// [validAfter, validUntil]. Zero bounds mean no expiry.
func (p *VerifyingPaymaster) GetHash(ctx context.Context, op *userop.UserOperation, validUntil, validAfter uint64) (common.Hash, error) {
	var out []interface{}
	err := p.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getHash",
		toPaymasterUserOp(op),
		new(big.Int).SetUint64(validUntil),
		new(big.Int).SetUint64(validAfter),
	)
	if err != nil {
		return common.Hash{}, err
	}
	return common.Hash(*abi.ConvertType(out[0], new([32]byte)).(*[32]byte)), nil
}
