// Package userop models ERC-4337 UserOperations and implements the two
// entrypoint encodings (v0.6 and v0.7) used to compute the operation hash.
package userop

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
)

// UserOperation represents an EIP-4337 style transaction for a smart contract account.
type UserOperation struct {
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

// Clone returns a deep copy so pipeline stages can mutate freely.
func (op *UserOperation) Clone() *UserOperation {
	return &UserOperation{
		Sender:               op.Sender,
		Nonce:                cloneBig(op.Nonce),
		InitCode:             common.CopyBytes(op.InitCode),
		CallData:             common.CopyBytes(op.CallData),
		CallGasLimit:         cloneBig(op.CallGasLimit),
		VerificationGasLimit: cloneBig(op.VerificationGasLimit),
		PreVerificationGas:   cloneBig(op.PreVerificationGas),
		MaxFeePerGas:         cloneBig(op.MaxFeePerGas),
		MaxPriorityFeePerGas: cloneBig(op.MaxPriorityFeePerGas),
		PaymasterAndData:     common.CopyBytes(op.PaymasterAndData),
		Signature:            common.CopyBytes(op.Signature),
	}
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// userOperationJSON is the wire form used by bundlers and wallets: quantities
// and byte fields are 0x hex strings.
type userOperationJSON struct {
	Sender               checksumAddress `json:"sender"`
	Nonce                Quantity        `json:"nonce"`
	InitCode             hexutil.Bytes   `json:"initCode"`
	CallData             hexutil.Bytes   `json:"callData"`
	CallGasLimit         Quantity        `json:"callGasLimit"`
	VerificationGasLimit Quantity        `json:"verificationGasLimit"`
	PreVerificationGas   Quantity        `json:"preVerificationGas"`
	MaxFeePerGas         Quantity        `json:"maxFeePerGas"`
	MaxPriorityFeePerGas Quantity        `json:"maxPriorityFeePerGas"`
	PaymasterAndData     hexutil.Bytes   `json:"paymasterAndData"`
	Signature            hexutil.Bytes   `json:"signature"`
}

// checksumAddress marshals in EIP-55 form, the way wallets display the
// account.
type checksumAddress common.Address

func (a checksumAddress) MarshalText() ([]byte, error) {
	return []byte(common.Address(a).Hex()), nil
}

func (a *checksumAddress) UnmarshalText(input []byte) error {
	return (*common.Address)(a).UnmarshalText(input)
}

func (op UserOperation) MarshalJSON() ([]byte, error) {
	return json.Marshal(userOperationJSON{
		Sender:               checksumAddress(op.Sender),
		Nonce:                Quantity{op.Nonce},
		InitCode:             nonNilBytes(op.InitCode),
		CallData:             nonNilBytes(op.CallData),
		CallGasLimit:         Quantity{op.CallGasLimit},
		VerificationGasLimit: Quantity{op.VerificationGasLimit},
		PreVerificationGas:   Quantity{op.PreVerificationGas},
		MaxFeePerGas:         Quantity{op.MaxFeePerGas},
		MaxPriorityFeePerGas: Quantity{op.MaxPriorityFeePerGas},
		PaymasterAndData:     nonNilBytes(op.PaymasterAndData),
		Signature:            nonNilBytes(op.Signature),
	})
}

func (op *UserOperation) UnmarshalJSON(data []byte) error {
	var raw userOperationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*op = UserOperation{
		Sender:               common.Address(raw.Sender),
		Nonce:                raw.Nonce.Int,
		InitCode:             raw.InitCode,
		CallData:             raw.CallData,
		CallGasLimit:         raw.CallGasLimit.Int,
		VerificationGasLimit: raw.VerificationGasLimit.Int,
		PreVerificationGas:   raw.PreVerificationGas.Int,
		MaxFeePerGas:         raw.MaxFeePerGas.Int,
		MaxPriorityFeePerGas: raw.MaxPriorityFeePerGas.Int,
		PaymasterAndData:     raw.PaymasterAndData,
		Signature:            raw.Signature,
	}
	return nil
}

func nonNilBytes(b []byte) hexutil.Bytes {
	if b == nil {
		return hexutil.Bytes{}
	}
	return b
}

// Quantity is a uint256 that marshals as 0x hex and unmarshals from hex
// strings, decimal strings or bare JSON numbers. Wallet software is loose
// about which one it sends.
type Quantity struct {
	*big.Int
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal((*hexutil.Big)(orZero(q.Int)))
}

func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		q.Int = nil
		return nil
	}

	text := string(data)
	if strings.HasPrefix(text, `"`) {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
	}
	if text == "" || text == "0x" {
		q.Int = new(big.Int)
		return nil
	}

	v, ok := math.ParseBig256(text)
	if !ok || v.Sign() < 0 {
		return fmt.Errorf("invalid uint256 quantity %q", text)
	}
	q.Int = v
	return nil
}

// PreparedOperation is the unsigned, partially filled operation returned to a
// wallet so it can negotiate gas with a bundler on its own.
type PreparedOperation struct {
	Nonce                 *big.Int
	InitCode              []byte
	CallData              []byte
	DummySignature        []byte
	DummyPaymasterAndData []byte
	BundlerURL            string
}

type preparedOperationJSON struct {
	Nonce                 Quantity      `json:"nonce"`
	InitCode              hexutil.Bytes `json:"initCode"`
	CallData              hexutil.Bytes `json:"callData"`
	DummySignature        hexutil.Bytes `json:"dummySignature"`
	DummyPaymasterAndData hexutil.Bytes `json:"dummyPaymasterAndData"`
	BundlerURL            string        `json:"bundlerUrl"`
}

func (p PreparedOperation) MarshalJSON() ([]byte, error) {
	return json.Marshal(preparedOperationJSON{
		Nonce:                 Quantity{p.Nonce},
		InitCode:              nonNilBytes(p.InitCode),
		CallData:              nonNilBytes(p.CallData),
		DummySignature:        nonNilBytes(p.DummySignature),
		DummyPaymasterAndData: nonNilBytes(p.DummyPaymasterAndData),
		BundlerURL:            p.BundlerURL,
	})
}

func (p *PreparedOperation) UnmarshalJSON(data []byte) error {
	var raw preparedOperationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = PreparedOperation{
		Nonce:                 raw.Nonce.Int,
		InitCode:              raw.InitCode,
		CallData:              raw.CallData,
		DummySignature:        raw.DummySignature,
		DummyPaymasterAndData: raw.DummyPaymasterAndData,
		BundlerURL:            raw.BundlerURL,
	}
	return nil
}

// Patch carries the fields a keyring is allowed to change on an operation that
// the wallet already assembled.
type Patch struct {
	PaymasterAndData hexutil.Bytes `json:"paymasterAndData"`
}
