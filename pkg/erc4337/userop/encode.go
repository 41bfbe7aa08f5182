package userop

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// EntryPointVersion selects the UserOperation layout an entrypoint hashes.
type EntryPointVersion string

const (
	EntryPointV06 EntryPointVersion = "0.6.0"
	EntryPointV07 EntryPointVersion = "0.7.0"
)

// ParseEntryPointVersion accepts "0.6"/"0.6.0"/"v0.6" style strings. Anything
// unrecognised resolves to v0.7, the layout current entrypoints use.
func ParseEntryPointVersion(s string) EntryPointVersion {
	switch s {
	case "0.6", "0.6.0", "v0.6", "v0.6.0":
		return EntryPointV06
	default:
		return EntryPointV07
	}
}

func (v EntryPointVersion) Valid() bool {
	return v == EntryPointV06 || v == EntryPointV07
}

var (
	addressT, _ = abi.NewType("address", "", nil)
	uint256T, _ = abi.NewType("uint256", "", nil)
	bytes32T, _ = abi.NewType("bytes32", "", nil)
	bytesT, _   = abi.NewType("bytes", "", nil)

	// sender, nonce, keccak(initCode), keccak(callData), callGasLimit,
	// verificationGasLimit, preVerificationGas, maxFeePerGas,
	// maxPriorityFeePerGas, keccak(paymasterAndData)
	v06Args = abi.Arguments{
		{Type: addressT}, {Type: uint256T}, {Type: bytes32T}, {Type: bytes32T},
		{Type: uint256T}, {Type: uint256T}, {Type: uint256T}, {Type: uint256T}, {Type: uint256T},
		{Type: bytes32T},
	}

	// sender, nonce, keccak(initCode), keccak(callData), accountGasLimits,
	// preVerificationGas, gasFees, keccak("")
	v07Args = abi.Arguments{
		{Type: addressT}, {Type: uint256T}, {Type: bytes32T}, {Type: bytes32T},
		{Type: bytes32T}, {Type: uint256T}, {Type: bytes32T},
		{Type: bytes32T},
	}

	// The full tuple with raw byte fields, sized like the calldata a bundler posts.
	forGasArgs = abi.Arguments{
		{Type: addressT}, {Type: uint256T}, {Type: bytesT}, {Type: bytesT},
		{Type: uint256T}, {Type: uint256T}, {Type: uint256T}, {Type: uint256T}, {Type: uint256T},
		{Type: bytesT}, {Type: bytesT},
	}

	hashArgs = abi.Arguments{{Type: bytes32T}, {Type: addressT}, {Type: uint256T}}

	// keccak256 of the empty byte string
	emptyBytesHash = crypto.Keccak256Hash(nil)

	maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
)

// Operation is a UserOperation tagged with the entrypoint layout it is
// hashed under.
type Operation interface {
	Version() EntryPointVersion
	UserOp() *UserOperation
	// PackForSignature returns the structural encoding whose keccak is the
	// inner hash of the operation.
	PackForSignature() ([]byte, error)
}

// V6Operation hashes with the legacy v0.6 tuple.
type V6Operation struct {
	*UserOperation
}

// V7Operation hashes with the packed v0.7 tuple.
type V7Operation struct {
	*UserOperation
}

// NewOperation tags op with its layout.
func NewOperation(op *UserOperation, version EntryPointVersion) Operation {
	if version == EntryPointV06 {
		return V6Operation{op}
	}
	return V7Operation{op}
}

func (o V6Operation) Version() EntryPointVersion { return EntryPointV06 }
func (o V6Operation) UserOp() *UserOperation     { return o.UserOperation }

func (o V6Operation) PackForSignature() ([]byte, error) {
	op := o.UserOperation
	return v06Args.Pack(
		op.Sender,
		orZero(op.Nonce),
		crypto.Keccak256Hash(op.InitCode),
		crypto.Keccak256Hash(op.CallData),
		orZero(op.CallGasLimit),
		orZero(op.VerificationGasLimit),
		orZero(op.PreVerificationGas),
		orZero(op.MaxFeePerGas),
		orZero(op.MaxPriorityFeePerGas),
		crypto.Keccak256Hash(op.PaymasterAndData),
	)
}

func (o V7Operation) Version() EntryPointVersion { return EntryPointV07 }
func (o V7Operation) UserOp() *UserOperation     { return o.UserOperation }

// PackForSignature encodes the v0.7 tuple. The last word is the hash of empty
// bytes whatever paymasterAndData holds.
func (o V7Operation) PackForSignature() ([]byte, error) {
	op := o.UserOperation

	accountGasLimits, err := packUint128Pair(op.VerificationGasLimit, op.CallGasLimit)
	if err != nil {
		return nil, fmt.Errorf("accountGasLimits: %w", err)
	}
	gasFees, err := packUint128Pair(op.MaxPriorityFeePerGas, op.MaxFeePerGas)
	if err != nil {
		return nil, fmt.Errorf("gasFees: %w", err)
	}

	return v07Args.Pack(
		op.Sender,
		orZero(op.Nonce),
		crypto.Keccak256Hash(op.InitCode),
		crypto.Keccak256Hash(op.CallData),
		accountGasLimits,
		orZero(op.PreVerificationGas),
		gasFees,
		emptyBytesHash,
	)
}

// packUint128Pair places hi in the upper and lo in the lower 16 bytes of
// one word, both big-endian.
func packUint128Pair(hi, lo *big.Int) (common.Hash, error) {
	var word common.Hash
	hi, lo = orZero(hi), orZero(lo)
	if hi.Sign() < 0 || hi.Cmp(maxUint128) > 0 {
		return word, fmt.Errorf("value %s does not fit in uint128", hi)
	}
	if lo.Sign() < 0 || lo.Cmp(maxUint128) > 0 {
		return word, fmt.Errorf("value %s does not fit in uint128", lo)
	}
	hi.FillBytes(word[:16])
	lo.FillBytes(word[16:])
	return word, nil
}

// EncodeForGas packs the operation with its raw byte fields. The result
// is only used to price calldata; it is never hashed.
func EncodeForGas(op *UserOperation) ([]byte, error) {
	return forGasArgs.Pack(
		op.Sender,
		orZero(op.Nonce),
		op.InitCode,
		op.CallData,
		orZero(op.CallGasLimit),
		orZero(op.VerificationGasLimit),
		orZero(op.PreVerificationGas),
		orZero(op.MaxFeePerGas),
		orZero(op.MaxPriorityFeePerGas),
		op.PaymasterAndData,
		op.Signature,
	)
}

// Hash binds the structural hash of op to an entrypoint and chain:
// keccak256(abi.encode(keccak256(pack(op)), entryPoint, chainID)).
func Hash(op Operation, entryPoint common.Address, chainID *big.Int) (common.Hash, error) {
	packed, err := op.PackForSignature()
	if err != nil {
		return common.Hash{}, err
	}

	encoded, err := hashArgs.Pack(crypto.Keccak256Hash(packed), entryPoint, orZero(chainID))
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(encoded), nil
}

// GetUserOpHash is Hash for an untagged operation.
func (op *UserOperation) GetUserOpHash(version EntryPointVersion, entryPoint common.Address, chainID *big.Int) (common.Hash, error) {
	return Hash(NewOperation(op, version), entryPoint, chainID)
}
