package userop

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// DummySignature is a well formed 65 byte ECDSA signature used as a
// placeholder while a bundler simulates an unsigned operation.
var DummySignature = hexutil.MustDecode("0xfffffffffffffffffffffffffffffff0000000000000000000000000000000007aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa1c")

var (
	uint48T, _ = abi.NewType("uint48", "", nil)

	validityWindowArgs = abi.Arguments{{Type: uint48T}, {Type: uint48T}}
)

// PackValidityWindow is abi.encode(uint48 validUntil, uint48 validAfter), the
// stamp a verifying paymaster expects right after its address.
func PackValidityWindow(validUntil, validAfter uint64) ([]byte, error) {
	return validityWindowArgs.Pack(
		new(big.Int).SetUint64(validUntil),
		new(big.Int).SetUint64(validAfter),
	)
}

// DummyPaymasterAndData is the placeholder for a verifying paymaster at
// paymaster: address, an unbounded validity window and the dummy signature.
// It is empty when no paymaster is configured.
func DummyPaymasterAndData(paymaster *common.Address) []byte {
	if paymaster == nil {
		return []byte{}
	}

	window, err := PackValidityWindow(0, 0)
	if err != nil {
		// two zero uint48s always pack
		panic(err)
	}

	out := make([]byte, 0, common.AddressLength+len(window)+len(DummySignature))
	out = append(out, paymaster.Bytes()...)
	out = append(out, window...)
	out = append(out, DummySignature...)
	return out
}
