package bundler

import (
	"bytes"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/AvaProtocol/aa-keyring/pkg/erc4337/userop"
)

// GasEstimation holds the limits assembled for a UserOperation before it is
// signed.
type GasEstimation struct {
	PreVerificationGas   *big.Int
	VerificationGasLimit *big.Int
	CallGasLimit         *big.Int
}

// GasOverheads are the bundler-side constants the preVerificationGas formula
// is built from.
type GasOverheads struct {
	// Fixed is the per-bundle transaction overhead, split across the bundle.
	Fixed         int64
	PerUserOp     int64
	PerUserOpWord int64
	ZeroByte      int64
	NonZeroByte   int64
	BundleSize    int64
	// SigSize is the length of the placeholder signature priced for unsigned operations.
	SigSize int
}

var DefaultGasOverheads = GasOverheads{
	Fixed:         21000,
	PerUserOp:     18300,
	PerUserOpWord: 4,
	ZeroByte:      4,
	NonZeroByte:   16,
	BundleSize:    1,
	SigSize:       65,
}

// placeholder used for the preVerificationGas field itself when it is unset
var defaultPreVerificationGas = big.NewInt(21000)

// CalcPreVerificationGas prices the calldata of op plus the bundle overheads:
//
//	round(calldataCost + fixed/bundleSize + perUserOp + perUserOpWord*ceil(len/32))
//
// An empty signature is replaced by SigSize bytes of 0x01 so an unsigned
// operation is priced like a signed one. All arithmetic is exact; the only
// rounding is the final one.
func CalcPreVerificationGas(op *userop.UserOperation, ov GasOverheads) (*big.Int, error) {
	if ov.BundleSize <= 0 {
		ov.BundleSize = 1
	}
	if ov.SigSize < 0 {
		ov.SigSize = 0
	}

	p := op.Clone()
	if p.PreVerificationGas == nil {
		p.PreVerificationGas = new(big.Int).Set(defaultPreVerificationGas)
	}
	if len(p.Signature) == 0 {
		p.Signature = bytes.Repeat([]byte{1}, ov.SigSize)
	}

	packed, err := userop.EncodeForGas(p)
	if err != nil {
		return nil, err
	}

	var callDataCost int64
	for _, b := range packed {
		if b == 0 {
			callDataCost += ov.ZeroByte
		} else {
			callDataCost += ov.NonZeroByte
		}
	}
	lengthInWords := int64((len(packed) + 31) / 32)

	total := decimal.NewFromInt(callDataCost).
		Add(decimal.NewFromInt(ov.Fixed).Div(decimal.NewFromInt(ov.BundleSize))).
		Add(decimal.NewFromInt(ov.PerUserOp)).
		Add(decimal.NewFromInt(ov.PerUserOpWord * lengthInWords))

	return total.Round(0).BigInt(), nil
}
