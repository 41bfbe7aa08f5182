package keyring

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AvaProtocol/aa-keyring/core/chainio/signer"
	"github.com/AvaProtocol/aa-keyring/pkg/erc4337/userop"
)

// PaymasterMode selects how paymasterAndData is filled for operations the
// keyring assembles itself.
type PaymasterMode string

const (
	PaymasterNone PaymasterMode = "none"
	// PaymasterFlatFeeToken pays gas in an ERC-20 token at a flat rate.
	PaymasterFlatFeeToken PaymasterMode = "alt_fee"
)

// PaymasterRequest picks the paymaster of a combined prepare-and-sign call.
// Paymaster and Token are raw bytes so an unset "0x" value is accepted.
type PaymasterRequest struct {
	Mode      PaymasterMode
	Paymaster []byte
	Token     []byte
}

// paymasterAndData builds the static paymaster field for req.
func paymasterAndData(req PaymasterRequest) ([]byte, error) {
	switch req.Mode {
	case "", PaymasterNone:
		return []byte{}, nil
	case PaymasterFlatFeeToken:
		return FlatFeePaymasterAndData(req.Paymaster, req.Token)
	default:
		return nil, newError(KindInvalidArgument, "%s: unknown paymaster type %q", InvalidPaymasterRequestError, req.Mode)
	}
}

// FlatFeePaymasterAndData is paymaster followed by token left padded to 20
// bytes.
func FlatFeePaymasterAndData(paymaster, token []byte) ([]byte, error) {
	if len(paymaster) != 0 && len(paymaster) != common.AddressLength {
		return nil, newError(KindInvalidArgument, "%s: paymaster must be an address", InvalidPaymasterRequestError)
	}
	if len(token) > common.AddressLength {
		return nil, newError(KindInvalidArgument, "%s: token must be an address", InvalidPaymasterRequestError)
	}

	out := make([]byte, 0, len(paymaster)+common.AddressLength)
	out = append(out, paymaster...)
	out = append(out, common.LeftPadBytes(token, common.AddressLength)...)
	return out, nil
}

// verifyingPaymasterAndData asks the chain's verifying paymaster to sponsor op
// without expiry. The stamp is signed by the configured paymaster key, or by
// the wallet admin when none is set. Chains without a verifying paymaster get
// an empty field.
func (k *Keyring) verifyingPaymasterAndData(ctx context.Context, cc *chainContext, wallet *Wallet, op *userop.UserOperation) ([]byte, error) {
	address := cc.verifyingPaymaster()
	if address == nil {
		return []byte{}, nil
	}

	pm, err := k.contracts.VerifyingPaymaster(*address)
	if err != nil {
		return nil, wrapError(KindInternal, err, "cannot bind verifying paymaster")
	}

	const validUntil, validAfter = 0, 0
	hash, err := pm.GetHash(ctx, op, validUntil, validAfter)
	if err != nil {
		return nil, wrapError(KindInternal, err, "cannot get paymaster hash")
	}

	key := cc.config.CustomVerifyingPaymasterSK
	if key == "" {
		key = wallet.PrivateKey
	}
	pmSigner, err := signer.FromPrivateKeyHex(key)
	if err != nil {
		return nil, sensitiveError()
	}
	signature, err := pmSigner.SignMessage(hash.Bytes())
	if err != nil {
		return nil, sensitiveError()
	}

	window, err := userop.PackValidityWindow(validUntil, validAfter)
	if err != nil {
		return nil, wrapError(KindInternal, err, "cannot pack validity window")
	}

	out := make([]byte, 0, common.AddressLength+len(window)+len(signature))
	out = append(out, pm.Address().Bytes()...)
	out = append(out, window...)
	out = append(out, signature...)
	return out, nil
}
