package keyring

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/mitchellh/mapstructure"

	"github.com/AvaProtocol/aa-keyring/pkg/caip"
	"github.com/AvaProtocol/aa-keyring/pkg/erc4337/userop"
)

// Submit routes a request to its handler. Configuration methods act on the
// active chain without account checks. Every other method must target an
// existing account, on the chain the provider is connected to, that the
// account has registered.
func (k *Keyring) Submit(ctx context.Context, req *Request) (*Response, error) {
	method := req.Request.Method
	result, err := k.submit(ctx, req)

	status := "ok"
	if err != nil {
		status = string(KindOf(err))
		k.logger.Warn("request failed", "method", method, "account", req.Account, "scope", req.Scope, "error", err)
	}
	k.metrics.IncRequest(method, status)

	if err != nil {
		return nil, err
	}
	return &Response{Pending: false, Result: result}, nil
}

func (k *Keyring) submit(ctx context.Context, req *Request) (interface{}, error) {
	params := req.Request.Params

	switch req.Request.Method {
	case MethodGetConfigs:
		return k.GetConfigs(), nil
	case MethodSetConfig:
		var configs []ChainConfig
		if err := decodeParams(params, &configs); err != nil || len(configs) == 0 {
			return nil, newError(KindInvalidConfig, "expected a chain config parameter")
		}
		return k.SetConfig(ctx, configs[0])
	}

	wallet, err := k.GetWallet(req.Account)
	if err != nil {
		return nil, err
	}
	if err := k.checkScope(ctx, wallet, req.Scope); err != nil {
		return nil, err
	}

	switch req.Request.Method {
	case MethodPrepareUserOperation:
		var txs []Transaction
		if err := decodeParams(params, &txs); err != nil {
			return nil, wrapError(KindInvalidArgument, err, InvalidTransactionError)
		}
		return k.PrepareUserOperation(ctx, wallet.Account.ID, txs)

	case MethodSendUserOpBoba:
		var txs []Transaction
		if err := decodeParams(params, &txs); err != nil {
			return nil, wrapError(KindInvalidArgument, err, InvalidTransactionError)
		}
		return k.PrepareAndSignUserOperation(ctx, wallet.Account.ID, txs, PaymasterRequest{Mode: PaymasterNone})

	case MethodSendUserOpBobaPM:
		txs, pm, err := decodeFlatFeeParams(params)
		if err != nil {
			return nil, err
		}
		return k.PrepareAndSignUserOperation(ctx, wallet.Account.ID, txs, pm)

	case MethodPatchUserOperation:
		op, err := decodeUserOperation(params)
		if err != nil {
			return nil, err
		}
		return k.PatchUserOperation(ctx, wallet.Account.ID, op)

	case MethodSignUserOperation:
		op, err := decodeUserOperation(params)
		if err != nil {
			return nil, err
		}
		return k.SignUserOperation(ctx, wallet.Account.ID, op)

	default:
		return nil, newError(KindUnsupportedMethod, "EVM method %q not supported", req.Request.Method)
	}
}

// checkScope runs the chain checks of a signing request, in order: the scope
// names the active network, the network is supported, the account knows it.
func (k *Keyring) checkScope(ctx context.Context, wallet *Wallet, scope string) error {
	chainID, err := k.activeChainID(ctx)
	if err != nil {
		return err
	}

	parsed, err := caip.Parse(scope)
	if err != nil {
		return wrapError(KindScopeMismatch, err, "cannot parse request scope %q", scope)
	}
	if parsed.Namespace != caip.NamespaceEIP155 || parsed.Reference != chainID.String() {
		return newError(KindScopeMismatch, "chain id %s mismatch with scope %q", chainID, scope)
	}

	if !k.IsSupportedChain(chainID.Uint64()) {
		return newError(KindUnsupportedChain, "unsupported chain id %s", chainID)
	}
	if _, ok := wallet.Chains[scope]; !ok {
		return newError(KindAccountChainUnsupported, "account does not support chain %s", scope)
	}
	return nil
}

// flatFeeParams is the object form of the fee token variant. The plain list
// form uses an unset paymaster and token.
type flatFeeParams struct {
	Transactions     []Transaction `mapstructure:"transactions"`
	PaymasterAddress []byte        `mapstructure:"paymasterAddress"`
	TokenAddress     []byte        `mapstructure:"tokenAddress"`
}

func decodeFlatFeeParams(params interface{}) ([]Transaction, PaymasterRequest, error) {
	pm := PaymasterRequest{Mode: PaymasterFlatFeeToken}

	if params != nil && reflect.Indirect(reflect.ValueOf(params)).Kind() == reflect.Map {
		var p flatFeeParams
		if err := decodeParams(params, &p); err != nil {
			return nil, pm, wrapError(KindInvalidArgument, err, InvalidPaymasterRequestError)
		}
		pm.Paymaster = p.PaymasterAddress
		pm.Token = p.TokenAddress
		return p.Transactions, pm, nil
	}

	var txs []Transaction
	if err := decodeParams(params, &txs); err != nil {
		return nil, pm, wrapError(KindInvalidArgument, err, InvalidTransactionError)
	}
	return txs, pm, nil
}

// decodeUserOperation takes the first element of params through the JSON
// wire form so hex and decimal quantities are accepted alike.
func decodeUserOperation(params interface{}) (*userop.UserOperation, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, wrapError(KindInvalidArgument, err, InvalidUserOperationError)
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil || len(list) == 0 {
		return nil, newError(KindInvalidArgument, "%s: expected [userOp]", InvalidUserOperationError)
	}

	var op userop.UserOperation
	if err := json.Unmarshal(list[0], &op); err != nil {
		return nil, wrapError(KindInvalidArgument, err, InvalidUserOperationError)
	}
	return &op, nil
}

// decodeParams decodes loosely typed request params into out. Addresses,
// quantities and byte strings are accepted in their JSON-RPC string forms.
func decodeParams(params interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			hexToAddressHook,
			quantityToBigHook,
			hexToBytesHook,
		),
		Result: out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(params)
}

var (
	addressType = reflect.TypeOf(common.Address{})
	bigIntType  = reflect.TypeOf(big.Int{})
	bytesType   = reflect.TypeOf([]byte{})
)

func hexToAddressHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != addressType || from.Kind() != reflect.String {
		return data, nil
	}
	s := reflect.ValueOf(data).String()
	if !common.IsHexAddress(s) {
		return nil, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func quantityToBigHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != bigIntType {
		return data, nil
	}

	switch v := data.(type) {
	case string:
		if v == "" || v == "0x" {
			return big.NewInt(0), nil
		}
		n, ok := math.ParseBig256(v)
		if !ok || n.Sign() < 0 {
			return nil, fmt.Errorf("invalid quantity %q", v)
		}
		return n, nil
	case float64:
		n, ok := exactJSONInteger(v)
		if !ok {
			return nil, fmt.Errorf("invalid quantity %v, send integers above 2^53-1 as strings", v)
		}
		return n, nil
	case json.Number:
		n, ok := new(big.Int).SetString(v.String(), 10)
		if !ok || n.Sign() < 0 {
			return nil, fmt.Errorf("invalid quantity %s", v)
		}
		return n, nil
	}
	return data, nil
}

// maxSafeJSONInteger is the largest integer a JSON number decoded into a
// float64 holds exactly.
const maxSafeJSONInteger = 1<<53 - 1

// exactJSONInteger converts v when it is a non-negative integer no larger
// than maxSafeJSONInteger. Anything bigger may already have been rounded.
func exactJSONInteger(v float64) (*big.Int, bool) {
	if v < 0 || v > maxSafeJSONInteger || v != float64(uint64(v)) {
		return nil, false
	}
	return new(big.Int).SetUint64(uint64(v)), true
}

func hexToBytesHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != bytesType || from.Kind() != reflect.String {
		return data, nil
	}
	s := reflect.ValueOf(data).String()
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex data: %w", err)
	}
	return b, nil
}
