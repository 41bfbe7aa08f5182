package keyring

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/AvaProtocol/aa-keyring/core/chainio/aa"
	"github.com/AvaProtocol/aa-keyring/core/testutil"
	"github.com/AvaProtocol/aa-keyring/pkg/erc4337/userop"
)

// jsonParams mimics params decoded from a JSON-RPC body.
func jsonParams(t *testing.T, raw string) interface{} {
	t.Helper()
	var v interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func signRequest(account Account, scope string, params interface{}) *Request {
	return &Request{
		ID:      "1",
		Scope:   scope,
		Account: account.ID,
		Request: RequestMethod{Method: MethodSignUserOperation, Params: params},
	}
}

const opJSON = `[{
	"sender": "%s",
	"nonce": "0x1",
	"initCode": "0x",
	"callData": "0xb61d27f6",
	"callGasLimit": "0x186a0",
	"verificationGasLimit": "200000",
	"preVerificationGas": "0xc350",
	"maxFeePerGas": "0x77359400",
	"maxPriorityFeePerGas": "0x3b9aca00",
	"paymasterAndData": "0x",
	"signature": "0xdeadbeef"
}]`

func TestSubmitSignUserOperation(t *testing.T) {
	k, env := newTestKeyring(t)
	account := createDevAccount(t, k)

	raw := jsonParams(t, fmt.Sprintf(opJSON, account.Address))
	resp, err := k.Submit(context.Background(), signRequest(account, sepoliaScope, raw))
	require.NoError(t, err)
	assert.False(t, resp.Pending)

	sig, ok := resp.Result.(hexutil.Bytes)
	require.True(t, ok)

	op := operationFor(account)
	op.Signature = sig
	assert.Equal(t, common.HexToAddress(testutil.DevAddress1), recoverOperationSigner(t, op, userop.EntryPointV07, aa.EntryPointV07Address, sepolia))
	assert.Equal(t, 1, env.metrics.requests[MethodSignUserOperation+":ok"])

	out, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"pending": false, "result": "`+sig.String()+`"}`, string(out))
}

func TestSubmitScopeMismatchBeforeSigning(t *testing.T) {
	k, env := newTestKeyring(t)
	account := createDevAccount(t, k)
	raw := jsonParams(t, fmt.Sprintf(opJSON, account.Address))

	for _, scope := range []string{"eip155:1", "solana:11155111", "eip155", "", "eip155:11155111:extra"} {
		_, err := k.Submit(context.Background(), signRequest(account, scope, raw))
		assert.ErrorIs(t, err, ErrScopeMismatch, scope)
	}
	assert.Zero(t, env.metrics.signed)
	assert.Equal(t, 5, env.metrics.requests[MethodSignUserOperation+":ScopeMismatch"])
}

func TestSubmitValidationOrder(t *testing.T) {
	k, env := newTestKeyring(t)
	ctx := context.Background()
	account := createDevAccount(t, k)

	// unknown account comes first
	_, err := k.Submit(ctx, &Request{Scope: "eip155:1", Account: "missing", Request: RequestMethod{Method: "eth_nope"}})
	assert.ErrorIs(t, err, ErrNotFound)

	// a chain the keyring does not know
	env.provider.setChain(31337)
	_, err = k.Submit(ctx, signRequest(account, "eip155:31337", nil))
	assert.ErrorIs(t, err, ErrUnsupportedChain)

	// a supported chain the account never registered
	env.provider.setChain(aa.ChainBaseSepolia)
	_, err = k.Submit(ctx, signRequest(account, "eip155:84532", nil))
	assert.ErrorIs(t, err, ErrAccountChainUnsupported)

	// method is checked last
	env.provider.setChain(aa.ChainSepolia)
	_, err = k.Submit(ctx, &Request{Scope: sepoliaScope, Account: account.ID, Request: RequestMethod{Method: "eth_signTransaction"}})
	assert.ErrorIs(t, err, ErrUnsupportedMethod)

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.Unimplemented, st.Code())
}

func TestSubmitPrepareUserOperation(t *testing.T) {
	k, _ := newTestKeyring(t)
	account := createDevAccount(t, k)
	withBundler(t, k)

	params := jsonParams(t, `[{"to": "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", "value": "0x3e8", "data": "0x"}]`)
	resp, err := k.Submit(context.Background(), &Request{
		Scope:   sepoliaScope,
		Account: account.ID,
		Request: RequestMethod{Method: MethodPrepareUserOperation, Params: params},
	})
	require.NoError(t, err)

	prepared, ok := resp.Result.(*userop.PreparedOperation)
	require.True(t, ok)
	want, err := aa.PackExecute(recipient, big.NewInt(1000), []byte{})
	require.NoError(t, err)
	assert.Equal(t, want, prepared.CallData)

	out, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"bundlerUrl":"`+bundlerURL+`"`)
	assert.Contains(t, string(out), `"nonce":"0x0"`)

	// two transactions in one operation
	params = jsonParams(t, `[{"to": "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"}, {"value": 1}]`)
	_, err = k.Submit(context.Background(), &Request{
		Scope:   sepoliaScope,
		Account: account.ID,
		Request: RequestMethod{Method: MethodPrepareUserOperation, Params: params},
	})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	params = jsonParams(t, `[{"to": "not an address"}]`)
	_, err = k.Submit(context.Background(), &Request{
		Scope:   sepoliaScope,
		Account: account.ID,
		Request: RequestMethod{Method: MethodPrepareUserOperation, Params: params},
	})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSubmitPrepareRejectsInexactNumbers(t *testing.T) {
	k, _ := newTestKeyring(t)
	account := createDevAccount(t, k)
	withBundler(t, k)

	prepare := func(value string) (*Response, error) {
		params := jsonParams(t, `[{"to": "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", "value": `+value+`}]`)
		return k.Submit(context.Background(), &Request{
			Scope:   sepoliaScope,
			Account: account.ID,
			Request: RequestMethod{Method: MethodPrepareUserOperation, Params: params},
		})
	}

	// beyond 2^53-1 the JSON number was already rounded by the decoder
	_, err := prepare(`123456789012345678`)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	resp, err := prepare(`9007199254740991`)
	require.NoError(t, err)
	want, err := aa.PackExecute(recipient, big.NewInt(1<<53-1), []byte{})
	require.NoError(t, err)
	assert.Equal(t, want, resp.Result.(*userop.PreparedOperation).CallData)

	// as a string the same value is exact
	resp, err = prepare(`"123456789012345678"`)
	require.NoError(t, err)
	exact, _ := new(big.Int).SetString("123456789012345678", 10)
	want, err = aa.PackExecute(recipient, exact, []byte{})
	require.NoError(t, err)
	assert.Equal(t, want, resp.Result.(*userop.PreparedOperation).CallData)
}

func TestSubmitSendUserOpVariants(t *testing.T) {
	k, env := newTestKeyring(t)
	ctx := context.Background()
	account := createDevAccount(t, k)
	env.contracts.deploy(account.Address, 2)
	env.provider.gas[common.HexToAddress(account.Address)] = 60_000

	txs := `[{"to": "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", "value": 10}]`

	resp, err := k.Submit(ctx, &Request{Scope: sepoliaScope, Account: account.ID, Request: RequestMethod{Method: MethodSendUserOpBoba, Params: jsonParams(t, txs)}})
	require.NoError(t, err)
	op := resp.Result.(*userop.UserOperation)
	assert.Empty(t, op.PaymasterAndData)
	assert.Equal(t, int64(2), op.Nonce.Int64())

	resp, err = k.Submit(ctx, &Request{Scope: sepoliaScope, Account: account.ID, Request: RequestMethod{Method: MethodSendUserOpBobaPM, Params: jsonParams(t, txs)}})
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 20), resp.Result.(*userop.UserOperation).PaymasterAndData)

	resp, err = k.Submit(ctx, &Request{Scope: sepoliaScope, Account: account.ID, Request: RequestMethod{
		Method: MethodSendUserOpBobaPM,
		Params: jsonParams(t, `{
			"transactions": `+txs+`,
			"paymasterAddress": "0x1111111111111111111111111111111111111111",
			"tokenAddress": "0x4200000000000000000000000000000000000023"
		}`),
	}})
	require.NoError(t, err)
	pmd := resp.Result.(*userop.UserOperation).PaymasterAndData
	assert.Equal(t, verifyingPMAddr.Bytes(), pmd[:20])
	assert.Equal(t, common.HexToAddress("0x4200000000000000000000000000000000000023").Bytes(), pmd[20:])
}

func TestSubmitPatchUserOperation(t *testing.T) {
	k, _ := newTestKeyring(t)
	account := createDevAccount(t, k)
	_, err := k.SetChainConfig(context.Background(), aa.ChainSepolia, ChainConfig{CustomVerifyingPaymasterAddress: verifyingPMAddr.Hex()})
	require.NoError(t, err)

	resp, err := k.Submit(context.Background(), &Request{
		Scope:   sepoliaScope,
		Account: account.ID,
		Request: RequestMethod{Method: MethodPatchUserOperation, Params: jsonParams(t, fmt.Sprintf(opJSON, account.Address))},
	})
	require.NoError(t, err)
	patch := resp.Result.(*userop.Patch)
	assert.Len(t, patch.PaymasterAndData, 149)

	_, err = k.Submit(context.Background(), &Request{
		Scope:   sepoliaScope,
		Account: account.ID,
		Request: RequestMethod{Method: MethodPatchUserOperation, Params: jsonParams(t, `[]`)},
	})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSubmitConfigMethods(t *testing.T) {
	k, env := newTestKeyring(t)
	ctx := context.Background()

	// no account or scope checks
	resp, err := k.Submit(ctx, &Request{Request: RequestMethod{
		Method: MethodSetConfig,
		Params: jsonParams(t, `[{"bundlerUrl": "https://bundler.example.com/rpc", "customVerifyingPaymasterAddress": "0x1111111111111111111111111111111111111111"}]`),
	}})
	require.NoError(t, err)
	assert.Equal(t, ChainConfig{
		BundlerURL:                      bundlerURL,
		CustomVerifyingPaymasterAddress: verifyingPMAddr.Hex(),
	}, resp.Result)

	resp, err = k.Submit(ctx, &Request{Request: RequestMethod{Method: MethodGetConfigs}})
	require.NoError(t, err)
	configs := resp.Result.(map[string]ChainConfig)
	require.Len(t, configs, 1)
	assert.Equal(t, bundlerURL, configs["11155111"].BundlerURL)

	saves := env.store.saves
	_, err = k.Submit(ctx, &Request{Request: RequestMethod{
		Method: MethodSetConfig,
		Params: jsonParams(t, `[{"entryPoint": "0x1234"}]`),
	}})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, saves, env.store.saves)

	_, err = k.Submit(ctx, &Request{Request: RequestMethod{Method: MethodSetConfig}})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
