package keyring

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"github.com/AvaProtocol/aa-keyring/core/chainio/signer"
	"github.com/AvaProtocol/aa-keyring/pkg/erc4337/bundler"
	"github.com/AvaProtocol/aa-keyring/pkg/erc4337/userop"
	"github.com/AvaProtocol/aa-keyring/pkg/logger"
)

// verificationGasBase is added to the deployment estimate to get the
// verification gas limit. Account validation itself is not simulated.
var verificationGasBase = big.NewInt(100_000)

// operationContext is everything a pipeline run needs about one wallet on the
// active chain.
type operationContext struct {
	wallet  *Wallet
	chain   *chainContext
	account SmartAccount
	sender  common.Address
}

func (k *Keyring) loadOperationContext(ctx context.Context, accountID string) (*operationContext, error) {
	wallet, err := k.GetWallet(accountID)
	if err != nil {
		return nil, err
	}

	cc, err := k.resolveChain(ctx)
	if err != nil {
		return nil, err
	}

	sender := common.HexToAddress(wallet.Account.Address)
	account, err := k.contracts.Account(sender)
	if err != nil {
		return nil, wrapError(KindInternal, err, "cannot bind smart account")
	}

	return &operationContext{wallet: wallet, chain: cc, account: account, sender: sender}, nil
}

func singleTransaction(txs []Transaction) (Transaction, error) {
	if len(txs) != 1 {
		return Transaction{}, newError(KindInvalidArgument, "%s, got %d", SingleTransactionError, len(txs))
	}
	return txs[0], nil
}

// resolveNonce reads the on-chain nonce. An account that cannot answer is not
// deployed yet: its nonce is zero and the stored initCode goes along with the
// operation. A successful read marks the chain as seen on the wallet.
func (k *Keyring) resolveNonce(ctx context.Context, oc *operationContext) (*big.Int, []byte, error) {
	nonce, err := oc.account.GetNonce(ctx)
	if err != nil {
		k.logger.Debug("account nonce unavailable, attaching init code", "account", oc.wallet.Account.Address, "error", err)

		initCode := []byte{}
		if oc.wallet.InitCode != "" {
			if initCode, err = hexutil.Decode(oc.wallet.InitCode); err != nil {
				return nil, nil, wrapError(KindInternal, err, "corrupted init code for %s", oc.wallet.Account.ID)
			}
		}
		return big.NewInt(0), initCode, nil
	}

	if err := k.markChainSeen(ctx, oc.wallet.Account.ID, oc.chain.scope); err != nil {
		return nil, nil, err
	}
	return nonce, []byte{}, nil
}

// executeCallData wraps tx in the account's execute call. A missing target is
// the zero address, a missing value is zero and missing data is a zero word.
func executeCallData(account SmartAccount, tx Transaction) ([]byte, error) {
	to := common.Address{}
	if tx.To != nil {
		to = *tx.To
	}
	value := tx.Value
	if value == nil {
		value = big.NewInt(0)
	}
	data := tx.Data
	if data == nil {
		data = common.Hash{}.Bytes()
	}

	callData, err := account.PackExecute(to, value, data)
	if err != nil {
		return nil, newError(KindInvalidArgument, "%s: %v", InvalidTransactionError, err)
	}
	return callData, nil
}

// PrepareUserOperation builds the unsigned part of an operation executing the
// single transaction in txs. Gas and fees are left to the caller, who gets
// placeholders to negotiate them with the bundler.
func (k *Keyring) PrepareUserOperation(ctx context.Context, accountID string, txs []Transaction) (*userop.PreparedOperation, error) {
	tx, err := singleTransaction(txs)
	if err != nil {
		return nil, err
	}

	defer k.lockWallet(accountID)()

	oc, err := k.loadOperationContext(ctx, accountID)
	if err != nil {
		return nil, err
	}

	nonce, initCode, err := k.resolveNonce(ctx, oc)
	if err != nil {
		return nil, err
	}

	if oc.chain.config.BundlerURL == "" {
		return nil, newError(KindMissingConfig, "%s %s", BundlerURLMissingError, oc.chain.chainID)
	}

	callData, err := executeCallData(oc.account, tx)
	if err != nil {
		return nil, err
	}

	return &userop.PreparedOperation{
		Nonce:                 nonce,
		InitCode:              initCode,
		CallData:              callData,
		DummySignature:        append([]byte(nil), userop.DummySignature...),
		DummyPaymasterAndData: userop.DummyPaymasterAndData(oc.chain.verifyingPaymaster()),
		BundlerURL:            oc.chain.config.BundlerURL,
	}, nil
}

// estimateGas simulates the execute call from the entrypoint for the call gas
// limit, and the factory call for the deployment part of the verification gas
// limit. preVerificationGas is filled in later from the assembled operation.
func (k *Keyring) estimateGas(ctx context.Context, oc *operationContext, initCode, callData []byte) (*bundler.GasEstimation, error) {
	callGas, err := k.provider.EstimateGas(ctx, ethereum.CallMsg{
		From: oc.chain.entryPoint,
		To:   &oc.sender,
		Data: callData,
	})
	if err != nil {
		return nil, wrapError(KindInternal, err, "cannot estimate call gas")
	}

	var deployGas uint64
	if len(initCode) >= common.AddressLength {
		factory := common.BytesToAddress(initCode[:common.AddressLength])
		deployGas, err = k.provider.EstimateGas(ctx, ethereum.CallMsg{
			To:   &factory,
			Data: initCode[common.AddressLength:],
		})
		if err != nil {
			return nil, wrapError(KindInternal, err, "cannot estimate deployment gas")
		}
	}

	return &bundler.GasEstimation{
		CallGasLimit:         new(big.Int).SetUint64(callGas),
		VerificationGasLimit: new(big.Int).Add(verificationGasBase, new(big.Int).SetUint64(deployGas)),
	}, nil
}

// PrepareAndSignUserOperation assembles, prices and signs an operation
// executing the single transaction in txs, with paymasterAndData chosen by pm.
func (k *Keyring) PrepareAndSignUserOperation(ctx context.Context, accountID string, txs []Transaction, pm PaymasterRequest) (*userop.UserOperation, error) {
	tx, err := singleTransaction(txs)
	if err != nil {
		return nil, err
	}
	paymasterData, err := paymasterAndData(pm)
	if err != nil {
		return nil, err
	}

	defer k.lockWallet(accountID)()

	oc, err := k.loadOperationContext(ctx, accountID)
	if err != nil {
		return nil, err
	}

	nonce, initCode, err := k.resolveNonce(ctx, oc)
	if err != nil {
		return nil, err
	}

	callData, err := executeCallData(oc.account, tx)
	if err != nil {
		return nil, err
	}

	gas, err := k.estimateGas(ctx, oc, initCode, callData)
	if err != nil {
		return nil, err
	}

	maxFee, priorityFee, err := k.fees.SuggestFee(ctx)
	if err != nil {
		return nil, wrapError(KindInternal, err, "cannot price operation")
	}

	op := &userop.UserOperation{
		Sender:               oc.sender,
		Nonce:                nonce,
		InitCode:             initCode,
		CallData:             callData,
		CallGasLimit:         gas.CallGasLimit,
		VerificationGasLimit: gas.VerificationGasLimit,
		MaxFeePerGas:         maxFee,
		MaxPriorityFeePerGas: priorityFee,
		PaymasterAndData:     paymasterData,
	}

	gas.PreVerificationGas, err = bundler.CalcPreVerificationGas(op, k.overheads)
	if err != nil {
		return nil, wrapError(KindInternal, err, "cannot compute preVerificationGas")
	}
	op.PreVerificationGas = gas.PreVerificationGas
	op.Signature = append([]byte(nil), userop.DummySignature...)

	k.logger.Debug("assembled user operation",
		"account", oc.wallet.Account.Address,
		"nonce", op.Nonce,
		"call_gas", gas.CallGasLimit,
		"verification_gas", gas.VerificationGasLimit,
		"pre_verification_gas", gas.PreVerificationGas,
		"max_fee_gwei", decimal.NewFromBigInt(maxFee, -9).String(),
		"paymaster", logger.Preview(hexutil.Encode(op.PaymasterAndData), 42),
	)

	signature, err := k.signOperation(oc, op)
	if err != nil {
		return nil, err
	}
	op.Signature = signature
	return op, nil
}

// PatchUserOperation returns the verifying paymaster stamp for an operation
// the caller already assembled.
func (k *Keyring) PatchUserOperation(ctx context.Context, accountID string, op *userop.UserOperation) (*userop.Patch, error) {
	if op == nil {
		return nil, newError(KindInvalidArgument, InvalidUserOperationError)
	}

	defer k.lockWallet(accountID)()

	wallet, err := k.GetWallet(accountID)
	if err != nil {
		return nil, err
	}
	cc, err := k.resolveChain(ctx)
	if err != nil {
		return nil, err
	}

	data, err := k.verifyingPaymasterAndData(ctx, cc, wallet, op)
	if err != nil {
		return nil, err
	}
	return &userop.Patch{PaymasterAndData: data}, nil
}

// SignUserOperation signs op, with any signature it carries cleared, against
// the entrypoint of the active chain.
func (k *Keyring) SignUserOperation(ctx context.Context, accountID string, op *userop.UserOperation) (hexutil.Bytes, error) {
	if op == nil {
		return nil, newError(KindInvalidArgument, InvalidUserOperationError)
	}

	defer k.lockWallet(accountID)()

	oc, err := k.loadOperationContext(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return k.signOperation(oc, op)
}

func (k *Keyring) signOperation(oc *operationContext, op *userop.UserOperation) (hexutil.Bytes, error) {
	unsigned := op.Clone()
	unsigned.Signature = []byte{}

	hash, err := userop.Hash(userop.NewOperation(unsigned, oc.chain.version), oc.chain.entryPoint, oc.chain.chainID)
	if err != nil {
		return nil, newError(KindInvalidArgument, "%s: %v", InvalidUserOperationError, err)
	}

	admin, err := signer.FromPrivateKeyHex(oc.wallet.PrivateKey)
	if err != nil {
		return nil, sensitiveError()
	}
	signature, err := admin.SignMessage(hash.Bytes())
	if err != nil {
		return nil, sensitiveError()
	}

	k.metrics.IncOperationSigned(string(oc.chain.version))
	k.logger.Info("signed user operation",
		"account", oc.wallet.Account.Address,
		"hash", hash.Hex(),
		"entrypoint", oc.chain.entryPoint.Hex(),
		"version", oc.chain.version,
		"chain_id", oc.chain.chainID,
	)
	return signature, nil
}
