package server

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/AvaProtocol/aa-keyring/core/chainio/aa"
	"github.com/AvaProtocol/aa-keyring/core/keyring"
	"github.com/AvaProtocol/aa-keyring/core/testutil"
)

const sepoliaScope = "eip155:11155111"

type stubProvider struct{}

func (stubProvider) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).SetUint64(aa.ChainSepolia), nil
}

func (stubProvider) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return nil, nil
}

func (stubProvider) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return 50000, nil
}

type stubFactory struct {
	address common.Address
}

func (f stubFactory) Address() common.Address { return f.address }

func (f stubFactory) GetAddress(ctx context.Context, owner common.Address, salt *big.Int) (common.Address, error) {
	h := crypto.Keccak256(f.address.Bytes(), owner.Bytes(), common.LeftPadBytes(salt.Bytes(), 32))
	return common.BytesToAddress(h[12:]), nil
}

func (f stubFactory) GetInitCode(owner common.Address, salt *big.Int) ([]byte, error) {
	return aa.GetInitCodeForFactory(f.address, owner, salt)
}

// undeployed accounts have no nonce yet
type stubAccount struct{}

func (stubAccount) GetNonce(ctx context.Context) (*big.Int, error) {
	return nil, errors.New("no contract code at given address")
}

func (stubAccount) PackExecute(target common.Address, value *big.Int, calldata []byte) ([]byte, error) {
	return aa.PackExecute(target, value, calldata)
}

type stubContracts struct{}

func (stubContracts) Factory(address common.Address) (keyring.Factory, error) {
	return stubFactory{address: address}, nil
}

func (stubContracts) Account(address common.Address) (keyring.SmartAccount, error) {
	return stubAccount{}, nil
}

func (stubContracts) VerifyingPaymaster(address common.Address) (keyring.VerifyingPaymaster, error) {
	return nil, errors.New("no paymaster in tests")
}

type testServer struct {
	server  *Server
	keyring *keyring.Keyring
	events  *EventLog
}

func newTestServer(t *testing.T, secret []byte) *testServer {
	t.Helper()

	events := NewEventLog(testutil.GetLogger(), 10)
	k, err := keyring.New(&keyring.Config{
		Provider:  stubProvider{},
		Contracts: stubContracts{},
		Store:     &keyring.MemoryStateStore{},
		Emitter:   events,
		Logger:    testutil.GetLogger(),
	})
	require.NoError(t, err)

	s := New(k, Config{JwtSecret: secret, Logger: testutil.GetLogger(), Events: events})
	return &testServer{server: s, keyring: k, events: events}
}
