package keyring

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/AvaProtocol/aa-keyring/core/chainio/aa"
	"github.com/AvaProtocol/aa-keyring/core/testutil"
	"github.com/AvaProtocol/aa-keyring/pkg/erc4337/userop"
)

var (
	sepolia      = big.NewInt(int64(aa.ChainSepolia))
	sepoliaScope = "eip155:11155111"

	// a paymaster signer distinct from the dev keys
	paymasterKey = "8b3a350cf5c34c9194ca85829a2df0ec3153be0318b5e2d3348e872092edffba"
)

type fakeProvider struct {
	mu       sync.Mutex
	chainID  *big.Int
	code     map[common.Address][]byte
	gas      map[common.Address]uint64
	estimate []ethereum.CallMsg
	err      error
}

func (p *fakeProvider) ChainID(ctx context.Context) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return new(big.Int).Set(p.chainID), nil
}

func (p *fakeProvider) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.code[account], nil
}

func (p *fakeProvider) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.estimate = append(p.estimate, call)
	gas, ok := p.gas[*call.To]
	if !ok {
		return 0, errors.New("execution reverted")
	}
	return gas, nil
}

func (p *fakeProvider) setChain(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chainID = new(big.Int).SetUint64(id)
}

// fakeFactory derives addresses from keccak(factory, owner, salt).
type fakeFactory struct {
	address common.Address
}

func (f *fakeFactory) Address() common.Address { return f.address }

func (f *fakeFactory) GetAddress(ctx context.Context, owner common.Address, salt *big.Int) (common.Address, error) {
	return counterfactual(f.address, owner, salt), nil
}

func (f *fakeFactory) GetInitCode(owner common.Address, salt *big.Int) ([]byte, error) {
	return aa.GetInitCodeForFactory(f.address, owner, salt)
}

func counterfactual(factory, owner common.Address, salt *big.Int) common.Address {
	digest := crypto.Keccak256(factory.Bytes(), owner.Bytes(), common.LeftPadBytes(salt.Bytes(), 32))
	return common.BytesToAddress(digest[12:])
}

type fakeAccount struct {
	nonce *big.Int
}

func (a *fakeAccount) GetNonce(ctx context.Context) (*big.Int, error) {
	if a.nonce == nil {
		return nil, errors.New("no contract code at given address")
	}
	return new(big.Int).Set(a.nonce), nil
}

func (a *fakeAccount) PackExecute(target common.Address, value *big.Int, calldata []byte) ([]byte, error) {
	return aa.PackExecute(target, value, calldata)
}

type fakePaymaster struct {
	address common.Address
	hash    common.Hash
	seen    *userop.UserOperation
}

func (p *fakePaymaster) Address() common.Address { return p.address }

func (p *fakePaymaster) GetHash(ctx context.Context, op *userop.UserOperation, validUntil, validAfter uint64) (common.Hash, error) {
	p.seen = op
	return p.hash, nil
}

type fakeContracts struct {
	mu         sync.Mutex
	factories  map[common.Address]*fakeFactory
	accounts   map[common.Address]*fakeAccount
	paymasters map[common.Address]*fakePaymaster
}

func newFakeContracts() *fakeContracts {
	return &fakeContracts{
		factories:  map[common.Address]*fakeFactory{},
		accounts:   map[common.Address]*fakeAccount{},
		paymasters: map[common.Address]*fakePaymaster{},
	}
}

func (c *fakeContracts) Factory(address common.Address) (Factory, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.factories[address]
	if !ok {
		f = &fakeFactory{address: address}
		c.factories[address] = f
	}
	return f, nil
}

func (c *fakeContracts) Account(address common.Address) (SmartAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.accounts[address]
	if !ok {
		a = &fakeAccount{}
		c.accounts[address] = a
	}
	return a, nil
}

func (c *fakeContracts) VerifyingPaymaster(address common.Address) (VerifyingPaymaster, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.paymasters[address]
	if !ok {
		p = &fakePaymaster{address: address, hash: crypto.Keccak256Hash(address.Bytes())}
		c.paymasters[address] = p
	}
	return p, nil
}

func (c *fakeContracts) deploy(address string, nonce int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[common.HexToAddress(address)] = &fakeAccount{nonce: big.NewInt(nonce)}
}

type fakeStore struct {
	MemoryStateStore
	saves   int
	failing bool
}

func (s *fakeStore) Save(state *State) error {
	if s.failing {
		return errors.New("disk full")
	}
	s.saves++
	return s.MemoryStateStore.Save(state)
}

type emitted struct {
	kind    EventKind
	payload map[string]interface{}
}

type fakeEmitter struct {
	events []emitted
	err    error
}

func (e *fakeEmitter) Emit(ctx context.Context, event EventKind, payload map[string]interface{}) error {
	if e.err != nil {
		return e.err
	}
	e.events = append(e.events, emitted{kind: event, payload: payload})
	return nil
}

type fakeMetrics struct {
	mu       sync.Mutex
	requests map[string]int
	signed   int
}

func (m *fakeMetrics) IncRequest(method, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.requests == nil {
		m.requests = map[string]int{}
	}
	m.requests[method+":"+status]++
}

func (m *fakeMetrics) IncAccountEvent(event string) {}

func (m *fakeMetrics) IncOperationSigned(entryPointVersion string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signed++
}

type testEnv struct {
	provider  *fakeProvider
	contracts *fakeContracts
	store     *fakeStore
	emitter   *fakeEmitter
	metrics   *fakeMetrics
}

func newTestEnv() *testEnv {
	return &testEnv{
		provider: &fakeProvider{
			chainID: new(big.Int).Set(sepolia),
			code:    map[common.Address][]byte{},
			gas:     map[common.Address]uint64{},
		},
		contracts: newFakeContracts(),
		store:     &fakeStore{},
		emitter:   &fakeEmitter{},
		metrics:   &fakeMetrics{},
	}
}

func (env *testEnv) config() *Config {
	return &Config{
		Provider:  env.provider,
		Contracts: env.contracts,
		Store:     env.store,
		Emitter:   env.emitter,
		Metrics:   env.metrics,
		Logger:    testutil.GetLogger(),
	}
}

func newTestKeyring(t *testing.T) (*Keyring, *testEnv) {
	t.Helper()
	env := newTestEnv()
	k, err := New(env.config())
	require.NoError(t, err)
	return k, env
}

// createDevAccount creates the account of dev key 1 with salt 1 on sepolia.
func createDevAccount(t *testing.T, k *Keyring) Account {
	t.Helper()
	account, err := k.CreateAccount(context.Background(), map[string]interface{}{
		"privateKey": testutil.DevKey1,
		"salt":       "0x1",
	})
	require.NoError(t, err)
	return account
}
