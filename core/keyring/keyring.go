// Package keyring manages ERC-4337 smart wallets and builds, patches and signs
// UserOperations on their behalf.
package keyring

import (
	"context"
	"errors"
	"sync"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	"github.com/go-playground/validator/v10"

	"github.com/AvaProtocol/aa-keyring/core/chainio/signer"
	"github.com/AvaProtocol/aa-keyring/pkg/erc4337/bundler"
	"github.com/AvaProtocol/aa-keyring/pkg/logger"
)

type Config struct {
	Provider  Provider
	Contracts Contracts
	Store     StateStore

	// Optional collaborators
	Emitter Emitter
	Metrics Metrics
	Fees    FeeSource
	Logger  sdklogging.Logger

	GasOverheads *bundler.GasOverheads

	// StrictDelete makes deleting an unknown account fail with NotFound
	// instead of emitting the deletion event anyway.
	StrictDelete bool
	// RequirePrivateKey disables key generation on create.
	RequirePrivateKey bool
}

type Keyring struct {
	provider  Provider
	contracts Contracts
	store     StateStore
	emitter   Emitter
	metrics   Metrics
	fees      FeeSource
	logger    sdklogging.Logger
	overheads bundler.GasOverheads
	validate  *validator.Validate

	strictDelete      bool
	requirePrivateKey bool

	// mu guards state. state is replaced, never modified in place, so a
	// pointer read under RLock is a consistent snapshot.
	mu    sync.RWMutex
	state *State

	walletLocksMu sync.Mutex
	walletLocks   map[string]*walletLock
}

// pendingEvent is a host notification sent before the state it describes is
// persisted.
type pendingEvent struct {
	kind    EventKind
	payload map[string]interface{}
}

func New(c *Config) (*Keyring, error) {
	if c.Provider == nil || c.Contracts == nil || c.Store == nil {
		return nil, errors.New("keyring requires a provider, contracts and a state store")
	}

	state, err := c.Store.Load()
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = NewState()
	}

	k := &Keyring{
		provider:          c.Provider,
		contracts:         c.Contracts,
		store:             c.Store,
		emitter:           c.Emitter,
		metrics:           c.Metrics,
		fees:              c.Fees,
		logger:            logger.EnsureLogger(c.Logger),
		overheads:         bundler.DefaultGasOverheads,
		validate:          newValidator(),
		strictDelete:      c.StrictDelete,
		requirePrivateKey: c.RequirePrivateKey,
		state:             state,
		walletLocks:       map[string]*walletLock{},
	}
	if k.emitter == nil {
		k.emitter = noopEmitter{}
	}
	if k.metrics == nil {
		k.metrics = noopMetrics{}
	}
	if k.fees == nil {
		k.fees = DefaultFees()
	}
	if c.GasOverheads != nil {
		k.overheads = *c.GasOverheads
	}

	k.logger.Info("keyring loaded", "wallets", len(state.Wallets), "chain_configs", len(state.Config))
	return k, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("privkey", func(fl validator.FieldLevel) bool {
		_, err := signer.FromPrivateKeyHex(fl.Field().String())
		return err == nil
	})
	return v
}

// snapshot returns the current state. Callers must not modify it.
func (k *Keyring) snapshot() *State {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.state
}

// commit applies mutate to a copy of the state, notifies the host and
// persists the copy. The live state only changes when all of that succeeds.
func (k *Keyring) commit(ctx context.Context, mutate func(next *State) ([]pendingEvent, error)) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	next := k.state.clone()
	events, err := mutate(next)
	if err != nil {
		return err
	}

	for _, e := range events {
		if err := k.emitter.Emit(ctx, e.kind, e.payload); err != nil {
			return wrapError(KindInternal, err, "cannot send %s", e.kind)
		}
		k.metrics.IncAccountEvent(string(e.kind))
	}

	if err := k.store.Save(next); err != nil {
		k.logger.Error("cannot persist keyring state", "error", err)
		return wrapError(KindInternal, err, StorageWriteError)
	}

	k.state = next
	return nil
}

type walletLock struct {
	mu   sync.Mutex
	refs int
}

// lockWallet serializes pipeline runs for one wallet. The entry is dropped
// once nobody holds or waits for it.
func (k *Keyring) lockWallet(id string) func() {
	k.walletLocksMu.Lock()
	l, ok := k.walletLocks[id]
	if !ok {
		l = &walletLock{}
		k.walletLocks[id] = l
	}
	l.refs++
	k.walletLocksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		k.walletLocksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.walletLocks, id)
		}
		k.walletLocksMu.Unlock()
	}
}
