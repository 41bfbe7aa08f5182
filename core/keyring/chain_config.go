package keyring

import (
	"context"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AvaProtocol/aa-keyring/core/chainio/aa"
	"github.com/AvaProtocol/aa-keyring/pkg/caip"
	"github.com/AvaProtocol/aa-keyring/pkg/erc4337/userop"
)

// chainContext is the configuration resolved for the chain the provider is
// connected to.
type chainContext struct {
	chainID    *big.Int
	scope      string
	config     ChainConfig
	entryPoint common.Address
	version    userop.EntryPointVersion
}

// GetConfigs returns every chain override keyed by decimal chain id.
func (k *Keyring) GetConfigs() map[string]ChainConfig {
	state := k.snapshot()
	out := make(map[string]ChainConfig, len(state.Config))
	for id, c := range state.Config {
		out[id] = c
	}
	return out
}

func (k *Keyring) GetChainConfig(chainID uint64) (ChainConfig, bool) {
	c, ok := k.snapshot().Config[strconv.FormatUint(chainID, 10)]
	return c, ok
}

// SetConfig merges patch into the override of the active chain and returns
// the merged record.
func (k *Keyring) SetConfig(ctx context.Context, patch ChainConfig) (ChainConfig, error) {
	chainID, err := k.activeChainID(ctx)
	if err != nil {
		return ChainConfig{}, err
	}
	return k.SetChainConfig(ctx, chainID.Uint64(), patch)
}

// SetChainConfig validates patch and merges its non-empty fields over the
// override stored for chainID. A failed validation leaves the state untouched.
func (k *Keyring) SetChainConfig(ctx context.Context, chainID uint64, patch ChainConfig) (ChainConfig, error) {
	if err := k.validate.Struct(patch); err != nil {
		return ChainConfig{}, wrapError(KindInvalidConfig, err, "invalid chain config")
	}

	key := strconv.FormatUint(chainID, 10)
	var merged ChainConfig
	err := k.commit(ctx, func(next *State) ([]pendingEvent, error) {
		merged = next.Config[key].merge(patch)
		next.Config[key] = merged
		return nil, nil
	})
	if err != nil {
		return ChainConfig{}, err
	}

	k.logger.Info("chain config updated", "chain_id", chainID)
	return merged, nil
}

// IsSupportedChain is true for chains with compiled defaults or an override.
func (k *Keyring) IsSupportedChain(chainID uint64) bool {
	return isSupportedChain(k.snapshot(), chainID)
}

func isSupportedChain(state *State, chainID uint64) bool {
	if aa.IsDefaultChain(chainID) {
		return true
	}
	_, ok := state.Config[strconv.FormatUint(chainID, 10)]
	return ok
}

func (k *Keyring) activeChainID(ctx context.Context) (*big.Int, error) {
	chainID, err := k.provider.ChainID(ctx)
	if err != nil {
		return nil, wrapError(KindInternal, err, "cannot read network chain id")
	}
	if !chainID.IsUint64() {
		return nil, newError(KindUnsupportedChain, "unsupported chain id %s", chainID)
	}
	return chainID, nil
}

// resolveChain looks up the entrypoint of the active chain. The entrypoint
// version comes from the override, then from the well known entrypoint
// addresses, then from the default table, and falls back to v0.7.
func (k *Keyring) resolveChain(ctx context.Context) (*chainContext, error) {
	chainID, err := k.activeChainID(ctx)
	if err != nil {
		return nil, err
	}

	id := chainID.Uint64()
	state := k.snapshot()
	if !isSupportedChain(state, id) {
		return nil, newError(KindUnsupportedChain, "unsupported chain id %d", id)
	}

	cc := &chainContext{
		chainID: chainID,
		scope:   caip.EVM(id),
		config:  state.Config[chainID.String()],
	}

	defaults, hasDefaults := aa.DefaultEntryPoints[id]
	switch {
	case cc.config.EntryPoint != "":
		cc.entryPoint = common.HexToAddress(cc.config.EntryPoint)
	case hasDefaults:
		cc.entryPoint = defaults.Address
	default:
		return nil, newError(KindMissingConfig, "%s %d", EntryPointMissingError, id)
	}

	switch {
	case cc.config.EntryPointVersion != "":
		cc.version = userop.ParseEntryPointVersion(cc.config.EntryPointVersion)
	case cc.entryPoint == aa.EntryPointV06Address:
		cc.version = userop.EntryPointV06
	case cc.entryPoint == aa.EntryPointV07Address:
		cc.version = userop.EntryPointV07
	case hasDefaults:
		cc.version = defaults.Version
	default:
		cc.version = userop.EntryPointV07
	}

	return cc, nil
}

func (cc *chainContext) factoryAddress() (common.Address, error) {
	if cc.config.SimpleAccountFactory != "" {
		return common.HexToAddress(cc.config.SimpleAccountFactory), nil
	}

	id := cc.chainID.Uint64()
	if addr, ok := aa.DefaultFactories[cc.version][id]; ok {
		return addr, nil
	}
	return common.Address{}, newError(KindMissingConfig, "%s %d and entrypoint version %s", FactoryMissingError, id, cc.version)
}

func (cc *chainContext) verifyingPaymaster() *common.Address {
	if cc.config.CustomVerifyingPaymasterAddress == "" {
		return nil
	}
	addr := common.HexToAddress(cc.config.CustomVerifyingPaymasterAddress)
	return &addr
}
