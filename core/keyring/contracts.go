package keyring

import (
	"github.com/allegro/bigcache/v3"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/AvaProtocol/aa-keyring/core/chainio/aa"
)

// ChainContracts binds the aa proxies to a live chain. Factory address
// lookups go through the cache when one is set.
type ChainContracts struct {
	caller bind.ContractCaller
	cache  *bigcache.BigCache
}

func NewChainContracts(caller bind.ContractCaller, cache *bigcache.BigCache) *ChainContracts {
	return &ChainContracts{caller: caller, cache: cache}
}

func (c *ChainContracts) Factory(address common.Address) (Factory, error) {
	f, err := aa.NewFactory(address, c.caller)
	if err != nil {
		return nil, err
	}
	if c.cache == nil {
		return f, nil
	}
	return aa.NewCachedFactory(f, c.cache), nil
}

func (c *ChainContracts) Account(address common.Address) (SmartAccount, error) {
	return aa.NewAccount(address, c.caller)
}

func (c *ChainContracts) VerifyingPaymaster(address common.Address) (VerifyingPaymaster, error) {
	return aa.NewVerifyingPaymaster(address, c.caller)
}
