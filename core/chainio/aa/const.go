package aa

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/AvaProtocol/aa-keyring/pkg/erc4337/userop"
)

// Chain ids with compiled-in entrypoint and factory defaults.
const (
	ChainEthereum    uint64 = 1
	ChainSepolia     uint64 = 11155111
	ChainBoba        uint64 = 288
	ChainBobaSepolia uint64 = 28882
	ChainBNBTestnet  uint64 = 97
	ChainBase        uint64 = 8453
	ChainBaseSepolia uint64 = 84532
)

var (
	EntryPointV06Address = common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789")
	EntryPointV07Address = common.HexToAddress("0x0000000071727De22E5E9d8BAf0edAc6f37da032")

	FactoryV06Address = common.HexToAddress("0x9406Cc6185a346906296840746125a0E44976454")
	FactoryV07Address = common.HexToAddress("0x91E60e0613810449d098b0b5Ec8b51A0FE8c8985")
)

// EntryPoint is an entrypoint deployment and the UserOperation layout it hashes.
type EntryPoint struct {
	Address common.Address
	Version userop.EntryPointVersion
}

// DefaultEntryPoints is keyed by chain id.
var DefaultEntryPoints = map[uint64]EntryPoint{
	ChainEthereum:    {Address: EntryPointV07Address, Version: userop.EntryPointV07},
	ChainSepolia:     {Address: EntryPointV07Address, Version: userop.EntryPointV07},
	ChainBase:        {Address: EntryPointV07Address, Version: userop.EntryPointV07},
	ChainBaseSepolia: {Address: EntryPointV07Address, Version: userop.EntryPointV07},
	ChainBoba:        {Address: EntryPointV06Address, Version: userop.EntryPointV06},
	ChainBobaSepolia: {Address: EntryPointV06Address, Version: userop.EntryPointV06},
	ChainBNBTestnet:  {Address: EntryPointV06Address, Version: userop.EntryPointV06},
}

// DefaultFactories is keyed by entrypoint version, then chain id.
var DefaultFactories = map[userop.EntryPointVersion]map[uint64]common.Address{
	userop.EntryPointV06: {
		ChainBoba:        FactoryV06Address,
		ChainBobaSepolia: FactoryV06Address,
		ChainBNBTestnet:  FactoryV06Address,
	},
	userop.EntryPointV07: {
		ChainEthereum:    FactoryV07Address,
		ChainSepolia:     FactoryV07Address,
		ChainBase:        FactoryV07Address,
		ChainBaseSepolia: FactoryV07Address,
	},
}

// IsDefaultChain reports whether chainID has compiled-in defaults.
func IsDefaultChain(chainID uint64) bool {
	_, ok := DefaultEntryPoints[chainID]
	return ok
}

// DefaultFactory resolves the factory for a chain through its default
// entrypoint version.
func DefaultFactory(chainID uint64) (common.Address, bool) {
	ep, ok := DefaultEntryPoints[chainID]
	if !ok {
		return common.Address{}, false
	}
	addr, ok := DefaultFactories[ep.Version][chainID]
	return addr, ok
}
