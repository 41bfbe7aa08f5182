package migrations

import (
	"strconv"

	"github.com/AvaProtocol/aa-keyring/core/keyring"
	"github.com/AvaProtocol/aa-keyring/pkg/caip"
	"github.com/AvaProtocol/aa-keyring/storage"
)

// EIP155ChainScopes rewrites chain keys stored as a bare chain id ("11155111")
// to their CAIP-2 form ("eip155:11155111"). When both forms exist the chain
// counts as seen if either says so.
func EIP155ChainScopes(db storage.Storage) (int, error) {
	return rewriteWallets(db, func(w *keyring.Wallet) bool {
		changed := false
		for key, seen := range w.Chains {
			chainID, err := strconv.ParseUint(key, 10, 64)
			if err != nil {
				continue
			}
			scope := caip.EVM(chainID)
			w.Chains[scope] = w.Chains[scope] || seen
			delete(w.Chains, key)
			changed = true
		}
		return changed
	})
}
