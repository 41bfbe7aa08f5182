// Package migrations lists the rewrites applied to keyring databases on
// startup.
package migrations

import (
	"encoding/json"
	"fmt"

	"github.com/AvaProtocol/aa-keyring/core/keyring"
	"github.com/AvaProtocol/aa-keyring/core/migrator"
	"github.com/AvaProtocol/aa-keyring/storage"
	"github.com/AvaProtocol/aa-keyring/storage/schema"
)

// Migrations contains the list of database migrations to be applied. The
// name is recorded in the store, never rename an entry once released.
var Migrations = []migrator.Migration{
	{
		Name:     "20261019-120000-eip155-chain-scopes",
		Function: EIP155ChainScopes,
	},
	{
		Name:     "20261019-120500-strip-account-private-key",
		Function: StripAccountPrivateKey,
	},
}

// rewriteWallets applies fn to every stored wallet and writes back the ones
// it reports as changed.
func rewriteWallets(db storage.Storage, fn func(w *keyring.Wallet) bool) (int, error) {
	items, err := db.GetByPrefix(schema.WalletPrefix)
	if err != nil {
		return 0, fmt.Errorf("failed to list wallets: %w", err)
	}

	updates := map[string][]byte{}
	for _, item := range items {
		var w keyring.Wallet
		if err := json.Unmarshal(item.Value, &w); err != nil {
			return 0, fmt.Errorf("corrupted wallet record %s: %w", item.Key, err)
		}
		if !fn(&w) {
			continue
		}
		data, err := json.Marshal(&w)
		if err != nil {
			return 0, err
		}
		updates[string(item.Key)] = data
	}

	if len(updates) == 0 {
		return 0, nil
	}
	if err := db.BatchWrite(updates); err != nil {
		return 0, fmt.Errorf("failed to write wallets: %w", err)
	}
	return len(updates), nil
}
