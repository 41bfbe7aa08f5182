package migrations

import (
	"github.com/AvaProtocol/aa-keyring/core/keyring"
	"github.com/AvaProtocol/aa-keyring/storage"
)

// StripAccountPrivateKey removes key material left in the public account
// options. The wallet record keeps its own copy of the key.
func StripAccountPrivateKey(db storage.Storage) (int, error) {
	return rewriteWallets(db, func(w *keyring.Wallet) bool {
		if _, ok := w.Account.Options["privateKey"]; !ok {
			return false
		}
		delete(w.Account.Options, "privateKey")
		return true
	})
}
