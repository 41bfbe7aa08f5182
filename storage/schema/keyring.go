package schema

import (
	"fmt"
)

// Key layout
//
//	w:<account id>  -> wallet record
//	c:<chain id>    -> chain config override
//	migration:<name> -> applied migration marker
var (
	WalletPrefix      = []byte("w:")
	ChainConfigPrefix = []byte("c:")
	MigrationPrefix   = []byte("migration:")
)

// WalletStorageKey constructs the storage key of a wallet record
func WalletStorageKey(id string) []byte {
	return []byte(fmt.Sprintf("w:%s", id))
}

// ChainConfigStorageKey constructs the storage key of a chain override
func ChainConfigStorageKey(chainID string) []byte {
	return []byte(fmt.Sprintf("c:%s", chainID))
}

// IDFromKey strips the prefix from a storage key
func IDFromKey(prefix, key []byte) string {
	return string(key[len(prefix):])
}

// MigrationStorageKey marks a migration as applied
func MigrationStorageKey(name string) []byte {
	return []byte(fmt.Sprintf("migration:%s", name))
}
