package testutil

import (
	"os"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"

	"github.com/AvaProtocol/aa-keyring/storage"
)

// Well known development keys (anvil/hardhat accounts #0 and #1). Never fund
// them on a public network.
const (
	DevKey1     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	DevAddress1 = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

	DevKey2     = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
	DevAddress2 = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

// Shortcut to initialize a storage at the given path, panic if we cannot create db
func TestMustDB() storage.Storage {
	dir, err := os.MkdirTemp("", "aakeyring")
	if err != nil {
		panic(err)
	}

	db, err := storage.NewWithPath(dir)
	if err != nil {
		panic(err)
	}
	return db
}

// DestroyDB closes a database created by TestMustDB and removes its files
func DestroyDB(db storage.Storage) {
	if s, ok := db.(*storage.BadgerStorage); ok {
		_ = storage.Destroy(s)
	}
}

func GetLogger() sdklogging.Logger {
	logger, err := sdklogging.NewZapLogger("development")
	if err != nil {
		panic(err)
	}
	return logger
}
