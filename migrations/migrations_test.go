package migrations

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AvaProtocol/aa-keyring/core/keyring"
	"github.com/AvaProtocol/aa-keyring/core/migrator"
	"github.com/AvaProtocol/aa-keyring/core/testutil"
	"github.com/AvaProtocol/aa-keyring/storage"
	"github.com/AvaProtocol/aa-keyring/storage/schema"
)

func putWallet(t *testing.T, db storage.Storage, w *keyring.Wallet) {
	t.Helper()
	data, err := json.Marshal(w)
	require.NoError(t, err)
	require.NoError(t, db.Set(schema.WalletStorageKey(w.Account.ID), data))
}

func getWallet(t *testing.T, db storage.Storage, id string) *keyring.Wallet {
	t.Helper()
	data, err := db.GetKey(schema.WalletStorageKey(id))
	require.NoError(t, err)
	var w keyring.Wallet
	require.NoError(t, json.Unmarshal(data, &w))
	return &w
}

func TestEIP155ChainScopes(t *testing.T) {
	db := testutil.TestMustDB()
	defer testutil.DestroyDB(db)

	putWallet(t, db, &keyring.Wallet{
		Account: keyring.Account{ID: "legacy"},
		Chains:  map[string]bool{"11155111": true, "eip155:11155111": false, "288": false},
	})
	putWallet(t, db, &keyring.Wallet{
		Account: keyring.Account{ID: "current"},
		Chains:  map[string]bool{"eip155:1": true},
	})

	n, err := EIP155ChainScopes(db)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, map[string]bool{"eip155:11155111": true, "eip155:288": false}, getWallet(t, db, "legacy").Chains)
	assert.Equal(t, map[string]bool{"eip155:1": true}, getWallet(t, db, "current").Chains)
}

func TestStripAccountPrivateKey(t *testing.T) {
	db := testutil.TestMustDB()
	defer testutil.DestroyDB(db)

	putWallet(t, db, &keyring.Wallet{
		Account:    keyring.Account{ID: "leaky", Options: map[string]interface{}{"privateKey": testutil.DevKey1, "salt": "0x1"}},
		PrivateKey: testutil.DevKey1,
	})

	n, err := StripAccountPrivateKey(db)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	w := getWallet(t, db, "leaky")
	assert.Equal(t, map[string]interface{}{"salt": "0x1"}, w.Account.Options)
	assert.Equal(t, testutil.DevKey1, w.PrivateKey)

	n, err = StripAccountPrivateKey(db)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMigrationsLoadIntoKeyringState(t *testing.T) {
	db := testutil.TestMustDB()
	defer testutil.DestroyDB(db)

	putWallet(t, db, &keyring.Wallet{
		Account: keyring.Account{ID: "legacy", Options: map[string]interface{}{"privateKey": "x"}},
		Chains:  map[string]bool{"288": true},
	})

	require.NoError(t, migrator.NewMigrator(db, nil, Migrations, nil).Run())

	state, err := keyring.NewStorageStateStore(db).Load()
	require.NoError(t, err)
	require.Contains(t, state.Wallets, "legacy")
	assert.True(t, state.Wallets["legacy"].Chains["eip155:288"])
	assert.NotContains(t, state.Wallets["legacy"].Account.Options, "privateKey")
}
