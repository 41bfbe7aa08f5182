package server

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AvaProtocol/aa-keyring/core/config"
	"github.com/AvaProtocol/aa-keyring/core/keyring"
	"github.com/AvaProtocol/aa-keyring/core/testutil"
	"github.com/AvaProtocol/aa-keyring/migrations"
	"github.com/AvaProtocol/aa-keyring/storage/schema"
)

type stubChainClient struct {
	stubProvider
}

func (stubChainClient) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (stubChainClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: big.NewInt(10_000_000_000)}, nil
}

func (stubChainClient) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return nil, nil
}

func nodeConfig(t *testing.T) *config.Config {
	return &config.Config{
		Logger:               testutil.GetLogger(),
		HttpBindAddress:      "127.0.0.1:0",
		FeeMode:              config.FeeModeFixed,
		MaxFeePerGas:         big.NewInt(1_000_000_000),
		MaxPriorityFeePerGas: big.NewInt(1_000_000_000),
		Backup:               config.BackupConfig{BackupDir: t.TempDir()},
		Chains: map[uint64]keyring.ChainConfig{
			11155111: {BundlerURL: "https://bundler.example.org"},
		},
	}
}

func TestNewNodeSeedsChainConfigs(t *testing.T) {
	db := testutil.TestMustDB()
	defer testutil.DestroyDB(db)

	node, err := newNode(nodeConfig(t), db, stubChainClient{})
	require.NoError(t, err)

	for _, m := range migrations.Migrations {
		applied, err := db.Exist(schema.MigrationStorageKey(m.Name))
		require.NoError(t, err)
		assert.True(t, applied, m.Name)
	}

	seeded, ok := node.keyring.GetChainConfig(11155111)
	require.True(t, ok)
	assert.Equal(t, "https://bundler.example.org", seeded.BundlerURL)

	// a runtime change survives a restart with the same config file
	_, err = node.keyring.SetChainConfig(context.Background(), 11155111, keyring.ChainConfig{BundlerURL: "https://other.example.org"})
	require.NoError(t, err)

	restarted, err := newNode(nodeConfig(t), db, stubChainClient{})
	require.NoError(t, err)
	stored, ok := restarted.keyring.GetChainConfig(11155111)
	require.True(t, ok)
	assert.Equal(t, "https://other.example.org", stored.BundlerURL)
}

func TestNewNodeRejectsInvalidSeed(t *testing.T) {
	db := testutil.TestMustDB()
	defer testutil.DestroyDB(db)

	c := nodeConfig(t)
	c.Chains[1] = keyring.ChainConfig{EntryPoint: "0x1234"}

	_, err := newNode(c, db, stubChainClient{})
	assert.ErrorIs(t, err, keyring.ErrInvalidConfig)
}

func TestNodeStartStops(t *testing.T) {
	db := testutil.TestMustDB()
	defer testutil.DestroyDB(db)

	node, err := newNode(nodeConfig(t), db, stubChainClient{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- node.Start(ctx) }()

	cancel()
	assert.NoError(t, <-done)
}
