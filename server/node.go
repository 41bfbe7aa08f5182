package server

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	sdkmetrics "github.com/Layr-Labs/eigensdk-go/metrics"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AvaProtocol/aa-keyring/core/backup"
	"github.com/AvaProtocol/aa-keyring/core/chainio/aa"
	"github.com/AvaProtocol/aa-keyring/core/config"
	"github.com/AvaProtocol/aa-keyring/core/keyring"
	"github.com/AvaProtocol/aa-keyring/core/migrator"
	"github.com/AvaProtocol/aa-keyring/metrics"
	"github.com/AvaProtocol/aa-keyring/migrations"
	"github.com/AvaProtocol/aa-keyring/pkg/eip1559"
	"github.com/AvaProtocol/aa-keyring/storage"
	"github.com/AvaProtocol/aa-keyring/version"
)

const AppName = "aa-keyring"

// RunWithConfig starts a keyring node and blocks until SIGINT or SIGTERM.
func RunWithConfig(configPath string) error {
	nodeConfig, err := config.NewConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to parse config file: %s\nmake sure it exists and is a valid yaml file: %w", configPath, err)
	}

	node, err := NewNode(nodeConfig)
	if err != nil {
		return fmt.Errorf("cannot initialize keyring node from config: %w", err)
	}
	defer node.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return node.Start(ctx)
}

// Node wires a keyring to its storage, metrics, backups and HTTP host.
type Node struct {
	config *config.Config
	logger sdklogging.Logger

	db         storage.Storage
	keyring    *keyring.Keyring
	server     *Server
	metrics    *metrics.KeyringMetrics
	metricsReg *prometheus.Registry
	backup     *backup.Service
}

func NewNode(c *config.Config) (*Node, error) {
	db, err := storage.NewWithPath(c.DbPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open database %s: %w", c.DbPath, err)
	}

	node, err := newNode(c, db, c.EthHttpClient)
	if err != nil {
		db.Close()
		return nil, err
	}
	return node, nil
}

// chainClient is what a node needs from its RPC client.
type chainClient interface {
	keyring.Provider
	eip1559.ChainReader
	bind.ContractCaller
}

func newNode(c *config.Config, db storage.Storage, client chainClient) (*Node, error) {
	backupService := backup.NewService(c.Logger, db, c.Backup.BackupDir)
	if err := migrator.NewMigrator(db, backupService, migrations.Migrations, c.Logger).Run(); err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	eigenMetrics := sdkmetrics.NewEigenMetrics(AppName, c.EigenMetricsIpPortAddress, reg, c.Logger)
	keyringMetrics := metrics.NewKeyringMetrics(eigenMetrics, reg)

	var fees keyring.FeeSource = c.Fees()
	if c.FeeMode == config.FeeModeSuggested {
		fees = eip1559.NewSuggester(client, eip1559.DefaultPolicy)
	}

	cache, err := aa.NewAddressCache(context.Background())
	if err != nil {
		return nil, fmt.Errorf("cannot create address cache: %w", err)
	}

	events := NewEventLog(c.Logger, DefaultEventLogSize)
	k, err := keyring.New(&keyring.Config{
		Provider:          client,
		Contracts:         keyring.NewChainContracts(client, cache),
		Store:             keyring.NewStorageStateStore(db),
		Emitter:           events,
		Metrics:           keyringMetrics,
		Fees:              fees,
		Logger:            c.Logger,
		StrictDelete:      c.StrictDelete,
		RequirePrivateKey: c.RequirePrivateKey,
	})
	if err != nil {
		return nil, err
	}

	if err := seedChainConfigs(k, c.Chains, c.Logger); err != nil {
		return nil, err
	}

	return &Node{
		config:     c,
		logger:     c.Logger,
		db:         db,
		keyring:    k,
		metrics:    keyringMetrics,
		metricsReg: reg,
		backup:     backupService,
		server: New(k, Config{
			BindAddress: c.HttpBindAddress,
			JwtSecret:   c.JwtSecret,
			Logger:      c.Logger,
			Events:      events,
		}),
	}, nil
}

// seedChainConfigs stores the chain configs of the config file for chains
// that have none yet. Stored configs win so runtime changes survive restarts.
func seedChainConfigs(k *keyring.Keyring, chains map[uint64]keyring.ChainConfig, logger sdklogging.Logger) error {
	for chainID, chainConfig := range chains {
		if _, ok := k.GetChainConfig(chainID); ok {
			continue
		}
		if _, err := k.SetChainConfig(context.Background(), chainID, chainConfig); err != nil {
			return fmt.Errorf("chain %d: %w", chainID, err)
		}
		logger.Info("seeded chain config", "chain_id", chainID)
	}
	return nil
}

func (n *Node) Start(ctx context.Context) error {
	n.logger.Info("starting keyring node", "version", version.Get(), "revision", version.Commit())

	var metricsErr <-chan error
	if n.config.EigenMetricsIpPortAddress != "" {
		metricsErr = n.metrics.Start(ctx, n.metricsReg)
	}

	if n.config.Backup.Enabled {
		interval := time.Duration(n.config.Backup.IntervalMinutes) * time.Minute
		if err := n.backup.StartPeriodicBackup(interval); err != nil {
			return err
		}
		defer n.backup.StopPeriodicBackup()
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- n.server.Start(ctx)
	}()

	select {
	case err := <-metricsErr:
		n.logger.Error("metrics server failed", "error", err)
		return err
	case err := <-serverErr:
		return err
	}
}

func (n *Node) Close() {
	if err := n.db.Close(); err != nil {
		n.logger.Warn("cannot close database", "error", err)
	}
}
