package config

import (
	"fmt"
	"math/big"
	"os"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	"github.com/ethereum/go-ethereum/ethclient"
	"gopkg.in/yaml.v2"

	"github.com/AvaProtocol/aa-keyring/core/keyring"
)

// Config is the runtime configuration of a keyring node.
type Config struct {
	Logger      sdklogging.Logger
	Environment sdklogging.LogLevel

	EthHttpRpcUrl string
	EthHttpClient *ethclient.Client

	DbPath string
	Backup BackupConfig

	HttpBindAddress           string
	EigenMetricsIpPortAddress string
	// JwtSecret signs the API keys accepted by the HTTP host. An empty
	// secret leaves the host unauthenticated.
	JwtSecret []byte

	FeeMode              FeeMode
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int

	RequirePrivateKey bool
	StrictDelete      bool

	// Chains seeds chain configs that are not stored yet.
	Chains map[uint64]keyring.ChainConfig
}

type BackupConfig struct {
	Enabled         bool
	IntervalMinutes int
	BackupDir       string
}

// These are read from configPath
type ConfigRaw struct {
	Environment     sdklogging.LogLevel `yaml:"environment"`
	EthRpcUrl       string              `yaml:"eth_rpc_url"`
	DbPath          string              `yaml:"db_path"`
	HttpBindAddress string              `yaml:"http_bind_address"`
	MetricsAddress  string              `yaml:"metrics_bind_address"`
	JwtSecret       string              `yaml:"jwt_secret"`

	FeeMode              string `yaml:"fee_mode"`
	MaxFeePerGas         string `yaml:"max_fee_per_gas"`
	MaxPriorityFeePerGas string `yaml:"max_priority_fee_per_gas"`

	RequirePrivateKey bool `yaml:"require_private_key"`
	StrictDelete      bool `yaml:"strict_delete"`

	Backup BackupConfigRaw            `yaml:"backup"`
	Chains map[uint64]ChainConfigRaw `yaml:"chains"`
}

type BackupConfigRaw struct {
	Enabled         bool   `yaml:"enabled"`
	IntervalMinutes int    `yaml:"interval_minutes"`
	BackupDir       string `yaml:"backup_dir"`
}

type ChainConfigRaw struct {
	SimpleAccountFactory            string `yaml:"simple_account_factory"`
	EntryPoint                      string `yaml:"entry_point"`
	EntryPointVersion               string `yaml:"entry_point_version"`
	BundlerUrl                      string `yaml:"bundler_url"`
	CustomVerifyingPaymasterSK      string `yaml:"custom_verifying_paymaster_sk"`
	CustomVerifyingPaymasterAddress string `yaml:"custom_verifying_paymaster_address"`
}

const (
	defaultDbPath          = "./data/badger"
	defaultBackupDir       = "./backup"
	defaultBackupInterval  = 60
	defaultHttpBindAddress = "localhost:8090"
)

// ReadConfigRaw parses the yaml file at path without touching the network.
func ReadConfigRaw(path string) (*ConfigRaw, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	var raw ConfigRaw
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}
	return &raw, nil
}

// NewConfig parses the config file and builds the logger and RPC client it
// describes.
func NewConfig(configFilePath string) (*Config, error) {
	raw, err := ReadConfigRaw(configFilePath)
	if err != nil {
		return nil, err
	}

	config, err := raw.build()
	if err != nil {
		return nil, err
	}

	logger, err := sdklogging.NewZapLogger(config.Environment)
	if err != nil {
		return nil, err
	}
	config.Logger = logger

	client, err := ethclient.Dial(config.EthHttpRpcUrl)
	if err != nil {
		logger.Error("Cannot create http ethclient", "err", err)
		return nil, err
	}
	config.EthHttpClient = client

	return config, nil
}

func (raw *ConfigRaw) build() (*Config, error) {
	config := &Config{
		Environment:               raw.Environment,
		EthHttpRpcUrl:             raw.EthRpcUrl,
		DbPath:                    raw.DbPath,
		HttpBindAddress:           raw.HttpBindAddress,
		EigenMetricsIpPortAddress: raw.MetricsAddress,
		JwtSecret:                 []byte(raw.JwtSecret),
		RequirePrivateKey:         raw.RequirePrivateKey,
		StrictDelete:              raw.StrictDelete,
		Backup: BackupConfig{
			Enabled:         raw.Backup.Enabled,
			IntervalMinutes: raw.Backup.IntervalMinutes,
			BackupDir:       raw.Backup.BackupDir,
		},
		Chains: make(map[uint64]keyring.ChainConfig, len(raw.Chains)),
	}

	if config.Environment == "" {
		config.Environment = sdklogging.Production
	}
	if config.DbPath == "" {
		config.DbPath = defaultDbPath
	}
	if config.HttpBindAddress == "" {
		config.HttpBindAddress = defaultHttpBindAddress
	}
	if config.Backup.BackupDir == "" {
		config.Backup.BackupDir = defaultBackupDir
	}
	if config.Backup.IntervalMinutes <= 0 {
		config.Backup.IntervalMinutes = defaultBackupInterval
	}

	var err error
	if config.FeeMode, err = ParseFeeMode(raw.FeeMode); err != nil {
		return nil, err
	}
	if config.MaxFeePerGas, err = parseGwei(raw.MaxFeePerGas, keyring.DefaultFees().MaxFeePerGas); err != nil {
		return nil, fmt.Errorf("max_fee_per_gas: %w", err)
	}
	if config.MaxPriorityFeePerGas, err = parseGwei(raw.MaxPriorityFeePerGas, keyring.DefaultFees().MaxPriorityFeePerGas); err != nil {
		return nil, fmt.Errorf("max_priority_fee_per_gas: %w", err)
	}

	for chainID, c := range raw.Chains {
		config.Chains[chainID] = keyring.ChainConfig{
			SimpleAccountFactory:            c.SimpleAccountFactory,
			EntryPoint:                      c.EntryPoint,
			EntryPointVersion:               c.EntryPointVersion,
			BundlerURL:                      c.BundlerUrl,
			CustomVerifyingPaymasterSK:      c.CustomVerifyingPaymasterSK,
			CustomVerifyingPaymasterAddress: c.CustomVerifyingPaymasterAddress,
		}
	}

	return config, config.validate()
}

func (c *Config) validate() error {
	if c.EthHttpRpcUrl == "" {
		return fmt.Errorf("config: eth_rpc_url is required")
	}
	if c.MaxPriorityFeePerGas.Cmp(c.MaxFeePerGas) > 0 {
		return fmt.Errorf("config: max_priority_fee_per_gas cannot exceed max_fee_per_gas")
	}
	return nil
}

// Fees returns the fixed fee source described by the config.
func (c *Config) Fees() *keyring.FixedFees {
	return &keyring.FixedFees{
		MaxFeePerGas:         new(big.Int).Set(c.MaxFeePerGas),
		MaxPriorityFeePerGas: new(big.Int).Set(c.MaxPriorityFeePerGas),
	}
}
