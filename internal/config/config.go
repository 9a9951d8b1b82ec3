package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/thesandboxgame/ownership-gatherer/internal/domain"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug       bool   `mapstructure:"debug"`
	SentryDSN   string `mapstructure:"sentry_dsn"`
	MetricsAddr string `mapstructure:"metrics_addr"` // Prometheus listen address, disabled when empty
	OutputDir   string `mapstructure:"output_dir"`
}

// DatabaseConfig holds database configuration. The store is optional and
// disabled while Host is empty.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`     // Maximum number of open connections to the database
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`     // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`  // Maximum amount of time a connection may be reused (e.g., "5m", "1h")
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"` // Maximum amount of time a connection may be idle (e.g., "10m", "30m")
}

// EthereumConfig holds JSON-RPC provider configuration
type EthereumConfig struct {
	RPCURL               string        `mapstructure:"rpc_url"`
	ChainID              domain.Chain  `mapstructure:"chain_id"`
	BlockHeadTTL         time.Duration `mapstructure:"block_head_ttl"`
	BlockHeadStaleWindow time.Duration `mapstructure:"block_head_stale_window"`
	CallTimeout          time.Duration `mapstructure:"call_timeout"`
	MaxRetries           uint64        `mapstructure:"max_retries"`
	RetryInterval        time.Duration `mapstructure:"retry_interval"`
	RequestsPerSecond    float64       `mapstructure:"requests_per_second"` // 0 disables client-side rate limiting
	Burst                int           `mapstructure:"burst"`
}

// ScannerConfig holds the adaptive range scanner tuning
type ScannerConfig struct {
	InitialRangeSize uint64 `mapstructure:"initial_range_size"`
	MinRangeSize     uint64 `mapstructure:"min_range_size"`
	GrowthThreshold  int    `mapstructure:"growth_threshold"`
}

// PresaleConfig is one LAND presale contract
type PresaleConfig struct {
	Name        string `mapstructure:"name"`
	Address     string `mapstructure:"address"`
	DeployBlock uint64 `mapstructure:"deploy_block"`
}

// LandMigrationConfig holds configuration for land-migration
type LandMigrationConfig struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig  `mapstructure:"database"`
	Ethereum   EthereumConfig  `mapstructure:"ethereum"`
	Scanner    ScannerConfig   `mapstructure:"scanner"`
	Presales   []PresaleConfig `mapstructure:"presales"`
	// LandContracts are asked for ownerOf in order, current contract first
	LandContracts []string `mapstructure:"land_contracts"`
	BatchSize     int      `mapstructure:"batch_size"`
}

// OwnerSnapshotConfig holds configuration for owner-snapshot
type OwnerSnapshotConfig struct {
	BaseConfig      `mapstructure:",squash"`
	Database        DatabaseConfig `mapstructure:"database"`
	Ethereum        EthereumConfig `mapstructure:"ethereum"`
	Scanner         ScannerConfig  `mapstructure:"scanner"`
	LandContract    string         `mapstructure:"land_contract"`
	LandStartBlock  uint64         `mapstructure:"land_start_block"`
	AssetContract   string         `mapstructure:"asset_contract"`
	AssetStartBlock uint64         `mapstructure:"asset_start_block"`
}

// LoadLandMigrationConfig loads configuration for land-migration
func LoadLandMigrationConfig(configFile string, envPath string) (*LandMigrationConfig, error) {
	v := configureViper("land-migration", configFile, envPath)
	setCommonDefaults(v)
	v.SetDefault("batch_size", domain.DEFAULT_OWNER_BATCH_SIZE)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg LandMigrationConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOwnerSnapshotConfig loads configuration for owner-snapshot
func LoadOwnerSnapshotConfig(configFile string, envPath string) (*OwnerSnapshotConfig, error) {
	v := configureViper("owner-snapshot", configFile, envPath)
	setCommonDefaults(v)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg OwnerSnapshotConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the required land-migration fields
func (c *LandMigrationConfig) Validate() error {
	if err := c.Ethereum.validate(); err != nil {
		return err
	}
	if len(c.Presales) == 0 {
		return errors.New("presales is required")
	}
	for i, p := range c.Presales {
		if p.Name == "" {
			return fmt.Errorf("presales[%d].name is required", i)
		}
		if !common.IsHexAddress(p.Address) {
			return fmt.Errorf("presales[%d].address %q is not an address", i, p.Address)
		}
	}
	if len(c.LandContracts) == 0 {
		return errors.New("land_contracts is required")
	}
	for i, addr := range c.LandContracts {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("land_contracts[%d] %q is not an address", i, addr)
		}
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	return c.Scanner.validate()
}

// Validate checks the required owner-snapshot fields
func (c *OwnerSnapshotConfig) Validate() error {
	if err := c.Ethereum.validate(); err != nil {
		return err
	}
	if !common.IsHexAddress(c.LandContract) {
		return fmt.Errorf("land_contract %q is not an address", c.LandContract)
	}
	if !common.IsHexAddress(c.AssetContract) {
		return fmt.Errorf("asset_contract %q is not an address", c.AssetContract)
	}
	return c.Scanner.validate()
}

func (c *EthereumConfig) validate() error {
	if c.RPCURL == "" {
		return errors.New("ethereum.rpc_url is required")
	}
	if !domain.IsValidChain(c.ChainID) {
		return fmt.Errorf("%w: %s", domain.ErrInvalidChain, c.ChainID)
	}
	return nil
}

func (c *ScannerConfig) validate() error {
	if c.InitialRangeSize == 0 {
		return errors.New("scanner.initial_range_size must be positive")
	}
	if c.MinRangeSize == 0 || c.MinRangeSize > c.InitialRangeSize {
		return fmt.Errorf("scanner.min_range_size must be in [1, %d], got %d", c.InitialRangeSize, c.MinRangeSize)
	}
	return nil
}

// LandContractAddresses returns the land contracts in lookup order
func (c *LandMigrationConfig) LandContractAddresses() []common.Address {
	addrs := make([]common.Address, len(c.LandContracts))
	for i, addr := range c.LandContracts {
		addrs[i] = common.HexToAddress(addr)
	}
	return addrs
}

// Enabled reports whether a database is configured
func (c *DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

func setCommonDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("output_dir", "snapshots")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.conn_max_idle_time", "10m")
	v.SetDefault("ethereum.chain_id", "eip155:1")
	v.SetDefault("ethereum.block_head_ttl", "12s")
	v.SetDefault("ethereum.block_head_stale_window", "60s")
	v.SetDefault("ethereum.call_timeout", "1m")
	v.SetDefault("ethereum.max_retries", 5)
	v.SetDefault("ethereum.retry_interval", "500ms")
	v.SetDefault("ethereum.requests_per_second", 0)
	v.SetDefault("ethereum.burst", 10)
	v.SetDefault("scanner.initial_range_size", domain.DEFAULT_INITIAL_RANGE_SIZE)
	v.SetDefault("scanner.min_range_size", 1)
	v.SetDefault("scanner.growth_threshold", 6)
}

// readConfig reads the config file. A missing file is fine, the
// environment is used instead.
func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// Search for config.yaml in multiple locations:
		// 1. Current directory
		v.AddConfigPath(".")
		// 2. Service-specific directory (e.g., cmd/land-migration/)
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		// 3. Config directory
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("GATHERER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		"metrics_addr",
		"output_dir",
		// Database
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// Ethereum
		"ethereum.rpc_url",
		"ethereum.chain_id",
		"ethereum.block_head_ttl",
		"ethereum.block_head_stale_window",
		"ethereum.call_timeout",
		"ethereum.max_retries",
		"ethereum.retry_interval",
		"ethereum.requests_per_second",
		"ethereum.burst",
		// Scanner
		"scanner.initial_range_size",
		"scanner.min_range_size",
		"scanner.growth_threshold",
		// Land migration
		"land_contracts",
		"batch_size",
		// Owner snapshot
		"land_contract",
		"land_start_block",
		"asset_contract",
		"asset_start_block",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	// Default to config directory
	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}
