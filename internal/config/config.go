package config

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"
)

// DefaultProgramID is the pool program address used when none is configured.
const DefaultProgramID = "22222222222222222222222222222222222222222222"

// Config holds all configuration for the application
type Config struct {
	Program  ProgramConfig  `mapstructure:"program"`
	Solana   SolanaConfig   `mapstructure:"solana"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ProgramConfig holds pool program configuration
type ProgramConfig struct {
	ID                string `mapstructure:"id"`
	EnforceExpiration bool   `mapstructure:"enforce_expiration"`
}

// SolanaConfig holds Solana-specific configuration
type SolanaConfig struct {
	RPC     string `mapstructure:"rpc"`
	Network string `mapstructure:"network"`
	Timeout int    `mapstructure:"timeout"` // in seconds
	Keypair string `mapstructure:"keypair"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text

	// File enables rotated file output when set.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// DatabaseConfig selects and configures the ledger and journal store
type DatabaseConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Type     string         `mapstructure:"type"` // memory, sqlite, postgres, mysql or mongodb
	Postgres PostgresConfig `mapstructure:"postgres"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	MongoDB  MongoDBConfig  `mapstructure:"mongodb"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
}

// PostgresConfig holds PostgreSQL connection settings
type PostgresConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // in seconds
}

// MySQLConfig holds MySQL connection settings
type MySQLConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // in seconds
}

// MongoDBConfig holds MongoDB connection settings
type MongoDBConfig struct {
	URI            string `mapstructure:"uri"`
	Database       string `mapstructure:"database"`
	MaxPoolSize    uint64 `mapstructure:"max_pool_size"`
	MinPoolSize    uint64 `mapstructure:"min_pool_size"`
	ConnectTimeout int    `mapstructure:"connect_timeout"` // in seconds
}

// SQLiteConfig holds the embedded database location
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// MetricsConfig holds metrics export configuration
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Backend   string `mapstructure:"backend"` // log or prometheus
	Namespace string `mapstructure:"namespace"`
	Listen    string `mapstructure:"listen"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Program: ProgramConfig{
			ID:                DefaultProgramID,
			EnforceExpiration: true,
		},
		Solana: SolanaConfig{
			RPC:     "https://api.devnet.solana.com",
			Network: "devnet",
			Timeout: 30,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Database: DatabaseConfig{
			Enabled: false,
			Type:    "sqlite",
			Postgres: PostgresConfig{
				Host:         "localhost",
				Port:         5432,
				User:         "cpamm",
				Database:     "cpamm",
				SSLMode:      "disable",
				MaxOpenConns: 10,
				MaxIdleConns: 2,
			},
			MySQL: MySQLConfig{
				Host:         "localhost",
				Port:         3306,
				User:         "cpamm",
				Database:     "cpamm",
				SSLMode:      "false",
				MaxOpenConns: 10,
				MaxIdleConns: 2,
			},
			MongoDB: MongoDBConfig{
				URI:            "mongodb://localhost:27017",
				Database:       "cpamm",
				MaxPoolSize:    10,
				ConnectTimeout: 10,
			},
			SQLite: SQLiteConfig{
				Path: "cpamm.db",
			},
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Backend:   "log",
			Namespace: "cpamm",
			Listen:    ":9090",
		},
	}
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(".cpamm")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	// Environment variables
	v.SetEnvPrefix("CPAMM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// bindEnv registers the keys that may only come from the environment, since
// AutomaticEnv alone does not reach Unmarshal.
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"program.id", "program.enforce_expiration",
		"solana.rpc", "solana.network", "solana.keypair",
		"log.level", "log.format", "log.file",
		"database.enabled", "database.type", "database.sqlite.path",
		"database.postgres.host", "database.postgres.password",
		"database.mysql.host", "database.mysql.password",
		"database.mongodb.uri",
		"metrics.enabled", "metrics.backend", "metrics.listen",
	} {
		_ = v.BindEnv(key)
	}
}

// Validate checks the configuration for values the engine cannot run with
func (c *Config) Validate() error {
	if _, err := c.Program.PublicKey(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unsupported log format: %s", c.Log.Format)
	}
	switch c.Metrics.Backend {
	case "", "log", "prometheus":
	default:
		return fmt.Errorf("unsupported metrics backend: %s", c.Metrics.Backend)
	}
	return nil
}

// PublicKey parses the configured program id
func (c *ProgramConfig) PublicKey() (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(c.ID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid program id %q: %w", c.ID, err)
	}
	return key, nil
}

// GetRPCEndpoint returns the RPC endpoint for the configured network
func (c *SolanaConfig) GetRPCEndpoint() string {
	if c.RPC != "" {
		return c.RPC
	}

	switch c.Network {
	case "mainnet", "mainnet-beta":
		return "https://api.mainnet-beta.solana.com"
	case "testnet":
		return "https://api.testnet.solana.com"
	case "localnet", "localhost":
		return "http://localhost:8899"
	default:
		return "https://api.devnet.solana.com"
	}
}
