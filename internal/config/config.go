// Package config loads storefront configuration from a YAML file, an
// optional .env file and environment variables, in increasing precedence.
// Secrets are only ever read from the environment.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Analytics store kinds.
const (
	StoreNone       = "none"
	StoreMemory     = "memory"
	StorePostgres   = "postgres"
	StoreClickhouse = "clickhouse"
)

// DefaultContract is the deployed hat contract on Base.
const DefaultContract = "0x36e899b6908dc588e85ed0979e8e0dcd7e02a941"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full storefront configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Chain     ChainConfig     `yaml:"chain"`
	Identity  IdentityConfig  `yaml:"identity"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	PublicURL       string        `yaml:"public_url"`
	BasePath        string        `yaml:"base_path"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ChainConfig configures the contract client.
type ChainConfig struct {
	RPCURL       string        `yaml:"rpc_url"`
	Contract     string        `yaml:"contract"`
	TokenID      int64         `yaml:"token_id"`
	ChainID      int64         `yaml:"chain_id"`
	PollInterval time.Duration `yaml:"poll_interval"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	MintTimeout  time.Duration `yaml:"mint_timeout"`
	// Sponsored mint limits: one mint per social id every MintInterval and
	// at most MintRate per second overall. Zero disables a limit.
	MintInterval time.Duration `yaml:"mint_interval"`
	MintRate     float64       `yaml:"mint_rate"`
	MintBurst    int           `yaml:"mint_burst"`
	PrivateKey   string        `yaml:"-"`
}

// IdentityConfig configures the identity service client.
type IdentityConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"`
	Burst     int           `yaml:"burst"`
	Token     string        `yaml:"-"`
}

// AnalyticsConfig configures interaction recording.
type AnalyticsConfig struct {
	Store          string `yaml:"store"`
	BufferSize     int    `yaml:"buffer_size"`
	PinataEndpoint string `yaml:"pinata_endpoint"`
	PinataJWT      string `yaml:"-"`
}

// StorageConfig holds database DSNs. Both come from the environment.
type StorageConfig struct {
	PostgresDSN   string `yaml:"-"`
	ClickhouseDSN string `yaml:"-"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			PublicURL:       "http://localhost:8080",
			BasePath:        "/api",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Chain: ChainConfig{
			Contract:     DefaultContract,
			ChainID:      8453,
			PollInterval: 2 * time.Second,
			ReadTimeout:  5 * time.Second,
			MintTimeout:  60 * time.Second,
			MintInterval: 10 * time.Minute,
			MintRate:     1,
			MintBurst:    5,
		},
		Identity: IdentityConfig{
			BaseURL:   "https://api.warpcast.com/v2",
			Timeout:   5 * time.Second,
			RateLimit: 20,
			Burst:     5,
		},
		Analytics: AnalyticsConfig{
			Store:      StoreMemory,
			BufferSize: 1024,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the configuration. path may be empty to skip the YAML file.
// A missing .env file is ignored.
func Load(path string) (Config, error) {
	return LoadWithOverrides(path)
}

// LoadWithOverrides is Load with command-line overrides applied after the
// environment and before validation.
func LoadWithOverrides(path string, overrides ...func(*Config)) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	for _, override := range overrides {
		override(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
				*dst = strings.TrimSpace(v)
				return
			}
		}
	}

	set(&c.Server.Addr, "HAT_STORE_ADDR")
	set(&c.Server.PublicURL, "PUBLIC_URL")
	set(&c.Chain.RPCURL, "RPC_URL", "ALCHEMY_URL")
	set(&c.Chain.Contract, "CONTRACT_ADDRESS")
	set(&c.Chain.PrivateKey, "PRIVATE_KEY")
	set(&c.Identity.BaseURL, "IDENTITY_API_URL")
	set(&c.Identity.Token, "IDENTITY_API_TOKEN")
	set(&c.Analytics.Store, "ANALYTICS_STORE")
	set(&c.Analytics.PinataJWT, "PINATA_JWT")
	set(&c.Storage.PostgresDSN, "POSTGRES_DSN")
	set(&c.Storage.ClickhouseDSN, "CLICKHOUSE_DSN")
	set(&c.Log.Level, "LOG_LEVEL")
}

// Validate checks the configuration for a serving process.
func (c Config) Validate() error {
	var errs []error

	if c.Chain.RPCURL == "" {
		errs = append(errs, errors.New("chain.rpc_url (RPC_URL) is required"))
	}
	if !common.IsHexAddress(c.Chain.Contract) {
		errs = append(errs, fmt.Errorf("chain.contract %q is not an address", c.Chain.Contract))
	}
	if c.Chain.TokenID < 0 {
		errs = append(errs, errors.New("chain.token_id must be >= 0"))
	}
	if c.Chain.ChainID <= 0 {
		errs = append(errs, errors.New("chain.chain_id must be > 0"))
	}
	if c.Chain.MintInterval < 0 || c.Chain.MintRate < 0 || c.Chain.MintBurst < 0 {
		errs = append(errs, errors.New("chain mint limits must be >= 0"))
	}
	if u, err := url.Parse(c.Server.PublicURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("server.public_url %q must be an absolute URL", c.Server.PublicURL))
	}
	if c.Identity.Token != "" && c.Identity.BaseURL == "" {
		errs = append(errs, errors.New("identity.base_url is required when IDENTITY_API_TOKEN is set"))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	switch c.Analytics.Store {
	case StoreNone, StoreMemory:
	case StorePostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("analytics.store=postgres requires POSTGRES_DSN"))
		}
	case StoreClickhouse:
		if c.Storage.ClickhouseDSN == "" {
			errs = append(errs, errors.New("analytics.store=clickhouse requires CLICKHOUSE_DSN"))
		}
	default:
		errs = append(errs, fmt.Errorf("analytics.store %q is not one of none, memory, postgres, clickhouse", c.Analytics.Store))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// ContractAddress returns the parsed contract address.
func (c ChainConfig) ContractAddress() common.Address {
	return common.HexToAddress(c.Contract)
}

// TokenIDBig returns the token id as a big.Int.
func (c ChainConfig) TokenIDBig() *big.Int {
	return big.NewInt(c.TokenID)
}

// ChainIDBig returns the chain id as a big.Int.
func (c ChainConfig) ChainIDBig() *big.Int {
	return big.NewInt(c.ChainID)
}

// CAIP2 returns the chain id in eip155:<id> form.
func (c ChainConfig) CAIP2() string {
	return fmt.Sprintf("eip155:%d", c.ChainID)
}

// ReadOnly reports whether no signing key is configured.
func (c ChainConfig) ReadOnly() bool {
	return c.PrivateKey == ""
}

// Build creates the zap logger described by c.
func (c LogConfig) Build() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// String renders the configuration with secrets masked.
func (c Config) String() string {
	masked := c
	masked.Chain.PrivateKey = mask(c.Chain.PrivateKey)
	masked.Identity.Token = mask(c.Identity.Token)
	masked.Analytics.PinataJWT = mask(c.Analytics.PinataJWT)
	masked.Storage.PostgresDSN = mask(c.Storage.PostgresDSN)
	masked.Storage.ClickhouseDSN = mask(c.Storage.ClickhouseDSN)
	return fmt.Sprintf("%+v", struct {
		Server    ServerConfig
		Chain     ChainConfig
		Identity  IdentityConfig
		Analytics AnalyticsConfig
		Storage   StorageConfig
		Log       LogConfig
	}(masked))
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}
