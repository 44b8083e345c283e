package configloader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath       = "config/config.yml"
	DefaultSnapshotPath     = "data/snapshots.csv"
	DefaultSnapshotInterval = 2 * time.Hour
	DefaultCoinGeckoBaseURL = "https://api.coingecko.com/api/v3"
	DefaultCoinbaseBaseURL  = "https://api.coinbase.com"
	DefaultTokensDir        = "data/tokens"
)

// ServerConfig holds server-specific configurations.
type ServerConfig struct {
	Port                string   `yaml:"port"`
	ReadTimeoutSeconds  int      `yaml:"readTimeoutSeconds"`
	WriteTimeoutSeconds int      `yaml:"writeTimeoutSeconds"`
	IdleTimeoutSeconds  int      `yaml:"idleTimeoutSeconds"`
	AllowedOrigins      []string `yaml:"allowedOrigins"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	File        string `yaml:"file"`
	MaxSizeMB   int    `yaml:"maxSizeMB"`
	MaxBackups  int    `yaml:"maxBackups"`
}

// NetworkNodeConfig describes one wallet on one chain. Identifier must name a
// built-in network definition ("ethereum", "base", "solana", ...).
type NetworkNodeConfig struct {
	Identifier      string   `yaml:"identifier"`
	Address         string   `yaml:"address"`
	RPCURL          string   `yaml:"rpcURL"`
	FallbackRPCURLs []string `yaml:"fallbackRpcURLs"`
}

// CoinbaseConfig holds the custodial account credentials.
type CoinbaseConfig struct {
	Enabled              bool   `yaml:"enabled"`
	BaseURL              string `yaml:"baseURL"`
	KeyID                string `yaml:"keyID"`
	PrivateKey           string `yaml:"privateKey"`
	ClientTimeoutSeconds int    `yaml:"clientTimeoutSeconds"`
}

// CoinGeckoConfig holds CoinGecko API specific configurations.
type CoinGeckoConfig struct {
	APIKey               string `yaml:"apiKey"`
	Pro                  bool   `yaml:"pro"`
	BaseURL              string `yaml:"baseURL"`
	ClientTimeoutSeconds int    `yaml:"clientTimeoutSeconds"`
	VsCurrency           string `yaml:"vsCurrency"`
	MaxIDsPerRequest     int    `yaml:"maxIDsPerRequest"`
}

// SnapshotConfig controls the snapshot store.
type SnapshotConfig struct {
	Path     string        `yaml:"path"`
	Interval time.Duration `yaml:"interval"`
}

// AliasConfig maps a raw source symbol, optionally scoped to a chain, to a
// canonical asset.
type AliasConfig struct {
	Chain  string `yaml:"chain"`
	Symbol string `yaml:"symbol"`
}

// AssetConfig is one allow-listed canonical asset.
type AssetConfig struct {
	Symbol  string        `yaml:"symbol"`
	FeedID  string        `yaml:"feedId"`
	Aliases []AliasConfig `yaml:"aliases"`
}

// CacheConfig holds TTLs for upstream caches.
type CacheConfig struct {
	BalanceTTLSeconds int `yaml:"balanceTTLSeconds"`
	PriceTTLSeconds   int `yaml:"priceTTLSeconds"`
}

// PerformanceConfig holds performance-related configurations.
type PerformanceConfig struct {
	MaxConcurrentRequests int     `yaml:"maxConcurrentRequests"`
	RPCCallTimeoutSeconds int     `yaml:"rpcCallTimeoutSeconds"`
	RPCRateLimit          float64 `yaml:"rpcRateLimit"`
	RPCBurst              int     `yaml:"rpcBurst"`
}

// TokensConfig locates the optional per-network ERC-20 token lists.
type TokensConfig struct {
	Dir string `yaml:"dir"`
}

// Config is the top-level configuration structure. It is treated as
// immutable once Load returns.
type Config struct {
	Server      ServerConfig        `yaml:"server"`
	Logging     LoggingConfig       `yaml:"logging"`
	Networks    []NetworkNodeConfig `yaml:"networks"`
	Tokens      TokensConfig        `yaml:"tokens"`
	Coinbase    CoinbaseConfig      `yaml:"coinbase"`
	CoinGecko   CoinGeckoConfig     `yaml:"coingecko"`
	Snapshots   SnapshotConfig      `yaml:"snapshots"`
	Assets      []AssetConfig       `yaml:"assets"`
	Cache       CacheConfig         `yaml:"cache"`
	Performance PerformanceConfig   `yaml:"performance"`
}

// Load reads the YAML configuration file from path. Environment files are
// loaded first (".env" when none are given, silently skipped if missing) so
// that ${VAR} references in the YAML resolve to secrets.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse expands environment references in data and unmarshals it.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config data: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}

func loadEnvFiles(envFiles []string) error {
	optional := len(envFiles) == 0
	if optional {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			if optional && errors.Is(err, fs.ErrNotExist) {
				logrus.Debugf("No %s file found, using process environment only", f)
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
		logrus.Infof("Loaded environment from %s", f)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.ReadTimeoutSeconds <= 0 {
		cfg.Server.ReadTimeoutSeconds = 30
	}
	if cfg.Server.WriteTimeoutSeconds <= 0 {
		cfg.Server.WriteTimeoutSeconds = 60
	}
	if cfg.Server.IdleTimeoutSeconds <= 0 {
		cfg.Server.IdleTimeoutSeconds = 120
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Snapshots.Path == "" {
		cfg.Snapshots.Path = DefaultSnapshotPath
		logrus.Infof("Snapshots.Path not set, defaulting to %s", cfg.Snapshots.Path)
	}
	if cfg.Snapshots.Interval == 0 {
		cfg.Snapshots.Interval = DefaultSnapshotInterval
		logrus.Infof("Snapshots.Interval not set, defaulting to %s", cfg.Snapshots.Interval)
	}

	if cfg.CoinGecko.BaseURL == "" {
		cfg.CoinGecko.BaseURL = DefaultCoinGeckoBaseURL
	}
	if cfg.CoinGecko.ClientTimeoutSeconds <= 0 {
		cfg.CoinGecko.ClientTimeoutSeconds = 10
	}
	if cfg.CoinGecko.VsCurrency == "" {
		cfg.CoinGecko.VsCurrency = "usd"
	}
	if cfg.CoinGecko.MaxIDsPerRequest <= 0 {
		cfg.CoinGecko.MaxIDsPerRequest = 50
	}

	if cfg.Coinbase.BaseURL == "" {
		cfg.Coinbase.BaseURL = DefaultCoinbaseBaseURL
	}
	if cfg.Coinbase.ClientTimeoutSeconds <= 0 {
		cfg.Coinbase.ClientTimeoutSeconds = 10
	}
	// PEM keys pasted into env vars usually carry literal \n sequences.
	cfg.Coinbase.PrivateKey = strings.ReplaceAll(cfg.Coinbase.PrivateKey, `\n`, "\n")

	if cfg.Cache.BalanceTTLSeconds <= 0 {
		cfg.Cache.BalanceTTLSeconds = 60
		logrus.Infof("Cache.BalanceTTLSeconds not set, defaulting to %d", cfg.Cache.BalanceTTLSeconds)
	}
	if cfg.Cache.PriceTTLSeconds <= 0 {
		cfg.Cache.PriceTTLSeconds = 300
		logrus.Infof("Cache.PriceTTLSeconds not set, defaulting to %d", cfg.Cache.PriceTTLSeconds)
	}

	if cfg.Performance.MaxConcurrentRequests <= 0 {
		cfg.Performance.MaxConcurrentRequests = 4
	}
	if cfg.Performance.RPCCallTimeoutSeconds <= 0 {
		cfg.Performance.RPCCallTimeoutSeconds = 10
	}
	if cfg.Performance.RPCRateLimit <= 0 {
		cfg.Performance.RPCRateLimit = 10
	}
	if cfg.Performance.RPCBurst <= 0 {
		cfg.Performance.RPCBurst = 5
	}

	if cfg.Tokens.Dir == "" {
		cfg.Tokens.Dir = DefaultTokensDir
	}
}

// Validate rejects configurations that cannot produce correct figures.
func (c *Config) Validate() error {
	if c.Snapshots.Interval < 0 {
		return fmt.Errorf("snapshots.interval must not be negative, got %s", c.Snapshots.Interval)
	}
	seen := make(map[string]bool, len(c.Networks))
	for i, n := range c.Networks {
		id := strings.ToLower(strings.TrimSpace(n.Identifier))
		if id == "" {
			return fmt.Errorf("networks[%d]: identifier is required", i)
		}
		if seen[id] {
			return fmt.Errorf("networks[%d]: duplicate identifier %q", i, id)
		}
		seen[id] = true
		if strings.TrimSpace(n.Address) == "" {
			return fmt.Errorf("networks[%d] (%s): address is required", i, id)
		}
	}
	if c.Coinbase.Enabled && (c.Coinbase.KeyID == "" || c.Coinbase.PrivateKey == "") {
		return fmt.Errorf("coinbase is enabled but keyID or privateKey is missing")
	}
	return nil
}
