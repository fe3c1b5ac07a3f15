// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Environment names accepted in app.environment.
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// Config holds all application configuration.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	RemoteCache RemoteCacheConfig `mapstructure:"remote_cache"`
	Wallet      WalletConfig      `mapstructure:"wallet"`
	Ledger      LedgerConfig      `mapstructure:"ledger"`
	State       StateConfig       `mapstructure:"state"`
	Health      HealthConfig      `mapstructure:"health"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	TUIMode     bool   `mapstructure:"-"` // Set at runtime from flags
}

// IsProduction reports whether the trimmed environment is exactly "production".
func (c AppConfig) IsProduction() bool {
	return strings.TrimSpace(c.Environment) == EnvProduction
}

// RemoteCacheConfig holds Redis settings. Production reads Host/Port/Password,
// development reads DevHost or DevURL with DevPort.
type RemoteCacheConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	Password       string        `mapstructure:"password"`
	DevHost        string        `mapstructure:"dev_host"`
	DevURL         string        `mapstructure:"dev_url"`
	DevPort        int           `mapstructure:"dev_port"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	HealthInterval time.Duration `mapstructure:"health_interval"`
	TTL            time.Duration `mapstructure:"ttl"`
}

// DevAddress resolves the development endpoint. A host parsed from DevURL
// wins over DevHost.
func (c RemoteCacheConfig) DevAddress() string {
	host := c.DevHost
	port := c.DevPort
	if c.DevURL != "" {
		if u, err := url.Parse(c.DevURL); err == nil && u.Hostname() != "" {
			host = u.Hostname()
		}
	}
	if host == "" {
		host = "localhost"
	}
	if port == 0 {
		port = 6379
	}
	return net.JoinHostPort(host, fmt.Sprint(port))
}

// WalletConfig holds signing identity settings.
type WalletConfig struct {
	KeyPath         string `mapstructure:"key_path"`
	ExpectedAddress string `mapstructure:"expected_address"`
	Passphrase      string `mapstructure:"passphrase"`
	DevPath         string `mapstructure:"dev_path"`
}

// LedgerConfig holds network tier endpoints and dev node settings.
type LedgerConfig struct {
	MainnetURL     string            `mapstructure:"mainnet_url"`
	TestnetURL     string            `mapstructure:"testnet_url"`
	LocalHost      string            `mapstructure:"local_host"`
	LocalPort      int               `mapstructure:"local_port"`
	LocalCommand   string            `mapstructure:"local_command"`
	LocalArgs      []string          `mapstructure:"local_args"`
	StartupTimeout time.Duration     `mapstructure:"startup_timeout"`
	ProbeTimeout   time.Duration     `mapstructure:"probe_timeout"`
	DialTimeout    time.Duration     `mapstructure:"dial_timeout"`
	FundingAmount  string            `mapstructure:"funding_amount"`
	FundingMethod  string            `mapstructure:"funding_method"`
	FundingTimeout time.Duration     `mapstructure:"funding_timeout"`
	FundingHeaders map[string]string `mapstructure:"funding_headers"`
}

// LocalURL returns the HTTP endpoint of the dev node.
func (c LedgerConfig) LocalURL() string {
	return "http://" + net.JoinHostPort(c.LocalHost, fmt.Sprint(c.LocalPort))
}

// FundingAmountDecimal parses the funding amount in whole native units.
func (c LedgerConfig) FundingAmountDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(c.FundingAmount)
}

// StateConfig holds contract-state cache settings.
type StateConfig struct {
	CacheDir        string        `mapstructure:"cache_dir"`
	Contract        string        `mapstructure:"contract"`
	WritesPerMinute int           `mapstructure:"writes_per_minute"`
	CodeCheckTTL    time.Duration `mapstructure:"code_check_ttl"`
	LocalTTL        time.Duration `mapstructure:"local_ttl"`
	CallTimeout     time.Duration `mapstructure:"call_timeout"`
}

// HealthConfig holds the health server settings.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	ServiceName     string `mapstructure:"service_name"`
	Exporter        string `mapstructure:"exporter"`
	MetricsExporter string `mapstructure:"metrics_exporter"`
	OTLPEndpoint    string `mapstructure:"otlp_endpoint"`
	OTLPHeaders     string `mapstructure:"otlp_headers"`
	OTLPInsecure    bool   `mapstructure:"otlp_insecure"`
	PrometheusPort  int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("CTX0")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "CTX0_APP_NAME", "APP_NAME")
	v.BindEnv("app.environment", "CTX0_ENVIRONMENT", "NODE_ENV", "APP_ENV")
	v.BindEnv("app.log_level", "CTX0_LOG_LEVEL", "LOG_LEVEL")

	// Remote cache
	v.BindEnv("remote_cache.enabled", "CTX0_REDIS_ENABLED", "REDIS_ENABLED")
	v.BindEnv("remote_cache.host", "CTX0_REDIS_SERVER", "REDIS_SERVER")
	v.BindEnv("remote_cache.port", "CTX0_REDIS_PORT", "REDIS_PORT")
	v.BindEnv("remote_cache.password", "CTX0_REDIS_AUTH_KEY", "REDIS_AUTH_KEY")
	v.BindEnv("remote_cache.dev_host", "CTX0_REDIS_HOST", "REDIS_HOST")
	v.BindEnv("remote_cache.dev_url", "CTX0_REDIS_URL", "REDIS_URL")

	// Wallet
	v.BindEnv("wallet.key_path", "CTX0_WALLET_KEY_PATH", "WALLET_KEY_PATH")
	v.BindEnv("wallet.expected_address", "CTX0_SERVICE_WALLET_ADDRESS", "SERVICE_WALLET_ADDRESS")
	v.BindEnv("wallet.passphrase", "CTX0_WALLET_PASSPHRASE", "WALLET_PASSPHRASE")

	// Ledger
	v.BindEnv("ledger.mainnet_url", "CTX0_MAINNET_RPC_URL", "MAINNET_RPC_URL")
	v.BindEnv("ledger.testnet_url", "CTX0_TESTNET_RPC_URL", "TESTNET_RPC_URL")
	v.BindEnv("ledger.local_host", "CTX0_LOCAL_NODE_HOST", "LOCAL_NODE_HOST")
	v.BindEnv("ledger.local_port", "CTX0_LOCAL_NODE_PORT", "LOCAL_NODE_PORT")
	v.BindEnv("ledger.local_command", "CTX0_LOCAL_NODE_COMMAND", "LOCAL_NODE_COMMAND")

	// State
	v.BindEnv("state.cache_dir", "CTX0_STATE_CACHE_DIR", "STATE_CACHE_DIR")
	v.BindEnv("state.contract", "CTX0_STATE_CONTRACT", "STATE_CONTRACT")

	// Health
	v.BindEnv("health.port", "CTX0_HEALTH_PORT", "HEALTH_PORT")

	// Telemetry
	v.BindEnv("telemetry.enabled", "CTX0_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "CTX0_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.exporter", "CTX0_OTEL_EXPORTER", "OTEL_TRACES_EXPORTER")
	v.BindEnv("telemetry.otlp_endpoint", "CTX0_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.otlp_headers", "CTX0_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
	v.BindEnv("telemetry.metrics_exporter", "CTX0_OTEL_METRICS_EXPORTER", "OTEL_METRICS_EXPORTER")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "memory-ledger")
	v.SetDefault("app.environment", EnvDevelopment)
	v.SetDefault("app.log_level", "info")

	v.SetDefault("remote_cache.enabled", true)
	v.SetDefault("remote_cache.dev_host", "localhost")
	v.SetDefault("remote_cache.dev_port", 6379)
	v.SetDefault("remote_cache.dial_timeout", "10s")
	v.SetDefault("remote_cache.command_timeout", "5s")
	v.SetDefault("remote_cache.health_interval", "5s")
	v.SetDefault("remote_cache.ttl", "1h")

	v.SetDefault("wallet.dev_path", "dev-wallet.json")

	v.SetDefault("ledger.testnet_url", "https://rpc.sepolia.org")
	v.SetDefault("ledger.local_host", "127.0.0.1")
	v.SetDefault("ledger.local_port", 8545)
	v.SetDefault("ledger.local_command", "anvil")
	v.SetDefault("ledger.startup_timeout", "30s")
	v.SetDefault("ledger.probe_timeout", "2s")
	v.SetDefault("ledger.dial_timeout", "10s")
	v.SetDefault("ledger.funding_amount", "10")
	v.SetDefault("ledger.funding_method", "anvil_setBalance")
	v.SetDefault("ledger.funding_timeout", "10s")

	v.SetDefault("state.cache_dir", ".cache/state")
	v.SetDefault("state.writes_per_minute", 60)
	v.SetDefault("state.code_check_ttl", "10m")
	v.SetDefault("state.local_ttl", "24h")
	v.SetDefault("state.call_timeout", "15s")

	v.SetDefault("health.port", 8081)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "memory-ledger")
	v.SetDefault("telemetry.exporter", "otlp-grpc")
	v.SetDefault("telemetry.metrics_exporter", "prometheus")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration. Wallet presence is checked by the
// wallet provider so that it is reported with its own error code.
func (c *Config) Validate() error {
	if c.App.IsProduction() && c.Ledger.MainnetURL == "" {
		return fmt.Errorf("ledger.mainnet_url is required in production")
	}
	if !c.App.IsProduction() && c.Ledger.TestnetURL == "" {
		return fmt.Errorf("ledger.testnet_url is required in development")
	}
	if c.Ledger.LocalPort <= 0 || c.Ledger.LocalPort > 65535 {
		return fmt.Errorf("invalid ledger.local_port: %d", c.Ledger.LocalPort)
	}
	if c.Wallet.ExpectedAddress != "" && !common.IsHexAddress(c.Wallet.ExpectedAddress) {
		return fmt.Errorf("invalid wallet.expected_address: %s", c.Wallet.ExpectedAddress)
	}
	if c.State.Contract != "" && !common.IsHexAddress(c.State.Contract) {
		return fmt.Errorf("invalid state.contract: %s", c.State.Contract)
	}
	if _, err := c.Ledger.FundingAmountDecimal(); err != nil {
		return fmt.Errorf("invalid ledger.funding_amount: %w", err)
	}
	for name, d := range map[string]time.Duration{
		"ledger.startup_timeout":       c.Ledger.StartupTimeout,
		"ledger.dial_timeout":          c.Ledger.DialTimeout,
		"ledger.funding_timeout":       c.Ledger.FundingTimeout,
		"remote_cache.dial_timeout":    c.RemoteCache.DialTimeout,
		"remote_cache.command_timeout": c.RemoteCache.CommandTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
