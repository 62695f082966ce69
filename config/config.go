// Package config loads the runtime configuration of the rskcli tool.
//
// Values come, in increasing precedence, from defaults, an optional YAML
// file, RSK_-prefixed environment variables (RSK_RPC_URL, RSK_LOG_LEVEL, ...)
// and command line flags bound to the same keys.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"rsksdk/network"
	"rsksdk/provider"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "RSK"

// Keys, shared by the file, the environment and flags.
const (
	KeyNetwork        = "network"
	KeyRPCURL         = "rpc_url"
	KeyChainID        = "chain_id"
	KeyRequestTimeout = "request_timeout"
	KeyMaxRetries     = "max_retries"
	KeyPollInterval   = "poll_interval"
	KeyReceiptTimeout = "receipt_timeout"
	KeyLogLevel       = "log.level"
	KeyLogJSON        = "log.json"
	KeyMetricsEnabled = "metrics.enabled"
	KeyMetricsListen  = "metrics.listen"
)

type Config struct {
	Network        string        `mapstructure:"network" validate:"oneof=mainnet testnet custom"`
	RPCURL         string        `mapstructure:"rpc_url" validate:"omitempty,url"`
	ChainID        int64         `mapstructure:"chain_id" validate:"gte=0"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	MaxRetries     int           `mapstructure:"max_retries" validate:"gte=1,lte=10"`
	PollInterval   time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	ReceiptTimeout time.Duration `mapstructure:"receipt_timeout" validate:"gt=0"`
	Log            LogConfig     `mapstructure:"log"`
	Metrics        MetricsConfig `mapstructure:"metrics"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=trace debug info warn error crit"`
	JSON  bool   `mapstructure:"json"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen" validate:"omitempty,hostname_port"`
}

var validate = validator.New()

// NewViper returns a viper instance with the defaults and environment
// binding in place.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyNetwork, "testnet")
	v.SetDefault(KeyRPCURL, "")
	v.SetDefault(KeyChainID, 0)
	v.SetDefault(KeyRequestTimeout, provider.DefaultRequestTimeout)
	v.SetDefault(KeyMaxRetries, provider.DefaultMaxRetries)
	v.SetDefault(KeyPollInterval, provider.DefaultPollInterval)
	v.SetDefault(KeyReceiptTimeout, provider.DefaultReceiptTimeout)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogJSON, false)
	v.SetDefault(KeyMetricsEnabled, false)
	v.SetDefault(KeyMetricsListen, "localhost:9090")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional file at path into v and decodes the result.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Network = strings.ToLower(cfg.Network)
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field ranges and the combinations the tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Network == "custom" && (c.RPCURL == "" || c.ChainID == 0) {
		return errors.New("invalid config: custom network needs rpc_url and chain_id")
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return errors.New("invalid config: metrics enabled without metrics.listen")
	}
	return nil
}

// NetworkConfig resolves the network preset. A chain_id that contradicts a
// preset is rejected.
func (c *Config) NetworkConfig() (network.Config, error) {
	if c.Network == "custom" {
		return network.Custom(c.ChainID, c.RPCURL, "", "")
	}
	nc, err := network.ByName(c.Network, c.RPCURL)
	if err != nil {
		return network.Config{}, err
	}
	if c.ChainID != 0 && c.ChainID != nc.ChainID {
		return network.Config{}, fmt.Errorf("chain_id %d does not match %s (%d)", c.ChainID, c.Network, nc.ChainID)
	}
	return nc, nil
}

// ProviderOptions carries the tunables over to the provider.
func (c *Config) ProviderOptions() []provider.Option {
	return []provider.Option{
		provider.WithMaxRetries(c.MaxRetries),
		provider.WithRequestTimeout(c.RequestTimeout),
		provider.WithPollInterval(c.PollInterval),
		provider.WithReceiptTimeout(c.ReceiptTimeout),
	}
}

// logLevels maps the accepted log.level names to handler levels.
var logLevels = map[string]slog.Level{
	"trace": log.LevelTrace,
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
	"crit":  log.LevelCrit,
}

// Handler builds the log handler writing to w. Terminal output is colored
// when color is set.
func (c LogConfig) Handler(w io.Writer, color bool) (slog.Handler, error) {
	lvl, ok := logLevels[strings.ToLower(c.Level)]
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", c.Level)
	}
	if c.JSON {
		return log.JSONHandlerWithLevel(w, lvl), nil
	}
	return log.NewTerminalHandlerWithLevel(w, lvl, color), nil
}
