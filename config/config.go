package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultLatticaDir is the home directory under $HOME when none is given.
	DefaultLatticaDir = ".lattica"

	defaultConfigDir = "config"
	defaultDataDir   = "data"

	defaultConfigFileName = "config.toml"
)

// NOTE: Most of the structs & relevant comments + the default configuration
// options were used to manually generate the config.toml. Please reflect any
// changes made here in the defaultConfigTemplate constant in config/toml.go.

// Config defines the top level configuration for a lattica validator.
type Config struct {
	BaseConfig `mapstructure:",squash"`

	Chain           *ChainConfig           `mapstructure:"chain"`
	Exchange        *ExchangeConfig        `mapstructure:"exchange"`
	Instrumentation *InstrumentationConfig `mapstructure:"instrumentation"`
}

// DefaultConfig returns a default configuration for a lattica validator.
func DefaultConfig() *Config {
	return &Config{
		BaseConfig:      DefaultBaseConfig(),
		Chain:           DefaultChainConfig(),
		Exchange:        DefaultExchangeConfig(),
		Instrumentation: DefaultInstrumentationConfig(),
	}
}

// TestConfig returns a configuration that can be used for testing.
func TestConfig() *Config {
	cfg := DefaultConfig()
	cfg.Moniker = "test"
	cfg.Chain.Endpoint = "ws://127.0.0.1:0"
	cfg.Chain.EpochLength = 2
	cfg.Exchange.DialTimeout = time.Second
	cfg.Exchange.ExchangeTimeout = time.Second
	return cfg
}

// SetRoot sets the RootDir for the config.
func (cfg *Config) SetRoot(root string) *Config {
	cfg.RootDir = root
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *Config) ValidateBasic() error {
	if err := cfg.Chain.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [chain] section: %w", err)
	}
	if err := cfg.Exchange.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [exchange] section: %w", err)
	}
	return nil
}

// ConfigFile returns the full path to the TOML config file.
func (cfg *Config) ConfigFile() string {
	return filepath.Join(cfg.RootDir, defaultConfigDir, defaultConfigFileName)
}

// ValidatorDir returns the directory holding the validator's persistent
// round artifacts, derived from the node's subnet identity.
func (cfg *Config) ValidatorDir() string {
	return filepath.Join(cfg.RootDir, defaultDataDir,
		fmt.Sprintf("netuid%d", cfg.Chain.Netuid), "validator")
}

// RowFile returns the path of the mapped row store.
func (cfg *Config) RowFile() string {
	return filepath.Join(cfg.ValidatorDir(), "current_row.bin")
}

// ColumnFile returns the path of the mapped column store.
func (cfg *Config) ColumnFile() string {
	return filepath.Join(cfg.ValidatorDir(), "center_column.bin")
}

// StateFile returns the path of the JSON state snapshot.
func (cfg *Config) StateFile() string {
	return filepath.Join(cfg.ValidatorDir(), "state.json")
}

//-----------------------------------------------------------------------------

// BaseConfig defines the base configuration for a lattica validator.
type BaseConfig struct {
	// The root directory for all data.
	RootDir string `mapstructure:"home"`

	// A custom human readable name for this node.
	Moniker string `mapstructure:"moniker"`

	// Output level for logging.
	LogLevel string `mapstructure:"log_level"`

	// Output format: 'plain' or 'json'.
	LogFormat string `mapstructure:"log_format"`
}

// DefaultBaseConfig returns a default base configuration.
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		Moniker:   defaultMoniker,
		LogLevel:  "info",
		LogFormat: "plain",
	}
}

var defaultMoniker = getDefaultMoniker()

func getDefaultMoniker() string {
	moniker, err := os.Hostname()
	if err != nil {
		moniker = "anonymous"
	}
	return moniker
}

//-----------------------------------------------------------------------------

// ChainConfig defines the connection to the chain collaborator: the peer
// directory, block height, and score submission.
type ChainConfig struct {
	// Websocket endpoint of the chain RPC.
	Endpoint string `mapstructure:"endpoint"`

	// Subnet this validator participates in.
	Netuid uint16 `mapstructure:"netuid"`

	// The validator's own registered identity.
	Hotkey string `mapstructure:"hotkey"`

	// Blocks between mandatory directory refresh / score submission.
	EpochLength uint64 `mapstructure:"epoch_length"`

	// Deadline for a single chain RPC call.
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// DefaultChainConfig returns a default chain configuration.
func DefaultChainConfig() *ChainConfig {
	return &ChainConfig{
		Endpoint:    "ws://127.0.0.1:9944",
		Netuid:      36,
		EpochLength: 100,
		CallTimeout: 30 * time.Second,
	}
}

// ValidateBasic performs basic validation and returns an error if any check
// fails.
func (cfg *ChainConfig) ValidateBasic() error {
	if cfg.Endpoint == "" {
		return fmt.Errorf("endpoint must be set")
	}
	if cfg.Hotkey == "" {
		return fmt.Errorf("hotkey must be set")
	}
	if cfg.EpochLength == 0 {
		return fmt.Errorf("epoch_length must be positive")
	}
	if cfg.CallTimeout <= 0 {
		return fmt.Errorf("call_timeout must be positive")
	}
	return nil
}

//-----------------------------------------------------------------------------

// ExchangeConfig defines the per-round peer exchange parameters.
type ExchangeConfig struct {
	// Maximum number of concurrently exchanging workers.
	PoolSize int `mapstructure:"pool_size"`

	// Cap on one sub-round's payload, in bytes.
	SubBufferSize int64 `mapstructure:"sub_buffer_size"`

	// Deadline for dialing one peer.
	DialTimeout time.Duration `mapstructure:"dial_timeout"`

	// Deadline for one sub-round's socket round-trip.
	ExchangeTimeout time.Duration `mapstructure:"exchange_timeout"`

	// Use the legacy chunk-split formula for wire compatibility with peer
	// networks that expect it.
	CompatSplit bool `mapstructure:"compat_split"`
}

// DefaultExchangeConfig returns a default exchange configuration.
func DefaultExchangeConfig() *ExchangeConfig {
	return &ExchangeConfig{
		PoolSize:        256,
		SubBufferSize:   8 * 4 * 512,
		DialTimeout:     5 * time.Second,
		ExchangeTimeout: 30 * time.Second,
	}
}

// ValidateBasic performs basic validation and returns an error if any check
// fails.
func (cfg *ExchangeConfig) ValidateBasic() error {
	if cfg.PoolSize <= 0 {
		return fmt.Errorf("pool_size must be positive")
	}
	if cfg.SubBufferSize <= 0 {
		return fmt.Errorf("sub_buffer_size must be positive")
	}
	if cfg.DialTimeout <= 0 {
		return fmt.Errorf("dial_timeout must be positive")
	}
	if cfg.ExchangeTimeout <= 0 {
		return fmt.Errorf("exchange_timeout must be positive")
	}
	return nil
}

//-----------------------------------------------------------------------------

// InstrumentationConfig defines the configuration for metrics reporting.
type InstrumentationConfig struct {
	// When true, Prometheus metrics are served under /metrics on
	// PrometheusListenAddr.
	Prometheus bool `mapstructure:"prometheus"`

	// Address to listen for Prometheus collector(s) connections.
	PrometheusListenAddr string `mapstructure:"prometheus_listen_addr"`

	// Instrumentation namespace.
	Namespace string `mapstructure:"namespace"`
}

// DefaultInstrumentationConfig returns a default instrumentation
// configuration.
func DefaultInstrumentationConfig() *InstrumentationConfig {
	return &InstrumentationConfig{
		Prometheus:           false,
		PrometheusListenAddr: ":26660",
		Namespace:            "lattica",
	}
}
