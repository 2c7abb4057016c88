package config

import (
	"bytes"
	"path/filepath"
	"text/template"

	tmos "github.com/lattica/lattica/libs/os"
)

// defaultDirPerm is the default permissions used when creating directories.
const defaultDirPerm = 0o700

var configTemplate *template.Template

func init() {
	var err error
	if configTemplate, err = template.New("configFileTemplate").Parse(defaultConfigTemplate); err != nil {
		panic(err)
	}
}

// EnsureRoot creates the root, config, and data directories if they don't
// exist.
func EnsureRoot(rootDir string) error {
	if err := tmos.EnsureDir(rootDir, defaultDirPerm); err != nil {
		return err
	}
	if err := tmos.EnsureDir(filepath.Join(rootDir, defaultConfigDir), defaultDirPerm); err != nil {
		return err
	}
	return tmos.EnsureDir(filepath.Join(rootDir, defaultDataDir), defaultDirPerm)
}

// WriteConfigFile renders config using the template and writes it to the
// config file path under the root.
func WriteConfigFile(cfg *Config) error {
	var buffer bytes.Buffer
	if err := configTemplate.Execute(&buffer, cfg); err != nil {
		return err
	}
	return tmos.WriteFileAtomic(cfg.ConfigFile(), buffer.Bytes(), 0o644)
}

// Note: any changes to the comments/variables/mapstructure
// must be reflected in the appropriate struct in config/config.go.
const defaultConfigTemplate = `# This is a TOML config file.
# For more information, see https://github.com/toml-lang/toml

##### main base config options #####

# A custom human readable name for this node
moniker = "{{ .BaseConfig.Moniker }}"

# Output level for logging, one of "debug", "info" or "error"
log_level = "{{ .BaseConfig.LogLevel }}"

# Output format: 'plain' (colored text) or 'json'
log_format = "{{ .BaseConfig.LogFormat }}"

##### chain configuration options #####
[chain]

# Websocket endpoint of the chain RPC
endpoint = "{{ .Chain.Endpoint }}"

# Subnet this validator participates in
netuid = {{ .Chain.Netuid }}

# The validator's own registered hotkey
hotkey = "{{ .Chain.Hotkey }}"

# Blocks between mandatory peer-directory refresh / score submission
epoch_length = {{ .Chain.EpochLength }}

# Deadline for a single chain RPC call
call_timeout = "{{ .Chain.CallTimeout }}"

##### peer exchange configuration options #####
[exchange]

# Maximum number of concurrently exchanging workers
pool_size = {{ .Exchange.PoolSize }}

# Cap on one sub-round's payload, in bytes
sub_buffer_size = {{ .Exchange.SubBufferSize }}

# Deadline for dialing one peer
dial_timeout = "{{ .Exchange.DialTimeout }}"

# Deadline for one sub-round's socket round-trip
exchange_timeout = "{{ .Exchange.ExchangeTimeout }}"

# Use the legacy chunk-split formula for wire compatibility
compat_split = {{ .Exchange.CompatSplit }}

##### instrumentation configuration options #####
[instrumentation]

# When true, Prometheus metrics are served under /metrics on
# prometheus_listen_addr.
prometheus = {{ .Instrumentation.Prometheus }}

# Address to listen for Prometheus collector(s) connections
prometheus_listen_addr = "{{ .Instrumentation.PrometheusListenAddr }}"

# Instrumentation namespace
namespace = "{{ .Instrumentation.Namespace }}"
`
