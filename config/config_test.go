package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.EqualValues(t, 256, cfg.Exchange.PoolSize)
	assert.EqualValues(t, 16384, cfg.Exchange.SubBufferSize)
	assert.False(t, cfg.Exchange.CompatSplit)

	// hotkey is deliberately unset by default
	require.Error(t, cfg.ValidateBasic())

	cfg.Chain.Hotkey = "hk"
	require.NoError(t, cfg.ValidateBasic())
}

func TestValidateBasic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Chain.Hotkey = "hk"

	cfg.Chain.EpochLength = 0
	err := cfg.ValidateBasic()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[chain]")

	cfg = DefaultConfig()
	cfg.Chain.Hotkey = "hk"
	cfg.Exchange.PoolSize = 0
	err = cfg.ValidateBasic()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[exchange]")
}

func TestDerivedPaths(t *testing.T) {
	cfg := DefaultConfig().SetRoot("/tmp/lattica")
	cfg.Chain.Netuid = 7

	assert.Equal(t, "/tmp/lattica/config/config.toml", cfg.ConfigFile())
	assert.True(t, strings.HasSuffix(cfg.ValidatorDir(), filepath.Join("data", "netuid7", "validator")))
	assert.Equal(t, filepath.Join(cfg.ValidatorDir(), "current_row.bin"), cfg.RowFile())
	assert.Equal(t, filepath.Join(cfg.ValidatorDir(), "center_column.bin"), cfg.ColumnFile())
	assert.Equal(t, filepath.Join(cfg.ValidatorDir(), "state.json"), cfg.StateFile())
}

func TestWrittenConfigReadsBack(t *testing.T) {
	root := t.TempDir()

	cfg := DefaultConfig().SetRoot(root)
	cfg.Moniker = "unit"
	cfg.Chain.Hotkey = "hk-test"
	cfg.Chain.Netuid = 9
	cfg.Chain.CallTimeout = 7 * time.Second
	cfg.Exchange.CompatSplit = true

	require.NoError(t, EnsureRoot(root))
	require.NoError(t, WriteConfigFile(cfg))

	v := viper.New()
	v.SetConfigFile(cfg.ConfigFile())
	require.NoError(t, v.ReadInConfig())

	loaded := DefaultConfig().SetRoot(root)
	require.NoError(t, v.Unmarshal(loaded))

	assert.Equal(t, "unit", loaded.Moniker)
	assert.Equal(t, "hk-test", loaded.Chain.Hotkey)
	assert.EqualValues(t, 9, loaded.Chain.Netuid)
	assert.Equal(t, 7*time.Second, loaded.Chain.CallTimeout)
	assert.True(t, loaded.Exchange.CompatSplit)
	assert.Equal(t, cfg.Exchange.PoolSize, loaded.Exchange.PoolSize)
}
