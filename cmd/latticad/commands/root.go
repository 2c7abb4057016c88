package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cfg "github.com/lattica/lattica/config"
	"github.com/lattica/lattica/libs/log"
)

var (
	config = cfg.DefaultConfig()
	logger = log.MustNewDefaultLogger(log.LogFormatPlain, log.LogLevelInfo, os.Stderr)
)

func init() {
	RootCmd.PersistentFlags().String("home", defaultHome(), "directory for config and data")
	RootCmd.PersistentFlags().String("log_level", config.LogLevel, "log level (debug | info | error)")
	RootCmd.PersistentFlags().String("log_format", config.LogFormat, "log format (plain | json)")
}

func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return cfg.DefaultLatticaDir
	}
	return filepath.Join(home, cfg.DefaultLatticaDir)
}

// ParseConfig retrieves the configuration from the viper instance populated
// by flags, environment, and the TOML file under the home directory.
func ParseConfig(cmd *cobra.Command) (*cfg.Config, error) {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	viper.SetEnvPrefix("LATTICAD")
	viper.AutomaticEnv()

	home := viper.GetString("home")

	conf := cfg.DefaultConfig()
	conf.SetRoot(home)

	viper.SetConfigName("config")
	viper.SetConfigType("toml")
	viper.AddConfigPath(filepath.Join(home, "config"))
	if err := viper.ReadInConfig(); err != nil {
		// a missing config file leaves the defaults in place; init writes one
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := viper.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	conf.SetRoot(home)

	return conf, nil
}

// RootCmd is the root command for latticad.
var RootCmd = &cobra.Command{
	Use:   "latticad",
	Short: "Lattica cellular-automaton validator daemon",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		config, err = ParseConfig(cmd)
		if err != nil {
			return err
		}

		logger, err = log.NewDefaultLogger(config.LogFormat, config.LogLevel, os.Stderr)
		if err != nil {
			return err
		}

		return nil
	},
}
