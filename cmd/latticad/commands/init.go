package commands

import (
	"github.com/spf13/cobra"

	cfg "github.com/lattica/lattica/config"
	tmos "github.com/lattica/lattica/libs/os"
)

// InitFilesCmd initializes the home directory and writes the default config
// file.
var InitFilesCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the home directory and write a default config file",
	RunE:  initFiles,
}

func initFiles(cmd *cobra.Command, args []string) error {
	if err := cfg.EnsureRoot(config.RootDir); err != nil {
		return err
	}

	configFile := config.ConfigFile()
	if tmos.FileExists(configFile) {
		logger.Info("found existing config file", "path", configFile)
		return nil
	}

	if err := cfg.WriteConfigFile(config); err != nil {
		return err
	}
	logger.Info("generated config file", "path", configFile)

	return nil
}
