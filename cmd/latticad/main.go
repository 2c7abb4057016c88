package main

import (
	"context"
	"os"

	"github.com/lattica/lattica/cmd/latticad/commands"
)

func main() {
	rootCmd := commands.RootCmd
	rootCmd.AddCommand(
		commands.InitFilesCmd,
		commands.RunCmd,
		commands.VersionCmd,
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(2)
	}
}
