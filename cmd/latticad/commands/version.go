package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lattica/lattica/version"
)

// VersionCmd prints the daemon version.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version info",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.LatticaVersion)
	},
}
