package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pipedeck/console/internal/common"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		version, gitCommit, ok := common.GetModuleBuildInfo()

		if !ok {
			fmt.Println("Failed to get version information")
			return
		}

		fmt.Printf("Pipedeck console %s", version)
		if gitCommit != "unknown" && len(gitCommit) > 0 {
			fmt.Printf(" (git: %s)", common.ShortCommit(gitCommit))
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
