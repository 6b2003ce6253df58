package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version 构建时可通过 -ldflags "-X budget/cmd.Version=..." 覆盖
var Version = "1.0.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "budget v%s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
