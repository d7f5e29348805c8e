package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/tracescribe"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of tracescribe",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tracescribe version %s\n", strings.TrimSpace(tracescribe.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
