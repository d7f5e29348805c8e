package main

import (
	"fmt"

	"github.com/aretw0/tracescribe/internal/presentation/graph"
	"github.com/aretw0/tracescribe/pkg/workflow"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the workflow state machine as a Mermaid diagram",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(workflow.Rules(), nil))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
