package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/tracescribe/internal/presentation/tui"
	"github.com/aretw0/tracescribe/pkg/catalog"
	"github.com/spf13/cobra"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the document templates",
	Long: `Lists the templates a document can be formatted with, including the sections each one produces.
With --remote the list is fetched from the formatting service instead of the built-in catalog.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonMode, _ := cmd.Flags().GetBool("json")
		remote, _ := cmd.Flags().GetBool("remote")
		out := cmd.OutOrStdout()

		if remote {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			list, err := rt.Client.ListTemplates(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch templates: %w", err)
			}
			if jsonMode {
				return json.NewEncoder(out).Encode(list)
			}
			for _, t := range list {
				fmt.Fprintf(out, "%-12s %-32s %d placeholders\n", t.Type, t.DisplayName, t.PlaceholderCount)
			}
			return nil
		}

		if jsonMode {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(catalog.List())
		}

		rendered, err := tui.NewRenderer(0)(catalog.Markdown())
		if err != nil {
			rendered = catalog.Markdown()
		}
		fmt.Fprint(out, rendered)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(templatesCmd)
	templatesCmd.Flags().Bool("json", false, "Print the templates as JSON")
	templatesCmd.Flags().Bool("remote", false, "Ask the formatting service for its templates")
}
