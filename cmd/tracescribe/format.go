package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/tracescribe/internal/cli"
	"github.com/spf13/cobra"
)

var formatCmd = &cobra.Command{
	Use:   "format <file>",
	Short: "Format a document without the interactive UI",
	Long: `Sends one document to the formatting service with the chosen template and saves the result.
The output defaults to <template>_formatted.docx next to the source file.`,
	Example: `  tracescribe format --template sop procedure.docx
  tracescribe format -t capa --out out/ report.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		template, _ := cmd.Flags().GetString("template")
		out, _ := cmd.Flags().GetString("out")
		jsonMode, _ := cmd.Flags().GetBool("json")

		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		var progress io.Writer = cmd.ErrOrStderr()
		if !jsonMode {
			progress = cmd.OutOrStdout()
		}

		res, err := cli.RunFormat(ctx, rt, cli.FormatOptions{
			Template: template,
			Path:     args[0],
			Out:      out,
			Stdout:   progress,
		})
		if err != nil {
			if sig := ctx.Signal(); sig != nil {
				return fmt.Errorf("interrupted by %v", sig)
			}
			return err
		}

		if jsonMode {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(res)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(formatCmd)
	formatCmd.Flags().StringP("template", "t", "", "Template to apply: sop, deviation, capa, training, monitoring, general")
	formatCmd.Flags().StringP("out", "o", "", "Output file or directory")
	formatCmd.Flags().Bool("json", false, "Print the result as JSON (progress goes to stderr)")
	_ = formatCmd.MarkFlagRequired("template")
}
