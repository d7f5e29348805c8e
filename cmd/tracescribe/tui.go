package main

import (
	"os"

	"github.com/aretw0/tracescribe/internal/cli"
	"github.com/aretw0/tracescribe/internal/logging"
	"github.com/aretw0/tracescribe/internal/presentation/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Start the interactive UI",
	Long:  `Walks through choosing a template, uploading a document and downloading the result in the terminal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outDir := ""
		if cmd.Flags().Lookup("out-dir") != nil {
			outDir, _ = cmd.Flags().GetString("out-dir")
		}

		// Log output would corrupt the alternate screen.
		rt, err := loadRuntime(cli.WithLogger(logging.NewNop()))
		if err != nil {
			return err
		}
		defer rt.Close()

		width, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || width > 100 {
			width = 100
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		return tui.Run(ctx, rt.NewOrchestrator(), rt.Client,
			tui.WithRenderer(tui.NewRenderer(width-8)),
			tui.WithOutputDir(outDir),
		)
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
	tuiCmd.Flags().String("out-dir", "", "Directory for downloaded documents (default: next to the source)")
}
