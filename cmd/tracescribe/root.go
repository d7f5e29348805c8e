package main

import (
	"fmt"
	"os"

	"github.com/aretw0/tracescribe/internal/cli"
	"github.com/aretw0/tracescribe/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	cfgFile string
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "tracescribe",
	Short: "TraceScribe formats compliance documents with a remote template service",
	Long: `TraceScribe takes a .docx, .pdf or .txt document, sends it to the formatting
service with one of the compliance templates (SOP, Deviation, CAPA, Training,
Monitoring, General) and saves the formatted Word document it returns.

Run without arguments in a terminal to start the interactive UI.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.Init(v, cfgFile)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
			return cmd.Help()
		}
		return tuiCmd.RunE(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadRuntime resolves the configuration and builds the shared components.
func loadRuntime(opts ...cli.RuntimeOption) (*cli.Runtime, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	return cli.NewRuntime(cfg, opts...)
}

func init() {
	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default: ./tracescribe.yaml or ~/.config/tracescribe/tracescribe.yaml)")
	flags.String("api-url", "", "Base URL of the formatting service")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("artifacts-backend", "", "Where formatted documents are held: memory, file, redis")

	_ = v.BindPFlag("api_url", flags.Lookup("api-url"))
	_ = v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = v.BindPFlag("artifacts.backend", flags.Lookup("artifacts-backend"))
}
