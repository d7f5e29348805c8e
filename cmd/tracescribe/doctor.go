package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/tracescribe/internal/cli"
	"github.com/aretw0/tracescribe/internal/presentation/tui"
	"github.com/aretw0/tracescribe/pkg/domain"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the configuration, the formatting service and artifact storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		tui.PrintBanner(out)

		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		fmt.Fprintf(out, "API URL:   %s\n", rt.Config.APIURL)
		fmt.Fprintf(out, "Artifacts: %s\n", rt.Config.Artifacts.Backend)
		if used := v.ConfigFileUsed(); used != "" {
			fmt.Fprintf(out, "Config:    %s\n", used)
		}
		fmt.Fprintln(out)

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		failed := 0
		check := func(name string, fn func() (string, error)) {
			detail, err := fn()
			if err != nil {
				failed++
				fmt.Fprintf(out, "✗ %s: %s\n", name, domain.UserMessage(err))
				return
			}
			fmt.Fprintf(out, "✓ %s: %s\n", name, detail)
		}

		check("formatting service", func() (string, error) {
			return "healthy", rt.Client.Health(ctx)
		})
		check("remote templates", func() (string, error) {
			return remoteTemplates(ctx, rt)
		})
		check("artifact storage", func() (string, error) {
			return "writable", probeRegistry(ctx, rt)
		})

		if failed > 0 {
			return fmt.Errorf("%d check(s) failed", failed)
		}
		return nil
	},
}

func remoteTemplates(ctx context.Context, rt *cli.Runtime) (string, error) {
	list, err := rt.Client.ListTemplates(ctx)
	if err != nil {
		return "", err
	}
	remote := make(map[string]bool, len(list))
	for _, t := range list {
		remote[t.Type] = true
	}
	for _, id := range domain.TemplateIDs() {
		if !remote[id.String()] {
			return "", fmt.Errorf("service does not offer template %q", id)
		}
	}
	return fmt.Sprintf("%d available", len(list)), nil
}

func probeRegistry(ctx context.Context, rt *cli.Runtime) error {
	handle, err := rt.Registry.Create(ctx, "doctor.docx", []byte("probe"))
	if err != nil {
		return err
	}
	if _, err := rt.Registry.Open(ctx, handle); err != nil {
		return err
	}
	return rt.Registry.Revoke(ctx, handle)
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

