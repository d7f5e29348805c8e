package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/tracescribe/internal/cli"
	httpAdapter "github.com/aretw0/tracescribe/pkg/adapters/http"
	"github.com/aretw0/tracescribe/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Exposes formatting sessions as a JSON API over HTTP, with an SSE stream of state
changes per session, artifact downloads and Prometheus metrics on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			v.Set("serve.addr", addr)
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		rt, err := loadRuntime(cli.WithMetrics(reg), cli.WithArtifactExpiry())
		if err != nil {
			return err
		}
		defer rt.Close()

		manager := session.NewManager(rt.NewOrchestrator, rt.Client,
			session.WithIdleTTL(rt.Config.Serve.SessionIdle),
			session.WithManagerLogger(rt.Logger),
		)
		handler := httpAdapter.NewHandler(manager,
			httpAdapter.WithLogger(rt.Logger),
			httpAdapter.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		)
		srv := &http.Server{
			Addr:              rt.Config.Serve.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			rt.Logger.Info("Starting TraceScribe Server", "addr", srv.Addr, "api_url", rt.Config.APIURL)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			return manager.Run(gctx)
		})
		g.Go(func() error {
			<-gctx.Done()
			rt.Logger.Info("Start shutdown", "signal", ctx.Signal())

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				rt.Logger.Warn("Graceful shutdown did not complete", "timeout", 5*time.Second, "error", err)
				return srv.Close()
			}
			return nil
		})

		if err := g.Wait(); err != nil {
			return err
		}
		rt.Logger.Info("TraceScribe Server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (default from serve.addr, :8080)")
}
