package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ja7ad/sysinfo/pkg/exporter"
)

func newServeCmd(g *globalOpts) *cobra.Command {
	var (
		listen  string
		path    string
		noHost  bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose process and host metrics for Prometheus",
		Long: `Serve Prometheus metrics. Every scrape refreshes the process table
and, unless --no-host is set, the host categories.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, sys, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer sys.Close()

			if !cmd.Flags().Changed("listen") {
				listen = cfg.Metrics.Listen
			}
			if !cmd.Flags().Changed("path") {
				path = cfg.Metrics.Path
			}
			kind, _ := cfg.Refresh.Kind()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				exporter.New(sys, &exporter.Options{
					Kind:    &kind,
					Host:    !noHost,
					Timeout: timeout,
					Logger:  slog.Default(),
				}),
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			mux := http.NewServeMux()
			mux.Handle(path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{
				ErrorLog:      slog.NewLogLogger(slog.Default().Handler(), slog.LevelError),
				ErrorHandling: promhttp.ContinueOnError,
			}))
			srv := &http.Server{
				Addr:              listen,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				slog.Info("serving metrics", "addr", listen, "path", path)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serve: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	f := cmd.Flags()
	f.StringVar(&listen, "listen", ":9256", "listen address")
	f.StringVar(&path, "path", "/metrics", "metrics path")
	f.BoolVar(&noHost, "no-host", false, "only export process metrics")
	f.DurationVar(&timeout, "timeout", 5*time.Second, "host refresh timeout per scrape")
	return cmd
}
