// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luxfi/wire"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a server answering the built-in ping and echo codes",
	Long: `Start a wire server on the configured transport.

Code 1 answers a Ping record with a Pong, code 2 echoes its payload.

Examples:
  wire serve --addr=127.0.0.1:9000
  wire serve --config=wire.yaml --transport=json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		log, err := cfg.NewLogger()
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck
		wire.SetLogger(log)

		opts := append(cfg.ServerOptions(), wire.WithServerLogger(log))
		var metrics *wire.Metrics
		if cfg.Metrics.Enabled {
			metrics = wire.NewMetrics(nil)
			opts = append(opts, wire.WithServerMetrics(metrics))
		}

		server, err := wire.Listen(cfg.Addr, opts...)
		if err != nil {
			return err
		}
		registerBuiltins(server, time.Now)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// the JSON transport already serves /metrics next to /rpc
		if cfg.Metrics.Enabled && cfg.Transport != wire.TransportJSON {
			go serveMetrics(ctx, cfg.Metrics.Addr, metrics.Gatherer(), log)
		}

		log.Info("wire server started",
			zap.String("transport", cfg.Transport),
			zap.String("addr", server.Addr()),
			zap.Int32s("codes", server.Dispatcher().Codes()))
		return server.Serve(ctx)
	},
}

func serveMetrics(ctx context.Context, addr string, g prometheus.Gatherer, log *zap.Logger) {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	stop := context.AfterFunc(ctx, func() { _ = srv.Close() })
	defer stop()

	log.Info("metrics endpoint started", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics endpoint failed", zap.Error(err))
	}
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides config)")
	serveCmd.Flags().String("transport", "", "Transport: zap, json or grpc (overrides config)")
	serveCmd.Flags().String("log-level", "", "Log level (overrides config)")
}
