package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vango-dev/viewmodel/internal/scene"
	"github.com/vango-dev/viewmodel/pkg/devtools"
	"golang.org/x/sync/errgroup"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve [scene]",
		Short: "Serve a live scene over the devtools API",
		Long: `Build the scene and keep it alive behind the devtools HTTP API.

Routes:
  GET  /stats, /instances, /instances/{guid}
  GET  /instances/{guid}/data?keypath=...   PUT to write a JSON value
  GET  /instances/{guid}/snapshot?format=cbor|json|yaml
  GET  /watch?guid=...&keypath=...          WebSocket change stream
  GET  /metrics                             when metrics are enabled

Examples:
  viewmodel serve team.yaml
  viewmodel serve --addr=:7070`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Devtools.Addr = addr
			}
			sc, err := loadScene(cfg, args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s := newSession(cfg, sc, os.Stderr)
			defer s.rt.Close()

			res, err := scene.Build(ctx, s.rt, sc, s.loader)
			if err != nil {
				return err
			}
			stats := s.rt.Stats()
			success("Built %s: %d instances, %d bindings", sc.Path(), stats.Instances, len(res.Bindings))

			opts := []devtools.Option{
				devtools.WithLogger(s.logger),
				devtools.WithAllowedOrigins(cfg.Devtools.AllowedOrigins...),
			}
			if s.registry != nil {
				opts = append(opts, devtools.WithGatherer(s.registry))
			} else {
				warn("Metrics disabled, /metrics is not served")
			}

			srv := &http.Server{
				Addr:              cfg.Devtools.Addr,
				Handler:           devtools.New(s.rt, opts...),
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				info("Devtools on http://%s", cfg.Devtools.Addr)
				if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
				defer cancel()
				s.logger.Info("shutting down devtools")
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, localhost:7070)")

	return cmd
}
