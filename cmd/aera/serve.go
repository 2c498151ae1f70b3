package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"aeracore/internal/adapters/httpapi"
	"aeracore/internal/core"
	"aeracore/internal/infra/notify/fswatch"
	redisbridge "aeracore/internal/infra/notify/redis"
	"aeracore/internal/medium"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the /api contract over the local document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.HTTP.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	n, err := a.openNode(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = n.Close() }()

	// Load once so a first run seeds before the listener opens.
	if _, err := n.svc.Snapshot(ctx); err != nil {
		return err
	}

	if a.cfg.Redis.Addr != "" {
		client := redisbridge.NewClient(a.cfg.Redis.Addr)
		defer func() { _ = client.Close() }()
		bridge := redisbridge.New(client, n.hub,
			redisbridge.WithChannel(a.cfg.Redis.Channel),
			redisbridge.WithLogger(a.logger.Named("redis")))
		if err := bridge.Start(ctx); err != nil {
			return err
		}
		defer bridge.Stop()
	}

	if a.cfg.Storage.Watch {
		path, ok := medium.LocalPath(n.store.Medium(), n.store.Key())
		if !ok {
			return errors.New("storage.watch requires a file-backed medium")
		}
		watcher, err := fswatch.New(path, n.store.Key(), n.hub, fswatch.WithLogger(a.logger.Named("fswatch")))
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	if n.peer != nil {
		monitor := core.NewConnectivityMonitor(n.svc,
			core.WithProbeInterval(a.cfg.Sync.ProbeInterval),
			core.WithProbeTimeout(a.cfg.Sync.ProbeTimeout))
		if err := monitor.Start(ctx); err != nil {
			return err
		}
		defer monitor.Stop()
	}

	handler := httpapi.NewHandler(n.svc,
		httpapi.WithLogger(a.logger.Named("http")),
		httpapi.WithMetrics(n.metrics))
	server := httpapi.NewServer(a.cfg.HTTP, handler, a.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	a.logger.Info("aera node started",
		zap.String("driver", a.cfg.Storage.Driver),
		zap.String("key", n.store.Key()),
		zap.Bool("peer", n.peer != nil))
	return g.Wait()
}
