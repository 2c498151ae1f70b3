package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"aeracore/internal/config"
	"aeracore/internal/core"
	"aeracore/internal/logging"
	"aeracore/internal/mirror"
	"aeracore/internal/notify"
	"aeracore/internal/persistence"
)

// app holds what every subcommand shares once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	cfg        config.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "aera",
		Short:         "Local-first emergency response data engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if a.logLevel != "" {
				cfg.Log.Level = a.logLevel
			}
			logger, err := logging.New(cfg.Log.Level, cfg.Log.Encoding)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML config file (default $AERA_CONFIG)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newServeCmd(a),
		newSyncCmd(a),
		newResetCmd(a),
		newShowCmd(a),
		newTickerCmd(a),
	)
	return root
}

// node is an opened store and the service over it.
type node struct {
	hub     *notify.Hub
	store   *persistence.Store
	svc     *core.Service
	peer    *mirror.Client
	metrics *prometheus.Registry
}

func (n *node) Close() error { return n.svc.Close() }

// openNode opens the configured store and builds the service, wiring the peer
// client when one is configured.
func (a *app) openNode(ctx context.Context) (*node, error) {
	hub := notify.NewHub()
	store, err := core.OpenStore(ctx, core.StorageConfig{
		Medium:   a.cfg.Medium(),
		Key:      a.cfg.Storage.Key,
		Conflict: a.cfg.ConflictPolicy(),
		Logger:   a.logger,
		Hub:      hub,
	})
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	metrics, err := core.NewPrometheusMetricsRecorder(reg)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	opts := []core.Option{
		core.WithHub(hub),
		core.WithLogger(core.NewZapLogger(a.logger)),
		core.WithMetricsRecorder(metrics),
		core.WithSyncDelay(a.cfg.Sync.Delay),
		core.WithOnline(!a.cfg.Sync.StartOffline),
	}
	n := &node{hub: hub, store: store, metrics: reg}
	if a.cfg.Peer.BaseURL != "" {
		peer, err := mirror.New(a.cfg.Peer, mirror.WithLogger(a.logger.Named("peer")))
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		n.peer = peer
		opts = append(opts, core.WithPeer(peer))
	}
	n.svc = core.NewService(store, opts...)
	return n, nil
}
