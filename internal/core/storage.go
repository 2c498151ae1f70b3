package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"aeracore/internal/medium"
	"aeracore/internal/notify"
	"aeracore/internal/persistence"
)

// StorageConfig selects the medium and document settings for OpenStore.
type StorageConfig struct {
	Medium   medium.Config
	Key      string
	Conflict persistence.ConflictPolicy
	Logger   *zap.Logger
	Hub      *notify.Hub
	Clock    func() time.Time
}

// OpenStore opens the configured medium and wraps it in a document store. The
// returned store owns the medium; close it with Close.
func OpenStore(ctx context.Context, cfg StorageConfig) (*persistence.Store, error) {
	m, err := medium.Open(ctx, cfg.Medium)
	if err != nil {
		return nil, fmt.Errorf("open %s medium: %w", driverName(cfg.Medium.Driver), err)
	}
	return persistence.New(m,
		persistence.WithKey(cfg.Key),
		persistence.WithConflictPolicy(cfg.Conflict),
		persistence.WithLogger(cfg.Logger),
		persistence.WithHub(cfg.Hub),
		persistence.WithClock(cfg.Clock),
	), nil
}

func driverName(d medium.Driver) string {
	if d == "" {
		return string(medium.DriverFilesystem)
	}
	return string(d)
}

// NewInMemoryService builds a service over a memory medium. The store and the
// service share one hub.
func NewInMemoryService(opts ...Option) *Service {
	hub := notify.NewHub()
	store := persistence.New(medium.NewMemory(), persistence.WithHub(hub))
	return NewService(store, append([]Option{WithHub(hub)}, opts...)...)
}
