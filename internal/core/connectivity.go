package core

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultProbeInterval is how often a ConnectivityMonitor checks the peer.
const DefaultProbeInterval = 15 * time.Second

// SetOnline records the connectivity state. Going from offline to online
// triggers SyncPending and returns the number of records it reconciled.
func (s *Service) SetOnline(ctx context.Context, online bool) (int, error) {
	was := s.online.Swap(online)
	if was || !online {
		return 0, nil
	}
	s.logger.Info("connectivity restored")
	return s.SyncPending(ctx)
}

// ConnectivityMonitor probes the service's peer and feeds the result into
// Service.SetOnline.
type ConnectivityMonitor struct {
	svc      *Service
	interval time.Duration
	timeout  time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// MonitorOption customises a ConnectivityMonitor.
type MonitorOption func(*ConnectivityMonitor)

// WithProbeInterval overrides DefaultProbeInterval.
func WithProbeInterval(d time.Duration) MonitorOption {
	return func(m *ConnectivityMonitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithProbeTimeout bounds each health probe (default half the interval).
func WithProbeTimeout(d time.Duration) MonitorOption {
	return func(m *ConnectivityMonitor) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// NewConnectivityMonitor builds a monitor for svc.
func NewConnectivityMonitor(svc *Service, opts ...MonitorOption) *ConnectivityMonitor {
	m := &ConnectivityMonitor{svc: svc, interval: DefaultProbeInterval}
	for _, opt := range opts {
		opt(m)
	}
	if m.timeout <= 0 {
		m.timeout = m.interval / 2
	}
	return m
}

// Start begins probing in the background. It fails when the service has no
// peer configured.
func (m *ConnectivityMonitor) Start(ctx context.Context) error {
	if m.svc.peer == nil {
		return errors.New("connectivity monitor requires a peer")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go m.run(ctx, m.stopCh, m.doneCh)
	return nil
}

// Stop halts probing and waits for the loop to exit.
func (m *ConnectivityMonitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	done := m.doneCh
	m.mu.Unlock()
	<-done
}

func (m *ConnectivityMonitor) run(ctx context.Context, stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	m.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}

// Probe checks the peer once and updates the service state. It returns the
// observed state.
func (m *ConnectivityMonitor) Probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.svc.peer.Health(probeCtx)
	cancel()
	online := err == nil
	if err != nil && m.svc.Online() {
		m.svc.logger.Warn("peer unreachable", "error", err)
	}
	if _, syncErr := m.svc.SetOnline(ctx, online); syncErr != nil {
		m.svc.logger.Warn("sync after reconnect failed", "error", syncErr)
	}
	return online
}
