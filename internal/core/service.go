// Package core is the service facade over the persisted document: entity
// repositories, the replenishment lifecycle, the offline sync reconciler and
// the scoped ticker resolver. Every mutation runs as one whole-document
// transaction that is validated by the rules engine before it is saved.
package core

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"aeracore/internal/notify"
	"aeracore/pkg/domain"
)

// DefaultSyncDelay is how long SyncPending waits before marking records synced.
const DefaultSyncDelay = 1500 * time.Millisecond

// Service exposes transactional operations over a domain.DocumentStore.
type Service struct {
	store   domain.DocumentStore
	engine  *domain.RulesEngine
	hub     *notify.Hub
	logger  Logger
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer

	now       func() time.Time
	newID     func() string
	randIntn  func(n int) int
	peer      Peer
	syncDelay time.Duration

	mu     sync.Mutex
	online atomic.Bool
	syncs  singleflight.Group
}

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditRecorder sets the recorder receiving one entry per operation.
func WithAuditRecorder(rec AuditRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.audit = rec
		}
	}
}

// WithMetricsRecorder sets the operation metrics recorder.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithTracer sets the span tracer.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithClock overrides the wall clock used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides the generator used for user and record ids.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithRandom overrides the source used for organization id digits.
func WithRandom(intn func(n int) int) Option {
	return func(s *Service) {
		if intn != nil {
			s.randIntn = intn
		}
	}
}

// WithRulesEngine replaces the default rule set.
func WithRulesEngine(engine *domain.RulesEngine) Option {
	return func(s *Service) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// WithHub sets the change notification hub. The document store should publish
// into the same hub.
func WithHub(hub *notify.Hub) Option {
	return func(s *Service) {
		if hub != nil {
			s.hub = hub
		}
	}
}

// WithPeer configures the remote mirror records are pushed to during sync.
func WithPeer(peer Peer) Option {
	return func(s *Service) { s.peer = peer }
}

// WithSyncDelay overrides DefaultSyncDelay. Zero disables the wait.
func WithSyncDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.syncDelay = d
		}
	}
}

// WithOnline sets the initial connectivity state (default online).
func WithOnline(online bool) Option {
	return func(s *Service) { s.online.Store(online) }
}

// NewService constructs a service backed by store.
func NewService(store domain.DocumentStore, opts ...Option) *Service {
	s := &Service{
		store:     store,
		engine:    NewDefaultRulesEngine(),
		hub:       notify.NewHub(),
		logger:    noopLogger{},
		audit:     noopAuditRecorder{},
		metrics:   noopMetricsRecorder{},
		tracer:    noopTracer{},
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
		randIntn:  rand.IntN,
		syncDelay: DefaultSyncDelay,
	}
	s.online.Store(true)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying document store.
func (s *Service) Store() domain.DocumentStore { return s.store }

// RulesEngine returns the active rules engine.
func (s *Service) RulesEngine() *domain.RulesEngine { return s.engine }

// Hub returns the change notification hub.
func (s *Service) Hub() *notify.Hub { return s.hub }

// OnChange registers listener for document change events and returns a
// function that unregisters it.
func (s *Service) OnChange(listener notify.Listener) (cancel func()) {
	return s.hub.Subscribe(listener)
}

// Online reports the last known connectivity state.
func (s *Service) Online() bool { return s.online.Load() }

// Snapshot returns a copy of the whole persisted document.
func (s *Service) Snapshot(ctx context.Context) (domain.Document, error) {
	return s.read(ctx)
}

// ResetData discards the persisted document; the next read seeds it again.
func (s *Service) ResetData(ctx context.Context) error {
	return s.run(ctx, "reset_data", "", func(ctx context.Context) (string, error) {
		return "", s.locked(ctx, func(ctx context.Context) error {
			return s.store.Reset(ctx)
		})
	})
}

// Close releases the store when it holds resources.
func (s *Service) Close() error {
	if c, ok := s.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// run wraps an operation with tracing, metrics, audit and error logging.
func (s *Service) run(ctx context.Context, op string, entity domain.EntityType, fn func(ctx context.Context) (string, error)) error {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, op)
	id, err := fn(ctx)
	elapsed := time.Since(started)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, elapsed)

	entry := AuditEntry{
		Operation: op,
		Entity:    string(entity),
		EntityID:  id,
		Status:    AuditStatusSuccess,
		Duration:  elapsed,
		At:        s.now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
		if isCallerError(err) {
			s.logger.Debug("operation rejected", "operation", op, "id", id, "error", err)
		} else {
			s.logger.Error("operation failed", "operation", op, "id", id, "error", err)
		}
	}
	s.audit.Record(ctx, entry)
	return err
}

func isCallerError(err error) bool {
	var violation domain.RuleViolationError
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrAccountDeactivated) ||
		errors.Is(err, domain.ErrSelfDeactivationBlocked) ||
		errors.Is(err, domain.ErrStaleWrite) ||
		errors.As(err, &violation)
}

// mutate runs fn in a transaction under the observability wrapper.
func mutate[T any](ctx context.Context, s *Service, op string, entity domain.EntityType, idOf func(T) string, fn func(tx *Transaction) (T, error)) (T, Result, error) {
	var (
		out T
		res Result
	)
	err := s.run(ctx, op, entity, func(ctx context.Context) (string, error) {
		var err error
		res, err = s.runInTransaction(ctx, func(tx *Transaction) error {
			var fnErr error
			out, fnErr = fn(tx)
			return fnErr
		})
		if idOf == nil {
			return "", err
		}
		return idOf(out), err
	})
	return out, res, err
}

// query loads the document and projects it under the observability wrapper.
func query[T any](ctx context.Context, s *Service, op string, fn func(doc domain.Document) (T, error)) (T, error) {
	var out T
	err := s.run(ctx, op, "", func(ctx context.Context) (string, error) {
		doc, err := s.read(ctx)
		if err != nil {
			return "", err
		}
		out, err = fn(doc)
		return "", err
	})
	return out, err
}

func (s *Service) read(ctx context.Context) (doc domain.Document, err error) {
	err = s.locked(ctx, func(ctx context.Context) error {
		doc, err = s.store.Load(ctx)
		return err
	})
	return doc, err
}

// locked runs fn under the service mutex. Change events the store raises
// meanwhile are delivered after the mutex is released, so listeners may read
// the document again.
func (s *Service) locked(ctx context.Context, fn func(ctx context.Context) error) error {
	pending := &notify.Pending{}
	defer pending.Flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(notify.WithPending(ctx, pending))
}
