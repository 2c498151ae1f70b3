// Package persistence stores the whole document as one JSON blob on a storage
// medium. Load seeds on first run and on unreadable content; Save replaces the
// blob in a single medium write.
package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"aeracore/internal/medium"
	"aeracore/internal/notify"
	"aeracore/pkg/domain"
)

// ConflictPolicy decides how Save treats a document loaded at an older revision.
type ConflictPolicy string

const (
	// LastWriterWins overwrites whatever is stored.
	LastWriterWins ConflictPolicy = "last_writer_wins"
	// RejectStale fails with domain.ErrStaleWrite when the stored revision moved
	// since the document was loaded.
	RejectStale ConflictPolicy = "reject_stale"
)

// ParseConflictPolicy maps a configuration value to a policy. Empty selects
// LastWriterWins.
func ParseConflictPolicy(v string) (ConflictPolicy, error) {
	switch ConflictPolicy(v) {
	case "", LastWriterWins:
		return LastWriterWins, nil
	case RejectStale:
		return RejectStale, nil
	}
	return "", fmt.Errorf("unknown conflict policy %q", v)
}

// Option customises a Store.
type Option func(*Store)

// WithKey overrides the key the document is stored under.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithClock sets the clock used for seeding and backup names.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithConflictPolicy selects the save conflict policy.
func WithConflictPolicy(p ConflictPolicy) Option {
	return func(s *Store) {
		if p != "" {
			s.policy = p
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHub publishes a change event after every successful save or reset.
func WithHub(hub *notify.Hub) Option {
	return func(s *Store) { s.hub = hub }
}

// WithSeed replaces the first-run dataset.
func WithSeed(seed func(now time.Time) domain.Document) Option {
	return func(s *Store) {
		if seed != nil {
			s.seed = seed
		}
	}
}

// Store implements domain.DocumentStore over a medium.
type Store struct {
	medium medium.Medium
	key    string
	now    func() time.Time
	policy ConflictPolicy
	logger *zap.Logger
	hub    *notify.Hub
	seed   func(now time.Time) domain.Document
}

var _ domain.DocumentStore = (*Store)(nil)

// New constructs a document store on m.
func New(m medium.Medium, opts ...Option) *Store {
	s := &Store{
		medium: m,
		key:    DefaultKey,
		now:    func() time.Time { return time.Now().UTC() },
		policy: LastWriterWins,
		logger: zap.NewNop(),
		seed:   Seed,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the document key.
func (s *Store) Key() string { return s.key }

// Policy returns the configured conflict policy.
func (s *Store) Policy() ConflictPolicy { return s.policy }

// Medium returns the underlying storage medium.
func (s *Store) Medium() medium.Medium { return s.medium }

// Load returns the persisted document. A missing or malformed document is
// replaced by the seed dataset; a medium failure is returned as
// domain.ErrPersistence and nothing is written.
func (s *Store) Load(ctx context.Context) (domain.Document, error) {
	raw, err := s.medium.Read(ctx, s.key)
	switch {
	case errors.Is(err, medium.ErrNotExist):
		s.logger.Info("no stored document, seeding", zap.String("key", s.key))
		return s.reseed(ctx, "seed")
	case err != nil:
		s.logger.Error("document read failed", zap.String("key", s.key), zap.Error(err))
		return domain.Document{}, fmt.Errorf("%w: read %s: %v", domain.ErrPersistence, s.key, err)
	}
	doc, err := decode(raw)
	if errors.Is(err, errUnsupportedSchema) {
		s.logger.Error("stored document has a newer schema", zap.String("key", s.key), zap.Error(err))
		return domain.Document{}, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if err != nil {
		s.logger.Warn("stored document is malformed, seeding", zap.String("key", s.key), zap.Error(err))
		s.backupCorrupt(ctx, raw)
		return s.reseed(ctx, "recover")
	}
	return doc, nil
}

// Save normalizes doc, bumps its revision and writes it. Under RejectStale the
// write fails with domain.ErrStaleWrite when the stored revision differs from
// doc.Revision.
func (s *Store) Save(ctx context.Context, doc domain.Document) (domain.Document, error) {
	if s.policy == RejectStale {
		stored, err := s.storedRevision(ctx)
		if err != nil {
			return domain.Document{}, err
		}
		if stored != doc.Revision {
			return domain.Document{}, fmt.Errorf("%w: stored revision %d, loaded %d", domain.ErrStaleWrite, stored, doc.Revision)
		}
	}
	return s.write(ctx, doc, "save")
}

// Reset deletes the stored document; the next Load seeds a fresh one.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.medium.Delete(ctx, s.key); err != nil {
		s.logger.Error("document reset failed", zap.String("key", s.key), zap.Error(err))
		return fmt.Errorf("%w: delete %s: %v", domain.ErrPersistence, s.key, err)
	}
	s.logger.Info("document reset", zap.String("key", s.key))
	s.publish(ctx, 0, "reset")
	return nil
}

// Close releases the medium.
func (s *Store) Close() error { return s.medium.Close() }

func (s *Store) reseed(ctx context.Context, reason string) (domain.Document, error) {
	doc := s.seed(s.now())
	doc.Revision = 0
	return s.write(ctx, doc, reason)
}

func (s *Store) write(ctx context.Context, doc domain.Document, reason string) (domain.Document, error) {
	doc = doc.Clone()
	doc.Normalize()
	doc.SchemaVersion = domain.SchemaVersion
	doc.Revision++
	payload, err := json.Marshal(doc)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: encode document: %v", domain.ErrPersistence, err)
	}
	if err := s.medium.Write(ctx, s.key, payload); err != nil {
		s.logger.Error("document write failed", zap.String("key", s.key), zap.Int64("revision", doc.Revision), zap.Error(err))
		return domain.Document{}, fmt.Errorf("%w: write %s: %v", domain.ErrPersistence, s.key, err)
	}
	s.logger.Debug("document saved", zap.String("key", s.key), zap.Int64("revision", doc.Revision), zap.String("reason", reason))
	s.publish(ctx, doc.Revision, reason)
	return doc, nil
}

func (s *Store) storedRevision(ctx context.Context) (int64, error) {
	raw, err := s.medium.Read(ctx, s.key)
	if errors.Is(err, medium.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: read %s: %v", domain.ErrPersistence, s.key, err)
	}
	var head struct {
		Revision int64 `json:"revision"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return 0, nil
	}
	return head.Revision, nil
}

// backupCorrupt keeps the unreadable bytes next to the document. Media that
// validate content (postgres JSONB) may refuse them; that is logged only.
func (s *Store) backupCorrupt(ctx context.Context, raw []byte) {
	backup := fmt.Sprintf("%s.corrupt-%d", s.key, s.now().Unix())
	if err := s.medium.Write(ctx, backup, raw); err != nil {
		s.logger.Warn("could not back up malformed document", zap.String("backup", backup), zap.Error(err))
		return
	}
	s.logger.Info("backed up malformed document", zap.String("backup", backup))
}

func (s *Store) publish(ctx context.Context, revision int64, reason string) {
	if s.hub == nil {
		return
	}
	s.hub.PublishContext(ctx, notify.Event{Key: s.key, Revision: revision, Reason: reason, At: s.now()})
}

var errUnsupportedSchema = errors.New("unsupported schema version")

// decode parses and migrates a stored document.
func decode(raw []byte) (domain.Document, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return domain.Document{}, errors.New("document is not a JSON object")
	}
	var doc domain.Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return domain.Document{}, err
	}
	if doc.SchemaVersion > domain.SchemaVersion {
		return domain.Document{}, fmt.Errorf("%w %d", errUnsupportedSchema, doc.SchemaVersion)
	}
	doc.Normalize()
	return doc, nil
}
