// Package fswatch turns filesystem events on the fs medium's document file
// into change events, so processes sharing a data directory observe each
// other's writes.
package fswatch

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"aeracore/internal/notify"
)

// Origin marks events raised by the watcher rather than by a store write.
const Origin = "fswatch"

const defaultDebounce = 250 * time.Millisecond

// Stats tracks watcher activity.
type Stats struct {
	Writes        int
	Removes       int
	Published     int
	Suppressed    int
	Errors        int
	LastEventTime time.Time
	LastEventOp   string
}

// Option customises a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period collapsing bursts of events into one.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the watcher logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Watcher observes a single document file.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	hub      *notify.Hub
	key      string
	path     string
	debounce time.Duration
	logger   *zap.Logger

	pendingSince time.Time
	pendingOp    string
	stats        Stats

	// last change this process made to the document, as seen on the hub
	ownRevision int64
	ownReason   string
	ownKnown    bool
	unsubscribe func()

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// New watches path, the file holding key, and publishes into hub.
func New(path, key string, hub *notify.Hub, opts ...Option) (*Watcher, error) {
	if path == "" {
		return nil, errors.New("fswatch: path required")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		watcher:  fw,
		hub:      hub,
		key:      key,
		path:     filepath.Clean(path),
		debounce: defaultDebounce,
		logger:   zap.NewNop(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.unsubscribe = hub.Subscribe(w.noteLocal)
	return w, nil
}

// noteLocal remembers the revision of this process's own saves so the file
// events they cause are not announced a second time.
func (w *Watcher) noteLocal(ev notify.Event) {
	if ev.Key != w.key || !w.hub.Local(ev) {
		return
	}
	w.mu.Lock()
	w.ownRevision = ev.Revision
	w.ownReason = ev.Reason
	w.ownKnown = true
	w.mu.Unlock()
}

// Start begins watching the directory holding the document. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	// The directory is watched rather than the file so atomic renames are seen.
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		w.mu.Unlock()
		return err
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("watching document file", zap.String("path", w.path))
	go w.run(ctx)
	return nil
}

// Stop ends the event loop and releases the underlying watcher.
func (w *Watcher) Stop() {
	w.unsubscribe()
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	if err := w.watcher.Close(); err != nil {
		w.logger.Error("closing watcher", zap.Error(err))
	}
}

// Stats returns a copy of the activity counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		case now := <-ticker.C:
			w.flush(now)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	var op string
	switch {
	case event.Op&fsnotify.Create != 0, event.Op&fsnotify.Write != 0:
		op = "write"
	case event.Op&fsnotify.Remove != 0, event.Op&fsnotify.Rename != 0:
		op = "remove"
	default:
		return
	}
	now := time.Now()
	w.mu.Lock()
	defer w.mu.Unlock()
	if op == "write" {
		w.stats.Writes++
	} else {
		w.stats.Removes++
	}
	w.stats.LastEventTime = now
	w.stats.LastEventOp = op
	w.pendingSince = now
	w.pendingOp = op
}

// flush publishes one event once the file has been quiet for the debounce
// window, unless the file still holds this process's last write.
func (w *Watcher) flush(now time.Time) {
	w.mu.Lock()
	if w.pendingSince.IsZero() || now.Sub(w.pendingSince) < w.debounce {
		w.mu.Unlock()
		return
	}
	op := w.pendingOp
	w.pendingSince = time.Time{}
	w.pendingOp = ""
	ownRevision, ownReason, ownKnown := w.ownRevision, w.ownReason, w.ownKnown
	w.mu.Unlock()

	revision, readable := w.fileRevision()
	own := false
	if ownKnown {
		switch op {
		case "write":
			own = readable && revision == ownRevision && ownReason != "reset"
		case "remove":
			own = !readable && ownReason == "reset"
		}
	}

	w.mu.Lock()
	if own {
		w.stats.Suppressed++
	} else {
		w.stats.Published++
	}
	w.mu.Unlock()
	if own {
		w.logger.Debug("ignoring own document write", zap.String("key", w.key), zap.Int64("revision", revision))
		return
	}

	w.logger.Debug("document file changed", zap.String("key", w.key), zap.String("op", op), zap.Int64("revision", revision))
	w.hub.Publish(notify.Event{Key: w.key, Revision: revision, Origin: Origin, Reason: op, At: now.UTC()})
}

// fileRevision reads the revision stored in the document file.
func (w *Watcher) fileRevision() (int64, bool) {
	raw, err := os.ReadFile(w.path)
	if err != nil {
		return 0, false
	}
	var head struct {
		Revision int64 `json:"revision"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return 0, true
	}
	return head.Revision, true
}
