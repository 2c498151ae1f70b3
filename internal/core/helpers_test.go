package core_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"aeracore/internal/core"
	"aeracore/internal/medium"
	"aeracore/internal/notify"
	"aeracore/internal/persistence"
	"aeracore/pkg/domain"
)

var epoch = time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)

// stepClock advances one second on every reading so records created in
// sequence have distinct timestamps.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock { return &stepClock{now: epoch} }

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

type harness struct {
	svc    *core.Service
	store  *persistence.Store
	hub    *notify.Hub
	medium medium.Medium
	clock  *stepClock
}

func newHarness(t *testing.T, opts ...core.Option) harness {
	t.Helper()
	clock := newStepClock()
	hub := notify.NewHub()
	m := medium.NewMemory()
	store := persistence.New(m, persistence.WithHub(hub), persistence.WithClock(clock.Now))
	base := []core.Option{
		core.WithHub(hub),
		core.WithClock(clock.Now),
		core.WithIDGenerator(sequentialIDs()),
		core.WithSyncDelay(0),
	}
	svc := core.NewService(store, append(base, opts...)...)
	t.Cleanup(func() { _ = svc.Close() })
	return harness{svc: svc, store: store, hub: hub, medium: m, clock: clock}
}

func AsRuleViolation(err error, target *domain.RuleViolationError) bool {
	return errors.As(err, target)
}

func mustLogin(t *testing.T, h harness, identifier string) domain.UserProfile {
	t.Helper()
	u, _, err := h.svc.Login(context.Background(), identifier)
	if err != nil {
		t.Fatalf("login %s: %v", identifier, err)
	}
	return u
}
