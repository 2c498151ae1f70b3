package core_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"aeracore/internal/core"
	"aeracore/internal/medium"
	"aeracore/internal/notify"
	"aeracore/internal/persistence"
	"aeracore/pkg/domain"
)

// failingMedium wraps a medium and rejects writes while failing is set.
type failingMedium struct {
	medium.Medium
	mu      sync.Mutex
	failing bool
}

func (m *failingMedium) setFailing(v bool) {
	m.mu.Lock()
	m.failing = v
	m.mu.Unlock()
}

func (m *failingMedium) Write(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	failing := m.failing
	m.mu.Unlock()
	if failing {
		return errors.New("disk full")
	}
	return m.Medium.Write(ctx, key, data)
}

func TestFailedSaveSurfacesToCaller(t *testing.T) {
	ctx := context.Background()
	m := &failingMedium{Medium: medium.NewMemory()}
	hub := notify.NewHub()
	store := persistence.New(m, persistence.WithHub(hub))
	svc := core.NewService(store,
		core.WithHub(hub),
		core.WithSyncDelay(0),
		core.WithOnline(false),
		core.WithIDGenerator(sequentialIDs()),
	)
	defer svc.Close()

	if _, _, err := svc.SubmitHelpRequest(ctx, domain.HelpRequestIntake{EmergencyType: "Storm"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	before, err := svc.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	events := 0
	cancel := svc.OnChange(func(notify.Event) { events++ })
	defer cancel()
	m.setFailing(true)

	if _, _, err := svc.SetInventory(ctx, "CH-9921", domain.OrgInventory{Water: 999}); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("SetInventory: expected ErrPersistence, got %v", err)
	}
	if _, _, err := svc.FulfillReplenishment(ctx, "req-1", domain.OrgInventory{Water: 10}, domain.ReplenishmentFulfilled, true); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("FulfillReplenishment: expected ErrPersistence, got %v", err)
	}
	n, err := svc.SyncPending(ctx)
	if !errors.Is(err, domain.ErrPersistence) || n != 0 {
		t.Fatalf("SyncPending: expected ErrPersistence and 0, got %d %v", n, err)
	}
	if events != 0 {
		t.Fatalf("failed writes must not announce changes, got %d events", events)
	}

	m.setFailing(false)
	after, err := svc.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if d := cmp.Diff(before, after); d != "" {
		t.Fatalf("stored document changed after failed writes (-before +after):\n%s", d)
	}
}
