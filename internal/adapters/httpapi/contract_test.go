package httpapi_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"aeracore/internal/adapters/httpapi"
	"aeracore/internal/core"
	"aeracore/internal/mirror"
	"aeracore/pkg/domain"
)

func newRemote(t *testing.T) (*core.Service, *mirror.Client) {
	t.Helper()
	remote := core.NewInMemoryService(core.WithSyncDelay(0))
	t.Cleanup(func() { _ = remote.Close() })
	srv := httptest.NewServer(httpapi.NewHandler(remote))
	t.Cleanup(srv.Close)
	client, err := mirror.New(mirror.Config{BaseURL: srv.URL, RPS: 1000, Burst: 100})
	if err != nil {
		t.Fatalf("mirror client: %v", err)
	}
	return remote, client
}

func TestMirrorClientAgainstHandler(t *testing.T) {
	remote, client := newRemote(t)
	ctx := context.Background()

	if err := client.Health(ctx); err != nil {
		t.Fatalf("health: %v", err)
	}
	if err := client.SaveInventory(ctx, "CH-9921", domain.OrgInventory{Water: 7, Food: 1}); err != nil {
		t.Fatalf("save inventory: %v", err)
	}
	inv, err := client.Inventory(ctx, "CH-9921")
	if err != nil || inv.OrgInventory() != (domain.OrgInventory{Water: 7, Food: 1}) {
		t.Fatalf("inventory = %+v (%v)", inv, err)
	}

	created, err := client.CreateRequest(ctx, "CH-9921", mirror.NewRequest{Item: string(domain.ItemMedicalKits), Quantity: 4})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	stocked, err := client.UpdateRequestStatus(ctx, created.ID, mirror.StatusUpdate{Status: "STOCKED", DeliveredQuantity: 4})
	if err != nil || stocked.Status != domain.ReplenishmentStocked {
		t.Fatalf("stock = %+v (%v)", stocked, err)
	}
	if got, _ := remote.Inventory(ctx, "CH-9921"); got.MedicalKits != 4 {
		t.Fatalf("expected medical kits stocked on the remote, got %+v", got)
	}
	if _, err := client.CreateRequest(ctx, "CH-9921", mirror.NewRequest{Item: "Water Cases"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	report, err := client.SetMemberStatus(ctx, "CH-9921", mirror.MemberStatusUpdate{MemberID: "u2", Status: "SAFE"})
	if err != nil || !report.OK || report.Counts.Safe != 1 {
		t.Fatalf("member status = %+v (%v)", report, err)
	}

	if _, err := client.SetBroadcast(ctx, "CH-9921", "Water point moved to Hall B"); err != nil {
		t.Fatalf("set broadcast: %v", err)
	}
	b, err := client.Broadcast(ctx, "CH-9921")
	if err != nil || b.Message != "Water point moved to Hall B" {
		t.Fatalf("broadcast = %+v (%v)", b, err)
	}

	rec, err := client.CreateHelpRequest(ctx, "u1", domain.HelpRequestIntake{EmergencyType: "Fire", Location: "Pine St"})
	if err != nil {
		t.Fatalf("create help: %v", err)
	}
	moved, err := client.UpdateHelpLocation(ctx, rec.ID, "Shelter A")
	if err != nil || moved.Location != "Shelter A" {
		t.Fatalf("move = %+v (%v)", moved, err)
	}
	active, err := client.ActiveHelpRequest(ctx, "u1")
	if err != nil || active.ID != rec.ID {
		t.Fatalf("active = %+v (%v)", active, err)
	}
	if _, err := client.ActiveHelpRequest(ctx, "u4"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSyncPushesToRemotePeer(t *testing.T) {
	remote, client := newRemote(t)
	ctx := context.Background()

	local := core.NewInMemoryService(core.WithSyncDelay(0), core.WithOnline(false), core.WithPeer(client))
	t.Cleanup(func() { _ = local.Close() })
	if _, _, err := local.SubmitHelpRequestFor(ctx, "u2", domain.HelpRequestIntake{EmergencyType: "Flood", Location: "Oak Ave"}); err != nil {
		t.Fatalf("submit help: %v", err)
	}
	if _, _, err := local.SubmitReplenishment(ctx, "NGO-5500", domain.ItemBlankets, 40); err != nil {
		t.Fatalf("submit replenishment: %v", err)
	}

	n, err := local.SetOnline(ctx, true)
	if err != nil {
		t.Fatalf("go online: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected two reconciled records, got %d", n)
	}
	if _, ok, _ := remote.UserHelpRequest(ctx, "u2"); !ok {
		t.Fatalf("help request did not reach the remote")
	}
	reqs, err := remote.OrgReplenishment(ctx, "NGO-5500")
	if err != nil || len(reqs) != 2 || reqs[0].Item != domain.ItemBlankets || reqs[0].Quantity != 40 {
		t.Fatalf("remote replenishment = %+v (%v)", reqs, err)
	}
}
