package core_test

import (
	"context"
	"errors"
	"testing"

	"aeracore/internal/core"
	"aeracore/pkg/domain"
)

func TestSubmitReplenishmentValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, _, err := h.svc.SubmitReplenishment(ctx, "CH-9921", "Garbage", 10); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown item, got %v", err)
	}
	if _, _, err := h.svc.SubmitReplenishment(ctx, "CH-9921", domain.ItemBlankets, 0); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero quantity, got %v", err)
	}
	if _, _, err := h.svc.SubmitReplenishment(ctx, "ORG-0404", domain.ItemBlankets, 5); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown org, got %v", err)
	}
	all, err := h.svc.ListReplenishment(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("rejected submissions must not create requests, have %d (%v)", len(all), err)
	}
}

func TestSubmitReplenishmentDefaults(t *testing.T) {
	h := newHarness(t, core.WithOnline(false), core.WithRandom(scriptedRandom(10)))
	ctx := context.Background()

	req, _, err := h.svc.SubmitReplenishment(ctx, "CH-9921", domain.ItemFoodBoxes, 25)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if req.ID != "RR-id-1" || req.Provider != "Diocese HQ" || req.OrgName != "Grace Community Church" {
		t.Fatalf("unexpected request %+v", req)
	}
	if req.Status != domain.ReplenishmentPending || req.Synced {
		t.Fatalf("expected unsynced PENDING request, got %+v", req)
	}
	all, _ := h.svc.ListReplenishment(ctx)
	if all[0].ID != req.ID {
		t.Fatalf("new requests are prepended, first is %s", all[0].ID)
	}

	org, _, err := h.svc.UpsertOrganization(ctx, domain.OrganizationProfile{Name: "Pop-up Camp"})
	if err != nil {
		t.Fatalf("create org: %v", err)
	}
	req, _, err = h.svc.SubmitReplenishment(ctx, org.ID, domain.ItemBlankets, 3)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if req.Provider != "Unknown" {
		t.Fatalf("expected Unknown provider, got %q", req.Provider)
	}
}

func TestFulfillWithConfirmationIsAdditive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	delivered := domain.OrgInventory{Water: 50}

	for i := 0; i < 2; i++ {
		req, _, err := h.svc.FulfillReplenishment(ctx, "req-1", delivered, domain.ReplenishmentFulfilled, true)
		if err != nil {
			t.Fatalf("fulfill %d: %v", i, err)
		}
		if req.Status != domain.ReplenishmentFulfilled || req.FulfilledAt == nil || req.OrgConfirmedAt == nil {
			t.Fatalf("unexpected request %+v", req)
		}
	}
	inv, _ := h.svc.Inventory(ctx, "CH-9921")
	if inv.Water != 220 {
		t.Fatalf("two confirmed fulfillments must add twice: water=%d", inv.Water)
	}

	req, _, err := h.svc.FulfillReplenishment(ctx, "req-1", delivered, domain.ReplenishmentApproved, false)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if req.Status != domain.ReplenishmentApproved {
		t.Fatalf("expected APPROVED, got %s", req.Status)
	}
	if inv, _ := h.svc.Inventory(ctx, "CH-9921"); inv.Water != 220 {
		t.Fatalf("unconfirmed fulfillment must not touch inventory: water=%d", inv.Water)
	}
	if _, _, err := h.svc.FulfillReplenishment(ctx, "req-1", delivered, domain.ReplenishmentStocked, false); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for STOCKED, got %v", err)
	}
}

func TestStockForcesStockedStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	req, _, err := h.svc.StockReplenishment(ctx, "req-1", domain.OrgInventory{Water: 10, Food: -3})
	if err != nil {
		t.Fatalf("stock: %v", err)
	}
	if req.Status != domain.ReplenishmentStocked || !req.Stocked || req.StockedAt == nil || req.StockedQuantity != 10 {
		t.Fatalf("unexpected stocked request %+v", req)
	}
	inv, _ := h.svc.Inventory(ctx, "CH-9921")
	if inv.Water != 130 || inv.Food != 45 {
		t.Fatalf("unexpected inventory %+v", inv)
	}

	before, _ := h.svc.Snapshot(ctx)
	if _, _, err := h.svc.StockReplenishment(ctx, "nope", domain.OrgInventory{Water: 1}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	after, _ := h.svc.Snapshot(ctx)
	if after.Revision != before.Revision {
		t.Fatalf("missing id must not write")
	}
}

func TestProposeAndCommitStock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p, err := h.svc.ProposeStock(ctx, "req-2", domain.OrgInventory{MedicalKits: 200})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if p.Inventory.Before.MedicalKits != 500 || p.Inventory.After.MedicalKits != 700 {
		t.Fatalf("unexpected proposal %+v", p.Inventory)
	}
	stale := p
	if _, _, err := h.svc.CommitStock(ctx, p); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if inv, _ := h.svc.Inventory(ctx, "NGO-5500"); inv.MedicalKits != 700 {
		t.Fatalf("expected 700 kits, got %d", inv.MedicalKits)
	}
	if _, _, err := h.svc.CommitStock(ctx, stale); !errors.Is(err, domain.ErrStaleWrite) {
		t.Fatalf("replaying a proposal must be stale, got %v", err)
	}
	if _, err := h.svc.ProposeStock(ctx, "missing", domain.OrgInventory{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetReplenishmentStatusWarnsWhenLeavingStocked(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, _, err := h.svc.StockReplenishment(ctx, "req-1", domain.OrgInventory{Water: 50}); err != nil {
		t.Fatalf("stock: %v", err)
	}
	req, res, err := h.svc.SetReplenishmentStatus(ctx, "req-1", domain.ReplenishmentPending)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if req.Status != domain.ReplenishmentPending {
		t.Fatalf("expected PENDING, got %s", req.Status)
	}
	if w := res.Warnings(); len(w) != 1 || w[0].Rule != "replenishment_transition" {
		t.Fatalf("expected one transition warning, got %+v", res.Violations)
	}
	if _, _, err := h.svc.SetReplenishmentStatus(ctx, "req-1", "SHIPPED"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, _, err := h.svc.SetReplenishmentStatus(ctx, "req-9", domain.ReplenishmentApproved); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSignReplenishment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	req, _, err := h.svc.SignReplenishment(ctx, "req-2", "data:image/png;base64,AAA", domain.SignatureRelease)
	if err != nil {
		t.Fatalf("sign release: %v", err)
	}
	if req.Signature == "" || req.SignedAt == nil || req.ReceivedSignature != "" {
		t.Fatalf("unexpected release signature state %+v", req)
	}
	req, _, err = h.svc.SignReplenishment(ctx, "req-2", "data:image/png;base64,BBB", domain.SignatureReceive)
	if err != nil {
		t.Fatalf("sign receive: %v", err)
	}
	if req.ReceivedSignature == "" || req.ReceivedAt == nil || req.Signature != "data:image/png;base64,AAA" {
		t.Fatalf("unexpected receive signature state %+v", req)
	}
	if _, _, err := h.svc.SignReplenishment(ctx, "req-2", "x", "WITNESS"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, _, err := h.svc.SignReplenishment(ctx, "req-2", "", domain.SignatureRelease); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty signature, got %v", err)
	}
}

func TestOrgReplenishmentNewestFirst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	req, _, err := h.svc.SubmitReplenishment(ctx, "CH-9921", domain.ItemMedicalKits, 4)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	reqs, err := h.svc.OrgReplenishment(ctx, "CH-9921")
	if err != nil {
		t.Fatalf("org replenishment: %v", err)
	}
	if len(reqs) != 2 || reqs[0].ID != req.ID || reqs[1].ID != "req-1" {
		t.Fatalf("unexpected order %+v", reqs)
	}
	got, err := h.svc.GetReplenishment(ctx, req.ID)
	if err != nil || got.Quantity != 4 {
		t.Fatalf("get: %+v (%v)", got, err)
	}
}

func TestReplenishmentAggregation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, _, err := h.svc.SubmitReplenishment(ctx, "NGO-5500", domain.ItemBlankets, 80); err != nil {
		t.Fatalf("submit: %v", err)
	}
	agg, err := h.svc.ReplenishmentAggregation(ctx)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(agg) != 3 {
		t.Fatalf("expected rows for blankets, water and medical kits only, got %+v", agg)
	}
	if agg[0].Item != domain.ItemBlankets || agg[0].PendingQuantity != 80 {
		t.Fatalf("largest outstanding demand first, got %+v", agg[0])
	}
	if agg[1].Item != domain.ItemWaterCases || agg[1].PendingQuantity != 50 {
		t.Fatalf("unexpected second row %+v", agg[1])
	}
	for _, row := range agg {
		if row.Item == domain.ItemMedicalKits && (row.Fulfilled != 1 || row.TotalRequested != 200 || row.PendingQuantity != 0) {
			t.Fatalf("unexpected medical kit row %+v", row)
		}
	}
}
