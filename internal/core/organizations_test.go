package core_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"aeracore/internal/core"
	"aeracore/pkg/domain"
)

func scriptedRandom(values ...int) func(int) int {
	i := 0
	return func(int) int {
		v := values[i%len(values)]
		i++
		return v
	}
}

func TestOrganizationIDPrefix(t *testing.T) {
	cases := map[domain.OrganizationType]string{
		domain.OrgTypeChurch:          "CH",
		domain.OrgTypeNGO:             "NGO",
		domain.OrgTypeCommunityCenter: "ORG",
		domain.OrgTypeLocalGov:        "ORG",
		"":                            "ORG",
	}
	for typ, want := range cases {
		if got := core.OrganizationIDPrefix(typ); got != want {
			t.Fatalf("prefix for %q = %s, want %s", typ, got, want)
		}
	}
}

func TestGenerateOrganizationIDSkipsTakenIDs(t *testing.T) {
	h := newHarness(t, core.WithRandom(scriptedRandom(8921, 0)))
	id, err := h.svc.GenerateOrganizationID(context.Background(), domain.OrgTypeChurch)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if id != "CH-1000" {
		t.Fatalf("expected the seeded CH-9921 to be skipped, got %s", id)
	}
}

func TestGenerateOrganizationIDGivesUp(t *testing.T) {
	h := newHarness(t, core.WithRandom(scriptedRandom(4500)))
	if _, err := h.svc.GenerateOrganizationID(context.Background(), domain.OrgTypeNGO); err == nil {
		t.Fatalf("expected an error when every candidate is taken")
	}
}

func TestGeneratedIDsMatchFormat(t *testing.T) {
	svc := core.NewInMemoryService()
	for typ, prefix := range map[domain.OrganizationType]string{
		domain.OrgTypeNGO:             "NGO-",
		domain.OrgTypeChurch:          "CH-",
		domain.OrgTypeCommunityCenter: "ORG-",
	} {
		id, err := svc.GenerateOrganizationID(context.Background(), typ)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		digits := strings.TrimPrefix(id, prefix)
		if digits == id || len(digits) != 4 || digits[0] == '0' {
			t.Fatalf("unexpected id %s for %s", id, typ)
		}
		for _, r := range digits {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit suffix in %s", id)
			}
		}
	}
}

func TestUpsertOrganizationCreatesInventoryAndPromotesCreator(t *testing.T) {
	h := newHarness(t, core.WithRandom(scriptedRandom(1234)))
	ctx := context.Background()
	mustLogin(t, h, "555-1002")

	org, _, err := h.svc.UpsertOrganization(ctx, domain.OrganizationProfile{Name: "Eastside Shelter", Type: domain.OrgTypeCommunityCenter})
	if err != nil {
		t.Fatalf("create organization: %v", err)
	}
	if org.ID != "ORG-2234" || !org.Active {
		t.Fatalf("unexpected organization %+v", org)
	}
	doc, err := h.svc.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	inv, ok := doc.Inventories[org.ID]
	if !ok || inv != (domain.OrgInventory{}) {
		t.Fatalf("expected a zero inventory for %s, got %+v (present=%v)", org.ID, inv, ok)
	}
	creator, _ := doc.FindUser("u2")
	if creator.Role != domain.RoleInstitutionAdmin || creator.CommunityID != org.ID {
		t.Fatalf("creator not promoted: %+v", creator)
	}
}

func TestUpsertOrganizationUpdateKeepsStateFields(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	org, _, err := h.svc.UpsertOrganization(ctx, domain.OrganizationProfile{ID: "CH-9921", Name: "Grace Church", Type: domain.OrgTypeChurch})
	if err != nil {
		t.Fatalf("update organization: %v", err)
	}
	if !org.Active || org.CurrentBroadcast == "" {
		t.Fatalf("update must keep active flag and broadcast, got %+v", org)
	}
	if _, _, err := h.svc.UpsertOrganization(ctx, domain.OrganizationProfile{Type: domain.OrgTypeNGO}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for a nameless organization, got %v", err)
	}
	stored, err := h.svc.GetOrganization(ctx, "CH-9921")
	if err != nil || stored.Name != "Grace Church" {
		t.Fatalf("unexpected stored organization %+v (%v)", stored, err)
	}
}

func TestSetOrganizationActive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	org, _, err := h.svc.SetOrganizationActive(ctx, "NGO-5500", false)
	if err != nil || org.Active {
		t.Fatalf("expected deactivated organization, got %+v (%v)", org, err)
	}
	if _, _, err := h.svc.SetOrganizationActive(ctx, "NGO-0000", false); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	orgs, err := h.svc.ListOrganizations(ctx)
	if err != nil || len(orgs) != 2 {
		t.Fatalf("expected 2 organizations, got %d (%v)", len(orgs), err)
	}
}
