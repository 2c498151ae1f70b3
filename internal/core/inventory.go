package core

import (
	"context"

	"aeracore/pkg/domain"
)

// InventoryDiff is a proposed inventory replacement awaiting confirmation.
type InventoryDiff struct {
	OrgID   string                     `json:"orgId"`
	Before  domain.OrgInventory        `json:"before"`
	After   domain.OrgInventory        `json:"after"`
	Changed []domain.InventoryCategory `json:"changed"`
}

// Empty reports whether applying the diff would change nothing.
func (d InventoryDiff) Empty() bool { return len(d.Changed) == 0 }

func diffInventory(orgID string, before, after domain.OrgInventory) InventoryDiff {
	diff := InventoryDiff{OrgID: orgID, Before: before, After: after, Changed: []domain.InventoryCategory{}}
	for _, c := range domain.Categories {
		if before.Get(c) != after.Get(c) {
			diff.Changed = append(diff.Changed, c)
		}
	}
	return diff
}

// Inventory returns an organization's stock, zeros when none is stored.
func (s *Service) Inventory(ctx context.Context, orgID string) (domain.OrgInventory, error) {
	return query(ctx, s, "get_inventory", func(doc domain.Document) (domain.OrgInventory, error) {
		return doc.InventoryFor(orgID), nil
	})
}

// SetInventory replaces an organization's stock. Counts are clamped at zero.
func (s *Service) SetInventory(ctx context.Context, orgID string, inv domain.OrgInventory) (domain.OrgInventory, Result, error) {
	return mutate(ctx, s, "set_inventory", domain.EntityInventory, func(domain.OrgInventory) string { return orgID },
		func(tx *Transaction) (domain.OrgInventory, error) {
			if orgID == "" {
				return domain.OrgInventory{}, domain.ValidationError{Field: "orgId", Reason: "required"}
			}
			return tx.setInventory(orgID, inv), nil
		})
}

// ProposeInventory computes the effect of SetInventory without writing.
func (s *Service) ProposeInventory(ctx context.Context, orgID string, inv domain.OrgInventory) (InventoryDiff, error) {
	return query(ctx, s, "propose_inventory", func(doc domain.Document) (InventoryDiff, error) {
		if orgID == "" {
			return InventoryDiff{}, domain.ValidationError{Field: "orgId", Reason: "required"}
		}
		return diffInventory(orgID, doc.InventoryFor(orgID), inv.Sanitize()), nil
	})
}

// CommitInventory applies a proposal if the stored inventory still matches
// the proposal's Before; otherwise it fails with domain.ErrStaleWrite.
func (s *Service) CommitInventory(ctx context.Context, diff InventoryDiff) (domain.OrgInventory, Result, error) {
	return mutate(ctx, s, "commit_inventory", domain.EntityInventory, func(domain.OrgInventory) string { return diff.OrgID },
		func(tx *Transaction) (domain.OrgInventory, error) {
			current := tx.doc.InventoryFor(diff.OrgID)
			if current != diff.Before {
				return current, domain.ErrStaleWrite
			}
			if diff.Before == diff.After.Sanitize() {
				return current, nil
			}
			return tx.setInventory(diff.OrgID, diff.After), nil
		})
}
