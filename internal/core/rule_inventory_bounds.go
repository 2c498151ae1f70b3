package core

import (
	"context"
	"fmt"

	"aeracore/pkg/domain"
)

// InventoryBoundsRule blocks any inventory write leaving a negative counter.
func InventoryBoundsRule() domain.Rule {
	return inventoryBoundsRule{}
}

type inventoryBoundsRule struct{}

func (inventoryBoundsRule) Name() string { return "inventory_bounds" }

func (inventoryBoundsRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityInventory {
			continue
		}
		inv, ok := decodeChangePayload[domain.OrgInventory](change.After)
		if !ok {
			continue
		}
		for _, c := range domain.Categories {
			if n := inv.Get(c); n < 0 {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "inventory_bounds",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("inventory %s has negative %s count %d", change.EntityID, c, n),
					Entity:   domain.EntityInventory,
					EntityID: change.EntityID,
				})
			}
		}
	}
	return res, nil
}
