package core

import (
	"context"
	"fmt"

	"aeracore/pkg/domain"
)

// ReplenishmentTransitionRule validates replenishment lifecycle changes. Unknown
// statuses and changes to a request's organization or item are blocked. Moving
// a request out of STOCKED is allowed but reported as a warning, since stocked
// quantities have already been added to inventory.
func ReplenishmentTransitionRule() domain.Rule {
	return replenishmentTransitionRule{}
}

type replenishmentTransitionRule struct{}

var (
	replenishmentStates = toSet(
		string(domain.ReplenishmentPending),
		string(domain.ReplenishmentApproved),
		string(domain.ReplenishmentFulfilled),
		string(domain.ReplenishmentStocked),
	)
	replenishmentTerminal = toSet(string(domain.ReplenishmentStocked))
)

func (replenishmentTransitionRule) Name() string { return "replenishment_transition" }

func (replenishmentTransitionRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityReplenishment {
			continue
		}
		after, ok := decodeChangePayload[domain.ReplenishmentRequest](change.After)
		if !ok {
			continue
		}
		if _, valid := replenishmentStates[string(after.Status)]; !valid {
			res.Violations = append(res.Violations, violation(change, "replenishment_transition",
				fmt.Sprintf("replenishment request %s is set to invalid state %s", after.ID, after.Status)))
			continue
		}
		if after.Quantity <= 0 || !after.Item.Valid() {
			res.Violations = append(res.Violations, violation(change, "replenishment_transition",
				fmt.Sprintf("replenishment request %s must request a positive quantity of a known item", after.ID)))
			continue
		}

		before, ok := decodeChangePayload[domain.ReplenishmentRequest](change.Before)
		if !ok {
			continue
		}
		if before.OrgID != after.OrgID || before.Item != after.Item {
			res.Violations = append(res.Violations, violation(change, "replenishment_transition",
				fmt.Sprintf("replenishment request %s cannot change organization or item", after.ID)))
			continue
		}
		if _, terminal := replenishmentTerminal[string(before.Status)]; terminal && after.Status != before.Status {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "replenishment_transition",
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("replenishment request %s moved from %s to %s after stocking", after.ID, before.Status, after.Status),
				Entity:   domain.EntityReplenishment,
				EntityID: after.ID,
			})
		}
	}
	return res, nil
}
