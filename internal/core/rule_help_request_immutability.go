package core

import (
	"context"
	"fmt"
	"reflect"

	"aeracore/pkg/domain"
)

// HelpRequestImmutabilityRule blocks updates to a help request that touch
// anything other than its location, status and synced flag.
func HelpRequestImmutabilityRule() domain.Rule {
	return helpRequestImmutabilityRule{}
}

type helpRequestImmutabilityRule struct{}

func (helpRequestImmutabilityRule) Name() string { return "help_request_immutability" }

func (helpRequestImmutabilityRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityHelpRequest {
			continue
		}
		after, ok := decodeChangePayload[domain.HelpRequestRecord](change.After)
		if !ok {
			continue
		}
		if !after.Status.Valid() {
			res.Violations = append(res.Violations, violation(change, "help_request_immutability",
				fmt.Sprintf("help request %s has invalid status %q", change.EntityID, after.Status)))
			continue
		}
		if change.Action != domain.ActionUpdate {
			continue
		}
		before, ok := decodeChangePayload[domain.HelpRequestRecord](change.Before)
		if !ok {
			continue
		}
		if !reflect.DeepEqual(frozenHelpFields(before), frozenHelpFields(after)) {
			res.Violations = append(res.Violations, violation(change, "help_request_immutability",
				fmt.Sprintf("help request %s may only change location, status or synced", change.EntityID)))
		}
	}
	return res, nil
}

// frozenHelpFields clears the mutable fields so the rest can be compared.
func frozenHelpFields(r domain.HelpRequestRecord) domain.HelpRequestRecord {
	r.Location = ""
	r.Status = ""
	r.Synced = false
	r.Timestamp = r.Timestamp.UTC()
	return r
}

func violation(change domain.Change, rule, msg string) domain.Violation {
	return domain.Violation{
		Rule:     rule,
		Severity: domain.SeverityBlock,
		Message:  msg,
		Entity:   change.Entity,
		EntityID: change.EntityID,
	}
}
