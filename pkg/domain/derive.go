package domain

import (
	"sort"
	"strings"
)

// StockLevel grades inventory coverage.
type StockLevel string

// Stock levels.
const (
	StockHigh    StockLevel = "HIGH"
	StockMedium  StockLevel = "MEDIUM"
	StockLow     StockLevel = "LOW"
	StockUnknown StockLevel = "UNKNOWN"
)

// Coverage thresholds, as numerator/denominator pairs so that breakpoints are
// compared exactly.
const (
	highCoverageNum   = 4
	highCoverageDen   = 5
	mediumCoverageNum = 3
	mediumCoverageDen = 10
)

// StockStatus is the derived level and coverage ratio of one category.
// Coverage is nil when no denominator is known.
type StockStatus struct {
	Level    StockLevel `json:"level"`
	Coverage *float64   `json:"coverage"`
}

// StockStatusFor grades quantity against a population denominator. A
// denominator of zero or less yields UNKNOWN.
func StockStatusFor(quantity, denominator int) StockStatus {
	if denominator <= 0 {
		return StockStatus{Level: StockUnknown}
	}
	coverage := float64(quantity) / float64(denominator)
	level := StockLow
	switch {
	case quantity*highCoverageDen >= denominator*highCoverageNum:
		level = StockHigh
	case quantity*mediumCoverageDen >= denominator*mediumCoverageNum:
		level = StockMedium
	}
	return StockStatus{Level: level, Coverage: &coverage}
}

// InventoryStatuses grades every category of inv independently.
func InventoryStatuses(inv OrgInventory, denominator int) map[InventoryCategory]StockStatus {
	out := make(map[InventoryCategory]StockStatus, len(Categories))
	for _, c := range Categories {
		out[c] = StockStatusFor(inv.Get(c), denominator)
	}
	return out
}

// RecommendedResupply is the quantity needed to lift coverage to the HIGH
// threshold, never negative. Unknown denominators recommend nothing.
func RecommendedResupply(quantity, denominator int) int {
	if denominator <= 0 {
		return 0
	}
	target := (denominator*highCoverageNum + highCoverageDen - 1) / highCoverageDen
	return max(0, target-quantity)
}

// ResupplySuggestion prefills a replenishment request for a LOW category.
type ResupplySuggestion struct {
	Category InventoryCategory `json:"category"`
	Item     RequestItem       `json:"item"`
	Quantity int               `json:"quantity"`
}

// ResupplySuggestions lists LOW categories of inv with recommended quantities.
func ResupplySuggestions(inv OrgInventory, denominator int) []ResupplySuggestion {
	var out []ResupplySuggestion
	for _, c := range Categories {
		if StockStatusFor(inv.Get(c), denominator).Level != StockLow {
			continue
		}
		out = append(out, ResupplySuggestion{
			Category: c,
			Item:     ItemForCategory(c),
			Quantity: RecommendedResupply(inv.Get(c), denominator),
		})
	}
	return out
}

// CoverageBase picks the stock denominator: the linked member count, falling
// back to the organization's registered population.
func CoverageBase(memberCount, registeredPopulation int) int {
	if memberCount > 0 {
		return memberCount
	}
	return max(0, registeredPopulation)
}

// TriagePriority evaluates the ordered priority rules; the first match wins.
// Unanswered evacuation, power and water questions escalate like a "no".
func TriagePriority(in HelpRequestIntake) Priority {
	switch in.EmergencyType {
	case "Medical", "Fire":
		return PriorityCritical
	}
	if IsTrue(in.IsInjured) {
		return PriorityCritical
	}
	if in.EmergencyType == "Flood" || !IsTrue(in.CanEvacuate) || len(in.VulnerableGroups) > 0 {
		return PriorityHigh
	}
	if IsTrue(in.HazardsPresent) || !IsTrue(in.HasPower) || !IsTrue(in.HasWater) {
		return PriorityMedium
	}
	return PriorityLow
}

// StatusCounts tallies member statuses.
type StatusCounts struct {
	Safe    int `json:"safe"`
	Danger  int `json:"danger"`
	Unknown int `json:"unknown"`
}

// AggregateMemberStatus counts SAFE, DANGER and UNKNOWN statuses. Matching is
// case-insensitive; unrecognized values are ignored.
func AggregateMemberStatus(statuses []MemberStatus) StatusCounts {
	var counts StatusCounts
	for _, s := range statuses {
		switch MemberStatus(strings.ToUpper(strings.TrimSpace(string(s)))) {
		case MemberSafe:
			counts.Safe++
		case MemberDanger:
			counts.Danger++
		case MemberUnknown:
			counts.Unknown++
		}
	}
	return counts
}

// MemberStatusFromRecord derives a member's status from their latest record.
// Only a missing record or an explicit UNKNOWN check-in yields UNKNOWN; an
// unanswered isSafe reads as DANGER.
func MemberStatusFromRecord(rec *HelpRequestRecord) MemberStatus {
	if rec == nil {
		return MemberUnknown
	}
	if rec.CheckIn != "" {
		return rec.CheckIn
	}
	if IsTrue(rec.IsSafe) {
		return MemberSafe
	}
	return MemberDanger
}

// MemberNeeds lists the needs signalled by a member's latest record.
func MemberNeeds(rec *HelpRequestRecord) []string {
	needs := []string{}
	if rec == nil {
		return needs
	}
	if IsFalse(rec.HasFood) {
		needs = append(needs, "Food")
	}
	if IsFalse(rec.HasWater) {
		needs = append(needs, "Water")
	}
	if IsTrue(rec.IsInjured) {
		needs = append(needs, "Medical")
	}
	if MemberStatusFromRecord(rec) == MemberDanger {
		needs = append(needs, "Rescue")
	}
	return needs
}

// ItemAggregate summarizes replenishment demand for one item.
type ItemAggregate struct {
	Item            RequestItem `json:"item"`
	Pending         int         `json:"pending"`
	Approved        int         `json:"approved"`
	Fulfilled       int         `json:"fulfilled"`
	TotalRequested  int         `json:"totalRequested"`
	PendingQuantity int         `json:"pendingQuantity"`
}

// RequestItems lists the requestable items in display order.
var RequestItems = []RequestItem{ItemWaterCases, ItemFoodBoxes, ItemBlankets, ItemMedicalKits}

// AggregateReplenishment summarizes demand for each item that has at least one
// request, ordered by outstanding quantity, largest first. PENDING and APPROVED quantities are
// outstanding; FULFILLED and STOCKED requests count as fulfilled.
func AggregateReplenishment(reqs []ReplenishmentRequest) []ItemAggregate {
	out := make([]ItemAggregate, 0, len(RequestItems))
	for _, item := range RequestItems {
		agg := ItemAggregate{Item: item}
		seen := false
		for _, r := range reqs {
			if r.Item != item {
				continue
			}
			seen = true
			agg.TotalRequested += r.Quantity
			switch r.Status {
			case ReplenishmentPending:
				agg.Pending++
				agg.PendingQuantity += r.Quantity
			case ReplenishmentApproved:
				agg.Approved++
				agg.PendingQuantity += r.Quantity
			case ReplenishmentFulfilled, ReplenishmentStocked:
				agg.Fulfilled++
			}
		}
		if seen {
			out = append(out, agg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PendingQuantity > out[j].PendingQuantity
	})
	return out
}
