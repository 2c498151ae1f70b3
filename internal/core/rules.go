package core

import "aeracore/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(InventoryBoundsRule())
	engine.Register(HelpRequestImmutabilityRule())
	engine.Register(ReplenishmentTransitionRule())
	return engine
}

func decodeChangePayload[T any](payload domain.ChangePayload) (T, bool) {
	return domain.DecodePayload[T](payload)
}

func toSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
