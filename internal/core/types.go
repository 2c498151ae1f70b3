package core

import "aeracore/pkg/domain"

type (
	// Result aggregates rule violations from a committed transaction.
	Result = domain.Result
	// Change describes one entity mutation inside a transaction.
	Change = domain.Change
	// Rule is evaluated against every transaction before it is saved.
	Rule = domain.Rule
	// RulesEngine runs the registered rules.
	RulesEngine = domain.RulesEngine
	// Violation is one rule finding.
	Violation = domain.Violation
)
