package model

import (
	"time"

	"glyph-dict-activation/internal/domain"
)

// PlanTable maps plan type names (monthly, quarterly, yearly, trial, ...)
// to entitlement durations in days. The set is extensible via configuration;
// durations are resolved at activation time, not frozen at code generation.
type PlanTable map[string]int

// Duration resolves a plan type to its entitlement duration.
func (t PlanTable) Duration(planType string) (time.Duration, error) {
	days, ok := t[planType]
	if !ok || days <= 0 {
		return 0, domain.ErrUnknownPlan
	}
	return time.Duration(days) * 24 * time.Hour, nil
}

// Has reports whether planType is a known plan.
func (t PlanTable) Has(planType string) bool {
	days, ok := t[planType]
	return ok && days > 0
}

// Types returns the configured plan type names.
func (t PlanTable) Types() []string {
	out := make([]string, 0, len(t))
	for name := range t {
		out = append(out, name)
	}
	return out
}
