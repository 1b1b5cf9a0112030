package crawler

import "fmt"

// BudgetPolicy decides how much budget a child page inherits.
type BudgetPolicy int

const (
	// PerSibling charges one unit for every local link followed from a page,
	// so the n-th followed link starts with budget-n. Wide pages therefore
	// exhaust the budget faster than deep ones.
	PerSibling BudgetPolicy = iota
	// PerDepth charges one unit per level: every child starts with budget-1,
	// which makes the budget a maximum depth.
	PerDepth
)

// String returns the configuration name of the policy.
func (p BudgetPolicy) String() string {
	switch p {
	case PerSibling:
		return "sibling"
	case PerDepth:
		return "depth"
	default:
		return fmt.Sprintf("BudgetPolicy(%d)", int(p))
	}
}

// ParseBudgetPolicy converts a configuration name into a BudgetPolicy.
func ParseBudgetPolicy(name string) (BudgetPolicy, error) {
	switch name {
	case "", "sibling":
		return PerSibling, nil
	case "depth":
		return PerDepth, nil
	default:
		return 0, fmt.Errorf("unknown budget policy %q", name)
	}
}

// nextBudget returns the budget handed to the consumed-th followed child
// (1-based) of a page that was visited with budget.
func nextBudget(policy BudgetPolicy, budget, consumed int) int {
	if policy == PerDepth {
		return budget - 1
	}
	return budget - consumed
}
