package collector

import (
	"fmt"

	"github.com/iancoleman/strcase"
	"github.com/turbot/trail-inspector/constants"
)

// BudgetPolicy decides which fetch attempts count against the per-pass limit
type BudgetPolicy int

const (
	// BudgetConsumeOnFailure counts every attempt, whether or not the object was collected
	BudgetConsumeOnFailure BudgetPolicy = iota
	// BudgetCountSuccessesOnly counts only objects which were fetched, parsed and cached
	BudgetCountSuccessesOnly
)

func (p BudgetPolicy) String() string {
	switch p {
	case BudgetConsumeOnFailure:
		return constants.BudgetPolicyConsumeOnFailure
	case BudgetCountSuccessesOnly:
		return constants.BudgetPolicyCountSuccessesOnly
	default:
		return fmt.Sprintf("budget_policy(%d)", int(p))
	}
}

// ParseBudgetPolicy accepts a policy name in any case style, e.g. "count_successes_only" or "CountSuccessesOnly"
func ParseBudgetPolicy(name string) (BudgetPolicy, error) {
	switch strcase.ToSnake(name) {
	case "", constants.BudgetPolicyConsumeOnFailure:
		return BudgetConsumeOnFailure, nil
	case constants.BudgetPolicyCountSuccessesOnly:
		return BudgetCountSuccessesOnly, nil
	default:
		return BudgetConsumeOnFailure, fmt.Errorf("unsupported budget policy %q", name)
	}
}
