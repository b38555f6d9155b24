package domain

import "github.com/bwmarrin/snowflake"

// Context describes the transaction a commission is computed for.
type Context struct {
	Category    string
	ProductID   snowflake.ID
	AmountCents int64
}

// Select picks the winning policy for a context, or nil when none applies.
// Matching is active policies whose scope covers the context; selection is
// ascending priority, then scope specificity (product > category > global),
// then newest CreatedAt, then highest ID. The result depends only on the
// inputs.
func Select(policies []Policy, ctx Context) *Policy {
	var winner *Policy
	for i := range policies {
		p := &policies[i]
		if !p.Active || !matches(p, ctx) {
			continue
		}
		if winner == nil || better(p, winner) {
			winner = p
		}
	}
	return winner
}

// Compute returns the commission for a policy applied to an amount.
// Percentage rates truncate toward zero on integer cents; fixed amounts are
// capped at the transaction amount.
func Compute(p *Policy, amountCents int64) int64 {
	if p == nil || amountCents <= 0 {
		return 0
	}
	switch p.Type {
	case PolicyTypePercentage:
		return amountCents * p.RateBasisPoints / 10000
	case PolicyTypeFixed:
		if p.FixedAmountCents > amountCents {
			return amountCents
		}
		return p.FixedAmountCents
	default:
		return 0
	}
}

// SelectAndCompute resolves the commission for a context in one step.
// No matching policy means zero commission, not an error.
func SelectAndCompute(policies []Policy, ctx Context) (int64, *Policy) {
	winner := Select(policies, ctx)
	return Compute(winner, ctx.AmountCents), winner
}

func matches(p *Policy, ctx Context) bool {
	switch p.Scope {
	case ScopeGlobal:
		return true
	case ScopeCategory:
		return p.CategoryCode != "" && p.CategoryCode == ctx.Category
	case ScopeProduct:
		return p.ProductID != 0 && p.ProductID == ctx.ProductID
	default:
		return false
	}
}

func better(candidate, current *Policy) bool {
	if candidate.Priority != current.Priority {
		return candidate.Priority < current.Priority
	}
	if cs, ws := candidate.Scope.specificity(), current.Scope.specificity(); cs != ws {
		return cs > ws
	}
	if !candidate.CreatedAt.Equal(current.CreatedAt) {
		return candidate.CreatedAt.After(current.CreatedAt)
	}
	return candidate.ID > current.ID
}
