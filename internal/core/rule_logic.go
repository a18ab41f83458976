package core

// RuleContext carries the dimension values of a single resolution request.
// CustomerID must already be normalized to the commercial entity. A nil ZoneID
// or CategoryID means the invoice line has no value for that dimension, in
// which case only wildcard rules can match it.
type RuleContext struct {
	CustomerID int
	ZoneID     *int
	CategoryID *int
}

// Specificity weights. A rule matching on more dimensions always outranks one
// matching on fewer, and the additive weighting orders rules that match the
// same number of dimensions: customer beats zone beats category.
const (
	weightCustomer = 4
	weightZone     = 2
	weightCategory = 1
)

// matchesDimension reports whether a rule dimension (nil = wildcard) accepts
// the context value (nil = absent).
func matchesDimension(ruleVal, ctxVal *int) bool {
	if ruleVal == nil {
		return true
	}
	return ctxVal != nil && *ruleVal == *ctxVal
}

// Matches reports whether the rule applies to the given context.
// The salesperson and company dimensions are assumed pre-filtered.
func (r *CommissionRule) Matches(rctx RuleContext) bool {
	return matchesDimension(r.CustomerID, &rctx.CustomerID) &&
		matchesDimension(r.ZoneID, rctx.ZoneID) &&
		matchesDimension(r.CategoryID, rctx.CategoryID)
}

// Specificity returns the rule's additive specificity score.
func (r *CommissionRule) Specificity() int {
	score := 0
	if r.CustomerID != nil {
		score += weightCustomer
	}
	if r.ZoneID != nil {
		score += weightZone
	}
	if r.CategoryID != nil {
		score += weightCategory
	}
	return score
}

// BestRule selects the highest-specificity matching rule in one pass over the
// candidates. Score ties break on the lowest rule ID, so resolution is
// deterministic regardless of table insertion order. Returns nil when no
// candidate matches, which is a normal "no commission for this sale" outcome.
func BestRule(candidates []CommissionRule, rctx RuleContext) *CommissionRule {
	var best *CommissionRule
	bestScore := -1
	for i := range candidates {
		r := &candidates[i]
		if !r.Matches(rctx) {
			continue
		}
		score := r.Specificity()
		if score > bestScore || (score == bestScore && best != nil && r.ID < best.ID) {
			best = r
			bestScore = score
		}
	}
	return best
}
