// Package screening evaluates configurable acceptance rules against an
// order submission before any lock is taken or store call is made.
// Rules are boolean govaluate expressions over request-derived
// parameters; a rule that evaluates false rejects the submission with
// the rule's name.
package screening

import (
	"fmt"

	"github.com/Knetic/govaluate"
)

// RuleConfig is one named acceptance rule.
type RuleConfig struct {
	Name       string
	Expression string
}

// DefaultRules enforce the baseline validation set: a buyer email, at
// least one line item, a shipping address, and a positive total.
func DefaultRules() []RuleConfig {
	return []RuleConfig{
		{Name: "RequireEmail", Expression: "has_email"},
		{Name: "RequireLineItems", Expression: "item_count > 0"},
		{Name: "RequireShippingAddress", Expression: "has_shipping_address"},
		{Name: "RequirePositiveTotal", Expression: "total > 0"},
	}
}

// Parameters are the request-derived values rules may reference.
type Parameters struct {
	Total              float64
	ItemCount          int
	HasEmail           bool
	HasShippingAddress bool
	Currency           string
}

type compiledRule struct {
	name string
	expr *govaluate.EvaluableExpression
}

// Screener holds compiled rules. Construct once at startup; Evaluate is
// safe for concurrent use because expressions are evaluated, not mutated.
type Screener struct {
	rules []compiledRule
}

// NewScreener compiles the rule set, failing fast on an invalid
// expression so misconfiguration surfaces at startup.
func NewScreener(rules []RuleConfig) (*Screener, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, rc := range rules {
		expr, err := govaluate.NewEvaluableExpression(rc.Expression)
		if err != nil {
			return nil, fmt.Errorf("screening: compile rule %q: %w", rc.Name, err)
		}
		compiled = append(compiled, compiledRule{name: rc.Name, expr: expr})
	}
	return &Screener{rules: compiled}, nil
}

// Evaluate runs every rule. It returns the name of the first rule that
// rejected the submission, or ok=true when all rules pass. A rule whose
// expression does not produce a boolean is an evaluation error.
func (s *Screener) Evaluate(p Parameters) (ok bool, failedRule string, err error) {
	// govaluate compares numbers as float64 and does not coerce ints.
	params := map[string]interface{}{
		"total":                p.Total,
		"item_count":           float64(p.ItemCount),
		"has_email":            p.HasEmail,
		"has_shipping_address": p.HasShippingAddress,
		"currency":             p.Currency,
	}

	for _, rule := range s.rules {
		result, err := rule.expr.Evaluate(params)
		if err != nil {
			return false, rule.name, fmt.Errorf("screening: evaluate rule %q: %w", rule.name, err)
		}
		passed, isBool := result.(bool)
		if !isBool {
			return false, rule.name, fmt.Errorf("screening: rule %q did not evaluate to a boolean", rule.name)
		}
		if !passed {
			return false, rule.name, nil
		}
	}
	return true, "", nil
}
