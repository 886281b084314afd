package app

import (
	"sort"

	"github.com/bearyjd/vitalforge/internal/domain"
)

// ruleMeta is the declarative header every rule carries.
type ruleMeta struct {
	code     string
	category domain.Category
	severity domain.Severity
	metrics  []domain.MetricKind
}

// singleRule is one single-metric rule. Implementations are declarative
// records; the evaluator drives them all the same way.
type singleRule interface {
	// evaluate returns the finding and whether the rule triggered.
	// Insufficient history is a non-trigger, never an error.
	evaluate(snap *TrendSnapshot) (domain.Finding, bool)
}

// correlationRule triggers when all of its required single-metric rules
// triggered in the same window. It supersedes its constituents in the
// ordering without removing them.
type correlationRule struct {
	ruleMeta
	requires []string
	message  string
}

// RuleEvaluator is a stateless function of a trend snapshot. Running it
// twice on identical input produces identical ordered output.
type RuleEvaluator struct {
	singles      []singleRule
	correlations []correlationRule
}

// NewRuleEvaluator creates an evaluator with the default rule set.
func NewRuleEvaluator() *RuleEvaluator {
	return &RuleEvaluator{
		singles:      defaultSingleRules(),
		correlations: defaultCorrelationRules(),
	}
}

// Evaluate runs every rule against the snapshot and returns the ordered
// findings: correlations first (most severe first), then single-metric
// findings grouped by the fixed category order, each group ordered by
// descending severity then rule declaration order.
func (e *RuleEvaluator) Evaluate(snap *TrendSnapshot) []domain.Finding {
	var singles []domain.Finding
	triggered := make(map[string]bool)
	for _, rule := range e.singles {
		if f, ok := rule.evaluate(snap); ok {
			singles = append(singles, f)
			triggered[f.Code] = true
		}
	}

	var correlations []domain.Finding
	for _, rule := range e.correlations {
		all := true
		for _, code := range rule.requires {
			if !triggered[code] {
				all = false
				break
			}
		}
		if all {
			correlations = append(correlations, domain.Finding{
				Category: rule.category,
				Severity: rule.severity,
				Code:     rule.code,
				Message:  rule.message,
				Metrics:  rule.metrics,
				Window:   snap.Window,
			})
		}
	}

	sort.SliceStable(correlations, func(i, j int) bool {
		return correlations[i].Severity.Rank() > correlations[j].Severity.Rank()
	})
	sort.SliceStable(singles, func(i, j int) bool {
		if singles[i].Category != singles[j].Category {
			return singles[i].Category.Rank() < singles[j].Category.Rank()
		}
		return singles[i].Severity.Rank() > singles[j].Severity.Rank()
	})

	return append(correlations, singles...)
}
