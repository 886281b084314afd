package domain

// Category groups findings for display ordering.
type Category string

const (
	CategorySleep           Category = "sleep"
	CategoryRecovery        Category = "recovery"
	CategoryStress          Category = "stress"
	CategoryBodyComposition Category = "body_composition"
	CategoryActivity        Category = "activity"
	CategoryCorrelation     Category = "correlation"
)

// categoryRank is the fixed display order for single-metric categories.
var categoryRank = map[Category]int{
	CategorySleep:           0,
	CategoryRecovery:        1,
	CategoryStress:          2,
	CategoryBodyComposition: 3,
	CategoryActivity:        4,
	CategoryCorrelation:     5,
}

// Rank returns the category's position in the fixed display order.
func (c Category) Rank() int { return categoryRank[c] }

// Severity grades a finding.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityAlert   Severity = "alert"
)

var severityRank = map[Severity]int{
	SeverityInfo:    0,
	SeverityWarning: 1,
	SeverityAlert:   2,
}

// Rank returns the severity's weight; higher is more severe.
func (s Severity) Rank() int { return severityRank[s] }

// Finding is one triggered rule. Findings are recomputed on every
// evaluation and never persisted as authoritative state.
type Finding struct {
	Category Category     `json:"category"`
	Severity Severity     `json:"severity"`
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Metrics  []MetricKind `json:"metrics"`
	Window   DateRange    `json:"window"`
}
