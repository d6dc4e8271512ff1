package normalize

import (
	"strings"

	"github.com/inferloop/tsforecast/pkg/models"
)

// Rule picks a column from a table. Columns named in exclude are never
// returned. Rules are evaluated in order and the first match wins, so new
// heuristics are appended without touching the existing order.
type Rule interface {
	// Name identifies the rule in detection results
	Name() string

	// Confidence grades a match produced by this rule
	Confidence() models.Confidence

	// Match returns the selected column and true, or false when nothing fits
	Match(table *models.Table, exclude map[string]bool) (string, bool)
}

// ExactName matches a column by its exact, case sensitive name
type ExactName struct {
	Column string
}

func (r ExactName) Name() string { return "exact:" + r.Column }

func (r ExactName) Confidence() models.Confidence { return models.ConfidenceHigh }

func (r ExactName) Match(table *models.Table, exclude map[string]bool) (string, bool) {
	if exclude[r.Column] {
		return "", false
	}
	if table.ColumnIndex(r.Column) < 0 {
		return "", false
	}
	return r.Column, true
}

// NameSet matches columns case insensitively against candidates. The
// candidate order is the priority order; within one candidate the first
// column in table order wins.
type NameSet struct {
	Label      string
	Candidates []string
}

func (r NameSet) Name() string { return "names:" + r.Label }

func (r NameSet) Confidence() models.Confidence { return models.ConfidenceHigh }

func (r NameSet) Match(table *models.Table, exclude map[string]bool) (string, bool) {
	for _, candidate := range r.Candidates {
		for _, column := range table.Columns {
			if exclude[column] {
				continue
			}
			if strings.EqualFold(strings.TrimSpace(column), candidate) {
				return column, true
			}
		}
	}
	return "", false
}

// NumericFallback picks the first column in table order whose cells all
// coerce to numbers. It is a low confidence guess.
type NumericFallback struct{}

func (NumericFallback) Name() string { return "fallback:first_numeric" }

func (NumericFallback) Confidence() models.Confidence { return models.ConfidenceLow }

func (NumericFallback) Match(table *models.Table, exclude map[string]bool) (string, bool) {
	for idx, column := range table.Columns {
		if exclude[column] {
			continue
		}
		if isNumericColumn(table.Column(idx)) {
			return column, true
		}
	}
	return "", false
}

// DefaultDateRules returns the date detection order
func DefaultDateRules() []Rule {
	return []Rule{
		ExactName{Column: "ds"},
		NameSet{Label: "date", Candidates: []string{"date", "ds", "timestamp", "time"}},
	}
}

// DefaultValueRules returns the value detection order
func DefaultValueRules() []Rule {
	return []Rule{
		ExactName{Column: "y"},
		NameSet{Label: "y", Candidates: []string{"y"}},
		NameSet{Label: "value", Candidates: []string{"value", "sales", "revenue", "quantity", "amount", "close", "price"}},
		NumericFallback{},
	}
}

func isNumericColumn(cells []string) bool {
	seen := false
	for _, cell := range cells {
		if strings.TrimSpace(cell) == "" || IsMissingMarker(cell) {
			continue
		}
		if _, ok := ParseNumber(cell); !ok {
			return false
		}
		seen = true
	}
	return seen
}
