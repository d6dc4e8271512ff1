package normalize

import (
	"github.com/sirupsen/logrus"

	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/models"
)

// Normalizer maps an arbitrary table onto the canonical timestamp/value
// schema using ordered detection rules
type Normalizer struct {
	dateRules  []Rule
	valueRules []Rule
	logger     *logrus.Logger
}

// Option customizes a Normalizer
type Option func(*Normalizer)

// WithDateRules replaces the date detection rules
func WithDateRules(rules ...Rule) Option {
	return func(n *Normalizer) { n.dateRules = rules }
}

// WithValueRules replaces the value detection rules
func WithValueRules(rules ...Rule) Option {
	return func(n *Normalizer) { n.valueRules = rules }
}

// NewNormalizer creates a normalizer with the default rules
func NewNormalizer(logger *logrus.Logger, opts ...Option) *Normalizer {
	if logger == nil {
		logger = logrus.New()
	}
	n := &Normalizer{
		dateRules:  DefaultDateRules(),
		valueRules: DefaultValueRules(),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Detect selects the date and value columns without converting any rows
func (n *Normalizer) Detect(table *models.Table) (*models.Detection, error) {
	if table == nil || len(table.Columns) == 0 {
		return nil, errors.NewSchemaError(errors.CodeNoDateColumn, errors.ErrNoDateColumn)
	}

	detection := &models.Detection{InputRows: table.Len()}

	dateColumn, dateRule, ok := firstMatch(n.dateRules, table, nil)
	if !ok {
		return nil, errors.NewSchemaError(errors.CodeNoDateColumn, errors.ErrNoDateColumn).
			WithContext("columns", table.Columns)
	}
	detection.DateColumn = dateColumn
	detection.DateRule = dateRule.Name()
	detection.DateConfidence = dateRule.Confidence()

	valueColumn, valueRule, ok := firstMatch(n.valueRules, table, map[string]bool{dateColumn: true})
	if !ok {
		return nil, errors.NewSchemaError(errors.CodeNoValueColumn, errors.ErrNoValueColumn).
			WithContext("columns", table.Columns)
	}
	detection.ValueColumn = valueColumn
	detection.ValueRule = valueRule.Name()
	detection.ValueConfidence = valueRule.Confidence()

	return detection, nil
}

// Normalize converts table into a canonical series. Rows whose value does
// not coerce to a number or whose timestamp does not parse are dropped; the
// surviving rows keep their original order.
func (n *Normalizer) Normalize(table *models.Table) (*models.Series, *models.Detection, error) {
	detection, err := n.Detect(table)
	if err != nil {
		return nil, nil, err
	}

	if table.Len() == 0 {
		return nil, nil, errors.NewSchemaError(errors.CodeEmptyTable, errors.ErrEmptyTable)
	}

	dateIdx := table.ColumnIndex(detection.DateColumn)
	valueIdx := table.ColumnIndex(detection.ValueColumn)

	points := make([]models.Point, 0, table.Len())
	for _, row := range table.Rows {
		if valueIdx >= len(row) || dateIdx >= len(row) {
			continue
		}
		value, ok := ParseNumber(row[valueIdx])
		if !ok {
			continue
		}
		ts, ok := ParseTimestamp(row[dateIdx])
		if !ok {
			continue
		}
		points = append(points, models.Point{Timestamp: ts, Value: value})
	}
	detection.DroppedRows = table.Len() - len(points)

	if len(points) == 0 {
		return nil, nil, errors.NewSchemaError(errors.CodeEmptyTable, errors.ErrNoValidRows).
			WithContext("date_column", detection.DateColumn).
			WithContext("value_column", detection.ValueColumn)
	}

	fields := logrus.Fields{
		"date_column":  detection.DateColumn,
		"value_column": detection.ValueColumn,
		"value_rule":   detection.ValueRule,
		"rows":         len(points),
		"dropped_rows": detection.DroppedRows,
	}
	if detection.LowConfidence() {
		n.logger.WithFields(fields).Warn("Value column guessed from first numeric column")
	} else {
		n.logger.WithFields(fields).Debug("Normalized table")
	}

	return models.NewSeries(points), detection, nil
}

// NormalizeSeries accepts an already canonical series. It returns a copy so
// the caller keeps ownership of its input.
func NormalizeSeries(series *models.Series) (*models.Series, error) {
	if series.Len() == 0 {
		return nil, errors.NewSchemaError(errors.CodeEmptyTable, errors.ErrEmptyTable)
	}
	out := series.Copy()
	for i, p := range out.Points {
		out.Points[i].Timestamp = StripZone(p.Timestamp)
	}
	return out, nil
}

// ToTable renders a canonical series as a two column table
func ToTable(series *models.Series) *models.Table {
	rows := make([][]string, len(series.Points))
	for i, p := range series.Points {
		rows[i] = []string{FormatTimestamp(p.Timestamp), FormatNumber(p.Value)}
	}
	return models.NewTable([]string{models.ColumnTimestamp, models.ColumnValue}, rows)
}

func firstMatch(rules []Rule, table *models.Table, exclude map[string]bool) (string, Rule, bool) {
	for _, rule := range rules {
		if column, ok := rule.Match(table, exclude); ok {
			return column, rule, true
		}
	}
	return "", nil, false
}
