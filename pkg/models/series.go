package models

import (
	"sort"
	"time"
)

// Canonical column names of a normalized series.
const (
	ColumnTimestamp = "timestamp"
	ColumnValue     = "value"
)

// Table is an uploaded table with an arbitrary, caller supplied schema.
// Rows keep the original order and every row has one cell per column.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// NewTable builds a table from a header and its data rows
func NewTable(columns []string, rows [][]string) *Table {
	return &Table{Columns: columns, Rows: rows}
}

// Len returns the number of data rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the position of an exactly named column or -1
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns every cell of the column at idx
func (t *Table) Column(idx int) []string {
	cells := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if idx < len(row) {
			cells = append(cells, row[idx])
		} else {
			cells = append(cells, "")
		}
	}
	return cells
}

// Point is one observation of a canonical series
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Series is the canonical (timestamp, value) series. Timestamps carry no
// timezone offset. Duplicates and out of order rows are allowed.
type Series struct {
	Points []Point `json:"points"`
}

// NewSeries creates a series from points
func NewSeries(points []Point) *Series {
	return &Series{Points: points}
}

// Len returns the number of points
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Points)
}

// Copy returns a deep copy of the series
func (s *Series) Copy() *Series {
	points := make([]Point, len(s.Points))
	copy(points, s.Points)
	return &Series{Points: points}
}

// Sorted returns a copy ordered by timestamp. Equal timestamps keep their
// original relative order.
func (s *Series) Sorted() *Series {
	sorted := s.Copy()
	sort.SliceStable(sorted.Points, func(i, j int) bool {
		return sorted.Points[i].Timestamp.Before(sorted.Points[j].Timestamp)
	})
	return sorted
}

// Values returns the value column
func (s *Series) Values() []float64 {
	values := make([]float64, len(s.Points))
	for i, p := range s.Points {
		values[i] = p.Value
	}
	return values
}

// MaxTimestamp returns the latest timestamp of the series
func (s *Series) MaxTimestamp() time.Time {
	var latest time.Time
	for i, p := range s.Points {
		if i == 0 || p.Timestamp.After(latest) {
			latest = p.Timestamp
		}
	}
	return latest
}

// Last returns the point with the latest timestamp. With duplicates the last
// one in row order wins.
func (s *Series) Last() (Point, bool) {
	if s.Len() == 0 {
		return Point{}, false
	}
	last := s.Points[0]
	for _, p := range s.Points[1:] {
		if !p.Timestamp.Before(last.Timestamp) {
			last = p
		}
	}
	return last, true
}
