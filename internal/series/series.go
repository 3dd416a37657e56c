package series

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrShapeMismatch = errors.New("column length does not match timestamp count")
	ErrNoValues      = errors.New("column has no known values")
)

// Missing is the marker for an absent observation
func Missing() float64 { return math.NaN() }

// IsMissing reports whether v marks an absent observation
func IsMissing(v float64) bool { return math.IsNaN(v) }

// Column is a named sequence of hourly values aligned with a table's timestamps
type Column struct {
	Name   string
	Values []float64
}

// Table is a column-oriented table of timestamped observations.
// All columns share the Times axis; math.NaN() marks a missing value.
type Table struct {
	Times   []time.Time
	Columns []Column
}

// New builds a table over the given timestamps with the named empty columns
func New(times []time.Time, names ...string) *Table {
	t := &Table{Times: times}
	for _, name := range names {
		vals := make([]float64, len(times))
		for i := range vals {
			vals[i] = math.NaN()
		}
		t.Columns = append(t.Columns, Column{Name: name, Values: vals})
	}
	return t
}

// Len returns the number of rows
func (t *Table) Len() int { return len(t.Times) }

// Column returns the column with the given name
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// ColumnNames returns the column names in table order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Validate checks that every column has one value per timestamp
func (t *Table) Validate() error {
	for _, c := range t.Columns {
		if len(c.Values) != len(t.Times) {
			return fmt.Errorf("column %s has %d values for %d timestamps: %w",
				c.Name, len(c.Values), len(t.Times), ErrShapeMismatch)
		}
	}
	return nil
}

// Range is the inclusive interval of plausible values for a column
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v falls inside the range
func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }
