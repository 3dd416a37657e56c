package series

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Report summarises what Clean changed
type Report struct {
	Interpolated int
	Repaired     int
	Duplicates   int
}

// Clean validates and repairs a table in place: rows are sorted by
// timestamp, missing values are linearly interpolated, values outside
// their declared range are replaced by the column median, and duplicate
// timestamps are dropped keeping the first occurrence. On return every
// cell holds an in-range value and timestamps are strictly increasing.
func Clean(t *Table, ranges map[string]Range) (Report, error) {
	var rep Report

	if err := t.Validate(); err != nil {
		return rep, err
	}
	if t.Len() == 0 {
		return rep, nil
	}

	sortByTime(t)

	for i := range t.Columns {
		n, err := interpolate(t.Columns[i].Values)
		if err != nil {
			return rep, fmt.Errorf("interpolating %s: %w", t.Columns[i].Name, err)
		}
		rep.Interpolated += n
	}

	for i := range t.Columns {
		r, ok := ranges[t.Columns[i].Name]
		if !ok {
			continue
		}
		rep.Repaired += repairOutliers(t.Columns[i].Values, r)
	}

	rep.Duplicates = dedupe(t)

	return rep, nil
}

// sortByTime stable-sorts all rows by timestamp, keeping the input
// order of rows that share an instant
func sortByTime(t *Table) {
	idx := make([]int, t.Len())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return t.Times[idx[a]].Before(t.Times[idx[b]])
	})

	times := make([]time.Time, len(idx))
	for i, j := range idx {
		times[i] = t.Times[j]
	}
	t.Times = times

	for c := range t.Columns {
		vals := make([]float64, len(idx))
		for i, j := range idx {
			vals[i] = t.Columns[c].Values[j]
		}
		t.Columns[c].Values = vals
	}
}

// interpolate fills NaN runs by linear interpolation between the
// nearest known neighbours. Leading and trailing runs take the nearest
// known value. Returns the number of cells filled.
func interpolate(vals []float64) (int, error) {
	known := []int{}
	for i, v := range vals {
		if !math.IsNaN(v) {
			known = append(known, i)
		}
	}
	if len(known) == 0 {
		return 0, ErrNoValues
	}
	if len(known) == len(vals) {
		return 0, nil
	}

	filled := 0

	// Edges take the nearest anchor
	for i := 0; i < known[0]; i++ {
		vals[i] = vals[known[0]]
		filled++
	}
	for i := known[len(known)-1] + 1; i < len(vals); i++ {
		vals[i] = vals[known[len(known)-1]]
		filled++
	}

	// Interior runs interpolate between their bounding anchors
	for k := 0; k+1 < len(known); k++ {
		lo, hi := known[k], known[k+1]
		if hi-lo < 2 {
			continue
		}
		step := (vals[hi] - vals[lo]) / float64(hi-lo)
		for i := lo + 1; i < hi; i++ {
			vals[i] = vals[lo] + step*float64(i-lo)
			filled++
		}
	}

	return filled, nil
}

// repairOutliers replaces out-of-range values with the column median.
// The median is computed once over the full column, outliers included,
// so repairs do not depend on each other
func repairOutliers(vals []float64, r Range) int {
	med := median(vals)
	repaired := 0
	for i, v := range vals {
		if !r.Contains(v) {
			vals[i] = med
			repaired++
		}
	}
	return repaired
}

// median returns the middle value of vals; for an even count it
// averages the two middle values
func median(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// dedupe drops rows whose timestamp repeats the previous row's,
// keeping the first occurrence. Assumes the table is already sorted.
// Returns the number of rows dropped.
func dedupe(t *Table) int {
	if t.Len() < 2 {
		return 0
	}

	keep := []int{0}
	for i := 1; i < t.Len(); i++ {
		if t.Times[i].Equal(t.Times[i-1]) {
			continue
		}
		keep = append(keep, i)
	}
	dropped := t.Len() - len(keep)
	if dropped == 0 {
		return 0
	}

	times := make([]time.Time, len(keep))
	for i, j := range keep {
		times[i] = t.Times[j]
	}
	t.Times = times

	for c := range t.Columns {
		vals := make([]float64, len(keep))
		for i, j := range keep {
			vals[i] = t.Columns[c].Values[j]
		}
		t.Columns[c].Values = vals
	}

	return dropped
}
