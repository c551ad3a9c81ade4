// Package table provides the in-memory, append-only view of trial results
// that suggestion algorithms and stopping rules reason over. Rows are never
// mutated once appended; every derived view is a fresh Table.
package table

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Reserved column names shared with the orchestrator.
const (
	ColTrialID   = "Trial-ID"
	ColStatus    = "Status"
	ColIteration = "Iteration"
	ColObjective = "Objective"

	// Bookkeeping columns written back by algorithms that track lineage.
	ColGeneration = "generation"
	ColLineage    = "lineage"
	ColLoadFrom   = "load_from"
	ColSaveTo     = "save_to"
)

// Trial status values.
const (
	StatusIntermediate = "INTERMEDIATE"
	StatusCompleted    = "COMPLETED"
	StatusFailed       = "FAILED"
	StatusStopped      = "STOPPED"
)

// Row is one (trial, iteration) observation keyed by column name.
type Row map[string]any

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Int reads an integer cell, coercing the numeric representations that
// survive JSON round-trips.
func (r Row) Int(key string) (int, bool) {
	switch v := r[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// Float reads a float cell, returning NaN when the cell is absent or
// non-numeric.
func (r Row) Float(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return math.NaN()
	}
}

// Str reads a string cell, formatting non-string scalars so bookkeeping
// columns written as integers still read back.
func (r Row) Str(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (r Row) TrialID() int {
	id, _ := r.Int(ColTrialID)
	return id
}

func (r Row) Iteration() int {
	it, _ := r.Int(ColIteration)
	return it
}

func (r Row) Objective() float64 {
	return r.Float(ColObjective)
}

func (r Row) Status() string {
	return r.Str(ColStatus)
}

// Table is an ordered, append-only collection of rows sharing one schema.
type Table struct {
	rows []Row
}

func New() *Table {
	return &Table{}
}

func FromRows(rows []Row) *Table {
	t := &Table{rows: make([]Row, len(rows))}
	copy(t.rows, rows)
	return t
}

func (t *Table) Append(row Row) {
	t.rows = append(t.rows, row)
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

func (t *Table) Row(i int) Row {
	return t.rows[i]
}

// Rows returns the backing rows in order. Callers must not mutate them.
func (t *Table) Rows() []Row {
	if t == nil {
		return nil
	}
	return t.rows
}

// Filter returns the rows matching pred, in order.
func (t *Table) Filter(pred func(Row) bool) *Table {
	out := New()
	for _, row := range t.Rows() {
		if pred(row) {
			out.Append(row)
		}
	}
	return out
}

// Completed returns the rows whose status is COMPLETED.
func (t *Table) Completed() *Table {
	return t.Filter(func(r Row) bool { return r.Status() == StatusCompleted })
}

// TrialRows returns the rows belonging to one trial.
func (t *Table) TrialRows(trialID int) *Table {
	return t.Filter(func(r Row) bool { return r.TrialID() == trialID })
}

// TrialIDs returns the distinct trial IDs in first-seen order.
func (t *Table) TrialIDs() []int {
	seen := make(map[int]struct{})
	var ids []int
	for _, row := range t.Rows() {
		id := row.TrialID()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// MaxIteration returns the largest Iteration value, or -1 for an empty table.
func (t *Table) MaxIteration() int {
	max := -1
	for _, row := range t.Rows() {
		if it := row.Iteration(); it > max {
			max = it
		}
	}
	return max
}

// BestObjective returns the best finite objective in the table, NaN when no
// row has one.
func (t *Table) BestObjective(lowerIsBetter bool) float64 {
	best := math.NaN()
	for _, row := range t.Rows() {
		v := row.Objective()
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(best) || (lowerIsBetter && v < best) || (!lowerIsBetter && v > best) {
			best = v
		}
	}
	return best
}

// BestRowIndex returns the index of the row holding the best finite
// objective, or -1 when no finite objective exists.
func (t *Table) BestRowIndex(lowerIsBetter bool) int {
	best := math.NaN()
	idx := -1
	for i, row := range t.Rows() {
		v := row.Objective()
		if math.IsNaN(v) {
			continue
		}
		if idx < 0 || (lowerIsBetter && v < best) || (!lowerIsBetter && v > best) {
			best = v
			idx = i
		}
	}
	return idx
}

// SortByObjective returns the rows stably sorted by Objective, ascending
// when lowerIsBetter and descending otherwise. Rows with NaN objectives
// sort last either way.
func (t *Table) SortByObjective(lowerIsBetter bool) *Table {
	rows := make([]Row, len(t.Rows()))
	copy(rows, t.Rows())
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Objective(), rows[j].Objective()
		if math.IsNaN(a) {
			return false
		}
		if math.IsNaN(b) {
			return true
		}
		if lowerIsBetter {
			return a < b
		}
		return a > b
	})
	return &Table{rows: rows}
}

// AggregateGroup is one group produced by GroupByValues: the shared key
// cells plus count/mean/variance-of-the-mean statistics over the group's
// finite objectives.
type AggregateGroup struct {
	Key       Row
	Count     int
	Mean      float64
	VarOfMean float64
}

// GroupByValues groups rows by their values in the key columns, preserving
// first-seen group order, and aggregates each group's Objective column.
// Count only covers finite objectives; variance uses the sample estimator
// and VarOfMean is variance divided by count (NaN below two observations).
func (t *Table) GroupByValues(keys []string) []AggregateGroup {
	order := make([]string, 0)
	groups := make(map[string]*AggregateGroup)
	samples := make(map[string][]float64)

	for _, row := range t.Rows() {
		var sb strings.Builder
		for _, k := range keys {
			fmt.Fprintf(&sb, "%v\x00", row[k])
		}
		gk := sb.String()
		g, ok := groups[gk]
		if !ok {
			key := make(Row, len(keys))
			for _, k := range keys {
				key[k] = row[k]
			}
			g = &AggregateGroup{Key: key}
			groups[gk] = g
			order = append(order, gk)
		}
		if v := row.Objective(); !math.IsNaN(v) {
			samples[gk] = append(samples[gk], v)
		}
	}

	out := make([]AggregateGroup, 0, len(order))
	for _, gk := range order {
		g := groups[gk]
		vals := samples[gk]
		g.Count = len(vals)
		g.Mean = mean(vals)
		g.VarOfMean = sampleVariance(vals) / float64(g.Count)
		out = append(out, *g)
	}
	return out
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func sampleVariance(vals []float64) float64 {
	if len(vals) < 2 {
		return math.NaN()
	}
	m := mean(vals)
	sum := 0.0
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(vals)-1)
}

// NaNMedian returns the median of the finite values, NaN when none remain.
func NaNMedian(vals []float64) float64 {
	finite := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return math.NaN()
	}
	sort.Float64s(finite)
	mid := len(finite) / 2
	if len(finite)%2 == 1 {
		return finite[mid]
	}
	return (finite[mid-1] + finite[mid]) / 2
}
