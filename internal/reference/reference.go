// Package reference evaluates sequence operators directly over a window
// snapshot. It is the oracle compiled plans are checked against.
//
// Results are relations in set semantics: rows of int64 in the column
// order of the corresponding plan's final node, returned sorted and
// without duplicates.
package reference

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/seqpref/internal/operator"
	"github.com/roach88/seqpref/internal/rule"
	"github.com/roach88/seqpref/internal/schema"
)

// ErrUnsupported is returned for operators without reference semantics.
var ErrUnsupported = errors.New("operator not supported by the reference evaluator")

// Tuple is one tuple of the window: its timestamp and A1..An.
type Tuple struct {
	TS     int64
	Values []int64
}

// Row is a sequence element: position, original timestamp, identifier and
// value attributes A2..An.
type Row struct {
	Pos    int64
	TS     int64
	ID     int64
	Values []int64
}

// Evaluate returns the result of spec over window.
func Evaluate(spec operator.Spec, s schema.Schema, window []Tuple) ([][]int64, error) {
	if err := operator.Validate(spec, s); err != nil {
		return nil, err
	}
	z := Sequences(window, spec.Window.Range)

	switch spec.Kind {
	case operator.Seq:
		return rows(z), nil
	case operator.Conseq:
		return rows(Consecutive(z)), nil
	case operator.MinSeq:
		return rows(LengthFilter(z, func(n int64) bool { return n >= int64(spec.MinLength) })), nil
	case operator.MaxSeq:
		return rows(LengthFilter(z, func(n int64) bool { return n <= int64(spec.MaxLength) })), nil
	case operator.BestSeq:
		rules := rule.Compile(spec.Rules, s.Indifferent)
		return rows(Best(z, s, rules, spec.Rules.Levels)), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, spec.Kind)
	}
}

// Sequences numbers the distinct timestamps of every identifier from 1 in
// ascending order, keeping the first rng positions.
func Sequences(window []Tuple, rng int) []Row {
	stamps := map[int64][]int64{}
	for _, t := range window {
		id := t.Values[0]
		if !slices.Contains(stamps[id], t.TS) {
			stamps[id] = append(stamps[id], t.TS)
		}
	}
	position := map[[2]int64]int64{}
	for id, ts := range stamps {
		slices.Sort(ts)
		for i, v := range ts {
			if i < rng {
				position[[2]int64{id, v}] = int64(i + 1)
			}
		}
	}

	var out []Row
	for _, t := range window {
		pos, ok := position[[2]int64{t.Values[0], t.TS}]
		if !ok {
			continue
		}
		out = append(out, Row{Pos: pos, TS: t.TS, ID: t.Values[0], Values: t.Values[1:]})
	}
	return out
}

// Consecutive splits every sequence into runs of consecutive timestamps
// and renumbers positions from 1 inside each run.
func Consecutive(z []Row) []Row {
	ts := map[[2]int64]int64{}
	last := map[int64]int64{}
	for _, r := range z {
		ts[[2]int64{r.ID, r.Pos}] = r.TS
		last[r.ID] = max(last[r.ID], r.Pos)
	}

	// start[id][pos] is the first position of the run containing pos.
	start := map[[2]int64]int64{}
	for id, n := range last {
		s := int64(1)
		for pos := int64(1); pos <= n; pos++ {
			if pos > 1 && ts[[2]int64{id, pos}] != ts[[2]int64{id, pos - 1}]+1 {
				s = pos
			}
			start[[2]int64{id, pos}] = s
		}
	}

	out := make([]Row, 0, len(z))
	for _, r := range z {
		r.Pos = r.Pos - start[[2]int64{r.ID, r.Pos}] + 1
		out = append(out, r)
	}
	return out
}

// LengthFilter keeps the sequences whose length satisfies keep.
func LengthFilter(z []Row, keep func(int64) bool) []Row {
	length := map[int64]int64{}
	for _, r := range z {
		length[r.ID] = max(length[r.ID], r.Pos)
	}
	var out []Row
	for _, r := range z {
		if keep(length[r.ID]) {
			out = append(out, r)
		}
	}
	return out
}

// rows renders sequence rows as (_pos, A1..An), sorted and deduplicated.
func rows(z []Row) [][]int64 {
	out := make([][]int64, 0, len(z))
	for _, r := range z {
		row := append([]int64{r.Pos, r.ID}, r.Values...)
		out = append(out, row)
	}
	return Canonical(out)
}

// Canonical sorts rows lexicographically and removes duplicates.
func Canonical(in [][]int64) [][]int64 {
	out := append([][]int64{}, in...)
	slices.SortFunc(out, slices.Compare[[]int64])
	return slices.CompactFunc(out, slices.Equal[[]int64])
}
