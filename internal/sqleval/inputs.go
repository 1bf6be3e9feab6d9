package sqleval

import (
	"github.com/roach88/seqpref/internal/reference"
	"github.com/roach88/seqpref/internal/schema"
)

// WindowRelation is the content of the windowed node w: the original
// timestamp as _pos followed by A1..An.
func WindowRelation(s schema.Schema, window []reference.Tuple) Relation {
	rel := Relation{
		Columns: append([]string{"_pos"}, s.Names()...),
		Rows:    make([][]int64, len(window)),
	}
	for i, t := range window {
		rel.Rows[i] = append([]int64{t.TS}, t.Values...)
	}
	return rel
}

// CompletionRelation is the tup table: every (A2, A3) pair of the domain.
func CompletionRelation(domain int) Relation {
	rel := Relation{Columns: []string{schema.Name(schema.PreferenceIndex), schema.Name(schema.ConditionIndex)}}
	for a2 := range domain {
		for a3 := range domain {
			rel.Rows = append(rel.Rows, []int64{int64(a2), int64(a3)})
		}
	}
	return rel
}
