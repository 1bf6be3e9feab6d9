package compiler

import (
	"github.com/roach88/seqpref/internal/plan"
	"github.com/roach88/seqpref/internal/relalg"
	"github.com/roach88/seqpref/internal/schema"
)

const lenAttr = "_len"

// addLengthFilter adds z_len, the length of every sequence, and the final
// selection of sequences whose length satisfies op bound.
func addLengthFilter(b *plan.Builder, s schema.Schema, op relalg.CmpOp, bound int) {
	id := s.Identifier()
	b.Add("z_len", &relalg.Select{
		Columns: []relalg.Column{relalg.As(relalg.MaxOf(relalg.C(posAttr)), lenAttr), {Expr: relalg.C(id)}},
		From:    []relalg.TableRef{relalg.From(Sequences)},
		GroupBy: []relalg.Expr{relalg.C(id)},
	})

	q := selectMatching("z_len")
	q.From[1].Alias = "zl"
	q.Where = relalg.AllOf(
		relalg.Equal(relalg.Q(Sequences, id), relalg.Q("zl", id)),
		relalg.Cmp{Op: op, Left: relalg.Q("zl", lenAttr), Right: relalg.Int(bound)},
	)
	b.Add(Result, q)
}
