package compiler

import (
	"github.com/roach88/seqpref/internal/plan"
	"github.com/roach88/seqpref/internal/relalg"
	"github.com/roach88/seqpref/internal/schema"
)

const (
	startAttr = "start"
	endAttr   = "end"
)

// addConsecutive adds the CONSEQ nodes over a sequences node that carries
// the original timestamp. A run starts at position 1 and wherever the
// timestamp is not the predecessor's plus one; it ends before the next
// start or at the last position. Positions are renumbered from 1 per run.
func addConsecutive(b *plan.Builder, s schema.Schema) {
	id := s.Identifier()

	b.Add("z_prime", &relalg.Select{
		Columns: []relalg.Column{
			relalg.As(relalg.Plus(relalg.C(posAttr), relalg.Int(1)), posAttr),
			relalg.As(relalg.Plus(relalg.C(otsAttr), relalg.Int(1)), otsAttr),
			{Expr: relalg.C(id)},
		},
		From: []relalg.TableRef{relalg.From(Sequences)},
	})

	b.Add("p_start", relalg.UnionOf(
		&relalg.Select{
			Columns: []relalg.Column{relalg.As(relalg.C(posAttr), startAttr), {Expr: relalg.C(id)}},
			From:    []relalg.TableRef{relalg.From(Sequences)},
			Where:   relalg.Equal(relalg.C(posAttr), relalg.Int(1)),
		},
		&relalg.Select{
			Columns: []relalg.Column{
				relalg.As(relalg.Q(Sequences, posAttr), startAttr),
				{Expr: relalg.Q(Sequences, id)},
			},
			From: []relalg.TableRef{relalg.From(Sequences), relalg.FromAs("z_prime", "zp")},
			Where: relalg.AllOf(
				relalg.Equal(relalg.Q(Sequences, posAttr), relalg.Q("zp", posAttr)),
				relalg.Equal(relalg.Q(Sequences, id), relalg.Q("zp", id)),
				relalg.Not{X: relalg.Equal(relalg.Q(Sequences, otsAttr), relalg.Q("zp", otsAttr))},
			),
		},
	))

	b.Add("p_end", relalg.UnionOf(
		&relalg.Select{
			Columns: []relalg.Column{
				relalg.As(relalg.Minus(relalg.C(startAttr), relalg.Int(1)), endAttr),
				{Expr: relalg.C(id)},
			},
			From:  []relalg.TableRef{relalg.From("p_start")},
			Where: relalg.Cmp{Op: relalg.Gt, Left: relalg.C(startAttr), Right: relalg.Int(1)},
		},
		&relalg.Select{
			Columns: []relalg.Column{relalg.As(relalg.MaxOf(relalg.C(posAttr)), endAttr), {Expr: relalg.C(id)}},
			From:    []relalg.TableRef{relalg.From(Sequences)},
			GroupBy: []relalg.Expr{relalg.C(id)},
		},
	))

	b.Add("p_start_end", &relalg.Select{
		Columns: []relalg.Column{
			{Expr: relalg.Q("s", startAttr)},
			relalg.As(relalg.MinOf(relalg.Q("e", endAttr)), endAttr),
			{Expr: relalg.Q("s", id)},
		},
		From: []relalg.TableRef{relalg.FromAs("p_start", "s"), relalg.FromAs("p_end", "e")},
		Where: relalg.AllOf(
			relalg.Equal(relalg.Q("s", id), relalg.Q("e", id)),
			relalg.Cmp{Op: relalg.Le, Left: relalg.Q("s", startAttr), Right: relalg.Q("e", endAttr)},
		),
		GroupBy: []relalg.Expr{relalg.Q("s", startAttr), relalg.Q("s", id)},
	})

	columns := []relalg.Column{relalg.As(
		relalg.Plus(relalg.Minus(relalg.Q(Sequences, posAttr), relalg.Q("se", startAttr)), relalg.Int(1)),
		posAttr,
	)}
	columns = append(columns, relalg.Cols(cols(Sequences, s.Names())...)...)
	b.Add(Result, &relalg.Select{
		Columns: columns,
		From:    []relalg.TableRef{relalg.From(Sequences), relalg.FromAs("p_start_end", "se")},
		Where: relalg.AllOf(
			relalg.Equal(relalg.Q(Sequences, id), relalg.Q("se", id)),
			relalg.Cmp{Op: relalg.Ge, Left: relalg.Q(Sequences, posAttr), Right: relalg.Q("se", startAttr)},
			relalg.Cmp{Op: relalg.Le, Left: relalg.Q(Sequences, posAttr), Right: relalg.Q("se", endAttr)},
		),
	})
}
