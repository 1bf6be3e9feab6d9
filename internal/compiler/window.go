package compiler

import (
	"strconv"

	"github.com/roach88/seqpref/internal/operator"
	"github.com/roach88/seqpref/internal/plan"
	"github.com/roach88/seqpref/internal/relalg"
	"github.com/roach88/seqpref/internal/schema"
)

// Relation names shared by every compiled plan.
const (
	Stream     = "s"
	Completion = "tup"

	// Windowed is the windowed relation the positional nodes read.
	Windowed = "w"
	// Sequences is the positional terminal node when it feeds another
	// compiler.
	Sequences = "z"
	// Result is the final node of every CQL-equivalent plan.
	Result = "equiv"
)

// Generated attribute names.
const (
	posAttr = "_pos"
	tsAttr  = "_ts"
	otsAttr = "ots"
)

type positionalOptions struct {
	// Final names the terminal union node.
	Final string
	// KeepOriginalTimestamp projects the original timestamp as ots.
	KeepOriginalTimestamp bool
}

// addPositional adds the nodes that turn a RANGE/SLIDE window over the
// input stream into sequence positions:
//
//	rpos   _ts AS _pos over s[RANGE 1 SECOND]
//	spos   RSTREAM of rpos
//	w      spos[RANGE r SECOND, SLIDE s SECOND]
//	w1     (_pos, A1) of w
//	p<i>   minimum remaining _pos per identifier
//	w<i>   w<i-1> EXCEPT p<i-1>
//
// The terminal node unions one branch per position i = 1..r, numbering the
// tuple found at p<i> as position i.
func addPositional(b *plan.Builder, s schema.Schema, win operator.Window, opts positionalOptions) {
	id := s.Identifier()

	b.Add("rpos", &relalg.Select{
		Columns: []relalg.Column{relalg.As(relalg.C(tsAttr), posAttr), {Expr: relalg.Star{}}},
		From: []relalg.TableRef{{
			Name:   Stream,
			Window: &relalg.Window{Kind: relalg.WindowRange, Range: 1},
		}},
	})
	b.Add("spos", &relalg.Rstream{From: "rpos"})

	b.Add(Windowed, &relalg.Select{
		Columns: relalg.Cols(append([]relalg.Expr{relalg.C(posAttr)}, cols("", s.Names())...)...),
		From: []relalg.TableRef{{
			Name:   "spos",
			Window: &relalg.Window{Kind: relalg.WindowRange, Range: win.Range, Slide: win.Slide},
		}},
	})

	for i := 1; i <= win.Range; i++ {
		wi, pi := "w"+strconv.Itoa(i), "p"+strconv.Itoa(i)
		if i == 1 {
			b.Add(wi, &relalg.Select{
				Columns: relalg.Cols(relalg.C(posAttr), relalg.C(id)),
				From:    []relalg.TableRef{relalg.From(Windowed)},
			})
		} else {
			prev := strconv.Itoa(i - 1)
			b.Add(wi, &relalg.Except{
				Left:  relalg.SelectAll("w" + prev),
				Right: relalg.SelectAll("p" + prev),
			})
		}
		b.Add(pi, &relalg.Select{
			Columns: []relalg.Column{relalg.As(relalg.MinOf(relalg.C(posAttr)), posAttr), {Expr: relalg.C(id)}},
			From:    []relalg.TableRef{relalg.From(wi)},
			GroupBy: []relalg.Expr{relalg.C(id)},
		})
	}

	branches := make([]relalg.Query, 0, win.Range)
	for i := 1; i <= win.Range; i++ {
		pi := "p" + strconv.Itoa(i)
		columns := []relalg.Column{relalg.As(relalg.Int(i), posAttr)}
		if opts.KeepOriginalTimestamp {
			columns = append(columns, relalg.As(relalg.Q(Windowed, posAttr), otsAttr))
		}
		columns = append(columns, relalg.Cols(cols(Windowed, s.Names())...)...)
		branches = append(branches, &relalg.Select{
			Columns: columns,
			From:    []relalg.TableRef{relalg.From(pi), relalg.From(Windowed)},
			Where: relalg.AllOf(
				relalg.Equal(relalg.Q(pi, id), relalg.Q(Windowed, id)),
				relalg.Equal(relalg.Q(pi, posAttr), relalg.Q(Windowed, posAttr)),
			),
		})
	}
	b.Add(opts.Final, relalg.UnionOf(branches...))
}

// cols qualifies each name with table (unqualified when table is empty).
func cols(table string, names []string) []relalg.Expr {
	out := make([]relalg.Expr, len(names))
	for i, n := range names {
		out[i] = relalg.Col{Table: table, Name: n}
	}
	return out
}

// renamed projects table.n AS <prefix>n for each name.
func renamed(table, prefix string, names []string) []relalg.Column {
	out := make([]relalg.Column, len(names))
	for i, n := range names {
		out[i] = relalg.As(relalg.Q(table, n), prefix+n)
	}
	return out
}

// pairwise is l.left[i] = r.right[i] for every i.
func pairwise(l string, left []string, r string, right []string) []relalg.Expr {
	out := make([]relalg.Expr, len(left))
	for i := range left {
		out[i] = relalg.Equal(relalg.Q(l, left[i]), relalg.Q(r, right[i]))
	}
	return out
}

// prefixed returns prefix+n for each name.
func prefixed(prefix string, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = prefix + n
	}
	return out
}
