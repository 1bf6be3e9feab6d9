package compiler

import (
	"fmt"

	"github.com/roach88/seqpref/internal/plan"
	"github.com/roach88/seqpref/internal/relalg"
	"github.com/roach88/seqpref/internal/rule"
	"github.com/roach88/seqpref/internal/schema"
)

// Pair and flag attributes of the comparison relations.
const (
	betterAttr = "x1"
	worseAttr  = "x2"
	liveAttr   = "t"
	worseLive  = "_t"
	otherPref  = "_" // prefix of the second tuple's attributes
)

// dominance adds the BESTSEQ comparison nodes over the sequences node.
type dominance struct {
	b      *plan.Builder
	schema schema.Schema
	rules  []rule.Rule
	levels int
}

func (d *dominance) add() {
	d.addPairs()
	for i, r := range d.rules {
		n := i + 1
		switch r.Kind {
		case rule.First:
			d.addFirst(n)
		case rule.Previous:
			d.addPrevious(n, r)
		}
		d.addDirect(n, r)
	}
	d.addTransitive()
	d.addResult()
}

// addPairs adds p_join, every pair of tuples sharing a position, and p, the
// first position at which two sequences differ.
func (d *dominance) addPairs() {
	id := d.schema.Identifier()
	values := d.schema.ValueNames()

	columns := []relalg.Column{
		{Expr: relalg.Q("z1", posAttr)},
		relalg.As(relalg.Q("z1", id), betterAttr),
	}
	columns = append(columns, relalg.Cols(cols("z1", values)...)...)
	columns = append(columns, relalg.As(relalg.Q("z2", id), worseAttr))
	columns = append(columns, renamed("z2", otherPref, values)...)
	d.b.Add("p_join", &relalg.Select{
		Columns: columns,
		From:    []relalg.TableRef{relalg.FromAs(Sequences, "z1"), relalg.FromAs(Sequences, "z2")},
		Where:   relalg.Equal(relalg.Q("z1", posAttr), relalg.Q("z2", posAttr)),
	})

	differ := make([]relalg.Expr, len(values))
	for i, v := range values {
		differ[i] = relalg.Not{X: relalg.Equal(relalg.C(v), relalg.C(otherPref+v))}
	}
	d.b.Add("p", &relalg.Select{
		Columns: []relalg.Column{
			relalg.As(relalg.MinOf(relalg.C(posAttr)), posAttr),
			{Expr: relalg.C(betterAttr)},
			{Expr: relalg.C(worseAttr)},
		},
		From:    []relalg.TableRef{relalg.From("p_join")},
		Where:   relalg.Or{Terms: differ},
		GroupBy: []relalg.Expr{relalg.C(betterAttr), relalg.C(worseAttr)},
	})
}

func ruleName(n int) string { return fmt.Sprintf("r%d", n) }

// addFirst: a FIRST rule holds at position 1 only.
func (d *dominance) addFirst(n int) {
	d.b.Add(ruleName(n), &relalg.Select{
		Columns: relalg.Cols(relalg.C(posAttr), relalg.C(betterAttr)),
		From:    []relalg.TableRef{relalg.From("p")},
		Where:   relalg.Equal(relalg.C(posAttr), relalg.Int(1)),
	})
}

// addPrevious adds one relation per temporal formula of a PREVIOUS rule and
// their conjunction r<n>.
func (d *dominance) addPrevious(n int, r rule.Rule) {
	id := d.schema.Identifier()
	cond := schema.Name(schema.ConditionIndex)
	some := schema.Name(schema.SomePreviousIndex)
	all := schema.Name(schema.AllPreviousIndex)
	name := ruleName(n)
	pCols := relalg.Cols(relalg.Q("p", posAttr), relalg.Q("p", betterAttr))

	// PREVIOUS: the preceding position satisfies the condition.
	d.b.Add(name+"_f1", &relalg.Select{
		Columns: pCols,
		From:    []relalg.TableRef{relalg.From(Sequences), relalg.From("p")},
		Where: relalg.AllOf(
			relalg.Equal(relalg.Q("p", betterAttr), relalg.Q(Sequences, id)),
			relalg.Equal(relalg.Q("p", posAttr), relalg.Plus(relalg.Q(Sequences, posAttr), relalg.Int(1))),
			relalg.Cmp{Op: relalg.Le, Left: relalg.Q(Sequences, cond), Right: relalg.Int(r.Previous)},
		),
	})

	// SOME PREVIOUS: some earlier position satisfies the condition.
	minSome := fmt.Sprintf("m_sp%d", n)
	d.b.Add(minSome, &relalg.Select{
		Columns: []relalg.Column{
			relalg.As(relalg.MinOf(relalg.C(posAttr)), posAttr),
			relalg.As(relalg.C(id), betterAttr),
		},
		From:    []relalg.TableRef{relalg.From(Sequences)},
		Where:   relalg.Cmp{Op: relalg.Le, Left: relalg.C(some), Right: relalg.Int(r.SomePrevious)},
		GroupBy: []relalg.Expr{relalg.C(id)},
	})
	d.b.Add(name+"_f2", &relalg.Select{
		Columns: pCols,
		From:    []relalg.TableRef{relalg.From("p"), relalg.FromAs(minSome, "msp")},
		Where: relalg.AllOf(
			relalg.Equal(relalg.Q("p", betterAttr), relalg.Q("msp", betterAttr)),
			relalg.Cmp{Op: relalg.Gt, Left: relalg.Q("p", posAttr), Right: relalg.Q("msp", posAttr)},
		),
	})

	// ALL PREVIOUS: every earlier position satisfies the condition. The
	// bound is the first violation, or the last compared position.
	violations := fmt.Sprintf("nv_ap%d", n)
	d.b.Add(violations, relalg.UnionOf(
		&relalg.Select{
			Columns: []relalg.Column{
				relalg.As(relalg.MaxOf(relalg.C(posAttr)), posAttr),
				{Expr: relalg.C(betterAttr)},
			},
			From:    []relalg.TableRef{relalg.From("p")},
			GroupBy: []relalg.Expr{relalg.C(betterAttr)},
		},
		&relalg.Select{
			Columns: []relalg.Column{{Expr: relalg.C(posAttr)}, relalg.As(relalg.C(id), betterAttr)},
			From:    []relalg.TableRef{relalg.From(Sequences)},
			Where:   relalg.Not{X: relalg.Cmp{Op: relalg.Le, Left: relalg.C(all), Right: relalg.Int(r.AllPrevious)}},
		},
	))
	minAll := fmt.Sprintf("m_ap%d", n)
	d.b.Add(minAll, &relalg.Select{
		Columns: []relalg.Column{
			relalg.As(relalg.MinOf(relalg.C(posAttr)), posAttr),
			{Expr: relalg.C(betterAttr)},
		},
		From:    []relalg.TableRef{relalg.From(violations)},
		GroupBy: []relalg.Expr{relalg.C(betterAttr)},
	})
	d.b.Add(name+"_f3", &relalg.Select{
		Columns: pCols,
		From:    []relalg.TableRef{relalg.From("p"), relalg.FromAs(minAll, "pmin")},
		Where: relalg.AllOf(
			relalg.Equal(relalg.Q("p", betterAttr), relalg.Q("pmin", betterAttr)),
			relalg.Cmp{Op: relalg.Le, Left: relalg.Q("p", posAttr), Right: relalg.Q("pmin", posAttr)},
			relalg.Cmp{Op: relalg.Gt, Left: relalg.Q("p", posAttr), Right: relalg.Int(1)},
		),
	})

	d.b.Add(name, &relalg.Select{
		Columns: relalg.Cols(relalg.Q("f1", posAttr), relalg.Q("f1", betterAttr)),
		From: []relalg.TableRef{
			relalg.FromAs(name+"_f1", "f1"),
			relalg.FromAs(name+"_f2", "f2"),
			relalg.FromAs(name+"_f3", "f3"),
		},
		Where: relalg.AllOf(
			relalg.Equal(relalg.Q("f1", posAttr), relalg.Q("f2", posAttr)),
			relalg.Equal(relalg.Q("f1", betterAttr), relalg.Q("f2", betterAttr)),
			relalg.Equal(relalg.Q("f2", posAttr), relalg.Q("f3", posAttr)),
			relalg.Equal(relalg.Q("f2", betterAttr), relalg.Q("f3", betterAttr)),
		),
	})
}

// addDirect adds d<n>_pref, d<n>_nonpref and the direct comparisons d<n>.
func (d *dominance) addDirect(n int, r rule.Rule) {
	name := fmt.Sprintf("d%d", n)
	d.b.Add(name+"_pref", d.side(n, r.Simple, r.Preferred, betterAttr))
	d.b.Add(name+"_nonpref", d.side(n, r.Simple, r.NonPreferred, worseAttr))

	values := d.schema.ValueNames()
	columns := relalg.Cols(relalg.Q("pc", posAttr), relalg.Q("pc", betterAttr), relalg.Q("pc", worseAttr))
	columns = append(columns, relalg.Cols(cols("pr", values)...)...)
	columns = append(columns, relalg.Column{Expr: relalg.Q("pr", liveAttr)})
	columns = append(columns, renamed("np", otherPref, values)...)
	columns = append(columns, relalg.As(relalg.Q("np", liveAttr), worseLive))

	comparable := d.schema.Comparable()
	where := []relalg.Expr{
		relalg.Equal(relalg.Q("pc", posAttr), relalg.Q("pr", posAttr)),
		relalg.Equal(relalg.Q("pc", posAttr), relalg.Q("np", posAttr)),
		relalg.Equal(relalg.Q("pc", betterAttr), relalg.Q("pr", betterAttr)),
		relalg.Equal(relalg.Q("pc", worseAttr), relalg.Q("np", worseAttr)),
	}
	where = append(where, pairwise("pr", comparable, "np", comparable)...)

	d.b.Add(name, &relalg.Select{
		Columns: columns,
		From: []relalg.TableRef{
			relalg.FromAs("p", "pc"),
			relalg.FromAs(name+"_pref", "pr"),
			relalg.FromAs(name+"_nonpref", "np"),
		},
		Where: relalg.AllOf(where...),
	})
}

// side selects, for identifiers where rule n is active, the live tuples
// holding value under the simple condition (t = 1) and the virtual tuples
// completed from the tup table (t = 0).
func (d *dominance) side(n, simple, value int, idAttr string) relalg.Query {
	id := d.schema.Identifier()
	pref := schema.Name(schema.PreferenceIndex)
	cond := schema.Name(schema.ConditionIndex)
	rel := ruleName(n)
	active := []relalg.Expr{
		relalg.Equal(relalg.Q("r", posAttr), relalg.Q(Sequences, posAttr)),
		relalg.Equal(relalg.Q("r", betterAttr), relalg.Q(Sequences, id)),
	}
	head := []relalg.Column{{Expr: relalg.Q("r", posAttr)}, relalg.As(relalg.Q("r", betterAttr), idAttr)}
	if idAttr == betterAttr {
		head[1] = relalg.Column{Expr: relalg.Q("r", betterAttr)}
	}

	live := append([]relalg.Column{}, head...)
	live = append(live, relalg.Cols(cols(Sequences, d.schema.ValueNames())...)...)
	live = append(live, relalg.As(relalg.Int(1), liveAttr))

	virtual := append([]relalg.Column{}, head...)
	virtual = append(virtual, relalg.Cols(relalg.Q("tp", pref), relalg.Q("tp", cond))...)
	virtual = append(virtual, relalg.Cols(cols(Sequences, d.schema.NonCompletedNames())...)...)
	virtual = append(virtual, relalg.As(relalg.Int(0), liveAttr))

	return relalg.UnionOf(
		&relalg.Select{
			Columns: live,
			From:    []relalg.TableRef{relalg.FromAs(rel, "r"), relalg.From(Sequences)},
			Where: relalg.AllOf(
				relalg.AllOf(active...),
				relalg.Cmp{Op: relalg.Le, Left: relalg.Q(Sequences, cond), Right: relalg.Int(simple)},
				relalg.Equal(relalg.Q(Sequences, pref), relalg.Int(value)),
			),
		},
		&relalg.Select{
			Columns: virtual,
			From: []relalg.TableRef{
				relalg.FromAs(rel, "r"),
				relalg.From(Sequences),
				relalg.FromAs(Completion, "tp"),
			},
			Where: relalg.AllOf(
				relalg.AllOf(active...),
				relalg.Cmp{Op: relalg.Le, Left: relalg.Q("tp", cond), Right: relalg.Int(simple)},
				relalg.Equal(relalg.Q("tp", pref), relalg.Int(value)),
			),
		},
	)
}

// addTransitive adds t1, the union of direct comparisons, and t2..tL, each
// composing the previous level with itself: a row whose worse tuple is the
// better tuple of another row of the same pair and position yields a row
// from the first better tuple to the second worse tuple. The shared middle
// is a whole tuple (p._A = np.A), not an identifier.
func (d *dominance) addTransitive() {
	direct := make([]relalg.Query, len(d.rules))
	for i := range d.rules {
		direct[i] = relalg.SelectAll(fmt.Sprintf("d%d", i+1))
	}
	d.b.Add("t1", relalg.UnionOf(direct...))

	values := d.schema.ValueNames()
	worse := prefixed(otherPref, values)
	for k := 2; k <= d.levels; k++ {
		prev := fmt.Sprintf("t%d", k-1)
		columns := relalg.Cols(relalg.Q("p", posAttr), relalg.Q("p", betterAttr), relalg.Q("np", worseAttr))
		columns = append(columns, relalg.Cols(cols("p", values)...)...)
		columns = append(columns, relalg.Column{Expr: relalg.Q("p", liveAttr)})
		columns = append(columns, relalg.Cols(cols("np", worse)...)...)
		columns = append(columns, relalg.Column{Expr: relalg.Q("np", worseLive)})

		where := []relalg.Expr{
			relalg.Equal(relalg.Q("p", posAttr), relalg.Q("np", posAttr)),
			relalg.Equal(relalg.Q("p", betterAttr), relalg.Q("np", betterAttr)),
			relalg.Equal(relalg.Q("p", worseAttr), relalg.Q("np", worseAttr)),
		}
		where = append(where, pairwise("p", worse, "np", values)...)

		d.b.Add(fmt.Sprintf("t%d", k), relalg.UnionOf(
			&relalg.Select{
				Columns: columns,
				From:    []relalg.TableRef{relalg.FromAs(prev, "p"), relalg.FromAs(prev, "np")},
				Where:   relalg.AllOf(where...),
			},
			relalg.SelectAll(prev),
		))
	}
}

// addResult adds id, the identifiers never dominated by a live tuple, and
// the final selection of their sequences.
func (d *dominance) addResult() {
	id := d.schema.Identifier()
	closure := fmt.Sprintf("t%d", d.levels)
	d.b.Add("id", &relalg.Except{
		Left: &relalg.Select{
			Distinct: true,
			Columns:  relalg.Cols(relalg.C(id)),
			From:     []relalg.TableRef{relalg.From(Sequences)},
		},
		Right: &relalg.Select{
			Distinct: true,
			Columns:  []relalg.Column{relalg.As(relalg.C(worseAttr), id)},
			From:     []relalg.TableRef{relalg.From(closure)},
			Where: relalg.AllOf(
				relalg.Equal(relalg.C(liveAttr), relalg.Int(1)),
				relalg.Equal(relalg.C(worseLive), relalg.Int(1)),
			),
		},
	})
	d.b.Add(Result, selectMatching("id"))
}

// selectMatching is SELECT z.* FROM z, rel WHERE z.A1 = rel.A1.
func selectMatching(rel string) *relalg.Select {
	id := schema.Name(schema.IdentifierIndex)
	return &relalg.Select{
		Columns: relalg.Cols(relalg.Star{Table: Sequences}),
		From:    []relalg.TableRef{relalg.From(Sequences), relalg.From(rel)},
		Where:   relalg.Equal(relalg.Q(Sequences, id), relalg.Q(rel, id)),
	}
}
