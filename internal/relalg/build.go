package relalg

// Small constructors keep compiler code close to the text it produces.

// C is an unqualified column.
func C(name string) Col { return Col{Name: name} }

// Q is a qualified column.
func Q(table, name string) Col { return Col{Table: table, Name: name} }

// As projects e under alias.
func As(e Expr, alias string) Column { return Column{Expr: e, Alias: alias} }

// Cols projects plain expressions without aliases.
func Cols(exprs ...Expr) []Column {
	cols := make([]Column, len(exprs))
	for i, e := range exprs {
		cols[i] = Column{Expr: e}
	}
	return cols
}

// From references a relation.
func From(name string) TableRef { return TableRef{Name: name} }

// FromAs references a relation under an alias.
func FromAs(name, alias string) TableRef { return TableRef{Name: name, Alias: alias} }

// Equal is l = r.
func Equal(l, r Expr) Cmp { return Cmp{Op: Eq, Left: l, Right: r} }

// AllOf conjoins terms, flattening nested conjunctions.
func AllOf(terms ...Expr) And {
	var flat []Expr
	for _, t := range terms {
		if a, ok := t.(And); ok {
			flat = append(flat, a.Terms...)
			continue
		}
		flat = append(flat, t)
	}
	return And{Terms: flat}
}

// Plus is l + r.
func Plus(l, r Expr) Arith { return Arith{Op: Add, Left: l, Right: r} }

// Minus is l - r.
func Minus(l, r Expr) Arith { return Arith{Op: Sub, Left: l, Right: r} }

// MinOf is MIN(e).
func MinOf(e Expr) Agg { return Agg{Func: Min, Arg: e} }

// MaxOf is MAX(e).
func MaxOf(e Expr) Agg { return Agg{Func: Max, Arg: e} }

// UnionOf unions queries. A single query is returned unchanged.
func UnionOf(branches ...Query) Query {
	if len(branches) == 1 {
		return branches[0]
	}
	return &Union{Branches: branches}
}

// SelectAll is SELECT * FROM name.
func SelectAll(name string) *Select {
	return &Select{Columns: Cols(Star{}), From: []TableRef{From(name)}}
}
