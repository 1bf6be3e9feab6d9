package relalg

// Query defines one named relation of a plan.
type Query interface {
	queryNode()
}

// Expr is a scalar or boolean expression.
type Expr interface {
	exprNode()
}

// Select is
//
//	SELECT [DISTINCT] <columns> FROM <from> [WHERE <where>] [GROUP BY <group>]
type Select struct {
	Distinct bool
	Columns  []Column
	From     []TableRef
	Where    Expr // nil = no filter
	GroupBy  []Expr
}

func (*Select) queryNode() {}

// Union is the set union of its branches, rendered in order.
type Union struct {
	Branches []Query
}

func (*Union) queryNode() {}

// Except is the set difference Left minus Right.
type Except struct {
	Left  Query
	Right Query
}

func (*Except) queryNode() {}

// Rstream converts a relation back into a stream (engine only).
type Rstream struct {
	From string
}

func (*Rstream) queryNode() {}

// Raw is query text in the engine's native operator syntax. It is emitted
// verbatim and never evaluated outside the engine.
type Raw struct {
	Text string
	// Reads lists the relations the text refers to.
	Reads []string
}

func (*Raw) queryNode() {}

// Column is one projected expression with an optional alias.
type Column struct {
	Expr  Expr
	Alias string
}

// TableRef is a FROM entry.
type TableRef struct {
	Name   string
	Alias  string
	Window *Window // nil for relations
}

// RefName is the name the entry is referred to by inside the query.
func (t TableRef) RefName() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// WindowKind selects the stream-to-relation window.
type WindowKind int

const (
	// WindowRange is [RANGE r SECOND] or [RANGE r SECOND, SLIDE s SECOND].
	WindowRange WindowKind = iota
	// WindowNow is [NOW].
	WindowNow
)

// Window is a stream-to-relation window. Slide 0 omits the SLIDE clause.
type Window struct {
	Kind  WindowKind
	Range int
	Slide int
}

// Col references an attribute, optionally qualified.
type Col struct {
	Table string
	Name  string
}

func (Col) exprNode() {}

// Star is * or <table>.*.
type Star struct {
	Table string
}

func (Star) exprNode() {}

// Int is an integer literal.
type Int int64

func (Int) exprNode() {}

// ArithOp is an arithmetic operator.
type ArithOp string

const (
	Add ArithOp = "+"
	Sub ArithOp = "-"
)

// Arith is L <op> R.
type Arith struct {
	Op    ArithOp
	Left  Expr
	Right Expr
}

func (Arith) exprNode() {}

// CmpOp is a comparison operator.
type CmpOp string

const (
	Eq CmpOp = "="
	Lt CmpOp = "<"
	Le CmpOp = "<="
	Gt CmpOp = ">"
	Ge CmpOp = ">="
)

// Cmp is L <op> R.
type Cmp struct {
	Op    CmpOp
	Left  Expr
	Right Expr
}

func (Cmp) exprNode() {}

// And is a conjunction. An empty And is true.
type And struct {
	Terms []Expr
}

func (And) exprNode() {}

// Or is a disjunction. An empty Or is false.
type Or struct {
	Terms []Expr
}

func (Or) exprNode() {}

// Not negates its operand.
type Not struct {
	X Expr
}

func (Not) exprNode() {}

// AggFunc is an aggregate function.
type AggFunc string

const (
	Min AggFunc = "MIN"
	Max AggFunc = "MAX"
)

// Agg is an aggregate over a group.
type Agg struct {
	Func AggFunc
	Arg  Expr
}

func (Agg) exprNode() {}
