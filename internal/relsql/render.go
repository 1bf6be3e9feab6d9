// Package relsql renders relalg queries as text.
//
// One renderer serves two dialects. CQL is the text the continuous-query
// engine reads from a query file. SQLite renders the portable fragment for
// in-process evaluation and rejects stream constructs.
package relsql

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/seqpref/internal/relalg"
)

// Dialect selects the output syntax.
type Dialect int

const (
	// CQL is the continuous-query engine syntax.
	CQL Dialect = iota
	// SQLite is plain SQL with quoted identifiers.
	SQLite
)

func (d Dialect) String() string {
	switch d {
	case CQL:
		return "cql"
	case SQLite:
		return "sqlite"
	default:
		return fmt.Sprintf("Dialect(%d)", int(d))
	}
}

// ErrNotPortable is returned when a stream construct is rendered for SQLite.
var ErrNotPortable = errors.New("construct has no SQL equivalent")

// Renderer turns queries into text for one dialect.
type Renderer struct {
	Dialect Dialect
}

// NewRenderer creates a Renderer for dialect.
func NewRenderer(d Dialect) *Renderer {
	return &Renderer{Dialect: d}
}

// Render renders a complete query. CQL text is terminated with ";".
func (r *Renderer) Render(q relalg.Query) (string, error) {
	if err := relalg.Check(q); err != nil {
		return "", err
	}
	text, err := r.query(q)
	if err != nil {
		return "", err
	}
	if r.Dialect == CQL {
		text += ";"
	}
	return text, nil
}

// CQLText renders q in the CQL dialect.
func CQLText(q relalg.Query) (string, error) {
	return NewRenderer(CQL).Render(q)
}

func (r *Renderer) query(q relalg.Query) (string, error) {
	switch query := q.(type) {
	case *relalg.Select:
		return r.selectQuery(query)
	case *relalg.Union:
		return r.setOp(query.Branches, "UNION")
	case *relalg.Except:
		return r.setOp([]relalg.Query{query.Left, query.Right}, "EXCEPT")
	case *relalg.Rstream:
		if r.Dialect != CQL {
			return "", fmt.Errorf("rstream from %s: %w", query.From, ErrNotPortable)
		}
		return "SELECT RSTREAM FROM " + r.ident(query.From), nil
	case *relalg.Raw:
		if r.Dialect != CQL {
			return "", fmt.Errorf("native operator text: %w", ErrNotPortable)
		}
		return strings.TrimSuffix(strings.TrimSpace(query.Text), ";"), nil
	default:
		return "", fmt.Errorf("unsupported query type: %T", q)
	}
}

func (r *Renderer) setOp(branches []relalg.Query, op string) (string, error) {
	parts := make([]string, 0, len(branches))
	for _, b := range branches {
		text, err := r.query(b)
		if err != nil {
			return "", err
		}
		if _, nested := b.(*relalg.Select); !nested && r.Dialect == SQLite {
			// SQLite has no parenthesized compound operands.
			text = "SELECT * FROM (" + text + ")"
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n"+op+"\n"), nil
}

func (r *Renderer) selectQuery(q *relalg.Select) (string, error) {
	var b strings.Builder
	b.WriteString("SELECT ")
	if q.Distinct {
		b.WriteString("DISTINCT ")
	}

	cols := make([]string, len(q.Columns))
	for i, c := range q.Columns {
		text, err := r.expr(c.Expr)
		if err != nil {
			return "", fmt.Errorf("column %d: %w", i+1, err)
		}
		if c.Alias != "" {
			text += " AS " + r.ident(c.Alias)
		}
		cols[i] = text
	}
	b.WriteString(strings.Join(cols, ", "))

	from := make([]string, len(q.From))
	for i, t := range q.From {
		text, err := r.tableRef(t)
		if err != nil {
			return "", err
		}
		from[i] = text
	}
	b.WriteString("\nFROM ")
	b.WriteString(strings.Join(from, ", "))

	if q.Where != nil {
		if and, ok := q.Where.(relalg.And); !ok || len(and.Terms) > 0 {
			text, err := r.expr(q.Where)
			if err != nil {
				return "", fmt.Errorf("where: %w", err)
			}
			b.WriteString("\nWHERE ")
			b.WriteString(text)
		}
	}

	if len(q.GroupBy) > 0 {
		group := make([]string, len(q.GroupBy))
		for i, e := range q.GroupBy {
			text, err := r.expr(e)
			if err != nil {
				return "", fmt.Errorf("group by: %w", err)
			}
			group[i] = text
		}
		b.WriteString("\nGROUP BY ")
		b.WriteString(strings.Join(group, ", "))
	}
	return b.String(), nil
}

func (r *Renderer) tableRef(t relalg.TableRef) (string, error) {
	text := r.ident(t.Name)
	if t.Window != nil {
		if r.Dialect != CQL {
			return "", fmt.Errorf("window over %s: %w", t.Name, ErrNotPortable)
		}
		text += windowText(*t.Window)
	}
	if t.Alias != "" {
		text += " AS " + r.ident(t.Alias)
	}
	return text, nil
}

func windowText(w relalg.Window) string {
	switch {
	case w.Kind == relalg.WindowNow:
		return "[NOW]"
	case w.Slide > 0:
		return fmt.Sprintf("[RANGE %d SECOND, SLIDE %d SECOND]", w.Range, w.Slide)
	default:
		return fmt.Sprintf("[RANGE %d SECOND]", w.Range)
	}
}

func (r *Renderer) expr(e relalg.Expr) (string, error) {
	switch x := e.(type) {
	case relalg.Col:
		if x.Table != "" {
			return r.ident(x.Table) + "." + r.ident(x.Name), nil
		}
		return r.ident(x.Name), nil
	case relalg.Star:
		if x.Table != "" {
			return r.ident(x.Table) + ".*", nil
		}
		return "*", nil
	case relalg.Int:
		return strconv.FormatInt(int64(x), 10), nil
	case relalg.Arith:
		left, err := r.expr(x.Left)
		if err != nil {
			return "", err
		}
		right, err := r.expr(x.Right)
		if err != nil {
			return "", err
		}
		if _, nested := x.Right.(relalg.Arith); nested {
			right = "(" + right + ")"
		}
		return left + " " + string(x.Op) + " " + right, nil
	case relalg.Cmp:
		left, err := r.expr(x.Left)
		if err != nil {
			return "", err
		}
		right, err := r.expr(x.Right)
		if err != nil {
			return "", err
		}
		return left + " " + string(x.Op) + " " + right, nil
	case relalg.And:
		if len(x.Terms) == 0 {
			return "1 = 1", nil
		}
		return r.join(x.Terms, " AND ")
	case relalg.Or:
		if len(x.Terms) == 0 {
			return "1 = 0", nil
		}
		text, err := r.join(x.Terms, " OR ")
		if err != nil {
			return "", err
		}
		return "(" + text + ")", nil
	case relalg.Not:
		inner, err := r.expr(x.X)
		if err != nil {
			return "", err
		}
		return "NOT " + inner, nil
	case relalg.Agg:
		inner, err := r.expr(x.Arg)
		if err != nil {
			return "", err
		}
		return string(x.Func) + "(" + inner + ")", nil
	case nil:
		return "", errors.New("nil expression")
	default:
		return "", fmt.Errorf("unsupported expression type: %T", e)
	}
}

func (r *Renderer) join(terms []relalg.Expr, sep string) (string, error) {
	parts := make([]string, len(terms))
	for i, t := range terms {
		text, err := r.expr(t)
		if err != nil {
			return "", err
		}
		parts[i] = text
	}
	return strings.Join(parts, sep), nil
}

// ident quotes identifiers for SQLite. CQL names are always plain.
func (r *Renderer) ident(name string) string {
	if r.Dialect == SQLite {
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return name
}
