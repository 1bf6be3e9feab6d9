// Package sqleval runs the relational part of a compiled plan in an
// in-memory SQLite database.
//
// Stream windows and RSTREAM have no SQL counterpart, so evaluation starts
// from provided input relations, typically the window w (and tup for
// preference plans). Every node needed by the target and not provided
// becomes a view, created in plan order.
package sqleval

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/seqpref/internal/plan"
	"github.com/roach88/seqpref/internal/relalg"
	"github.com/roach88/seqpref/internal/relsql"
)

// Errors returned by Evaluate.
var (
	ErrMissingInput = errors.New("relation neither provided nor computed by the plan")
	ErrNotPortable  = errors.New("node needs the stream engine")
	ErrUnknownNode  = errors.New("unknown node")
)

// Relation is a set of integer rows with named columns.
type Relation struct {
	Columns []string
	Rows    [][]int64
}

// Evaluator executes plans. The zero value logs nowhere.
type Evaluator struct {
	Logger *slog.Logger
}

// New creates an Evaluator that logs to logger.
func New(logger *slog.Logger) *Evaluator {
	return &Evaluator{Logger: logger}
}

func (e *Evaluator) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

// Evaluate returns the final node of p computed from inputs.
func (e *Evaluator) Evaluate(ctx context.Context, p *plan.Plan, inputs map[string]Relation) (Relation, error) {
	return e.EvaluateNode(ctx, p, inputs, p.Final)
}

// EvaluateNode returns node target of p computed from inputs. Rows are
// sorted and deduplicated.
func (e *Evaluator) EvaluateNode(ctx context.Context, p *plan.Plan, inputs map[string]Relation, target string) (Relation, error) {
	needed, err := neededNodes(p, inputs, target)
	if err != nil {
		return Relation{}, err
	}

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return Relation{}, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := load(ctx, db, name, inputs[name]); err != nil {
			return Relation{}, fmt.Errorf("load %s: %w", name, err)
		}
	}

	r := relsql.NewRenderer(relsql.SQLite)
	for _, n := range p.Nodes {
		if !needed[n.Name] {
			continue
		}
		text, err := r.Render(n.Query)
		if err != nil {
			return Relation{}, fmt.Errorf("render %s: %w", n.Name, err)
		}
		e.logger().Debug("create view", "node", n.Name)
		if _, err := db.ExecContext(ctx, "CREATE VIEW "+quote(n.Name)+" AS "+text); err != nil {
			return Relation{}, fmt.Errorf("create view %s: %w", n.Name, err)
		}
	}

	return query(ctx, db, "SELECT * FROM "+quote(target))
}

// neededNodes returns the plan nodes target depends on that are not
// provided as inputs.
func neededNodes(p *plan.Plan, inputs map[string]Relation, target string) (map[string]bool, error) {
	if _, ok := inputs[target]; ok {
		return map[string]bool{}, nil
	}
	if _, ok := p.Node(target); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, target)
	}

	needed := map[string]bool{}
	var visit func(name string) error
	visit = func(name string) error {
		if needed[name] {
			return nil
		}
		if _, ok := inputs[name]; ok {
			return nil
		}
		n, ok := p.Node(name)
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingInput, name)
		}
		if v := relalg.Validate(n.Query); !v.IsPortable {
			return fmt.Errorf("%w: %s (%s)", ErrNotPortable, name, strings.Join(v.Warnings, "; "))
		}
		needed[name] = true
		for _, rel := range relalg.Relations(n.Query) {
			if err := visit(rel); err != nil {
				return err
			}
		}
		return nil
	}
	return needed, visit(target)
}

func load(ctx context.Context, db *sql.DB, name string, rel Relation) error {
	if len(rel.Columns) == 0 {
		return errors.New("relation without columns")
	}
	decl := make([]string, len(rel.Columns))
	marks := make([]string, len(rel.Columns))
	for i, c := range rel.Columns {
		decl[i] = quote(c) + " INTEGER"
		marks[i] = "?"
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", quote(name), strings.Join(decl, ", "))); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", quote(name), strings.Join(marks, ", ")))
	if err != nil {
		return err
	}
	defer stmt.Close()

	args := make([]any, len(rel.Columns))
	for i, row := range rel.Rows {
		if len(row) != len(rel.Columns) {
			return fmt.Errorf("row %d has %d values, want %d", i, len(row), len(rel.Columns))
		}
		for j, v := range row {
			args[j] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func query(ctx context.Context, db *sql.DB, text string) (Relation, error) {
	rows, err := db.QueryContext(ctx, text)
	if err != nil {
		return Relation{}, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return Relation{}, err
	}
	out := Relation{Columns: columns, Rows: [][]int64{}}
	values := make([]sql.NullInt64, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return Relation{}, fmt.Errorf("scan: %w", err)
		}
		row := make([]int64, len(columns))
		for i, v := range values {
			if !v.Valid {
				return Relation{}, fmt.Errorf("column %s: unexpected NULL", columns[i])
			}
			row[i] = v.Int64
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return Relation{}, err
	}

	slices.SortFunc(out.Rows, slices.Compare[[]int64])
	out.Rows = slices.CompactFunc(out.Rows, slices.Equal[[]int64])
	return out, nil
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
