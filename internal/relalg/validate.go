package relalg

import (
	"errors"
	"fmt"
)

// ValidationResult contains the portability analysis of a query.
//
// A portable query uses only constructs that have a direct SQL
// counterpart. Non-portable queries are valid plans for the engine; they
// just cannot be evaluated by the SQLite back end.
type ValidationResult struct {
	// IsPortable is true when no stream construct is used.
	IsPortable bool

	// Warnings lists the stream constructs found.
	Warnings []string
}

// Validate reports whether a query stays inside the portable fragment.
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{warnings: []string{}}
	v.validateQuery(query)

	return ValidationResult{
		IsPortable: len(v.warnings) == 0,
		Warnings:   v.warnings,
	}
}

type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case *Select:
		for _, t := range query.From {
			if t.Window != nil {
				v.addWarning("window over %s - stream windows are engine only", t.Name)
			}
		}
	case *Union:
		for _, b := range query.Branches {
			v.validateQuery(b)
		}
	case *Except:
		v.validateQuery(query.Left)
		v.validateQuery(query.Right)
	case *Rstream:
		v.addWarning("RSTREAM over %s - relation-to-stream is engine only", query.From)
	case *Raw:
		v.addWarning("native operator text - evaluated by the engine only")
	default:
		v.addWarning("unknown query type: %T - portability cannot be verified", q)
	}
}

// ErrMalformed is returned by Check for structurally invalid queries.
var ErrMalformed = errors.New("malformed query")

// Check rejects queries that no back end can render: nil nodes, selects
// without columns or sources, empty unions and empty raw text.
func Check(q Query) error {
	switch query := q.(type) {
	case nil:
		return fmt.Errorf("%w: nil query", ErrMalformed)
	case *Select:
		if query == nil {
			return fmt.Errorf("%w: nil select", ErrMalformed)
		}
		if len(query.Columns) == 0 {
			return fmt.Errorf("%w: select without columns", ErrMalformed)
		}
		if len(query.From) == 0 {
			return fmt.Errorf("%w: select without sources", ErrMalformed)
		}
		for _, c := range query.Columns {
			if c.Expr == nil {
				return fmt.Errorf("%w: nil column expression", ErrMalformed)
			}
		}
	case *Union:
		if len(query.Branches) == 0 {
			return fmt.Errorf("%w: empty union", ErrMalformed)
		}
		for i, b := range query.Branches {
			if err := Check(b); err != nil {
				return fmt.Errorf("union branch %d: %w", i+1, err)
			}
		}
	case *Except:
		if err := Check(query.Left); err != nil {
			return fmt.Errorf("except left: %w", err)
		}
		if err := Check(query.Right); err != nil {
			return fmt.Errorf("except right: %w", err)
		}
	case *Rstream:
		if query.From == "" {
			return fmt.Errorf("%w: rstream without source", ErrMalformed)
		}
	case *Raw:
		if query.Text == "" {
			return fmt.Errorf("%w: empty native text", ErrMalformed)
		}
	default:
		return fmt.Errorf("%w: unsupported query type %T", ErrMalformed, q)
	}
	return nil
}

// Relations returns the relation names a query reads, in first-use order
// and without duplicates.
func Relations(q Query) []string {
	seen := map[string]bool{}
	var names []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	var walk func(Query)
	walk = func(q Query) {
		switch query := q.(type) {
		case *Select:
			for _, t := range query.From {
				add(t.Name)
			}
		case *Union:
			for _, b := range query.Branches {
				walk(b)
			}
		case *Except:
			walk(query.Left)
			walk(query.Right)
		case *Rstream:
			add(query.From)
		case *Raw:
			for _, r := range query.Reads {
				add(r)
			}
		}
	}
	walk(q)
	return names
}
