// Package relalg provides the relational plan AST that every operator
// compiler emits.
//
// A compiled plan is a set of named relations, each defined by one Query.
// Queries only use the primitive fragment the continuous-query engine
// understands:
//
//   - Select(columns, from, where, group by) with equi/theta joins
//   - Union (set semantics) and Except
//   - MIN / MAX aggregates
//   - Rstream and stream windows, which only the engine can evaluate
//
// SEALED INTERFACES:
//
// Query and Expr are sealed with marker methods, so back ends can switch
// exhaustively:
//
//	switch q := query.(type) {
//	case *Select:
//	case *Union:
//	case *Except:
//	case *Rstream:
//	case *Raw:
//	}
//
// PORTABILITY:
//
// Windows, Rstream and Raw are stream constructs. Everything else maps one
// to one onto SQL, which is what lets a plan's relational part run in
// SQLite (see Validate).
package relalg
