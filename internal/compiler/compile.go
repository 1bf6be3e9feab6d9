// Package compiler translates sequence operators into plans made only of
// primitive relational operations.
//
// Every operator starts from the positional nodes, which number the tuples
// of each identifier inside the window. SEQ stops there. The other
// operators treat the positional result as the sequences relation z and
// add their own nodes over it:
//
//	CONSEQ            z_prime, p_start, p_end, p_start_end, equiv
//	BESTSEQ           p_join, p, r<i>.., d<i>.., t1..tL, id, equiv
//	MINSEQ, MAXSEQ    z_len, equiv
//
// TOPKSEQ has no relational equivalent and is only available natively.
//
// Compilation is pure and deterministic: the same specification always
// yields the same nodes, bodies and order.
package compiler

import (
	"errors"
	"fmt"

	"github.com/roach88/seqpref/internal/native"
	"github.com/roach88/seqpref/internal/operator"
	"github.com/roach88/seqpref/internal/plan"
	"github.com/roach88/seqpref/internal/relalg"
	"github.com/roach88/seqpref/internal/rule"
	"github.com/roach88/seqpref/internal/schema"
)

// ErrNoEquivalent is returned for operators without a CQL-equivalent plan.
var ErrNoEquivalent = errors.New("operator has no relational equivalent")

// Compile returns the CQL-equivalent plan of spec over streams with layout
// s. The final node is always equiv.
func Compile(spec operator.Spec, s schema.Schema) (*plan.Plan, error) {
	if err := operator.Validate(spec, s); err != nil {
		return nil, err
	}

	var b *plan.Builder
	switch spec.Kind {
	case operator.Seq:
		b = plan.NewBuilder(Stream)
		addPositional(b, s, spec.Window, positionalOptions{Final: Result})
	case operator.Conseq:
		b = plan.NewBuilder(Stream)
		addPositional(b, s, spec.Window, positionalOptions{Final: Sequences, KeepOriginalTimestamp: true})
		addConsecutive(b, s)
	case operator.BestSeq:
		b = plan.NewBuilder(Stream, Completion)
		addPositional(b, s, spec.Window, positionalOptions{Final: Sequences})
		d := &dominance{
			b:      b,
			schema: s,
			rules:  rule.Compile(spec.Rules, s.Indifferent),
			levels: spec.Rules.Levels,
		}
		d.add()
	case operator.MinSeq:
		b = plan.NewBuilder(Stream)
		addPositional(b, s, spec.Window, positionalOptions{Final: Sequences})
		addLengthFilter(b, s, relalg.Ge, spec.MinLength)
	case operator.MaxSeq:
		b = plan.NewBuilder(Stream)
		addPositional(b, s, spec.Window, positionalOptions{Final: Sequences})
		addLengthFilter(b, s, relalg.Le, spec.MaxLength)
	case operator.TopKSeq:
		return nil, fmt.Errorf("%w: %s", ErrNoEquivalent, spec.Kind)
	default:
		return nil, fmt.Errorf("unsupported operator: %s", spec.Kind)
	}

	p, err := b.Build(Result)
	if err != nil {
		return nil, fmt.Errorf("build %s plan: %w", spec.Kind, err)
	}
	return p, nil
}

// CompileNative returns a one-node plan holding the native query. The node
// is named after the operator (seq, conseq, bestseq, ...).
func CompileNative(spec operator.Spec, s schema.Schema) (*plan.Plan, error) {
	if err := operator.Validate(spec, s); err != nil {
		return nil, err
	}
	text, err := native.Query(spec, s)
	if err != nil {
		return nil, err
	}

	name := spec.Kind.String()
	b := plan.NewBuilder(native.Reads()...)
	b.Add(name, &relalg.Raw{Text: text, Reads: native.Reads()})
	p, err := b.Build(name)
	if err != nil {
		return nil, fmt.Errorf("build native %s plan: %w", spec.Kind, err)
	}
	return p, nil
}
