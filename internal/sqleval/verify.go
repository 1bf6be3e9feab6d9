package sqleval

import (
	"context"
	"slices"

	"github.com/roach88/seqpref/internal/compiler"
	"github.com/roach88/seqpref/internal/operator"
	"github.com/roach88/seqpref/internal/plan"
	"github.com/roach88/seqpref/internal/reference"
	"github.com/roach88/seqpref/internal/schema"
)

// Comparison holds the two results of one window.
type Comparison struct {
	Plan      *plan.Plan
	Reference [][]int64
	Compiled  [][]int64
}

// Equal reports whether both evaluations produced the same rows.
func (c *Comparison) Equal() bool {
	return slices.EqualFunc(c.Reference, c.Compiled, slices.Equal)
}

// Verify compiles spec, runs the plan over window starting from the
// windowed relation and compares the result with the reference evaluator.
func (e *Evaluator) Verify(ctx context.Context, spec operator.Spec, s schema.Schema, window []reference.Tuple) (*Comparison, error) {
	p, err := compiler.Compile(spec, s)
	if err != nil {
		return nil, err
	}
	want, err := reference.Evaluate(spec, s, window)
	if err != nil {
		return nil, err
	}

	inputs := map[string]Relation{compiler.Windowed: WindowRelation(s, window)}
	if p.Reads(compiler.Completion) {
		inputs[compiler.Completion] = CompletionRelation(spec.Rules.DomainMax)
	}
	got, err := e.Evaluate(ctx, p, inputs)
	if err != nil {
		return nil, err
	}
	return &Comparison{Plan: p, Reference: want, Compiled: got.Rows}, nil
}
