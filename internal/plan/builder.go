package plan

import (
	"fmt"
	"strings"

	"github.com/roach88/seqpref/internal/relalg"
	"github.com/roach88/seqpref/internal/relsql"
)

// Builder collects nodes and orders them into a Plan.
//
// Dependencies are derived from the relations each query reads. Add keeps
// the first error it sees; Build reports it. Node order is a topological
// order that falls back to insertion order between independent nodes, so
// identical input always yields an identical plan.
type Builder struct {
	base  map[string]bool
	nodes []Node
	index map[string]int
	err   error
}

// NewBuilder creates a Builder. base names the relations that exist
// outside the plan (input streams and tables).
func NewBuilder(base ...string) *Builder {
	b := &Builder{
		base:  make(map[string]bool, len(base)),
		index: make(map[string]int),
	}
	for _, name := range base {
		b.base[name] = true
	}
	return b
}

// Add appends a node defined by q.
func (b *Builder) Add(name string, q relalg.Query) {
	if b.err != nil {
		return
	}
	if _, dup := b.index[name]; dup || b.base[name] {
		b.err = fmt.Errorf("%w: %s", ErrDuplicateNode, name)
		return
	}
	body, err := relsql.CQLText(q)
	if err != nil {
		b.err = fmt.Errorf("render %s: %w", name, err)
		return
	}
	b.index[name] = len(b.nodes)
	b.nodes = append(b.nodes, Node{Name: name, Query: q, Body: body})
}

// Err returns the first error recorded by Add.
func (b *Builder) Err() error {
	return b.err
}

// Build orders the nodes and returns the plan whose result is final.
func (b *Builder) Build(final string) (*Plan, error) {
	if b.err != nil {
		return nil, b.err
	}
	if _, ok := b.index[final]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoFinal, final)
	}

	var inputs []string
	seenInput := map[string]bool{}
	graph := make(dependencyGraph, len(b.nodes))
	nodes := make([]Node, len(b.nodes))
	for i, n := range b.nodes {
		deps := []string{}
		for _, rel := range relalg.Relations(n.Query) {
			switch {
			case b.base[rel]:
				if !seenInput[rel] {
					seenInput[rel] = true
					inputs = append(inputs, rel)
				}
			case b.has(rel):
				deps = append(deps, rel)
			default:
				return nil, fmt.Errorf("%w: %s reads %s", ErrUnknownRelation, n.Name, rel)
			}
		}
		n.DependsOn = deps
		nodes[i] = n
		graph[n.Name] = deps
	}

	order, err := b.order(nodes, graph)
	if err != nil {
		return nil, err
	}
	return &Plan{Nodes: order, Final: final, Inputs: inputs}, nil
}

func (b *Builder) has(name string) bool {
	_, ok := b.index[name]
	return ok
}

// order is Kahn's algorithm, always emitting the ready node added first.
func (b *Builder) order(nodes []Node, graph dependencyGraph) ([]Node, error) {
	emitted := make(map[string]bool, len(nodes))
	out := make([]Node, 0, len(nodes))
	for len(out) < len(nodes) {
		progressed := false
		for _, n := range nodes {
			if emitted[n.Name] || !ready(n.DependsOn, emitted) {
				continue
			}
			emitted[n.Name] = true
			out = append(out, n)
			progressed = true
			break
		}
		if !progressed {
			cycles := findCycles(graph)
			if len(cycles) == 0 {
				return nil, ErrCycle
			}
			return nil, fmt.Errorf("%w: %s", ErrCycle, strings.Join(cycles[0], " -> "))
		}
	}
	return out, nil
}

func ready(deps []string, emitted map[string]bool) bool {
	for _, d := range deps {
		if !emitted[d] {
			return false
		}
	}
	return true
}
