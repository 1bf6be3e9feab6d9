// Package plan holds compiled query plans: named relations ordered so that
// every node follows the nodes it reads.
package plan

import (
	"errors"
	"slices"

	"github.com/roach88/seqpref/internal/relalg"
)

// Builder errors. They indicate a compiler bug, never bad user input.
var (
	ErrDuplicateNode   = errors.New("duplicate plan node")
	ErrUnknownRelation = errors.New("unknown relation")
	ErrCycle           = errors.New("plan dependency cycle")
	ErrNoFinal         = errors.New("final node not in plan")
)

// Node is one named relation of a plan.
type Node struct {
	Name  string
	Query relalg.Query
	// Body is the query rendered in the engine dialect.
	Body string
	// DependsOn lists the plan nodes this node reads, in first-use order.
	DependsOn []string
}

// Plan is an ordered, dependency-respecting set of nodes with one final
// node. Plans are immutable once built.
type Plan struct {
	Nodes []Node
	Final string
	// Inputs lists the base relations (streams, tables) the plan reads.
	Inputs []string
}

// Node returns the node called name.
func (p *Plan) Node(name string) (Node, bool) {
	for _, n := range p.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return Node{}, false
}

// FinalNode returns the node whose output is the plan's result.
func (p *Plan) FinalNode() Node {
	n, _ := p.Node(p.Final)
	return n
}

// Names returns node names in emission order.
func (p *Plan) Names() []string {
	names := make([]string, len(p.Nodes))
	for i, n := range p.Nodes {
		names[i] = n.Name
	}
	return names
}

// Reads reports whether the plan reads base relation name.
func (p *Plan) Reads(name string) bool {
	return slices.Contains(p.Inputs, name)
}
