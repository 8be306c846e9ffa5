// Package planning chooses what an agent should do next: the allocator ranks the
// outstanding tasks and the planner turns the chosen one into a sequence of edges.
package planning

import (
	"errors"
	"slices"

	"github.com/xkilldash9x/sgexplore/internal/sgraph"
)

var (
	ErrTargetNodeNotFound = errors.New("target node not found")
	ErrCouldNotFindPlan   = errors.New("could not find plan")
	ErrCouldNotFindTask   = errors.New("could not find task")
)

// Plan is the ordered list of edges an agent still has to execute for its task.
type Plan struct {
	edges []sgraph.Edge
}

// NewPlan wraps an edge sequence.
func NewPlan(edges []sgraph.Edge) *Plan {
	return &Plan{edges: slices.Clone(edges)}
}

// Len is the number of edges left.
func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.edges)
}

// Empty reports whether nothing is left to execute.
func (p *Plan) Empty() bool { return p.Len() == 0 }

// Next returns the edge to execute now.
func (p *Plan) Next() (sgraph.Edge, bool) {
	if p.Empty() {
		return sgraph.Edge{}, false
	}
	return p.edges[0], true
}

// Pop drops the front edge after it has been executed.
func (p *Plan) Pop() {
	if !p.Empty() {
		p.edges = p.edges[1:]
	}
}

// Terminal is the node the plan ends at.
func (p *Plan) Terminal() (sgraph.NodeID, bool) {
	if p.Empty() {
		return sgraph.NodeID{}, false
	}
	return p.edges[len(p.edges)-1].To, true
}

// Edges returns a copy of the remaining edges.
func (p *Plan) Edges() []sgraph.Edge {
	if p == nil {
		return nil
	}
	return slices.Clone(p.edges)
}

// Clear empties the plan.
func (p *Plan) Clear() {
	if p != nil {
		p.edges = nil
	}
}

// Valid reports whether the next edge and the terminal node still exist in g.
func (p *Plan) Valid(g *sgraph.Graph) bool {
	next, ok := p.Next()
	if !ok || !g.HasEdge(next.ID) {
		return false
	}
	terminal, _ := p.Terminal()
	return g.HasNode(terminal)
}
