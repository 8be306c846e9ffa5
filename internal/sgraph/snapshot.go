package sgraph

import (
	"errors"
	"fmt"
)

// NodeSnapshot is the serialisable form of a node.
type NodeSnapshot struct {
	ID   string  `json:"id"`
	Kind string  `json:"kind"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// EdgeSnapshot is the serialisable form of an edge.
type EdgeSnapshot struct {
	ID       string  `json:"id"`
	From     string  `json:"from"`
	To       string  `json:"to"`
	Behavior string  `json:"behavior"`
	Cost     float64 `json:"cost"`
}

// TaskSnapshot is the serialisable form of a task.
type TaskSnapshot struct {
	ID        string  `json:"id"`
	Edge      string  `json:"edge"`
	Objective string  `json:"objective"`
	Reward    float64 `json:"reward"`
}

// Snapshot is a point in time copy of the graph, detached from its handles.
type Snapshot struct {
	Nodes []NodeSnapshot `json:"nodes"`
	Edges []EdgeSnapshot `json:"edges"`
	Tasks []TaskSnapshot `json:"tasks"`
}

// Snapshot copies the graph into plain values in a stable order.
func (g *Graph) Snapshot() Snapshot {
	s := Snapshot{
		Nodes: make([]NodeSnapshot, 0, g.nodes.len()),
		Edges: make([]EdgeSnapshot, 0, g.edges.len()),
		Tasks: make([]TaskSnapshot, 0, len(g.tasks)),
	}
	for _, n := range g.Nodes() {
		s.Nodes = append(s.Nodes, NodeSnapshot{ID: n.ID.String(), Kind: n.Kind.String(), X: n.Pos.X, Y: n.Pos.Y})
	}
	for _, e := range g.Edges() {
		s.Edges = append(s.Edges, EdgeSnapshot{
			ID:       e.ID.String(),
			From:     e.From.String(),
			To:       e.To.String(),
			Behavior: e.Behavior.String(),
			Cost:     e.Cost,
		})
	}
	for _, t := range g.tasks {
		s.Tasks = append(s.Tasks, TaskSnapshot{
			ID:        t.ID.String(),
			Edge:      t.Edge.String(),
			Objective: t.Objective.String(),
			Reward:    t.Reward(),
		})
	}
	return s
}

// CheckInvariants returns every structural rule the graph currently breaks, joined
// into one error, or nil.
func (g *Graph) CheckInvariants() error {
	var errs []error

	for _, t := range g.tasks {
		if !g.HasEdge(t.Edge) {
			errs = append(errs, fmt.Errorf("task %s is bound to dead edge %s", t.ID, t.Edge))
		}
	}

	type pair struct{ a, b NodeID }
	gotos := make(map[pair]int)
	for _, e := range g.Edges() {
		if !g.HasNode(e.From) || !g.HasNode(e.To) {
			errs = append(errs, fmt.Errorf("edge %s has a dead endpoint", e.ID))
			continue
		}
		if e.Behavior != BehaviorGoto {
			continue
		}
		from, _ := g.Node(e.From)
		to, _ := g.Node(e.To)
		if from.Kind == KindWaypoint && to.Kind == KindWaypoint {
			gotos[pair{e.From, e.To}]++
		}
	}
	for p, n := range gotos {
		if n > 1 {
			errs = append(errs, fmt.Errorf("%d goto edges from %s to %s", n, p.a, p.b))
		}
	}

	for _, n := range g.Nodes() {
		switch {
		case n.Kind == KindFrontier:
			if c := g.countInbound(n.ID, func(b BehaviorKind) bool { return b == BehaviorExplore }); c != 1 {
				errs = append(errs, fmt.Errorf("frontier %s has %d inbound explore edges", n.ID, c))
			}
		case n.Kind.IsWorldObject():
			if c := g.countInbound(n.ID, func(b BehaviorKind) bool { return g.affordances.Affords(n.Kind, b) }); c != 1 {
				errs = append(errs, fmt.Errorf("%s %s has %d inbound afforded edges", n.Kind, n.ID, c))
			}
		}
	}
	return errors.Join(errs...)
}

func (g *Graph) countInbound(id NodeID, match func(BehaviorKind) bool) int {
	c := 0
	for _, e := range g.InEdges(id) {
		if match(e.Behavior) {
			c++
		}
	}
	return c
}
