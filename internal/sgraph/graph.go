// Package sgraph implements the situational graph: a typed multigraph of waypoints,
// frontiers and world objects plus the list of outstanding tasks bound to its edges.
//
// A Graph is not safe for concurrent use. Agents are stepped one after another and
// every mutation primitive completes before the next agent observes the graph.
package sgraph

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sgexplore/internal/config"
	"github.com/xkilldash9x/sgexplore/internal/geometry"
)

var (
	ErrNodeNotFound  = errors.New("node not found")
	ErrEdgeNotFound  = errors.New("edge not found")
	ErrDuplicateEdge = errors.New("duplicate edge")
)

// Node is a vertex of the situational graph.
type Node struct {
	ID   NodeID
	Kind NodeKind
	Pos  geometry.Point
}

// Edge is a directed, typed connection between two nodes. Parallel edges between the
// same ordered pair are allowed.
type Edge struct {
	ID       EdgeID
	From     NodeID
	To       NodeID
	Behavior BehaviorKind
	Cost     float64
}

// RequiredCapabilities returns the capabilities an agent needs to traverse e.
func (e Edge) RequiredCapabilities() Capabilities {
	return e.Behavior.RequiredCapabilities()
}

// Task is a unit of outstanding work bound to one live edge.
type Task struct {
	ID        uuid.UUID
	Edge      EdgeID
	Objective Objective
}

// Reward is the fixed reward of the task's objective.
func (t Task) Reward() float64 { return t.Objective.Reward() }

type nodeEntry struct {
	node Node
	out  []EdgeID
	in   []EdgeID
}

// Graph owns the nodes, edges and tasks of one mission.
type Graph struct {
	nodes arena[nodeEntry]
	edges arena[Edge]
	tasks []Task

	affordances AffordanceTable
	pathFinding string
	logger      *zap.Logger
}

// Option configures a Graph.
type Option func(*Graph)

// WithPathFinding selects "astar" or "dijkstra" for shortest path queries.
func WithPathFinding(method string) Option {
	return func(g *Graph) { g.pathFinding = method }
}

// New creates an empty situational graph.
func New(logger *zap.Logger, opts ...Option) *Graph {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Graph{
		affordances: DefaultAffordances(),
		pathFinding: config.PathFindingAStar,
		logger:      logger.Named("sgraph"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// -- Lookups --

// Node returns the node with the given handle.
func (g *Graph) Node(id NodeID) (Node, bool) {
	e, ok := g.nodes.get(id.h)
	if !ok {
		return Node{}, false
	}
	return e.node, true
}

// HasNode reports whether id refers to a live node.
func (g *Graph) HasNode(id NodeID) bool {
	_, ok := g.nodes.get(id.h)
	return ok
}

// Edge returns the edge with the given handle.
func (g *Graph) Edge(id EdgeID) (Edge, bool) {
	e, ok := g.edges.get(id.h)
	if !ok {
		return Edge{}, false
	}
	return *e, true
}

// HasEdge reports whether id refers to a live edge.
func (g *Graph) HasEdge(id EdgeID) bool {
	_, ok := g.edges.get(id.h)
	return ok
}

// NodeCount is the number of live nodes.
func (g *Graph) NodeCount() int { return g.nodes.len() }

// EdgeCount is the number of live edges.
func (g *Graph) EdgeCount() int { return g.edges.len() }

// Nodes returns every live node in a stable order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, g.nodes.len())
	g.nodes.each(func(_ handle, e *nodeEntry) bool {
		out = append(out, e.node)
		return true
	})
	return out
}

// NodesOfKind returns the live nodes of one kind.
func (g *Graph) NodesOfKind(kind NodeKind) []Node {
	var out []Node
	g.nodes.each(func(_ handle, e *nodeEntry) bool {
		if e.node.Kind == kind {
			out = append(out, e.node)
		}
		return true
	})
	return out
}

// CountByKind tallies live nodes per kind.
func (g *Graph) CountByKind() map[NodeKind]int {
	out := make(map[NodeKind]int)
	g.nodes.each(func(_ handle, e *nodeEntry) bool {
		out[e.node.Kind]++
		return true
	})
	return out
}

// Edges returns every live edge in a stable order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.edges.len())
	g.edges.each(func(_ handle, e *Edge) bool {
		out = append(out, *e)
		return true
	})
	return out
}

// OutEdges returns the edges leaving id.
func (g *Graph) OutEdges(id NodeID) []Edge {
	return g.resolve(id, func(e *nodeEntry) []EdgeID { return e.out })
}

// InEdges returns the edges arriving at id.
func (g *Graph) InEdges(id NodeID) []Edge {
	return g.resolve(id, func(e *nodeEntry) []EdgeID { return e.in })
}

func (g *Graph) resolve(id NodeID, pick func(*nodeEntry) []EdgeID) []Edge {
	entry, ok := g.nodes.get(id.h)
	if !ok {
		return nil
	}
	ids := pick(entry)
	out := make([]Edge, 0, len(ids))
	for _, eid := range ids {
		if e, ok := g.edges.get(eid.h); ok {
			out = append(out, *e)
		}
	}
	return out
}

// EdgesBetween returns the parallel edges from a to b.
func (g *Graph) EdgesBetween(a, b NodeID) []Edge {
	var out []Edge
	for _, e := range g.OutEdges(a) {
		if e.To == b {
			out = append(out, e)
		}
	}
	return out
}

// Connected reports whether any edge joins a and b in either direction.
func (g *Graph) Connected(a, b NodeID) bool {
	return len(g.EdgesBetween(a, b)) > 0 || len(g.EdgesBetween(b, a)) > 0
}

// NodesOfKindInMargin returns the nodes of kind lying strictly inside the axis
// aligned square of half-width margin around pos. The margin is a box, not a disc.
func (g *Graph) NodesOfKindInMargin(pos geometry.Point, margin float64, kind NodeKind) []Node {
	var out []Node
	g.nodes.each(func(_ handle, e *nodeEntry) bool {
		if e.node.Kind == kind && pos.WithinBox(e.node.Pos, margin) {
			out = append(out, e.node)
		}
		return true
	})
	return out
}

// WorldObjectAt returns the world object of any subkind at exactly pos.
func (g *Graph) WorldObjectAt(pos geometry.Point) (Node, bool) {
	var found Node
	var ok bool
	g.nodes.each(func(_ handle, e *nodeEntry) bool {
		if e.node.Kind.IsWorldObject() && e.node.Pos == pos {
			found, ok = e.node, true
			return false
		}
		return true
	})
	return found, ok
}

// -- Tasks --

// Tasks returns a copy of the outstanding task list in insertion order.
func (g *Graph) Tasks() []Task {
	return slices.Clone(g.tasks)
}

// TaskCount is the number of outstanding tasks.
func (g *Graph) TaskCount() int { return len(g.tasks) }

// Task looks a task up by id.
func (g *Graph) Task(id uuid.UUID) (Task, bool) {
	for _, t := range g.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// TaskTarget resolves the node a task leads to.
func (g *Graph) TaskTarget(t Task) (NodeID, error) {
	e, ok := g.edges.get(t.Edge.h)
	if !ok {
		return NodeID{}, fmt.Errorf("task %s: %w", t.ID, ErrEdgeNotFound)
	}
	if !g.HasNode(e.To) {
		return NodeID{}, fmt.Errorf("task %s target %s: %w", t.ID, e.To, ErrNodeNotFound)
	}
	return e.To, nil
}

// AddTask binds a new task to a live edge.
func (g *Graph) AddTask(edge EdgeID, objective Objective) (Task, error) {
	if !g.HasEdge(edge) {
		return Task{}, fmt.Errorf("add task on %s: %w", edge, ErrEdgeNotFound)
	}
	t := Task{ID: uuid.New(), Edge: edge, Objective: objective}
	g.tasks = append(g.tasks, t)
	return t, nil
}

// RemoveTask drops a task from the outstanding list. It reports whether the task
// was present.
func (g *Graph) RemoveTask(id uuid.UUID) bool {
	i := slices.IndexFunc(g.tasks, func(t Task) bool { return t.ID == id })
	if i < 0 {
		return false
	}
	g.tasks = slices.Delete(g.tasks, i, i+1)
	return true
}

func (g *Graph) removeTasksForEdges(edges map[EdgeID]struct{}) int {
	before := len(g.tasks)
	g.tasks = slices.DeleteFunc(g.tasks, func(t Task) bool {
		_, dead := edges[t.Edge]
		return dead
	})
	return before - len(g.tasks)
}

// -- Low level mutation --

// AddNode inserts a bare node with no edges.
func (g *Graph) AddNode(kind NodeKind, pos geometry.Point) NodeID {
	h := g.nodes.insert(nodeEntry{node: Node{Kind: kind, Pos: pos}})
	id := NodeID{h: h}
	entry, _ := g.nodes.get(h)
	entry.node.ID = id
	return id
}

// AddEdge inserts a directed edge between two live nodes.
func (g *Graph) AddEdge(from, to NodeID, behavior BehaviorKind, cost float64) (EdgeID, error) {
	src, ok := g.nodes.get(from.h)
	if !ok {
		return EdgeID{}, fmt.Errorf("edge source %s: %w", from, ErrNodeNotFound)
	}
	if _, ok := g.nodes.get(to.h); !ok {
		return EdgeID{}, fmt.Errorf("edge target %s: %w", to, ErrNodeNotFound)
	}
	h := g.edges.insert(Edge{From: from, To: to, Behavior: behavior, Cost: cost})
	id := EdgeID{h: h}
	e, _ := g.edges.get(h)
	e.ID = id

	src.out = append(src.out, id)
	dst, _ := g.nodes.get(to.h)
	dst.in = append(dst.in, id)
	return id, nil
}

// RemoveEdgeAndTasks removes an edge together with every task bound to it.
func (g *Graph) RemoveEdgeAndTasks(id EdgeID) error {
	e, ok := g.edges.get(id.h)
	if !ok {
		return fmt.Errorf("remove %s: %w", id, ErrEdgeNotFound)
	}
	g.removeTasksForEdges(map[EdgeID]struct{}{id: {}})
	g.unlink(*e)
	g.edges.remove(id.h)
	return nil
}

func (g *Graph) unlink(e Edge) {
	if src, ok := g.nodes.get(e.From.h); ok {
		src.out = slices.DeleteFunc(src.out, func(id EdgeID) bool { return id == e.ID })
	}
	if dst, ok := g.nodes.get(e.To.h); ok {
		dst.in = slices.DeleteFunc(dst.in, func(id EdgeID) bool { return id == e.ID })
	}
}

// RemoveNodeAndTasks removes a node, all of its incident edges and every task bound
// to those edges in one step.
func (g *Graph) RemoveNodeAndTasks(id NodeID) error {
	entry, ok := g.nodes.get(id.h)
	if !ok {
		return fmt.Errorf("remove %s: %w", id, ErrNodeNotFound)
	}

	incident := make(map[EdgeID]struct{}, len(entry.out)+len(entry.in))
	for _, eid := range entry.out {
		incident[eid] = struct{}{}
	}
	for _, eid := range entry.in {
		incident[eid] = struct{}{}
	}

	removed := g.removeTasksForEdges(incident)
	for eid := range incident {
		if e, ok := g.edges.get(eid.h); ok {
			g.unlink(*e)
			g.edges.remove(eid.h)
		}
	}
	g.nodes.remove(id.h)

	g.logger.Debug("Removed node",
		zap.Stringer("node", id),
		zap.Int("edges", len(incident)),
		zap.Int("tasks", removed),
	)
	return nil
}

// -- Mutation primitives --

// edgeCost is the Euclidean distance, inverted for Explore edges so the farthest
// frontier is the cheapest. A zero distance keeps the raw value.
func edgeCost(b BehaviorKind, from, to geometry.Point) float64 {
	d := from.Dist(to)
	if b == BehaviorExplore && d != 0 {
		return 1 / d
	}
	return d
}

// AddGotoEdgePair joins two nodes with a Goto edge in each direction. The insert is
// rejected if a Goto edge already exists in either direction.
func (g *Graph) AddGotoEdgePair(a, b NodeID) error {
	na, ok := g.Node(a)
	if !ok {
		return fmt.Errorf("goto pair %s: %w", a, ErrNodeNotFound)
	}
	nb, ok := g.Node(b)
	if !ok {
		return fmt.Errorf("goto pair %s: %w", b, ErrNodeNotFound)
	}
	if g.hasBehaviorEdge(a, b, BehaviorGoto) || g.hasBehaviorEdge(b, a, BehaviorGoto) {
		g.logger.Warn("Rejected duplicate goto edge",
			zap.Stringer("from", a),
			zap.Stringer("to", b),
		)
		return fmt.Errorf("goto %s <-> %s: %w", a, b, ErrDuplicateEdge)
	}
	cost := edgeCost(BehaviorGoto, na.Pos, nb.Pos)
	if _, err := g.AddEdge(a, b, BehaviorGoto, cost); err != nil {
		return err
	}
	_, err := g.AddEdge(b, a, BehaviorGoto, cost)
	return err
}

func (g *Graph) hasBehaviorEdge(a, b NodeID, behavior BehaviorKind) bool {
	for _, e := range g.EdgesBetween(a, b) {
		if e.Behavior == behavior {
			return true
		}
	}
	return false
}

// AddWaypointAndEdge creates a waypoint at pos joined to from by a Goto edge pair.
func (g *Graph) AddWaypointAndEdge(pos geometry.Point, from NodeID) (NodeID, error) {
	if !g.HasNode(from) {
		return NodeID{}, fmt.Errorf("add waypoint from %s: %w", from, ErrNodeNotFound)
	}
	id := g.AddNode(KindWaypoint, pos)
	if err := g.AddGotoEdgePair(from, id); err != nil {
		_ = g.RemoveNodeAndTasks(id)
		return NodeID{}, err
	}
	g.logger.Debug("Added waypoint", zap.Stringer("node", id), zap.Stringer("pos", pos), zap.Stringer("from", from))
	return id, nil
}

// AddFrontier creates a frontier reached from from by one Explore edge, and queues a
// task to explore it.
func (g *Graph) AddFrontier(pos geometry.Point, from NodeID) (NodeID, error) {
	src, ok := g.Node(from)
	if !ok {
		return NodeID{}, fmt.Errorf("add frontier from %s: %w", from, ErrNodeNotFound)
	}
	id := g.AddNode(KindFrontier, pos)
	eid, err := g.AddEdge(from, id, BehaviorExplore, edgeCost(BehaviorExplore, src.Pos, pos))
	if err != nil {
		return NodeID{}, err
	}
	if _, err := g.AddTask(eid, ObjectiveExploreAllFrontiers); err != nil {
		return NodeID{}, err
	}
	return id, nil
}

// AddNodeFromAffordances creates a node of kind and, for every affordance of that
// kind, an edge from from with a task for the affordance's objective.
func (g *Graph) AddNodeFromAffordances(from NodeID, kind NodeKind, pos geometry.Point) (NodeID, error) {
	src, ok := g.Node(from)
	if !ok {
		return NodeID{}, fmt.Errorf("add %s from %s: %w", kind, from, ErrNodeNotFound)
	}
	id := g.AddNode(kind, pos)
	for _, a := range g.affordances.For(kind) {
		eid, err := g.AddEdge(from, id, a.Behavior, edgeCost(a.Behavior, src.Pos, pos))
		if err != nil {
			return NodeID{}, err
		}
		if _, err := g.AddTask(eid, a.Objective); err != nil {
			return NodeID{}, err
		}
	}
	g.logger.Debug("Added node from affordances",
		zap.Stringer("node", id),
		zap.Stringer("kind", kind),
		zap.Stringer("pos", pos),
	)
	return id, nil
}
