package sgraph

import (
	"container/heap"
	"slices"

	"github.com/xkilldash9x/sgexplore/internal/config"
)

// pqItem is an entry of the open set. Entries are never updated in place; a node
// that improves is pushed again and the stale entry is skipped on pop.
type pqItem struct {
	node     NodeID
	g        float64
	priority float64
	index    int
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int           { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool { return pq[i].priority < pq[j].priority }
func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	item := x.(*pqItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// edgeFilter decides whether an edge may be traversed. A nil filter allows all.
type edgeFilter func(e *Edge) bool

func (f edgeFilter) allows(e *Edge) bool { return f == nil || f(e) }

// ShortestPath finds the cheapest edge sequence from source to target over the whole
// graph. It returns false when target is unreachable.
func (g *Graph) ShortestPath(source, target NodeID) ([]Edge, bool) {
	return g.shortestPath(source, target, nil)
}

// DistanceToMany runs a single-source Dijkstra and returns the cost to each target
// that is reachable. Unreachable targets are absent from the result.
func (g *Graph) DistanceToMany(source NodeID, targets []NodeID) map[NodeID]float64 {
	return g.distanceToMany(source, targets, nil)
}

func (g *Graph) shortestPath(source, target NodeID, filter edgeFilter) ([]Edge, bool) {
	if !g.HasNode(source) || !g.HasNode(target) {
		return nil, false
	}
	if source == target {
		return []Edge{}, true
	}

	goal, _ := g.Node(target)
	heuristic := func(id NodeID) float64 {
		if g.pathFinding == config.PathFindingDijkstra {
			return 0
		}
		n, _ := g.Node(id)
		return n.Pos.Dist(goal.Pos)
	}

	gScore := map[NodeID]float64{source: 0}
	cameFrom := make(map[NodeID]NodeID)
	open := &priorityQueue{}
	heap.Push(open, &pqItem{node: source, priority: heuristic(source)})

	found := false
	for open.Len() > 0 {
		cur := heap.Pop(open).(*pqItem)
		if cur.g > gScore[cur.node] {
			continue
		}
		if cur.node == target {
			found = true
			break
		}
		entry, _ := g.nodes.get(cur.node.h)
		for _, eid := range entry.out {
			e, ok := g.edges.get(eid.h)
			if !ok || !filter.allows(e) {
				continue
			}
			tentative := cur.g + e.Cost
			if old, seen := gScore[e.To]; !seen || tentative < old {
				gScore[e.To] = tentative
				cameFrom[e.To] = cur.node
				heap.Push(open, &pqItem{node: e.To, g: tentative, priority: tentative + heuristic(e.To)})
			}
		}
	}
	if !found {
		return nil, false
	}

	path := []NodeID{target}
	for n := target; n != source; {
		n = cameFrom[n]
		path = append(path, n)
	}
	slices.Reverse(path)

	edges := make([]Edge, 0, len(path)-1)
	for i := 0; i+1 < len(path); i++ {
		e, ok := g.cheapestEdge(path[i], path[i+1], filter)
		if !ok {
			return nil, false
		}
		edges = append(edges, e)
	}
	return edges, true
}

// cheapestEdge picks the minimum cost parallel edge from a to b.
func (g *Graph) cheapestEdge(a, b NodeID, filter edgeFilter) (Edge, bool) {
	var best Edge
	found := false
	for _, e := range g.EdgesBetween(a, b) {
		if !filter.allows(&e) {
			continue
		}
		if !found || e.Cost < best.Cost {
			best, found = e, true
		}
	}
	return best, found
}

func (g *Graph) distanceToMany(source NodeID, targets []NodeID, filter edgeFilter) map[NodeID]float64 {
	out := make(map[NodeID]float64, len(targets))
	if !g.HasNode(source) || len(targets) == 0 {
		return out
	}
	pending := make(map[NodeID]struct{}, len(targets))
	for _, t := range targets {
		pending[t] = struct{}{}
	}

	dist := map[NodeID]float64{source: 0}
	settled := make(map[NodeID]bool)
	open := &priorityQueue{}
	heap.Push(open, &pqItem{node: source})

	for open.Len() > 0 && len(pending) > 0 {
		cur := heap.Pop(open).(*pqItem)
		if settled[cur.node] {
			continue
		}
		settled[cur.node] = true
		if _, want := pending[cur.node]; want {
			out[cur.node] = cur.g
			delete(pending, cur.node)
		}
		entry, _ := g.nodes.get(cur.node.h)
		for _, eid := range entry.out {
			e, ok := g.edges.get(eid.h)
			if !ok || !filter.allows(e) || settled[e.To] {
				continue
			}
			d := cur.g + e.Cost
			if old, seen := dist[e.To]; !seen || d < old {
				dist[e.To] = d
				heap.Push(open, &pqItem{node: e.To, g: d, priority: d})
			}
		}
	}
	return out
}

// View is a capability-filtered window onto a Graph. It holds no copy: every query
// runs against the live graph and skips edges whose behavior needs a capability
// outside the view's set.
type View struct {
	g    *Graph
	caps Capabilities
}

// FilterByCapabilities returns a view for an agent carrying caps.
func (g *Graph) FilterByCapabilities(caps Capabilities) View {
	return View{g: g, caps: caps}
}

// Graph returns the unfiltered graph behind the view.
func (v View) Graph() *Graph { return v.g }

// Capabilities is the set the view filters by.
func (v View) Capabilities() Capabilities { return v.caps }

func (v View) filter() edgeFilter {
	return func(e *Edge) bool { return v.caps.Contains(e.RequiredCapabilities()) }
}

// Allows reports whether the view admits edge e.
func (v View) Allows(e Edge) bool { return v.filter()(&e) }

// ShortestPath is Graph.ShortestPath restricted to admitted edges.
func (v View) ShortestPath(source, target NodeID) ([]Edge, bool) {
	return v.g.shortestPath(source, target, v.filter())
}

// DistanceToMany is Graph.DistanceToMany restricted to admitted edges.
func (v View) DistanceToMany(source NodeID, targets []NodeID) map[NodeID]float64 {
	return v.g.distanceToMany(source, targets, v.filter())
}

// Tasks returns the outstanding tasks whose edge the view admits.
func (v View) Tasks() []Task {
	var out []Task
	for _, t := range v.g.tasks {
		if e, ok := v.g.Edge(t.Edge); ok && v.Allows(e) {
			out = append(out, t)
		}
	}
	return out
}
