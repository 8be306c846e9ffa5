package sgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/sgexplore/internal/config"
	"github.com/xkilldash9x/sgexplore/internal/geometry"
)

func TestHandles_NotReused(t *testing.T) {
	g := New(zaptest.NewLogger(t))
	a := g.AddNode(KindWaypoint, geometry.Pt(0, 0))
	require.NoError(t, g.RemoveNodeAndTasks(a))

	b := g.AddNode(KindWaypoint, geometry.Pt(1, 1))
	assert.NotEqual(t, a, b, "a recycled slot must carry a new generation")
	assert.False(t, g.HasNode(a))
	assert.True(t, g.HasNode(b))

	_, ok := g.Node(NodeID{})
	assert.False(t, ok, "the zero handle resolves to nothing")
	assert.True(t, NodeID{}.IsZero())

	err := g.RemoveNodeAndTasks(a)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestAddWaypointAndEdge(t *testing.T) {
	g := New(zaptest.NewLogger(t))
	w0 := g.AddNode(KindWaypoint, geometry.Pt(0, 0))

	w1, err := g.AddWaypointAndEdge(geometry.Pt(3, 4), w0)
	require.NoError(t, err)

	there := g.EdgesBetween(w0, w1)
	back := g.EdgesBetween(w1, w0)
	require.Len(t, there, 1)
	require.Len(t, back, 1)
	assert.Equal(t, BehaviorGoto, there[0].Behavior)
	assert.InDelta(t, 5.0, there[0].Cost, 1e-9)
	assert.Zero(t, g.TaskCount(), "waypoints carry no tasks")

	_, err = g.AddWaypointAndEdge(geometry.Pt(1, 1), NodeID{})
	assert.ErrorIs(t, err, ErrNodeNotFound)
	require.NoError(t, g.CheckInvariants())
}

func TestAddGotoEdgePair_RejectsDuplicates(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	g := New(zap.New(core))
	a := g.AddNode(KindWaypoint, geometry.Pt(0, 0))
	b := g.AddNode(KindWaypoint, geometry.Pt(2, 0))

	require.NoError(t, g.AddGotoEdgePair(a, b))
	edges := g.EdgeCount()

	assert.ErrorIs(t, g.AddGotoEdgePair(a, b), ErrDuplicateEdge)
	assert.ErrorIs(t, g.AddGotoEdgePair(b, a), ErrDuplicateEdge, "either direction counts")
	assert.Equal(t, edges, g.EdgeCount(), "rejected inserts are no-ops")
	assert.Equal(t, 2, logs.FilterMessage("Rejected duplicate goto edge").Len())
}

func TestAddFrontier(t *testing.T) {
	g := New(nil)
	w := g.AddNode(KindWaypoint, geometry.Pt(1, 1))

	f, err := g.AddFrontier(geometry.Pt(1, 5), w)
	require.NoError(t, err)

	in := g.InEdges(f)
	require.Len(t, in, 1)
	assert.Equal(t, BehaviorExplore, in[0].Behavior)
	assert.InDelta(t, 0.25, in[0].Cost, 1e-9, "explore edges cost the inverse distance")

	tasks := g.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, in[0].ID, tasks[0].Edge)
	assert.Equal(t, ObjectiveExploreAllFrontiers, tasks[0].Objective)
	assert.Equal(t, 1.0, tasks[0].Reward())

	target, err := g.TaskTarget(tasks[0])
	require.NoError(t, err)
	assert.Equal(t, f, target)

	same, err := g.AddFrontier(geometry.Pt(1, 1), w)
	require.NoError(t, err)
	assert.Zero(t, g.InEdges(same)[0].Cost, "a degenerate insert keeps the raw zero distance")
}

func TestAddNodeFromAffordances(t *testing.T) {
	g := New(nil)
	w := g.AddNode(KindWaypoint, geometry.Pt(0, 0))

	cases := []struct {
		kind      NodeKind
		behavior  BehaviorKind
		objective Objective
		reward    float64
	}{
		{KindUnknownVictim, BehaviorAssess, ObjectiveAssessAllVictims, 10},
		{KindMobileVictim, BehaviorGoto, ObjectiveGuideMobileVictims, 5},
		{KindImmobileVictim, BehaviorGoto, ObjectiveReportImmobileVictims, 5},
		{KindHotspot, BehaviorGoto, ObjectiveInspectHotspots, 2},
		{KindDoor, BehaviorGoto, ObjectivePassDoors, 2},
	}
	for _, tc := range cases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			before := g.TaskCount()
			n, err := g.AddNodeFromAffordances(w, tc.kind, geometry.Pt(0, 2))
			require.NoError(t, err)

			in := g.InEdges(n)
			require.Len(t, in, 1)
			assert.Equal(t, tc.behavior, in[0].Behavior)
			assert.InDelta(t, 2.0, in[0].Cost, 1e-9)

			tasks := g.Tasks()
			require.Len(t, tasks, before+1)
			last := tasks[len(tasks)-1]
			assert.Equal(t, tc.objective, last.Objective)
			assert.Equal(t, tc.reward, last.Reward())
		})
	}
	require.NoError(t, g.CheckInvariants())

	// Waypoints have no affordances: the node is created bare.
	n, err := g.AddNodeFromAffordances(w, KindWaypoint, geometry.Pt(5, 5))
	require.NoError(t, err)
	assert.Empty(t, g.InEdges(n))
}

func TestRemoveNodeAndTasks(t *testing.T) {
	g := New(nil)
	w0 := g.AddNode(KindWaypoint, geometry.Pt(0, 0))
	w1, err := g.AddWaypointAndEdge(geometry.Pt(2, 0), w0)
	require.NoError(t, err)
	f, err := g.AddFrontier(geometry.Pt(4, 0), w1)
	require.NoError(t, err)
	v, err := g.AddNodeFromAffordances(w1, KindUnknownVictim, geometry.Pt(2, 2))
	require.NoError(t, err)
	require.Equal(t, 2, g.TaskCount())

	require.NoError(t, g.RemoveNodeAndTasks(f))
	assert.Equal(t, 1, g.TaskCount())
	require.NoError(t, g.CheckInvariants())

	// Removing a waypoint takes every incident edge and the tasks on them.
	require.NoError(t, g.RemoveNodeAndTasks(w1))
	assert.Zero(t, g.TaskCount())
	assert.Empty(t, g.OutEdges(w0))
	assert.Empty(t, g.InEdges(v))
	assert.Zero(t, g.EdgeCount())
}

func TestRemoveEdgeAndTasks(t *testing.T) {
	g := New(nil)
	w := g.AddNode(KindWaypoint, geometry.Pt(0, 0))
	loop, err := g.AddEdge(w, w, BehaviorExplore, 0)
	require.NoError(t, err)
	task, err := g.AddTask(loop, ObjectiveExploreAllFrontiers)
	require.NoError(t, err)

	require.NoError(t, g.RemoveEdgeAndTasks(loop))
	_, ok := g.Task(task.ID)
	assert.False(t, ok)
	assert.Empty(t, g.OutEdges(w))
	assert.Empty(t, g.InEdges(w))
	assert.ErrorIs(t, g.RemoveEdgeAndTasks(loop), ErrEdgeNotFound)

	_, err = g.AddTask(loop, ObjectiveExploreAllFrontiers)
	assert.ErrorIs(t, err, ErrEdgeNotFound)
}

func TestRemoveTask(t *testing.T) {
	g := New(nil)
	w := g.AddNode(KindWaypoint, geometry.Pt(0, 0))
	_, err := g.AddFrontier(geometry.Pt(1, 0), w)
	require.NoError(t, err)
	task := g.Tasks()[0]

	assert.True(t, g.RemoveTask(task.ID))
	assert.False(t, g.RemoveTask(task.ID))
	assert.Equal(t, 1, g.CountByKind()[KindFrontier], "the edge and node survive task removal")
}

func TestNodesOfKindInMargin_IsABox(t *testing.T) {
	g := New(nil)
	corner := g.AddNode(KindFrontier, geometry.Pt(0.9, 0.9))
	g.AddNode(KindFrontier, geometry.Pt(1.0, 0))
	g.AddNode(KindWaypoint, geometry.Pt(0.1, 0.1))

	found := g.NodesOfKindInMargin(geometry.Pt(0, 0), 1.0, KindFrontier)
	require.Len(t, found, 1, "the boundary is exclusive")
	assert.Equal(t, corner, found[0].ID, "a corner outside the unit disc is still inside the box")
	assert.Greater(t, found[0].Pos.Dist(geometry.Pt(0, 0)), 1.0)
}

func TestWorldObjectAt(t *testing.T) {
	g := New(nil)
	id := g.AddNode(KindDoor, geometry.Pt(2, 3))
	g.AddNode(KindWaypoint, geometry.Pt(5, 5))

	n, ok := g.WorldObjectAt(geometry.Pt(2, 3))
	require.True(t, ok)
	assert.Equal(t, id, n.ID)
	_, ok = g.WorldObjectAt(geometry.Pt(5, 5))
	assert.False(t, ok, "waypoints are not world objects")
}

func TestShortestPath(t *testing.T) {
	for _, method := range []string{config.PathFindingAStar, config.PathFindingDijkstra} {
		t.Run(method, func(t *testing.T) {
			g := New(nil, WithPathFinding(method))
			a := g.AddNode(KindWaypoint, geometry.Pt(0, 0))
			b := g.AddNode(KindWaypoint, geometry.Pt(1, 0))
			c := g.AddNode(KindWaypoint, geometry.Pt(2, 0))
			d := g.AddNode(KindWaypoint, geometry.Pt(1, 5))

			_, err := g.AddEdge(a, b, BehaviorGoto, 1)
			require.NoError(t, err)
			cheap, err := g.AddEdge(b, c, BehaviorGoto, 1)
			require.NoError(t, err)
			_, err = g.AddEdge(b, c, BehaviorGoto, 3)
			require.NoError(t, err)
			_, err = g.AddEdge(a, d, BehaviorGoto, 5)
			require.NoError(t, err)
			_, err = g.AddEdge(d, c, BehaviorGoto, 5)
			require.NoError(t, err)

			path, ok := g.ShortestPath(a, c)
			require.True(t, ok)
			require.Len(t, path, 2)
			assert.Equal(t, a, path[0].From)
			assert.Equal(t, cheap, path[1].ID, "parallel edges resolve to the cheapest")

			path, ok = g.ShortestPath(c, a)
			assert.False(t, ok, "edges are directed")
			assert.Nil(t, path)

			path, ok = g.ShortestPath(b, b)
			assert.True(t, ok)
			assert.Empty(t, path)

			_, ok = g.ShortestPath(a, NodeID{})
			assert.False(t, ok)
		})
	}
}

func TestDistanceToMany(t *testing.T) {
	g := New(nil)
	a := g.AddNode(KindWaypoint, geometry.Pt(0, 0))
	b, err := g.AddWaypointAndEdge(geometry.Pt(3, 0), a)
	require.NoError(t, err)
	c, err := g.AddWaypointAndEdge(geometry.Pt(3, 4), b)
	require.NoError(t, err)
	island := g.AddNode(KindWaypoint, geometry.Pt(9, 9))

	dist := g.DistanceToMany(a, []NodeID{a, c, island})
	assert.Equal(t, 0.0, dist[a])
	assert.InDelta(t, 7.0, dist[c], 1e-9)
	_, reachable := dist[island]
	assert.False(t, reachable, "unreachable targets are absent")

	assert.Empty(t, g.DistanceToMany(a, nil))
}

func TestView_FiltersByCapability(t *testing.T) {
	g := New(nil)
	w := g.AddNode(KindWaypoint, geometry.Pt(0, 0))
	v, err := g.AddNodeFromAffordances(w, KindUnknownVictim, geometry.Pt(1, 0))
	require.NoError(t, err)

	mover := g.FilterByCapabilities(NewCapabilities(CanMove, CanExplore))
	assessor := g.FilterByCapabilities(AllCapabilities())

	_, ok := mover.ShortestPath(w, v)
	assert.False(t, ok, "the only way in is an assess edge")
	assert.Empty(t, mover.Tasks())
	assert.Empty(t, mover.DistanceToMany(w, []NodeID{v}))

	path, ok := assessor.ShortestPath(w, v)
	require.True(t, ok)
	assert.Equal(t, BehaviorAssess, path[0].Behavior)
	assert.Len(t, assessor.Tasks(), 1)

	// Views are windows, not copies: later inserts show through.
	f, err := g.AddFrontier(geometry.Pt(0, 3), w)
	require.NoError(t, err)
	_, ok = mover.ShortestPath(w, f)
	assert.True(t, ok)
	assert.Len(t, mover.Tasks(), 1)
	assert.Same(t, g, mover.Graph())
}

func TestCheckInvariants_ReportsViolations(t *testing.T) {
	g := New(nil)
	w := g.AddNode(KindWaypoint, geometry.Pt(0, 0))
	w2 := g.AddNode(KindWaypoint, geometry.Pt(1, 0))
	g.AddNode(KindFrontier, geometry.Pt(2, 0))
	_, err := g.AddEdge(w, w2, BehaviorGoto, 1)
	require.NoError(t, err)
	_, err = g.AddEdge(w, w2, BehaviorGoto, 1)
	require.NoError(t, err)

	err = g.CheckInvariants()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0 inbound explore edges")
	assert.Contains(t, err.Error(), "2 goto edges")
}

func TestKinds(t *testing.T) {
	k, err := ParseNodeKind("Unknown_Victim")
	require.NoError(t, err)
	assert.Equal(t, KindUnknownVictim, k)
	assert.True(t, k.IsWorldObject())
	assert.False(t, KindFrontier.IsWorldObject())
	_, err = ParseNodeKind("invalid")
	assert.Error(t, err)

	c, err := ParseCapability("can_assess")
	require.NoError(t, err)
	assert.Equal(t, CanAssess, c)

	caps := NewCapabilities(CanMove, CanExplore)
	assert.True(t, caps.Contains(BehaviorExplore.RequiredCapabilities()))
	assert.False(t, caps.Contains(BehaviorAssess.RequiredCapabilities()))
	assert.Equal(t, "{can_move,can_explore}", caps.String())
	assert.Equal(t, "assess", BehaviorAssess.String())
}

func TestParseObjective(t *testing.T) {
	o, err := ParseObjective("inspect_hotspots")
	require.NoError(t, err)
	assert.Equal(t, ObjectiveInspectHotspots, o)
	assert.Equal(t, 2.0, o.Reward())

	_, err = ParseObjective("invalid")
	assert.Error(t, err)
}
