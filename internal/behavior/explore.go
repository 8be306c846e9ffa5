package behavior

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sgexplore/internal/agent"
	"github.com/xkilldash9x/sgexplore/internal/frontier"
	"github.com/xkilldash9x/sgexplore/internal/localgrid"
	"github.com/xkilldash9x/sgexplore/internal/sgraph"
	"github.com/xkilldash9x/sgexplore/internal/telemetry"
)

// Explore visits a frontier and grows the graph from what the agent sees there.
// An agent's first Explore step only samples frontiers where it stands.
type Explore struct {
	env    *Env
	logger *zap.Logger
}

var _ Behavior = (*Explore)(nil)

func NewExplore(env *Env, logger *zap.Logger) *Explore {
	return &Explore{env: env, logger: logger.Named("behavior.explore")}
}

func (b *Explore) Kind() sgraph.BehaviorKind { return sgraph.BehaviorExplore }

func (b *Explore) Run(ctx context.Context, a *agent.Agent, edge sgraph.Edge) (Result, error) {
	if !a.BootstrapComplete {
		grid, err := a.LocalGrid(ctx)
		if err != nil {
			return Result{}, err
		}
		n := b.sampleFrontiers(ctx, a, grid)
		a.BootstrapComplete = true
		b.logger.Info("Bootstrap exploration step complete", zap.String("agent", a.ID), zap.Int("frontiers", n))
		return Result{Bootstrap: true}, errBootstrapped
	}

	target, ok := b.env.Graph.Node(edge.To)
	if !ok {
		return Result{}, fmt.Errorf("explore %s: %w", edge.To, sgraph.ErrNodeNotFound)
	}
	arrived, err := a.Move(ctx, target.Pos, a.Position.HeadingTo(target.Pos))
	if err != nil {
		return Result{}, err
	}
	return Result{Arrived: arrived}, nil
}

// CheckPostconditions holds when the agent is within the arrival margin of any
// node of the target's kind. Nearby frontiers often coincide, so the exact target
// is not required.
func (b *Explore) CheckPostconditions(_ context.Context, a *agent.Agent, _ Result, edge sgraph.Edge) bool {
	target, ok := b.env.Graph.Node(edge.To)
	if !ok {
		return false
	}
	return len(b.env.Graph.NodesOfKindInMargin(a.Position, b.env.Explore.ArrivalMargin, target.Kind)) > 0
}

// OnSuccess turns the visited frontier into a waypoint and samples new frontiers,
// shortcuts and world objects from there.
func (b *Explore) OnSuccess(ctx context.Context, a *agent.Agent, _ Result, edge sgraph.Edge) {
	g := b.env.Graph
	if err := g.RemoveNodeAndTasks(edge.To); err != nil {
		b.logger.Debug("Visited frontier already gone", zap.Stringer("frontier", edge.To))
	}

	anchors := g.NodesOfKindInMargin(a.PreviousPosition, b.env.Explore.PrevPosMargin, sgraph.KindWaypoint)
	if len(anchors) == 0 {
		b.logger.Error("No waypoint near previous position, abandoning exploration update",
			zap.String("agent", a.ID),
			zap.Stringer("previous_position", a.PreviousPosition),
		)
		return
	}
	wp, err := g.AddWaypointAndEdge(a.Position, anchors[0].ID)
	if err != nil {
		b.logger.Error("Could not add waypoint", zap.String("agent", a.ID), zap.Error(err))
		return
	}
	a.Waypoint = wp

	grid, err := a.LocalGrid(ctx)
	if err != nil {
		b.logger.Warn("No local grid after exploring, skipping frontier sampling", zap.Error(err))
	} else {
		b.sampleFrontiers(ctx, a, grid)
	}
	g.PruneFrontiersNearWaypoints(b.env.PruneRadius())
	if grid != nil {
		addShortcuts(ctx, b.env, a, grid, b.logger)
	}
	b.addSightings(ctx, a)
}

// OnFailure drops the unreachable frontier and sends the agent back to where the
// edge started. A bootstrap self-loop only retires its own edge, whether or not
// the bootstrap step got as far as sampling; the runner reseeds a fresh one.
func (b *Explore) OnFailure(ctx context.Context, a *agent.Agent, res Result, edge sgraph.Edge) {
	g := b.env.Graph
	if res.Bootstrap || edge.From == edge.To {
		if err := g.RemoveEdgeAndTasks(edge.ID); err != nil {
			b.logger.Debug("Bootstrap edge already gone", zap.Stringer("edge", edge.ID))
		}
		return
	}

	if n, ok := g.Node(edge.To); ok && n.Kind == sgraph.KindFrontier {
		_ = g.RemoveNodeAndTasks(edge.To)
		b.logger.Info("Removed unreachable frontier", zap.String("agent", a.ID), zap.Stringer("frontier", edge.To))
	}
	if src, ok := g.Node(edge.From); ok {
		if _, err := a.Move(ctx, src.Pos, a.PreviousHeading); err != nil {
			b.logger.Warn("Could not return to edge source", zap.String("agent", a.ID), zap.Error(err))
		}
		_ = a.Localize(g, b.env.Explore.LocalizationMargin)
	}
	g.PruneFrontiersNearWaypoints(b.env.PruneRadius())
}

// sampleFrontiers adds a frontier from the agent's waypoint for every direction the
// sampler accepts in grid.
func (b *Explore) sampleFrontiers(ctx context.Context, a *agent.Agent, grid *localgrid.LocalGrid) int {
	res := b.env.Sampler.Sample(grid)
	points := frontier.WorldPoints(grid, res.Frontiers)
	added := 0
	for _, p := range points {
		if _, err := b.env.Graph.AddFrontier(p, a.Waypoint); err != nil {
			b.logger.Warn("Could not add frontier", zap.Stringer("pos", p), zap.Error(err))
			continue
		}
		added++
	}
	b.env.sink().Emit(ctx, telemetry.Event{
		Type: telemetry.EventFrontierSamples,
		Payload: telemetry.FrontierSamples{
			Agent:      a.ID,
			Origin:     grid.WorldPos,
			Sampler:    b.env.Sampler.Name(),
			Accepted:   points,
			Collisions: res.Collisions,
			Exhausted:  res.Exhausted,
		},
	})
	return added
}

// addSightings inserts every perceived world object that is not already in the
// graph at its exact position, anchored at the agent's waypoint.
func (b *Explore) addSightings(ctx context.Context, a *agent.Agent) {
	seen, err := a.LookForWorldObjects(ctx)
	if err != nil {
		b.logger.Warn("World object search failed", zap.Error(err))
		return
	}
	for _, s := range seen {
		if _, exists := b.env.Graph.WorldObjectAt(s.Pos); exists {
			continue
		}
		id, err := b.env.Graph.AddNodeFromAffordances(a.Waypoint, s.Kind, s.Pos)
		if err != nil {
			b.logger.Warn("Could not add world object", zap.Stringer("kind", s.Kind), zap.Error(err))
			continue
		}
		b.logger.Info("Found world object",
			zap.String("agent", a.ID),
			zap.Stringer("kind", s.Kind),
			zap.Stringer("pos", s.Pos),
			zap.Stringer("node", id),
		)
	}
}
