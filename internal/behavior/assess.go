package behavior

import (
	"context"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sgexplore/internal/agent"
	"github.com/xkilldash9x/sgexplore/internal/sgraph"
)

// Assess classifies an unknown victim as mobile or immobile without moving. The
// outcome is drawn from rng so tests can force either branch.
type Assess struct {
	env    *Env
	rng    *rand.Rand
	logger *zap.Logger
}

var _ Behavior = (*Assess)(nil)

func NewAssess(env *Env, rng *rand.Rand, logger *zap.Logger) *Assess {
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 1))
	}
	return &Assess{env: env, rng: rng, logger: logger.Named("behavior.assess")}
}

func (b *Assess) Kind() sgraph.BehaviorKind { return sgraph.BehaviorAssess }

func (b *Assess) Run(context.Context, *agent.Agent, sgraph.Edge) (Result, error) {
	if b.rng.Float64() < 0.5 {
		return Result{Outcome: sgraph.KindMobileVictim}, nil
	}
	return Result{Outcome: sgraph.KindImmobileVictim}, nil
}

func (b *Assess) CheckPostconditions(context.Context, *agent.Agent, Result, sgraph.Edge) bool {
	return true
}

// OnSuccess replaces the assessed node by one of the resolved subkind at the same
// position, wired from the same predecessor so its own tasks are created fresh.
func (b *Assess) OnSuccess(_ context.Context, a *agent.Agent, res Result, edge sgraph.Edge) {
	g := b.env.Graph
	old, ok := g.Node(edge.To)
	if !ok {
		b.logger.Warn("Assessed node vanished", zap.Stringer("node", edge.To))
		return
	}
	if err := g.RemoveNodeAndTasks(old.ID); err != nil {
		b.logger.Warn("Could not remove assessed node", zap.Error(err))
		return
	}
	id, err := g.AddNodeFromAffordances(edge.From, res.Outcome, old.Pos)
	if err != nil {
		b.logger.Error("Could not add assessed node", zap.Stringer("kind", res.Outcome), zap.Error(err))
		return
	}
	b.logger.Info("Assessed world object",
		zap.String("agent", a.ID),
		zap.Stringer("was", old.Kind),
		zap.Stringer("now", res.Outcome),
		zap.Stringer("node", id),
	)
}

// OnFailure removes the node: an assessment that could not finish means nothing of
// interest is there.
func (b *Assess) OnFailure(_ context.Context, a *agent.Agent, _ Result, edge sgraph.Edge) {
	if err := b.env.Graph.RemoveNodeAndTasks(edge.To); err == nil {
		b.logger.Info("Dropped unassessable node", zap.String("agent", a.ID), zap.Stringer("node", edge.To))
	}
}
