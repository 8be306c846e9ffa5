package behavior

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sgexplore/internal/agent"
	"github.com/xkilldash9x/sgexplore/internal/sgraph"
)

// Goto drives to the edge's target and relocalizes on the waypoint there.
type Goto struct {
	env    *Env
	logger *zap.Logger
}

var _ Behavior = (*Goto)(nil)

func NewGoto(env *Env, logger *zap.Logger) *Goto {
	return &Goto{env: env, logger: logger.Named("behavior.goto")}
}

func (b *Goto) Kind() sgraph.BehaviorKind { return sgraph.BehaviorGoto }

func (b *Goto) Run(ctx context.Context, a *agent.Agent, edge sgraph.Edge) (Result, error) {
	target, ok := b.env.Graph.Node(edge.To)
	if !ok {
		return Result{}, fmt.Errorf("goto %s: %w", edge.To, sgraph.ErrNodeNotFound)
	}
	arrived, err := a.Move(ctx, target.Pos, a.Position.HeadingTo(target.Pos))
	if err != nil {
		return Result{}, err
	}
	// Ambiguity is logged by Localize and never fails a Goto.
	_ = a.Localize(b.env.Graph, b.env.Explore.LocalizationMargin)
	return Result{Arrived: arrived}, nil
}

// CheckPostconditions always holds: a blocked move has already been absorbed by
// the agent returning to where it started.
func (b *Goto) CheckPostconditions(context.Context, *agent.Agent, Result, sgraph.Edge) bool {
	return true
}

func (b *Goto) OnSuccess(ctx context.Context, a *agent.Agent, _ Result, _ sgraph.Edge) {
	tryShortcuts(ctx, b.env, a, b.logger)
}

func (b *Goto) OnFailure(context.Context, *agent.Agent, Result, sgraph.Edge) {}
