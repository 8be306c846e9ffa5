package behavior

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sgexplore/internal/agent"
	"github.com/xkilldash9x/sgexplore/internal/sgraph"
)

// Status is what one executed plan step amounted to.
type Status int

const (
	StatusIdle Status = iota
	StatusSucceeded
	StatusFailed
	StatusDiscarded
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusDiscarded:
		return "discarded"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// -- Executor Registry --

// Registry dispatches the next edge of an agent's plan to the behavior registered
// for its kind and applies the outcome to the plan and task list.
type Registry struct {
	env       *Env
	logger    *zap.Logger
	behaviors map[sgraph.BehaviorKind]Behavior
}

// NewRegistry creates a registry with Goto, Explore and Assess registered. rng
// drives assessment outcomes.
func NewRegistry(env *Env, rng *rand.Rand, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		env:       env,
		logger:    logger.Named("executor_registry"),
		behaviors: make(map[sgraph.BehaviorKind]Behavior),
	}
	r.Register(NewGoto(env, logger))
	r.Register(NewExplore(env, logger))
	r.Register(NewAssess(env, rng, logger))
	return r
}

// Register binds b to its kind, replacing any earlier behavior for that kind.
func (r *Registry) Register(b Behavior) {
	r.behaviors[b.Kind()] = b
}

// Execute runs the agent's next plan edge through its behavior pipeline. On
// success the edge is popped and, once the plan is empty, the task is retired. On
// failure the task is retired and the plan cleared. A plan whose next edge or
// terminal node no longer exists is discarded without running anything.
func (r *Registry) Execute(ctx context.Context, a *agent.Agent) (Status, error) {
	g := r.env.Graph
	if !a.HasPlan() {
		return StatusIdle, nil
	}
	if !a.Plan.Valid(g) {
		r.logger.Info("Discarding stale plan", zap.String("agent", a.ID), zap.Int("edges", a.Plan.Len()))
		r.retireTask(a)
		return StatusDiscarded, nil
	}

	edge, _ := a.Plan.Next()
	b, ok := r.behaviors[edge.Behavior]
	if !ok {
		r.retireTask(a)
		return StatusFailed, fmt.Errorf("no behavior registered for %s", edge.Behavior)
	}

	res, err := b.Run(ctx, a, edge)
	succeeded := err == nil && b.CheckPostconditions(ctx, a, res, edge)
	if err != nil && !errors.Is(err, errBootstrapped) {
		r.logger.Info("Behavior run failed",
			zap.String("agent", a.ID),
			zap.Stringer("behavior", edge.Behavior),
			zap.Stringer("edge", edge.ID),
			zap.Error(err),
		)
	}

	if !succeeded {
		b.OnFailure(ctx, a, res, edge)
		r.retireTask(a)
		return StatusFailed, nil
	}

	b.OnSuccess(ctx, a, res, edge)
	a.Plan.Pop()
	if a.Plan.Empty() {
		r.retireTask(a)
	}
	return StatusSucceeded, nil
}

func (r *Registry) retireTask(a *agent.Agent) {
	if a.Task != nil {
		r.env.Graph.RemoveTask(a.Task.ID)
	}
	a.ClearTask()
}
