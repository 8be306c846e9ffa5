// Package behavior executes plan edges. Each behavior runs an action, checks its
// postconditions and then applies exactly one graph mutation for success or
// failure.
package behavior

import (
	"context"
	"errors"

	"github.com/xkilldash9x/sgexplore/internal/agent"
	"github.com/xkilldash9x/sgexplore/internal/config"
	"github.com/xkilldash9x/sgexplore/internal/frontier"
	"github.com/xkilldash9x/sgexplore/internal/sgraph"
	"github.com/xkilldash9x/sgexplore/internal/telemetry"
)

// errBootstrapped is how the first Explore step reports that it only sampled
// frontiers in place and the agent should plan again.
var errBootstrapped = errors.New("bootstrap frontiers sampled")

// Result carries what Run observed to the later pipeline stages.
type Result struct {
	Arrived   bool
	Bootstrap bool
	// Outcome is the subkind an assessment resolved to.
	Outcome sgraph.NodeKind
}

// Behavior is one of the pipeline implementations bound to a BehaviorKind.
type Behavior interface {
	Kind() sgraph.BehaviorKind
	Run(ctx context.Context, a *agent.Agent, edge sgraph.Edge) (Result, error)
	CheckPostconditions(ctx context.Context, a *agent.Agent, res Result, edge sgraph.Edge) bool
	OnSuccess(ctx context.Context, a *agent.Agent, res Result, edge sgraph.Edge)
	OnFailure(ctx context.Context, a *agent.Agent, res Result, edge sgraph.Edge)
}

// Env is what behaviors share: the graph they mutate, the frontier sampler, the
// telemetry sink and the exploration tuning.
type Env struct {
	Graph   *sgraph.Graph
	Sampler frontier.Strategy
	Sink    telemetry.Sink
	Explore config.ExplorationConfig
	Grid    config.GridConfig
}

// PruneRadius is the frontier pruning radius in meters.
func (e *Env) PruneRadius() float64 {
	return e.Explore.PruneRadiusFactor * e.Grid.Length()
}

// ShortcutMargin is the search margin for shortcut candidates in meters.
func (e *Env) ShortcutMargin() float64 {
	return e.Explore.ShortcutMarginFactor * e.Grid.Length() / 2
}

func (e *Env) sink() telemetry.Sink { return telemetry.OrNop(e.Sink) }
