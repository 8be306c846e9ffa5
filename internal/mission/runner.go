// Package mission drives the exploration loop: every tick each agent in turn
// allocates a task, plans it and executes one plan edge.
package mission

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/sgexplore/internal/agent"
	"github.com/xkilldash9x/sgexplore/internal/behavior"
	"github.com/xkilldash9x/sgexplore/internal/config"
	"github.com/xkilldash9x/sgexplore/internal/frontier"
	"github.com/xkilldash9x/sgexplore/internal/planning"
	"github.com/xkilldash9x/sgexplore/internal/sgraph"
	"github.com/xkilldash9x/sgexplore/internal/telemetry"
)

// Termination says why a mission stopped.
type Termination string

const (
	TerminationTasksExhausted Termination = "tasks_exhausted"
	TerminationStepBudget     Termination = "step_budget"
	TerminationCancelled      Termination = "cancelled"
)

// Result summarises a finished mission.
type Result struct {
	MissionID      uuid.UUID
	Ticks          int
	Reason         Termination
	RemainingTasks int
	Nodes          map[string]int
}

// Runner owns the situational graph and steps every agent against it. Agents are
// stepped strictly one after another; the graph is never mutated concurrently.
type Runner struct {
	id     uuid.UUID
	graph  *sgraph.Graph
	agents []*agent.Agent

	allocator *planning.Allocator
	planner   *planning.Planner
	executor  *behavior.Registry
	sink      telemetry.Sink

	mission config.MissionConfig
	explore config.ExplorationConfig
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewRunner wires a mission from configuration. The mission seed drives frontier
// sampling and assessment outcomes.
func NewRunner(cfg config.Interface, agents []*agent.Agent, sink telemetry.Sink, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(agents) == 0 {
		return nil, fmt.Errorf("mission needs at least one agent")
	}
	sink = telemetry.OrNop(sink)
	seed := uint64(cfg.Mission().Seed)

	rewards, err := rewardOverrides(cfg.Planning().Rewards)
	if err != nil {
		return nil, err
	}
	sampler, err := frontier.NewStrategy(cfg.Exploration(), rand.New(rand.NewPCG(seed, 1)), logger)
	if err != nil {
		return nil, err
	}

	graph := sgraph.New(logger, sgraph.WithPathFinding(cfg.Planning().PathFinding))
	env := &behavior.Env{
		Graph:   graph,
		Sampler: sampler,
		Sink:    sink,
		Explore: cfg.Exploration(),
		Grid:    cfg.Grid(),
	}

	limit := rate.Inf
	if cfg.Mission().TickRate > 0 {
		limit = rate.Limit(cfg.Mission().TickRate)
	}

	id := uuid.New()
	return &Runner{
		id:        id,
		graph:     graph,
		agents:    agents,
		allocator: planning.NewAllocator(sink, logger, planning.WithRewards(rewards)),
		planner:   planning.NewPlanner(logger),
		executor:  behavior.NewRegistry(env, rand.New(rand.NewPCG(seed, 2)), logger),
		sink:      sink,
		mission:   cfg.Mission(),
		explore:   cfg.Exploration(),
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger.Named("mission").With(zap.Stringer("mission", id)),
	}, nil
}

func rewardOverrides(named map[string]float64) (map[sgraph.Objective]float64, error) {
	out := make(map[sgraph.Objective]float64, len(named))
	for name, reward := range named {
		o, err := sgraph.ParseObjective(name)
		if err != nil {
			return nil, fmt.Errorf("planning.rewards: %w", err)
		}
		out[o] = reward
	}
	return out, nil
}

// ID identifies the mission in telemetry.
func (r *Runner) ID() uuid.UUID { return r.id }

// Graph exposes the situational graph, mostly for inspection after Run.
func (r *Runner) Graph() *sgraph.Graph { return r.graph }

// Agents returns the agents in stepping order.
func (r *Runner) Agents() []*agent.Agent { return r.agents }

// Run initialises the graph and ticks until the task list is empty, the step
// budget is spent or ctx is cancelled. Errors inside a tick are logged and never
// end the mission; only cancellation is returned as an error.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if err := r.init(ctx); err != nil {
		return Result{}, err
	}
	r.logger.Info("Mission started",
		zap.Int("agents", len(r.agents)),
		zap.Int("step_budget", r.mission.StepBudget),
	)

	res := Result{MissionID: r.id}
	var runErr error
	for {
		if r.graph.TaskCount() == 0 {
			res.Reason = TerminationTasksExhausted
			break
		}
		if res.Ticks >= r.mission.StepBudget {
			res.Reason = TerminationStepBudget
			break
		}
		if err := r.limiter.Wait(ctx); err != nil {
			res.Reason, runErr = TerminationCancelled, err
			break
		}
		res.Ticks++
		if err := r.tick(ctx, res.Ticks); err != nil {
			res.Reason, runErr = TerminationCancelled, err
			break
		}
	}

	// The final view goes out even when cancelled so recorders see the end state.
	r.emitView(context.WithoutCancel(ctx), res.Ticks, true)
	res.RemainingTasks = r.graph.TaskCount()
	res.Nodes = make(map[string]int)
	for kind, n := range r.graph.CountByKind() {
		res.Nodes[kind.String()] = n
	}
	r.logger.Info("Mission finished",
		zap.String("reason", string(res.Reason)),
		zap.Int("ticks", res.Ticks),
		zap.Int("remaining_tasks", res.RemainingTasks),
		zap.Int("waypoints", res.Nodes[sgraph.KindWaypoint.String()]),
	)
	return res, runErr
}

// init places a start waypoint under every agent and seeds the bootstrap step of
// every agent able to explore. Agents starting on the same spot share a waypoint.
func (r *Runner) init(ctx context.Context) error {
	for _, a := range r.agents {
		if err := a.Sync(ctx); err != nil {
			return fmt.Errorf("mission init: %w", err)
		}
		if existing := r.graph.NodesOfKindInMargin(a.Position, r.explore.LocalizationMargin, sgraph.KindWaypoint); len(existing) > 0 {
			a.Waypoint = existing[0].ID
		} else {
			a.Waypoint = r.graph.AddNode(sgraph.KindWaypoint, a.Position)
		}

		if !a.Capabilities.Contains(sgraph.BehaviorExplore.RequiredCapabilities()) {
			a.BootstrapComplete = true
			r.logger.Info("Agent cannot explore, skipping bootstrap", zap.String("agent", a.ID))
			continue
		}
		if err := r.seedBootstrap(a); err != nil {
			return fmt.Errorf("mission init: %w", err)
		}
	}
	return nil
}

// seedBootstrap gives the agent a self-loop Explore task on its waypoint and a
// one-edge plan for it.
func (r *Runner) seedBootstrap(a *agent.Agent) error {
	eid, err := r.graph.AddEdge(a.Waypoint, a.Waypoint, sgraph.BehaviorExplore, 0)
	if err != nil {
		return fmt.Errorf("agent %s bootstrap edge: %w", a.ID, err)
	}
	task, err := r.graph.AddTask(eid, sgraph.ObjectiveExploreAllFrontiers)
	if err != nil {
		return fmt.Errorf("agent %s bootstrap task: %w", a.ID, err)
	}
	edge, _ := r.graph.Edge(eid)
	a.AssignTask(task)
	a.Plan = planning.NewPlan([]sgraph.Edge{edge})
	return nil
}

func (r *Runner) tick(ctx context.Context, tick int) error {
	for _, a := range r.agents {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.step(ctx, a)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.emitView(ctx, tick, false)
	if ce := r.logger.Check(zap.DebugLevel, "Invariant violations"); ce != nil {
		if err := r.graph.CheckInvariants(); err != nil {
			ce.Write(zap.Int("tick", tick), zap.Error(err))
		}
	}
	return nil
}

// step advances one agent by at most one executed plan edge.
func (r *Runner) step(ctx context.Context, a *agent.Agent) {
	if !a.BootstrapComplete {
		if !a.HasPlan() {
			if err := r.seedBootstrap(a); err != nil {
				r.logger.Warn("Could not reseed bootstrap", zap.Error(err))
				return
			}
		}
		r.execute(ctx, a)
		return
	}

	view := r.graph.FilterByCapabilities(a.Capabilities)
	if !a.HasTask() {
		task, err := r.allocator.SelectTask(ctx, a.ID, a.Waypoint, view, r.claimedByOthers(a))
		if err != nil {
			// Nothing worth doing for this agent this tick.
			return
		}
		a.AssignTask(task)
	}
	if !a.HasPlan() {
		plan, err := r.planner.PlanForTask(a.Waypoint, r.graph, *a.Task, view)
		if err != nil {
			r.logger.Info("Dropping task without a plan", zap.String("agent", a.ID), zap.Error(err))
			r.graph.RemoveTask(a.Task.ID)
			a.ClearTask()
			return
		}
		a.Plan = plan
	}
	r.execute(ctx, a)
}

func (r *Runner) execute(ctx context.Context, a *agent.Agent) {
	status, err := r.executor.Execute(ctx, a)
	if err != nil {
		r.logger.Warn("Plan step failed", zap.String("agent", a.ID), zap.Error(err))
		return
	}
	r.logger.Debug("Plan step", zap.String("agent", a.ID), zap.Stringer("status", status))
}

// claimedByOthers reports tasks currently held by agents other than a.
func (r *Runner) claimedByOthers(a *agent.Agent) func(uuid.UUID) bool {
	return func(id uuid.UUID) bool {
		for _, other := range r.agents {
			if other != a && other.Task != nil && other.Task.ID == id {
				return true
			}
		}
		return false
	}
}

func (r *Runner) emitView(ctx context.Context, tick int, final bool) {
	view := telemetry.MissionView{
		MissionID: r.id,
		Tick:      tick,
		Final:     final,
		Graph:     r.graph.Snapshot(),
		Agents:    make([]telemetry.AgentView, 0, len(r.agents)),
	}
	for _, a := range r.agents {
		view.Agents = append(view.Agents, a.View())
	}
	r.sink.Emit(ctx, telemetry.Event{Type: telemetry.EventMissionView, Payload: view})
}
