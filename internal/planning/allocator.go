package planning

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sgexplore/internal/sgraph"
	"github.com/xkilldash9x/sgexplore/internal/telemetry"
)

// Allocator picks the outstanding task with the best reward per unit of path cost.
type Allocator struct {
	sink    telemetry.Sink
	rewards map[sgraph.Objective]float64
	logger  *zap.Logger
}

// AllocatorOption configures an Allocator.
type AllocatorOption func(*Allocator)

// WithRewards overrides the reward of selected objectives.
func WithRewards(rewards map[sgraph.Objective]float64) AllocatorOption {
	return func(a *Allocator) { a.rewards = rewards }
}

// NewAllocator creates an allocator that reports every decision to sink.
func NewAllocator(sink telemetry.Sink, logger *zap.Logger, opts ...AllocatorOption) *Allocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Allocator{
		sink:   telemetry.OrNop(sink),
		logger: logger.Named("allocator"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Allocator) reward(t sgraph.Task) float64 {
	if r, ok := a.rewards[t.Objective]; ok {
		return r
	}
	return t.Reward()
}

// SelectTask scores every task visible in view by reward / distance from at, with a
// zero distance scoring +Inf, and returns the highest scorer. Ties go to the task
// that was queued first. Tasks for which skip returns true, and tasks whose target
// is unreachable, are not candidates. The full score table is emitted as a
// TaskUtilities event.
func (a *Allocator) SelectTask(ctx context.Context, agentID string, at sgraph.NodeID, view sgraph.View, skip func(uuid.UUID) bool) (sgraph.Task, error) {
	g := view.Graph()

	type candidate struct {
		task   sgraph.Task
		target sgraph.NodeID
	}
	var candidates []candidate
	var targets []sgraph.NodeID
	seen := make(map[sgraph.NodeID]bool)
	for _, t := range view.Tasks() {
		if skip != nil && skip(t.ID) {
			continue
		}
		target, err := g.TaskTarget(t)
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{task: t, target: target})
		if !seen[target] {
			seen[target] = true
			targets = append(targets, target)
		}
	}

	dist := view.DistanceToMany(at, targets)

	report := telemetry.TaskUtilities{Agent: agentID}
	var best sgraph.Task
	bestUtility := 0.0
	found := false
	for _, c := range candidates {
		d, reachable := dist[c.target]
		if !reachable {
			d = math.Inf(1)
		}
		r := a.reward(c.task)
		u := utility(r, d)
		report.Utilities = append(report.Utilities, telemetry.TaskUtility{
			TaskID:    c.task.ID,
			Target:    c.target,
			Objective: c.task.Objective.String(),
			Reward:    r,
			Distance:  d,
			Utility:   u,
		})
		if reachable && u > 0 && (!found || u > bestUtility) {
			best, bestUtility, found = c.task, u, true
		}
	}

	if found {
		report.Selected = best.ID
	}
	a.sink.Emit(ctx, telemetry.Event{Type: telemetry.EventTaskUtilities, Payload: report})

	if !found {
		a.logger.Debug("No task with finite utility", zap.String("agent", agentID), zap.Int("candidates", len(candidates)))
		return sgraph.Task{}, fmt.Errorf("agent %s: %w", agentID, ErrCouldNotFindTask)
	}
	a.logger.Debug("Selected task",
		zap.String("agent", agentID),
		zap.Stringer("task", best.ID),
		zap.Stringer("objective", best.Objective),
		zap.Float64("utility", bestUtility),
	)
	return best, nil
}

func utility(reward, distance float64) float64 {
	if distance == 0 {
		return math.Inf(1)
	}
	return reward / distance
}
