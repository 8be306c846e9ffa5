package planning

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sgexplore/internal/sgraph"
)

// Planner turns a task into a Plan over a capability-filtered view.
type Planner struct {
	logger *zap.Logger
}

// NewPlanner creates a planner.
func NewPlanner(logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{logger: logger.Named("planner")}
}

// PlanForTask routes from at to the task's target through view. The target must
// still exist in the full graph g. When the view has no route the task is removed
// from g, so unreachable work does not linger.
//
// An agent already standing on the target gets the task's own edge as its plan;
// this is how a self-loop task is executed.
func (p *Planner) PlanForTask(at sgraph.NodeID, g *sgraph.Graph, task sgraph.Task, view sgraph.View) (*Plan, error) {
	target, err := g.TaskTarget(task)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w: %w", task.ID, ErrTargetNodeNotFound, err)
	}

	edges, ok := view.ShortestPath(at, target)
	if !ok {
		g.RemoveTask(task.ID)
		p.logger.Info("Target unreachable, dropped task",
			zap.Stringer("task", task.ID),
			zap.Stringer("from", at),
			zap.Stringer("target", target),
		)
		return nil, fmt.Errorf("task %s from %s to %s: %w", task.ID, at, target, ErrCouldNotFindPlan)
	}

	if len(edges) == 0 {
		edge, ok := g.Edge(task.Edge)
		if !ok || !view.Allows(edge) {
			g.RemoveTask(task.ID)
			return nil, fmt.Errorf("task %s: %w", task.ID, ErrCouldNotFindPlan)
		}
		edges = []sgraph.Edge{edge}
	}

	p.logger.Debug("Planned task", zap.Stringer("task", task.ID), zap.Int("edges", len(edges)))
	return NewPlan(edges), nil
}
