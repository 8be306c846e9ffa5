package behavior

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sgexplore/internal/agent"
	"github.com/xkilldash9x/sgexplore/internal/localgrid"
	"github.com/xkilldash9x/sgexplore/internal/sgraph"
	"github.com/xkilldash9x/sgexplore/internal/telemetry"
)

// addShortcuts joins the agent's waypoint to every nearby waypoint it has a clear
// line of sight to in grid and is not already connected to. It returns the number
// of edge pairs added.
func addShortcuts(ctx context.Context, env *Env, a *agent.Agent, grid *localgrid.LocalGrid, logger *zap.Logger) int {
	g := env.Graph
	if !g.HasNode(a.Waypoint) {
		logger.Debug("Skipping shortcut check, agent waypoint is gone", zap.Stringer("waypoint", a.Waypoint))
		return 0
	}

	report := telemetry.ShortcutCheck{Agent: a.ID, From: a.Waypoint}
	added := 0
	for _, w := range g.NodesOfKindInMargin(grid.WorldPos, env.ShortcutMargin(), sgraph.KindWaypoint) {
		if w.ID == a.Waypoint {
			continue
		}
		c := telemetry.ShortcutCandidate{Waypoint: w.ID}
		c.Free, c.Obstacle = grid.CollisionFreeLine(grid.Center(), grid.WorldToCell(w.Pos))
		if c.Free && !g.Connected(a.Waypoint, w.ID) {
			if err := g.AddGotoEdgePair(a.Waypoint, w.ID); err == nil {
				c.Added = true
				added++
			}
		}
		report.Candidates = append(report.Candidates, c)
	}

	env.sink().Emit(ctx, telemetry.Event{Type: telemetry.EventShortcutCheck, Payload: report})
	if added > 0 {
		logger.Debug("Added shortcut edges", zap.String("agent", a.ID), zap.Int("pairs", added))
	}
	return added
}

// tryShortcuts fetches a fresh local grid and runs addShortcuts. Perception
// failures are logged and skip the check.
func tryShortcuts(ctx context.Context, env *Env, a *agent.Agent, logger *zap.Logger) {
	grid, err := a.LocalGrid(ctx)
	if err != nil {
		logger.Warn("Shortcut check skipped", zap.Error(err))
		return
	}
	addShortcuts(ctx, env, a, grid, logger)
}
