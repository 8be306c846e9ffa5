// Package agent holds the state of one exploring agent and the primitives it uses to
// move and perceive through its platform driver.
package agent

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sgexplore/internal/config"
	"github.com/xkilldash9x/sgexplore/internal/geometry"
	"github.com/xkilldash9x/sgexplore/internal/localgrid"
	"github.com/xkilldash9x/sgexplore/internal/planning"
	"github.com/xkilldash9x/sgexplore/internal/platform"
	"github.com/xkilldash9x/sgexplore/internal/sgraph"
	"github.com/xkilldash9x/sgexplore/internal/telemetry"
)

// ErrLocalizationAmbiguous is returned when zero or several waypoints lie within
// the localization margin.
var ErrLocalizationAmbiguous = errors.New("localization ambiguous")

// Agent is the decision-layer view of one robot.
type Agent struct {
	ID           string
	Capabilities sgraph.Capabilities

	Position         geometry.Point
	Heading          float64
	PreviousPosition geometry.Point
	PreviousHeading  float64

	// Waypoint is the last waypoint the agent localized to. It goes stale when
	// localization finds nothing.
	Waypoint sgraph.NodeID

	Task              *sgraph.Task
	Plan              *planning.Plan
	BootstrapComplete bool

	driver platform.Driver
	grid   config.GridConfig
	test   localgrid.OccupancyTest
	logger *zap.Logger
}

// New creates an agent. Call Sync before using its position.
func New(id string, caps sgraph.Capabilities, driver platform.Driver, grid config.GridConfig, test localgrid.OccupancyTest, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{
		ID:           id,
		Capabilities: caps,
		driver:       driver,
		grid:         grid,
		test:         test,
		logger:       logger.Named("agent").With(zap.String("agent", id)),
	}
}

// Sync refreshes position and heading from the driver.
func (a *Agent) Sync(ctx context.Context) error {
	pos, heading, err := a.driver.Localization(ctx)
	if err != nil {
		return fmt.Errorf("agent %s: localization failed: %w", a.ID, err)
	}
	a.Position, a.Heading = pos, heading
	return nil
}

// Move drives to pos and records where the move started. When the driver does not
// arrive, the agent is sent back to that starting pose so it is never left
// stranded in unmapped space. The returned bool reports arrival at pos.
func (a *Agent) Move(ctx context.Context, pos geometry.Point, heading float64) (bool, error) {
	a.PreviousPosition, a.PreviousHeading = a.Position, a.Heading

	arrived, err := a.driver.MoveTo(ctx, pos, heading)
	if err != nil {
		return false, fmt.Errorf("agent %s: move to %s failed: %w", a.ID, pos, err)
	}
	if err := a.Sync(ctx); err != nil {
		return false, err
	}
	if arrived {
		return true, nil
	}

	a.logger.Warn("Move did not arrive, returning to previous position",
		zap.Stringer("target", pos),
		zap.Stringer("stopped_at", a.Position),
		zap.Stringer("previous", a.PreviousPosition),
	)
	if _, err := a.driver.MoveTo(ctx, a.PreviousPosition, a.PreviousHeading); err != nil {
		return false, fmt.Errorf("agent %s: retreat to %s failed: %w", a.ID, a.PreviousPosition, err)
	}
	return false, a.Sync(ctx)
}

// Localize points Waypoint at the waypoint within margin of the agent. With
// several candidates the first one wins; with none the pointer is left as it was.
// Both cases return an error wrapping ErrLocalizationAmbiguous.
func (a *Agent) Localize(g *sgraph.Graph, margin float64) error {
	found := g.NodesOfKindInMargin(a.Position, margin, sgraph.KindWaypoint)
	switch len(found) {
	case 1:
		a.Waypoint = found[0].ID
		return nil
	case 0:
		a.logger.Error("No waypoint within localization margin",
			zap.Stringer("position", a.Position),
			zap.Float64("margin", margin),
			zap.Stringer("stale_waypoint", a.Waypoint),
		)
		return fmt.Errorf("agent %s at %s: no waypoint within %.2f: %w", a.ID, a.Position, margin, ErrLocalizationAmbiguous)
	default:
		a.Waypoint = found[0].ID
		a.logger.Warn("Several waypoints within localization margin, using the first",
			zap.Stringer("position", a.Position),
			zap.Int("candidates", len(found)),
			zap.Stringer("waypoint", a.Waypoint),
		)
		return fmt.Errorf("agent %s at %s: %d waypoints within %.2f: %w", a.ID, a.Position, len(found), margin, ErrLocalizationAmbiguous)
	}
}

// LocalGrid fetches the occupancy patch centred on the agent's current position.
func (a *Agent) LocalGrid(ctx context.Context) (*localgrid.LocalGrid, error) {
	img, err := a.driver.LocalGridImage(ctx)
	if err != nil {
		return nil, fmt.Errorf("agent %s: local grid unavailable: %w", a.ID, err)
	}
	return localgrid.New(a.Position, img, a.grid.CellCount, a.grid.CellSize, a.test, a.logger), nil
}

// LookForWorldObjects asks the platform what the agent can currently see.
func (a *Agent) LookForWorldObjects(ctx context.Context) ([]platform.Sighting, error) {
	seen, err := a.driver.LookForWorldObjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("agent %s: perception failed: %w", a.ID, err)
	}
	return seen, nil
}

// AssignTask sets the current task and drops any plan made for a previous one.
func (a *Agent) AssignTask(t sgraph.Task) {
	a.Task = &t
	a.Plan = nil
}

// ClearTask drops the task and its plan.
func (a *Agent) ClearTask() {
	a.Task = nil
	a.Plan = nil
}

// HasTask reports whether a task is assigned.
func (a *Agent) HasTask() bool { return a.Task != nil }

// HasPlan reports whether there is plan work left.
func (a *Agent) HasPlan() bool { return !a.Plan.Empty() }

// View renders the agent for a mission snapshot.
func (a *Agent) View() telemetry.AgentView {
	v := telemetry.AgentView{
		ID:                a.ID,
		Position:          a.Position,
		Heading:           a.Heading,
		Waypoint:          a.Waypoint.String(),
		PlanLength:        a.Plan.Len(),
		Capabilities:      a.Capabilities.String(),
		BootstrapComplete: a.BootstrapComplete,
	}
	if a.Task != nil {
		v.Task = a.Task.ID.String()
	}
	return v
}
