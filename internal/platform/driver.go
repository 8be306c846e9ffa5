// Package platform defines the boundary between the exploration core and whatever
// moves the agents, and ships a simulated platform driven by YAML scenarios.
package platform

import (
	"context"
	"image"

	"github.com/xkilldash9x/sgexplore/internal/geometry"
	"github.com/xkilldash9x/sgexplore/internal/sgraph"
)

// Sighting is a world object reported by perception.
type Sighting struct {
	Kind sgraph.NodeKind
	Pos  geometry.Point
}

// Driver is one agent's connection to its platform. Calls are synchronous; the core
// treats them as instantaneous.
type Driver interface {
	// Localization returns the agent's position and heading in the world frame.
	Localization(ctx context.Context) (geometry.Point, float64, error)
	// LocalGridImage returns the occupancy patch centred on the agent.
	LocalGridImage(ctx context.Context) (image.Image, error)
	// LookForWorldObjects returns the objects the agent can currently perceive.
	LookForWorldObjects(ctx context.Context) ([]Sighting, error)
	// MoveTo drives towards pos and reports whether the agent arrived.
	MoveTo(ctx context.Context, pos geometry.Point, heading float64) (bool, error)
}
