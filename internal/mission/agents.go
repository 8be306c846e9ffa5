package mission

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sgexplore/internal/agent"
	"github.com/xkilldash9x/sgexplore/internal/config"
	"github.com/xkilldash9x/sgexplore/internal/localgrid"
	"github.com/xkilldash9x/sgexplore/internal/platform"
)

// AgentsFromWorld creates one agent per scenario entry, each driving its own
// simulated platform, in scenario order.
func AgentsFromWorld(world *platform.World, grid config.GridConfig, test localgrid.OccupancyTest, logger *zap.Logger) ([]*agent.Agent, error) {
	specs := world.Scenario().Agents
	agents := make([]*agent.Agent, 0, len(specs))
	for _, spec := range specs {
		caps, err := spec.CapabilitySet()
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", spec.ID, err)
		}
		driver, err := world.Driver(spec.ID)
		if err != nil {
			return nil, err
		}
		agents = append(agents, agent.New(spec.ID, caps, driver, grid, test, logger))
	}
	return agents, nil
}
