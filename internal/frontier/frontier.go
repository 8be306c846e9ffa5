// Package frontier proposes unexplored directions from a local occupancy grid.
package frontier

import (
	"fmt"
	"math"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sgexplore/internal/config"
	"github.com/xkilldash9x/sgexplore/internal/geometry"
	"github.com/xkilldash9x/sgexplore/internal/localgrid"
)

// Result is the outcome of one sampling pass. Frontiers are grid cells reachable in
// a straight line from the grid centre; Collisions are the world coordinates of the
// obstacles that rejected the other directions.
type Result struct {
	Frontiers  []geometry.Cell
	Collisions []geometry.Point
	Exhausted  bool
}

// Strategy samples frontier candidates from a local grid.
type Strategy interface {
	Name() string
	Sample(grid *localgrid.LocalGrid) Result
}

// NewStrategy builds the sampler selected in the exploration config.
func NewStrategy(cfg config.ExplorationConfig, rng *rand.Rand, logger *zap.Logger) (Strategy, error) {
	switch cfg.Sampler {
	case config.SamplerDonut:
		return NewDonutSampler(cfg.NumSamples, cfg.SampleRingWidth, cfg.MaxSampleAttempts, rng, logger), nil
	case config.SamplerAngular:
		return NewAngularSampler(cfg.NumSamples), nil
	default:
		return nil, fmt.Errorf("unknown frontier sampler: %q", cfg.Sampler)
	}
}

// radius is the sampling radius in cells: the distance from the centre to the patch edge.
func radius(grid *localgrid.LocalGrid) float64 {
	return float64(grid.CellCount / 2)
}

// offset returns the cell at polar offset (r, theta) from the grid centre.
func offset(grid *localgrid.LocalGrid, r, theta float64) geometry.Cell {
	c := grid.Center()
	d := geometry.Polar(r, theta)
	return geometry.Cell{
		Row: c.Row + int(math.Round(d.Y)),
		Col: c.Col + int(math.Round(d.X)),
	}
}

// DonutSampler draws random directions whose length falls in the outer ring of the
// patch, so that accepted frontiers lie near the edge of what the agent can see.
type DonutSampler struct {
	numSamples  int
	ringWidth   float64
	maxAttempts int
	rng         *rand.Rand
	logger      *zap.Logger
}

// NewDonutSampler creates a donut sampler. A nil rng gets a fixed seed.
func NewDonutSampler(numSamples int, ringWidth float64, maxAttempts int, rng *rand.Rand, logger *zap.Logger) *DonutSampler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 1))
	}
	if maxAttempts <= 0 {
		maxAttempts = 100
	}
	return &DonutSampler{
		numSamples:  numSamples,
		ringWidth:   ringWidth,
		maxAttempts: maxAttempts,
		rng:         rng,
		logger:      logger.Named("frontier.donut"),
	}
}

func (s *DonutSampler) Name() string { return config.SamplerDonut }

// Sample collects up to numSamples collision-free directions. Each sample gets at
// most maxAttempts draws; running out ends the pass early.
func (s *DonutSampler) Sample(grid *localgrid.LocalGrid) Result {
	var res Result
	center := grid.Center()
	r := radius(grid)

	for len(res.Frontiers) < s.numSamples {
		accepted := false
		for attempt := 0; attempt < s.maxAttempts; attempt++ {
			// Uniform in area over the ring [1-ringWidth, 1] of the radius.
			u := 1 - s.ringWidth + s.rng.Float64()*s.ringWidth
			theta := s.rng.Float64() * 2 * math.Pi
			target := offset(grid, r*math.Sqrt(u), theta)

			free, hit := grid.CollisionFreeLine(center, target)
			if free {
				res.Frontiers = append(res.Frontiers, target)
				accepted = true
				break
			}
			res.Collisions = append(res.Collisions, hit)
		}
		if !accepted {
			s.logger.Info("Frontier sampling exhausted its attempts",
				zap.Int("accepted", len(res.Frontiers)),
				zap.Int("wanted", s.numSamples),
				zap.Int("max_attempts", s.maxAttempts),
			)
			res.Exhausted = true
			break
		}
	}
	return res
}

// AngularSampler casts numSamples evenly spaced rays of full radius.
type AngularSampler struct {
	numSamples int
}

// NewAngularSampler creates a deterministic angular sampler.
func NewAngularSampler(numSamples int) *AngularSampler {
	return &AngularSampler{numSamples: numSamples}
}

func (s *AngularSampler) Name() string { return config.SamplerAngular }

func (s *AngularSampler) Sample(grid *localgrid.LocalGrid) Result {
	var res Result
	center := grid.Center()
	r := radius(grid)
	for i := 0; i < s.numSamples; i++ {
		theta := 2 * math.Pi * float64(i) / float64(s.numSamples)
		target := offset(grid, r, theta)
		if free, hit := grid.CollisionFreeLine(center, target); free {
			res.Frontiers = append(res.Frontiers, target)
		} else {
			res.Collisions = append(res.Collisions, hit)
		}
	}
	return res
}

// WorldPoints converts sampled cells to world coordinates.
func WorldPoints(grid *localgrid.LocalGrid, cells []geometry.Cell) []geometry.Point {
	pts := make([]geometry.Point, len(cells))
	for i, c := range cells {
		pts[i] = grid.CellToWorld(c)
	}
	return pts
}
