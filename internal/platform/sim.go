package platform

import (
	"context"
	"fmt"
	"image"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sgexplore/internal/config"
	"github.com/xkilldash9x/sgexplore/internal/geometry"
	"github.com/xkilldash9x/sgexplore/internal/localgrid"
	"github.com/xkilldash9x/sgexplore/internal/sgraph"
)

const defaultMotionStep = 0.05

type simAgent struct {
	pos     geometry.Point
	heading float64
}

// World simulates every agent of a scenario in one shared environment.
type World struct {
	scenario *Scenario
	objects  []Sighting
	grid     config.GridConfig
	test     localgrid.OccupancyTest
	step     float64

	mu     sync.Mutex
	agents map[string]*simAgent
	logger *zap.Logger
}

// NewWorld builds a simulation. Local patches are rendered in the encoding of the
// given occupancy test so the core reads them exactly as it would a real sensor.
func NewWorld(s *Scenario, grid config.GridConfig, test localgrid.OccupancyTest, logger *zap.Logger) (*World, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	w := &World{
		scenario: s,
		grid:     grid,
		test:     test,
		step:     s.MotionStep,
		agents:   make(map[string]*simAgent, len(s.Agents)),
		logger:   logger.Named("sim"),
	}
	if w.step <= 0 {
		w.step = defaultMotionStep
	}
	for _, o := range s.WorldObjects {
		kind, _ := sgraph.ParseNodeKind(o.Kind)
		w.objects = append(w.objects, Sighting{Kind: kind, Pos: geometry.Pt(o.X, o.Y)})
	}
	for _, a := range s.Agents {
		w.agents[a.ID] = &simAgent{pos: a.Start(), heading: a.Heading}
	}
	return w, nil
}

// Scenario returns the scenario the world was built from.
func (w *World) Scenario() *Scenario { return w.scenario }

// Driver returns the platform driver for one agent.
func (w *World) Driver(agentID string) (*SimDriver, error) {
	if _, ok := w.agents[agentID]; !ok {
		return nil, fmt.Errorf("no agent %q in scenario", agentID)
	}
	return &SimDriver{world: w, id: agentID}, nil
}

// Blocked reports whether p is outside the bounds or inside an obstacle.
func (w *World) Blocked(p geometry.Point) bool {
	if !w.scenario.Bounds.Contains(p) {
		return true
	}
	for _, o := range w.scenario.Obstacles {
		if o.Contains(p) {
			return true
		}
	}
	return false
}

// walk samples the segment from a to b every step and returns the last free point
// before the first blocked sample, and whether the whole segment is free.
func (w *World) walk(a, b geometry.Point) (geometry.Point, bool) {
	d := a.Dist(b)
	n := int(math.Ceil(d / w.step))
	last := a
	for i := 1; i <= n; i++ {
		p := a.Add(b.Sub(a).Mul(float64(i) / float64(n)))
		if w.Blocked(p) {
			return last, false
		}
		last = p
	}
	return b, true
}

// SimDriver is a Driver backed by a World.
type SimDriver struct {
	world *World
	id    string
}

var _ Driver = (*SimDriver)(nil)

func (d *SimDriver) agent() *simAgent { return d.world.agents[d.id] }

func (d *SimDriver) Localization(ctx context.Context) (geometry.Point, float64, error) {
	if err := ctx.Err(); err != nil {
		return geometry.Point{}, 0, err
	}
	d.world.mu.Lock()
	defer d.world.mu.Unlock()
	a := d.agent()
	return a.pos, a.heading, nil
}

// MoveTo drives in a straight line and stops short of the first obstacle.
func (d *SimDriver) MoveTo(ctx context.Context, pos geometry.Point, heading float64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	d.world.mu.Lock()
	defer d.world.mu.Unlock()

	a := d.agent()
	reached, free := d.world.walk(a.pos, pos)
	a.pos = reached
	a.heading = heading
	arrived := free || reached.Dist(pos) <= d.world.scenario.ArrivalMargin
	if !free {
		d.world.logger.Debug("Motion blocked",
			zap.String("agent", d.id),
			zap.Stringer("target", pos),
			zap.Stringer("stopped_at", reached),
		)
	}
	return arrived, nil
}

// LocalGridImage renders the patch around the agent: out of bounds and obstacle
// cells are painted as obstacles.
func (d *SimDriver) LocalGridImage(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.world.mu.Lock()
	center := d.agent().pos
	d.world.mu.Unlock()

	n := d.world.grid.CellCount
	img := image.NewNRGBA(image.Rect(0, 0, n, n))
	patch := localgrid.New(center, img, n, d.world.grid.CellSize, d.world.test, nil)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			cell := geometry.C(r, c)
			d.world.test.Paint(img, cell, d.world.Blocked(patch.CellToWorld(cell)))
		}
	}
	return img, nil
}

// LookForWorldObjects reports the objects within sensor range that are in line of
// sight of the agent.
func (d *SimDriver) LookForWorldObjects(ctx context.Context) ([]Sighting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.world.mu.Lock()
	pos := d.agent().pos
	d.world.mu.Unlock()

	var out []Sighting
	for _, o := range d.world.objects {
		if pos.Dist(o.Pos) > d.world.scenario.SensorRange {
			continue
		}
		if _, clear := d.world.walk(pos, o.Pos); clear {
			out = append(out, o)
		}
	}
	return out, nil
}
