// Package localgrid models the square occupancy patch centred on an agent: the
// conversion between world coordinates and cells, and straight-line collision checks.
package localgrid

import (
	"image"
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sgexplore/internal/geometry"
)

// LocalGrid is an N x N occupancy patch of CellSize meter cells centred on WorldPos.
type LocalGrid struct {
	WorldPos  geometry.Point
	Data      image.Image
	CellCount int
	CellSize  float64

	test OccupancyTest
}

// New wraps an occupancy buffer. A buffer that is not exactly cellCount x cellCount is
// accepted with a warning; cells it does not cover read as obstacles.
func New(worldPos geometry.Point, data image.Image, cellCount int, cellSize float64, test OccupancyTest, logger *zap.Logger) *LocalGrid {
	if logger == nil {
		logger = zap.NewNop()
	}
	if data == nil {
		data = image.NewNRGBA(image.Rectangle{})
	}
	if b := data.Bounds(); b.Dx() != cellCount || b.Dy() != cellCount {
		logger.Named("localgrid").Warn("Occupancy buffer has unexpected shape",
			zap.Int("expected", cellCount),
			zap.Int("width", b.Dx()),
			zap.Int("height", b.Dy()),
		)
	}
	return &LocalGrid{
		WorldPos:  worldPos,
		Data:      data,
		CellCount: cellCount,
		CellSize:  cellSize,
		test:      test,
	}
}

// Center is the cell the agent occupies.
func (g *LocalGrid) Center() geometry.Cell {
	return geometry.C(g.CellCount/2, g.CellCount/2)
}

// Length is the side length of the patch in meters.
func (g *LocalGrid) Length() float64 {
	return float64(g.CellCount) * g.CellSize
}

// WorldToCell maps a world point to the cell containing it. Columns follow world x
// and rows follow world y.
func (g *LocalGrid) WorldToCell(p geometry.Point) geometry.Cell {
	c := g.Center()
	return geometry.Cell{
		Row: c.Row + int(math.Round((p.Y-g.WorldPos.Y)/g.CellSize)),
		Col: c.Col + int(math.Round((p.X-g.WorldPos.X)/g.CellSize)),
	}
}

// CellToWorld maps a cell to the world coordinate of its centre.
func (g *LocalGrid) CellToWorld(cell geometry.Cell) geometry.Point {
	c := g.Center()
	return geometry.Point{
		X: g.WorldPos.X + float64(cell.Col-c.Col)*g.CellSize,
		Y: g.WorldPos.Y + float64(cell.Row-c.Row)*g.CellSize,
	}
}

// InBounds reports whether the cell lies inside the nominal N x N patch.
func (g *LocalGrid) InBounds(c geometry.Cell) bool {
	return c.Row >= 0 && c.Col >= 0 && c.Row < g.CellCount && c.Col < g.CellCount
}

// IsObstacle applies the configured occupancy test to one cell.
func (g *LocalGrid) IsObstacle(c geometry.Cell) bool {
	if !g.InBounds(c) {
		return true
	}
	return g.test.IsObstacle(g.Data, c)
}

// CollisionFreeLine walks the rasterised segment from a to b and stops at the first
// blocked cell, returning false and that cell's world coordinate.
func (g *LocalGrid) CollisionFreeLine(a, b geometry.Cell) (bool, geometry.Point) {
	for _, c := range Line(a, b) {
		if g.IsObstacle(c) {
			return false, g.CellToWorld(c)
		}
	}
	return true, geometry.Point{}
}

// Line returns the 4-connected cells traversed by the segment from a to b, both ends
// included. Every step moves one row or one column, so a diagonal crossing visits
// the corner cell instead of jumping over it. The set of cells does not depend on
// argument order.
func Line(a, b geometry.Cell) []geometry.Cell {
	if b.Less(a) {
		cells := walk(b, a)
		slices.Reverse(cells)
		return cells
	}
	return walk(a, b)
}

func walk(a, b geometry.Cell) []geometry.Cell {
	dr, dc := b.Row-a.Row, b.Col-a.Col
	nr, nc := abs(dr), abs(dc)
	sr, sc := sign(dr), sign(dc)

	cells := make([]geometry.Cell, 0, nr+nc+1)
	cur := a
	cells = append(cells, cur)
	for ir, ic := 0, 0; ir < nr || ic < nc; {
		// Compare how far along the segment the next column and row boundaries lie.
		// Ties (exact corner crossings) step the column first.
		if (1+2*ic)*nr-(1+2*ir)*nc <= 0 {
			cur.Col += sc
			ic++
		} else {
			cur.Row += sr
			ir++
		}
		cells = append(cells, cur)
	}
	return cells
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
