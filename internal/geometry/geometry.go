// Package geometry holds the small value types shared by the grid, the graph and
// the agents: continuous world points and discrete grid cells.
package geometry

import (
	"fmt"
	"math"
)

// Point is a position or displacement in the 2D world frame, in meters.
type Point struct {
	X, Y float64
}

// Pt is a convenience constructor for Point.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Add returns the vector sum of p and other.
func (p Point) Add(other Point) Point {
	return Point{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns the vector difference of p and other.
func (p Point) Sub(other Point) Point {
	return Point{X: p.X - other.X, Y: p.Y - other.Y}
}

// Mul returns p scaled by the scalar factor.
func (p Point) Mul(scalar float64) Point {
	return Point{X: p.X * scalar, Y: p.Y * scalar}
}

// Mag calculates the magnitude (length) of the vector.
func (p Point) Mag() float64 {
	return math.Hypot(p.X, p.Y)
}

// Dist calculates the Euclidean distance between p and other.
func (p Point) Dist(other Point) float64 {
	return p.Sub(other).Mag()
}

// HeadingTo returns the angle in radians of the direction from p towards other.
func (p Point) HeadingTo(other Point) float64 {
	return math.Atan2(other.Y-p.Y, other.X-p.X)
}

// WithinBox reports whether other lies strictly inside the axis-aligned square of
// half-width margin centred on p.
func (p Point) WithinBox(other Point, margin float64) bool {
	return math.Abs(p.X-other.X) < margin && math.Abs(p.Y-other.Y) < margin
}

func (p Point) String() string {
	return fmt.Sprintf("(%.3f, %.3f)", p.X, p.Y)
}

// Polar returns the point at distance r along angle theta from the origin.
func Polar(r, theta float64) Point {
	return Point{X: r * math.Cos(theta), Y: r * math.Sin(theta)}
}

// Cell addresses one cell of a raster by row and column.
type Cell struct {
	Row, Col int
}

// C is a convenience constructor for Cell.
func C(row, col int) Cell { return Cell{Row: row, Col: col} }

// Add offsets a copy of c by other.
func (c Cell) Add(other Cell) Cell {
	return Cell{Row: c.Row + other.Row, Col: c.Col + other.Col}
}

// Less orders cells by row, then column.
func (c Cell) Less(other Cell) bool {
	if c.Row != other.Row {
		return c.Row < other.Row
	}
	return c.Col < other.Col
}

func (c Cell) String() string {
	return fmt.Sprintf("[%d,%d]", c.Row, c.Col)
}
