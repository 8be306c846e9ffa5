package localgrid

import (
	"fmt"
	"image"
	"image/color"

	"github.com/xkilldash9x/sgexplore/internal/config"
	"github.com/xkilldash9x/sgexplore/internal/geometry"
)

// DefaultThreshold is the pixel intensity separating free from occupied cells.
const DefaultThreshold uint8 = 220

// OccupancyTest interprets one cell of an occupancy buffer. Different data sources
// encode obstacles differently, so the interpretation is pluggable.
type OccupancyTest interface {
	Name() string
	// IsObstacle reports whether cell c is blocked. Cells the buffer does not cover
	// are blocked.
	IsObstacle(img image.Image, c geometry.Cell) bool
	// Paint writes cell c in this test's encoding.
	Paint(img *image.NRGBA, c geometry.Cell, obstacle bool)
}

// NewOccupancyTest builds the occupancy test registered under name.
func NewOccupancyTest(name string, threshold uint8) (OccupancyTest, error) {
	switch name {
	case config.OccupancyBelowThreshold:
		return BelowThreshold{Threshold: threshold}, nil
	case config.OccupancyAboveThreshold:
		return AboveThreshold{Threshold: threshold}, nil
	case config.OccupancyAlphaThreshold:
		return AlphaThreshold{Threshold: threshold}, nil
	default:
		return nil, fmt.Errorf("unknown occupancy test: %q", name)
	}
}

// sample reads the pixel at raster offset (x, y) from the image origin.
func sample(img image.Image, x, y int) (color.NRGBA, bool) {
	b := img.Bounds()
	p := image.Pt(b.Min.X+x, b.Min.Y+y)
	if !p.In(b) {
		return color.NRGBA{}, false
	}
	return color.NRGBAModel.Convert(img.At(p.X, p.Y)).(color.NRGBA), true
}

func set(img *image.NRGBA, x, y int, c color.NRGBA) {
	b := img.Bounds()
	img.SetNRGBA(b.Min.X+x, b.Min.Y+y, c)
}

// BelowThreshold treats a cell as an obstacle when any of its four channels is darker
// than Threshold. Camera-style patches render free space white.
type BelowThreshold struct {
	Threshold uint8
}

func (BelowThreshold) Name() string { return config.OccupancyBelowThreshold }

func (t BelowThreshold) IsObstacle(img image.Image, c geometry.Cell) bool {
	px, ok := sample(img, c.Col, c.Row)
	if !ok {
		return true
	}
	return px.R < t.Threshold || px.G < t.Threshold || px.B < t.Threshold || px.A < t.Threshold
}

func (t BelowThreshold) Paint(img *image.NRGBA, c geometry.Cell, obstacle bool) {
	if obstacle {
		set(img, c.Col, c.Row, color.NRGBA{A: 255})
		return
	}
	set(img, c.Col, c.Row, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
}

// AboveThreshold is the robot's native occupancy encoding: a cell is an obstacle
// when its colour channels all exceed Threshold.
type AboveThreshold struct {
	Threshold uint8
}

func (AboveThreshold) Name() string { return config.OccupancyAboveThreshold }

func (t AboveThreshold) IsObstacle(img image.Image, c geometry.Cell) bool {
	px, ok := sample(img, c.Col, c.Row)
	if !ok {
		return true
	}
	return px.R > t.Threshold && px.G > t.Threshold && px.B > t.Threshold
}

func (t AboveThreshold) Paint(img *image.NRGBA, c geometry.Cell, obstacle bool) {
	if obstacle {
		set(img, c.Col, c.Row, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		return
	}
	set(img, c.Col, c.Row, color.NRGBA{A: 255})
}

// AlphaThreshold reads obstacles from the alpha channel of a map source whose raster
// axes are swapped: image x is the cell row, image y the cell column.
type AlphaThreshold struct {
	Threshold uint8
}

func (AlphaThreshold) Name() string { return config.OccupancyAlphaThreshold }

func (t AlphaThreshold) IsObstacle(img image.Image, c geometry.Cell) bool {
	px, ok := sample(img, c.Row, c.Col)
	if !ok {
		return true
	}
	return px.A > t.Threshold
}

func (t AlphaThreshold) Paint(img *image.NRGBA, c geometry.Cell, obstacle bool) {
	if obstacle {
		set(img, c.Row, c.Col, color.NRGBA{A: 255})
		return
	}
	set(img, c.Row, c.Col, color.NRGBA{})
}
