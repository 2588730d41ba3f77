// Package viewport owns the zoom factor and pan offset of the canvas and
// converts between screen and world coordinates.
package viewport

import (
	"math"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/geom"
)

const (
	MinScale = 0.1
	MaxScale = 3.0
)

// Viewport maps world space onto the screen: screen = world*scale + offset.
// Callers read Scale/Offset; all mutation goes through the methods below.
type Viewport struct {
	scale  float64
	offset geom.Point

	defaultScale  float64
	defaultOffset geom.Point
}

// New creates a viewport at scale 1 with no offset.
func New() *Viewport {
	return NewWithDefault(1, geom.Point{})
}

// NewWithDefault creates a viewport whose Reset returns to the given view.
func NewWithDefault(scale float64, offset geom.Point) *Viewport {
	scale = clampScale(scale)
	return &Viewport{
		scale:         scale,
		offset:        offset,
		defaultScale:  scale,
		defaultOffset: offset,
	}
}

// Scale returns the current zoom factor.
func (v *Viewport) Scale() float64 { return v.scale }

// Offset returns the current pan offset in screen pixels.
func (v *Viewport) Offset() geom.Point { return v.offset }

// Matrix returns the world-to-screen transform.
func (v *Viewport) Matrix() geom.Matrix2D {
	return geom.Translate(v.offset.X, v.offset.Y).Multiply(geom.Scale(v.scale, v.scale))
}

// WorldToScreen converts a world point to screen pixels.
func (v *Viewport) WorldToScreen(p geom.Point) geom.Point {
	return p.Mul(v.scale).Add(v.offset)
}

// ScreenToWorld converts screen pixels to a world point.
func (v *Viewport) ScreenToWorld(p geom.Point) geom.Point {
	return p.Sub(v.offset).Div(v.scale)
}

// PanBy shifts the view by a screen-space delta.
func (v *Viewport) PanBy(delta geom.Point) {
	v.offset = v.offset.Add(delta)
}

// ZoomAt multiplies the scale by factor while keeping the world point under
// screenPoint fixed on screen. The resulting scale is clamped.
func (v *Viewport) ZoomAt(screenPoint geom.Point, factor float64) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return
	}

	anchor := v.ScreenToWorld(screenPoint)
	v.scale = clampScale(v.scale * factor)
	v.offset = screenPoint.Sub(anchor.Mul(v.scale))
}

// SetScale zooms around the viewport origin.
func (v *Viewport) SetScale(scale float64) {
	v.scale = clampScale(scale)
}

// FitToContent scales and centers bbox (grown by padding on every side)
// inside a viewport of the given size. It never zooms in past 1.
func (v *Viewport) FitToContent(bbox geom.Rect, size geom.Size, padding float64) {
	if bbox.IsEmpty() || size.Width <= 0 || size.Height <= 0 {
		v.Reset()
		return
	}

	padded := bbox.Inset(-padding)
	scale := math.Min(math.Min(size.Width/padded.Width, size.Height/padded.Height), 1)
	v.scale = clampScale(scale)

	center := padded.Center()
	v.offset = geom.Point{
		X: size.Width/2 - center.X*v.scale,
		Y: size.Height/2 - center.Y*v.scale,
	}
}

// Reset restores the default view.
func (v *Viewport) Reset() {
	v.scale = v.defaultScale
	v.offset = v.defaultOffset
}

// VisibleWorld returns the world rect currently on screen.
func (v *Viewport) VisibleWorld(size geom.Size) geom.Rect {
	tl := v.ScreenToWorld(geom.Point{})
	br := v.ScreenToWorld(geom.Point{X: size.Width, Y: size.Height})
	return geom.RectFromPoints(tl, br)
}

func clampScale(s float64) float64 {
	if s < MinScale || math.IsNaN(s) {
		return MinScale
	}
	if s > MaxScale {
		return MaxScale
	}
	return s
}
