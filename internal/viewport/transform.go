// Package viewport maps between screen pixels and image coordinates.
//
// A Transform places the image on screen as
//
//	screen = image*Zoom + (TranslateX, TranslateY)
//
// and every operation that produces a Transform clamps Zoom to its Limits.
package viewport

import (
	"math"

	"github.com/spheroseg/segeditor/internal/document"
)

const (
	// FitMargin is the share of the canvas the image may occupy after a fit.
	FitMargin = 0.9
	// WheelStep is the zoom factor applied per wheel notch.
	WheelStep = 1.1
	// WheelNotch is the wheel delta reported for one notch in pixel mode.
	WheelNotch = 100.0

	minFactor = 0.01
)

type Limits struct {
	MinZoom float64 `json:"minZoom"`
	MaxZoom float64 `json:"maxZoom"`
}

func DefaultLimits() Limits { return Limits{MinZoom: 0.1, MaxZoom: 10} }

func (l Limits) Clamp(zoom float64) float64 {
	if l.MaxZoom < l.MinZoom || l.MinZoom <= 0 {
		l = DefaultLimits()
	}
	return math.Max(l.MinZoom, math.Min(l.MaxZoom, zoom))
}

type Transform struct {
	Zoom       float64 `json:"zoom"`
	TranslateX float64 `json:"translateX"`
	TranslateY float64 `json:"translateY"`
}

func Default() Transform { return Transform{Zoom: 1} }

// Matrix returns the image→screen matrix.
func (t Transform) Matrix() Matrix2D {
	return Translate(t.TranslateX, t.TranslateY).Multiply(Scale(t.Zoom, t.Zoom))
}

func ToImageSpace(px, py float64, t Transform) document.Point {
	if t.Zoom == 0 {
		t.Zoom = 1
	}
	x, y := t.Matrix().Invert().TransformPoint(px, py)
	return document.Point{X: x, Y: y}
}

func ToScreenSpace(p document.Point, t Transform) (float64, float64) {
	return t.Matrix().TransformPoint(p.X, p.Y)
}

// FitToCanvas returns the largest zoom not above 1 that shows the whole
// image inside FitMargin of the canvas, with the image centered.
func FitToCanvas(imageW, imageH, canvasW, canvasH float64, limits Limits) Transform {
	if imageW <= 0 || imageH <= 0 || canvasW <= 0 || canvasH <= 0 {
		return Transform{Zoom: limits.Clamp(1)}
	}
	zoom := math.Min(canvasW*FitMargin/imageW, canvasH*FitMargin/imageH)
	zoom = limits.Clamp(math.Min(zoom, 1))
	return Transform{
		Zoom:       zoom,
		TranslateX: (canvasW - imageW*zoom) / 2,
		TranslateY: (canvasH - imageH*zoom) / 2,
	}
}

// ApplyZoom scales the zoom by 1+delta while keeping the image point under
// the pivot fixed on screen. The factor never drops below 0.01 and the
// result is clamped to limits.
func ApplyZoom(t Transform, pivotX, pivotY, delta float64, limits Limits) Transform {
	factor := math.Max(1+delta, minFactor)
	return ZoomTo(t, pivotX, pivotY, t.Zoom*factor, limits)
}

// ZoomTo sets an absolute zoom anchored at the pivot.
func ZoomTo(t Transform, pivotX, pivotY, zoom float64, limits Limits) Transform {
	anchor := ToImageSpace(pivotX, pivotY, t)
	zoom = limits.Clamp(zoom)
	return Transform{
		Zoom:       zoom,
		TranslateX: pivotX - anchor.X*zoom,
		TranslateY: pivotY - anchor.Y*zoom,
	}
}

// Wheel converts a wheel delta into a pivot zoom. Positive deltaY (scrolling
// down) zooms out.
func Wheel(t Transform, pivotX, pivotY, deltaY float64, limits Limits) Transform {
	if deltaY == 0 {
		return t
	}
	factor := math.Pow(WheelStep, -deltaY/WheelNotch)
	return ApplyZoom(t, pivotX, pivotY, factor-1, limits)
}

// Pan shifts the image by a screen-space offset.
func Pan(t Transform, dx, dy float64) Transform {
	t.TranslateX += dx
	t.TranslateY += dy
	return t
}

// HitRadius converts a screen-space radius into image units.
func HitRadius(px float64, t Transform) float64 {
	if t.Zoom <= 0 {
		return px
	}
	return px / t.Zoom
}
