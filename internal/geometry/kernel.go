// Package geometry is the polygon math used for hit testing and for the
// on-demand operations of the editor (simplify, slice, merge, validation).
//
// Two implementations share the Kernel interface: Native, backed by the orb
// planar library and a boundary-walk union, and Fallback, a dependency-free
// implementation that is always available. Editors use a Switch, which
// answers from Fallback until a native kernel has been loaded and falls back
// again whenever the native kernel panics.
package geometry

import (
	"github.com/golang/geo/r2"

	"github.com/spheroseg/segeditor/internal/document"
)

// Kernel is the set of polygon operations used by the editor.
type Kernel interface {
	Name() string

	// IsPointInPolygon is an even-odd test; points on an edge are inside.
	IsPointInPolygon(poly document.Polygon, p document.Point) bool
	DistanceToSegment(p, a, b document.Point) float64
	PolygonArea(poly document.Polygon) float64
	PolygonPerimeter(poly document.Polygon) float64
	BoundingBox(poly document.Polygon) r2.Rect
	PolygonsIntersect(a, b document.Polygon) bool

	// SimplifyPolygon never adds points and never returns fewer than three.
	// A tolerance <= 0 returns the polygon unchanged.
	SimplifyPolygon(poly document.Polygon, tolerance float64) document.Polygon
	// DetectSelfIntersections returns the points where non-adjacent edges
	// meet. An empty result means the ring is simple.
	DetectSelfIntersections(poly document.Polygon) []document.Point
	// SlicePolygon splits a ring along the cut a→b. The resulting polygons
	// carry no id; callers assign fresh ones.
	SlicePolygon(poly document.Polygon, a, b document.Point) SliceResult
	// CombinePolygons returns a ring covering both polygons, or false when
	// they do not overlap. The result keeps a's id, kind and labels.
	CombinePolygons(a, b document.Polygon) (document.Polygon, bool)
}

type SliceResult struct {
	Success  bool
	Polygons []document.Polygon
}
