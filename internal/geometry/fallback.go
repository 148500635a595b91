package geometry

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/spheroseg/segeditor/internal/document"
)

// Fallback is the dependency-free kernel. Its CombinePolygons approximates a
// union with the convex hull of both rings.
type Fallback struct{}

var _ Kernel = Fallback{}

func (Fallback) Name() string { return "fallback" }

func (Fallback) IsPointInPolygon(poly document.Polygon, p document.Point) bool {
	return rayCast(poly.Points, p)
}

func (Fallback) DistanceToSegment(p, a, b document.Point) float64 {
	return distanceToSegment(p, a, b)
}

func (Fallback) PolygonArea(poly document.Polygon) float64 {
	return math.Abs(signedArea(poly.Points))
}

func (Fallback) PolygonPerimeter(poly document.Polygon) float64 {
	return perimeter(poly.Points)
}

func (Fallback) BoundingBox(poly document.Polygon) r2.Rect {
	return boundingBox(poly.Points)
}

func (Fallback) PolygonsIntersect(a, b document.Polygon) bool {
	return ringsIntersect(a.Points, b.Points)
}

func (Fallback) SimplifyPolygon(poly document.Polygon, tolerance float64) document.Polygon {
	if tolerance <= 0 || len(poly.Points) <= document.MinRingPoints {
		return poly
	}
	out := poly.Clone()
	out.Points = douglasPeuckerRing(poly.Points, tolerance)
	if len(out.Points) < document.MinRingPoints {
		return poly
	}
	return out
}

func (Fallback) DetectSelfIntersections(poly document.Polygon) []document.Point {
	return bruteSelfIntersections(poly.Points)
}

func (Fallback) SlicePolygon(poly document.Polygon, a, b document.Point) SliceResult {
	return slice(poly, a, b)
}

func (Fallback) CombinePolygons(a, b document.Polygon) (document.Polygon, bool) {
	if !ringsIntersect(a.Points, b.Points) {
		return document.Polygon{}, false
	}
	hull := convexHull(append(append([]document.Point(nil), a.Points...), b.Points...))
	if len(hull) < document.MinRingPoints {
		return document.Polygon{}, false
	}
	out := a.Clone()
	out.Points = matchOrientation(hull, a.Points)
	return out, true
}

// douglasPeuckerRing simplifies a closed ring. The ring is split at vertex 0
// and the vertex farthest from it, and each half is reduced independently.
func douglasPeuckerRing(ring []document.Point, tolerance float64) []document.Point {
	n := len(ring)
	far, best := 0, -1.0
	for i := 1; i < n; i++ {
		if d := vec(ring[i]).Sub(vec(ring[0])).Norm(); d > best {
			far, best = i, d
		}
	}
	keep := make([]bool, n)
	keep[0], keep[far] = true, true
	dpMark(ring[:far+1], tolerance, func(i int) { keep[i] = true })

	tail := make([]document.Point, 0, n-far+1)
	tail = append(tail, ring[far:]...)
	tail = append(tail, ring[0])
	dpMark(tail, tolerance, func(i int) { keep[(far+i)%n] = true })

	out := make([]document.Point, 0, n)
	for i, k := range keep {
		if k {
			out = append(out, ring[i])
		}
	}
	return out
}

// dpMark runs Douglas-Peucker over an open polyline with an explicit stack,
// calling mark for every interior vertex that must be kept.
func dpMark(pts []document.Point, tolerance float64, mark func(int)) {
	stack := [][2]int{{0, len(pts) - 1}}
	for len(stack) > 0 {
		seg := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		s, e := seg[0], seg[1]
		if e-s < 2 {
			continue
		}
		idx, dmax := -1, 0.0
		for i := s + 1; i < e; i++ {
			if d := distanceToSegment(pts[i], pts[s], pts[e]); d > dmax {
				idx, dmax = i, d
			}
		}
		if idx >= 0 && dmax > tolerance {
			mark(idx)
			stack = append(stack, [2]int{s, idx}, [2]int{idx, e})
		}
	}
}

// matchOrientation reverses ring when its winding differs from ref.
func matchOrientation(ring, ref []document.Point) []document.Point {
	if (signedArea(ring) < 0) == (signedArea(ref) < 0) {
		return ring
	}
	out := make([]document.Point, len(ring))
	for i, p := range ring {
		out[len(ring)-1-i] = p
	}
	return out
}
