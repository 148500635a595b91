package geometry

import (
	"math"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"

	"github.com/spheroseg/segeditor/internal/document"
)

// Native is the orb-backed kernel. Containment, measurement and
// simplification run through orb/planar and orb/simplify; self-intersection
// detection uses a sorted sweep and CombinePolygons takes the true union
// from the simplefeatures overlay.
type Native struct{}

var _ Kernel = Native{}

func (Native) Name() string { return "native" }

func toRing(pts []document.Point) orb.Ring {
	r := make(orb.Ring, 0, len(pts)+1)
	for _, p := range pts {
		r = append(r, orb.Point{p.X, p.Y})
	}
	if len(r) > 0 && !r.Closed() {
		r = append(r, r[0])
	}
	return r
}

func fromRing(r orb.Ring) []document.Point {
	if len(r) > 1 && r.Closed() {
		r = r[:len(r)-1]
	}
	out := make([]document.Point, len(r))
	for i, p := range r {
		out[i] = document.Point{X: p[0], Y: p[1]}
	}
	return out
}

func (Native) IsPointInPolygon(poly document.Polygon, p document.Point) bool {
	if len(poly.Points) < document.MinRingPoints {
		return false
	}
	return planar.RingContains(toRing(poly.Points), orb.Point{p.X, p.Y})
}

func (Native) DistanceToSegment(p, a, b document.Point) float64 {
	return planar.DistanceFromSegment(orb.Point{a.X, a.Y}, orb.Point{b.X, b.Y}, orb.Point{p.X, p.Y})
}

func (Native) PolygonArea(poly document.Polygon) float64 {
	if len(poly.Points) < document.MinRingPoints {
		return 0
	}
	return math.Abs(planar.Area(toRing(poly.Points)))
}

func (Native) PolygonPerimeter(poly document.Polygon) float64 {
	if len(poly.Points) < 2 {
		return 0
	}
	return planar.Length(orb.LineString(toRing(poly.Points)))
}

func (Native) BoundingBox(poly document.Polygon) r2.Rect {
	if len(poly.Points) == 0 {
		return r2.EmptyRect()
	}
	b := toRing(poly.Points).Bound()
	return r2.RectFromPoints(r2.Point{X: b.Min[0], Y: b.Min[1]}, r2.Point{X: b.Max[0], Y: b.Max[1]})
}

func (Native) PolygonsIntersect(a, b document.Polygon) bool {
	if len(a.Points) < 3 || len(b.Points) < 3 {
		return false
	}
	ra, rb := toRing(a.Points), toRing(b.Points)
	if !ra.Bound().Intersects(rb.Bound()) {
		return false
	}
	for i := 0; i+1 < len(ra); i++ {
		for j := 0; j+1 < len(rb); j++ {
			if _, _, _, ok := segmentIntersection(a.Points[i], a.Points[(i+1)%len(a.Points)],
				b.Points[j], b.Points[(j+1)%len(b.Points)]); ok {
				return true
			}
		}
	}
	return planar.RingContains(rb, ra[0]) || planar.RingContains(ra, rb[0])
}

func (Native) SimplifyPolygon(poly document.Polygon, tolerance float64) document.Polygon {
	if tolerance <= 0 || len(poly.Points) <= document.MinRingPoints {
		return poly
	}
	r := simplify.DouglasPeucker(tolerance).Ring(toRing(poly.Points))
	pts := fromRing(r)
	if len(pts) < document.MinRingPoints || len(pts) > len(poly.Points) {
		return poly
	}
	out := poly.Clone()
	out.Points = pts
	return out
}

// DetectSelfIntersections sweeps edges ordered by their left x so that only
// edges with overlapping x extents are compared.
func (Native) DetectSelfIntersections(poly document.Polygon) []document.Point {
	ring := poly.Points
	n := len(ring)
	if n < 4 {
		return nil
	}
	type edge struct {
		i          int
		minX, maxX float64
	}
	edges := make([]edge, n)
	for i := range ring {
		a, b := ring[i], ring[(i+1)%n]
		edges[i] = edge{i: i, minX: math.Min(a.X, b.X), maxX: math.Max(a.X, b.X)}
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].minX < edges[j].minX })

	adjacent := func(i, j int) bool {
		d := i - j
		if d < 0 {
			d = -d
		}
		return d <= 1 || d == n-1
	}

	var out []document.Point
	for x := range edges {
		ex := edges[x]
		for y := x + 1; y < n && edges[y].minX <= ex.maxX+Epsilon; y++ {
			ey := edges[y]
			if adjacent(ex.i, ey.i) {
				continue
			}
			a, b := ring[ex.i], ring[(ex.i+1)%n]
			c, d := ring[ey.i], ring[(ey.i+1)%n]
			if at, _, _, ok := segmentIntersection(a, b, c, d); ok {
				out = append(out, at)
			}
		}
	}
	return out
}

func (Native) SlicePolygon(poly document.Polygon, a, b document.Point) SliceResult {
	return slice(poly, a, b)
}

func (Native) CombinePolygons(a, b document.Polygon) (document.Polygon, bool) {
	if len(a.Points) < 3 || len(b.Points) < 3 {
		return document.Polygon{}, false
	}
	ring, ok := union(a.Points, b.Points)
	if !ok {
		return document.Polygon{}, false
	}
	out := a.Clone()
	out.Points = matchOrientation(ring, a.Points)
	return out, true
}
