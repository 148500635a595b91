package geometry

import (
	"math"
	"sort"

	"github.com/golang/geo/r2"

	"github.com/spheroseg/segeditor/internal/document"
)

// Epsilon is the tolerance used for parallel, collinear and touching tests.
const Epsilon = 1e-9

func vec(p document.Point) r2.Point { return r2.Point{X: p.X, Y: p.Y} }

func pt(v r2.Point) document.Point { return document.Point{X: v.X, Y: v.Y} }

// signedArea is the shoelace sum; positive for counter-clockwise rings in a
// y-up frame (clockwise on screen, where y grows downwards).
func signedArea(ring []document.Point) float64 {
	n := len(ring)
	if n < 3 {
		return 0
	}
	var s float64
	for i := 0; i < n; i++ {
		a, b := vec(ring[i]), vec(ring[(i+1)%n])
		s += a.Cross(b)
	}
	return s / 2
}

func perimeter(ring []document.Point) float64 {
	n := len(ring)
	if n < 2 {
		return 0
	}
	var s float64
	for i := 0; i < n; i++ {
		s += vec(ring[(i+1)%n]).Sub(vec(ring[i])).Norm()
	}
	return s
}

func boundingBox(ring []document.Point) r2.Rect {
	if len(ring) == 0 {
		return r2.EmptyRect()
	}
	pts := make([]r2.Point, len(ring))
	for i, p := range ring {
		pts[i] = vec(p)
	}
	return r2.RectFromPoints(pts...)
}

// distanceToSegment returns the euclidean distance from p to segment ab.
func distanceToSegment(p, a, b document.Point) float64 {
	return vec(p).Sub(vec(closestOnSegment(p, a, b))).Norm()
}

// closestOnSegment projects p onto segment ab, clamped to the endpoints.
func closestOnSegment(p, a, b document.Point) document.Point {
	av, bv, pv := vec(a), vec(b), vec(p)
	ab := bv.Sub(av)
	l2 := ab.Dot(ab)
	if l2 < Epsilon*Epsilon {
		return a
	}
	t := pv.Sub(av).Dot(ab) / l2
	t = math.Max(0, math.Min(1, t))
	return pt(av.Add(ab.Mul(t)))
}

func onSegment(p, a, b document.Point) bool {
	return distanceToSegment(p, a, b) <= Epsilon*math.Max(1, vec(b).Sub(vec(a)).Norm())
}

// rayCast is the even-odd containment test. Points on an edge count as inside.
func rayCast(ring []document.Point, p document.Point) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	in := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if onSegment(p, a, b) {
			return true
		}
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < x {
				in = !in
			}
		}
	}
	return in
}

// segmentIntersection reports where segments ab and cd properly cross.
// ta and tb are the parameters along ab and cd. Parallel and collinear
// segments never intersect here.
func segmentIntersection(a, b, c, d document.Point) (at document.Point, ta, tb float64, ok bool) {
	av, bv, cv, dv := vec(a), vec(b), vec(c), vec(d)
	r := bv.Sub(av)
	s := dv.Sub(cv)
	denom := r.Cross(s)
	if math.Abs(denom) < Epsilon {
		return document.Point{}, 0, 0, false
	}
	qp := cv.Sub(av)
	ta = qp.Cross(s) / denom
	tb = qp.Cross(r) / denom
	if ta < -Epsilon || ta > 1+Epsilon || tb < -Epsilon || tb > 1+Epsilon {
		return document.Point{}, 0, 0, false
	}
	return pt(av.Add(r.Mul(ta))), ta, tb, true
}

type edgeCrossing struct {
	edge int
	t    float64 // along the ring edge
	u    float64 // along the cut
	at   document.Point
}

// lineCrossings intersects the cut line a→b with each ring edge. When
// segment is false the cut is treated as an infinite line. Vertices lying on
// the cut are classified as being on its positive side so that a crossing
// through a vertex is counted once.
func lineCrossings(ring []document.Point, a, b document.Point, segment bool) []edgeCrossing {
	av, dir := vec(a), vec(b).Sub(vec(a))
	if dir.Norm() < Epsilon {
		return nil
	}
	side := func(p document.Point) bool {
		return dir.Cross(vec(p).Sub(av)) >= 0
	}
	n := len(ring)
	var out []edgeCrossing
	for i := 0; i < n; i++ {
		p, q := ring[i], ring[(i+1)%n]
		if side(p) == side(q) {
			continue
		}
		pv, e := vec(p), vec(q).Sub(vec(p))
		denom := dir.Cross(e)
		if math.Abs(denom) < Epsilon {
			continue
		}
		w := pv.Sub(av)
		u := w.Cross(e) / denom
		t := w.Cross(dir) / denom
		if segment && (u < -Epsilon || u > 1+Epsilon) {
			continue
		}
		out = append(out, edgeCrossing{edge: i, t: t, u: u, at: pt(pv.Add(e.Mul(t)))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].edge < out[j].edge })
	return out
}

// dedupe drops consecutive repeated points, including a closing duplicate.
func dedupe(ring []document.Point) []document.Point {
	out := make([]document.Point, 0, len(ring))
	for _, p := range ring {
		if len(out) > 0 && samePoint(out[len(out)-1], p) {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && samePoint(out[0], out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	return out
}

func samePoint(a, b document.Point) bool {
	return math.Abs(a.X-b.X) < 1e-7 && math.Abs(a.Y-b.Y) < 1e-7
}

// splitRing cuts a ring at two edge crossings into the two resulting rings.
func splitRing(ring []document.Point, c1, c2 edgeCrossing) ([]document.Point, []document.Point) {
	n := len(ring)
	first := []document.Point{c1.at}
	for k := c1.edge + 1; k <= c2.edge; k++ {
		first = append(first, ring[k])
	}
	first = append(first, c2.at)

	second := []document.Point{c2.at}
	for k := c2.edge + 1; k < c2.edge+1+n-(c2.edge-c1.edge); k++ {
		second = append(second, ring[k%n])
	}
	second = append(second, c1.at)
	return dedupe(first), dedupe(second)
}

// slice implements the shared slicing rule: the cut segment is tried first,
// then the infinite line through it; exactly two crossings are required.
func slice(poly document.Polygon, a, b document.Point) SliceResult {
	ring := dedupe(poly.Points)
	if len(ring) < document.MinRingPoints {
		return SliceResult{}
	}
	crossings := lineCrossings(ring, a, b, true)
	if len(crossings) != 2 {
		crossings = lineCrossings(ring, a, b, false)
	}
	if len(crossings) != 2 {
		return SliceResult{}
	}
	r1, r2 := splitRing(ring, crossings[0], crossings[1])
	if len(r1) < document.MinRingPoints || len(r2) < document.MinRingPoints {
		return SliceResult{}
	}
	if math.Abs(signedArea(r1)) < Epsilon || math.Abs(signedArea(r2)) < Epsilon {
		return SliceResult{}
	}
	return SliceResult{
		Success: true,
		Polygons: []document.Polygon{
			{Points: r1, Kind: poly.Kind, Class: poly.Class, Color: poly.Color},
			{Points: r2, Kind: poly.Kind, Class: poly.Class, Color: poly.Color},
		},
	}
}

// bruteSelfIntersections checks every pair of non-adjacent edges.
func bruteSelfIntersections(ring []document.Point) []document.Point {
	n := len(ring)
	if n < 4 {
		return nil
	}
	var out []document.Point
	for i := 0; i < n; i++ {
		a, b := ring[i], ring[(i+1)%n]
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			c, d := ring[j], ring[(j+1)%n]
			if at, _, _, ok := segmentIntersection(a, b, c, d); ok {
				out = append(out, at)
			}
		}
	}
	return out
}

func ringsIntersect(a, b []document.Point) bool {
	if len(a) < 3 || len(b) < 3 {
		return false
	}
	if !boundingBox(a).Intersects(boundingBox(b)) {
		return false
	}
	for i := range a {
		p, q := a[i], a[(i+1)%len(a)]
		for j := range b {
			if _, _, _, ok := segmentIntersection(p, q, b[j], b[(j+1)%len(b)]); ok {
				return true
			}
		}
	}
	return rayCast(b, a[0]) || rayCast(a, b[0])
}

// convexHull is Andrew's monotone chain. The hull is returned in the same
// orientation as a positive signedArea.
func convexHull(pts []document.Point) []document.Point {
	ps := append([]document.Point(nil), pts...)
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].X != ps[j].X {
			return ps[i].X < ps[j].X
		}
		return ps[i].Y < ps[j].Y
	})
	ps = dedupe(ps)
	if len(ps) < 3 {
		return ps
	}
	cross := func(o, a, b document.Point) float64 {
		return vec(a).Sub(vec(o)).Cross(vec(b).Sub(vec(o)))
	}
	hull := make([]document.Point, 0, 2*len(ps))
	for _, p := range ps {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(ps) - 2; i >= 0; i-- {
		p := ps[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// ClosestPoint projects p onto segment ab. It is kernel independent and used
// to place vertices inserted on an edge.
func ClosestPoint(p, a, b document.Point) document.Point {
	return closestOnSegment(p, a, b)
}
