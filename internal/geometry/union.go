package geometry

import (
	"github.com/peterstace/simplefeatures/geom"

	"github.com/spheroseg/segeditor/internal/document"
)

// union returns the outer boundary of two simple rings using the
// simplefeatures overlay. Disjoint rings report false. Inputs the overlay
// rejects, and unions that come back as several pieces (rings touching at a
// single point), are answered with the convex hull of both rings.
func union(a, b []document.Point) ([]document.Point, bool) {
	a, b = dedupe(a), dedupe(b)
	if len(a) < 3 || len(b) < 3 {
		return nil, false
	}
	ga, errA := toGeom(a)
	gb, errB := toGeom(b)
	if errA != nil || errB != nil {
		if !ringsIntersect(a, b) {
			return nil, false
		}
		return hullOf(a, b), true
	}
	if !geom.Intersects(ga, gb) {
		return nil, false
	}

	u, err := geom.Union(ga, gb)
	if err != nil {
		return hullOf(a, b), true
	}
	p, ok := u.AsPolygon()
	if !ok || p.IsEmpty() {
		return hullOf(a, b), true
	}
	ring := dedupe(fromGeomRing(p.ExteriorRing()))
	if len(ring) < 3 {
		return hullOf(a, b), true
	}
	return ring, true
}

func toGeom(ring []document.Point) (geom.Geometry, error) {
	coords := make([]float64, 0, 2*len(ring)+2)
	for _, p := range ring {
		coords = append(coords, p.X, p.Y)
	}
	coords = append(coords, ring[0].X, ring[0].Y)
	poly := geom.NewPolygon([]geom.LineString{
		geom.NewLineString(geom.NewSequence(coords, geom.DimXY)),
	})
	if err := poly.Validate(); err != nil {
		return geom.Geometry{}, err
	}
	return poly.AsGeometry(), nil
}

func fromGeomRing(ls geom.LineString) []document.Point {
	seq := ls.Coordinates()
	n := seq.Length()
	if n > 1 && seq.GetXY(0) == seq.GetXY(n-1) {
		n--
	}
	out := make([]document.Point, n)
	for i := range n {
		xy := seq.GetXY(i)
		out[i] = document.Point{X: xy.X, Y: xy.Y}
	}
	return out
}

func hullOf(a, b []document.Point) []document.Point {
	return convexHull(append(append([]document.Point(nil), a...), b...))
}
