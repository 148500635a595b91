package interact

import (
	"math"

	"github.com/spheroseg/segeditor/internal/document"
	"github.com/spheroseg/segeditor/internal/viewport"
)

// vertexAt finds the nearest vertex within the vertex radius. When only is
// set, only that polygon is searched; otherwise polygons are tested topmost
// first.
func (m *Machine) vertexAt(doc *document.Document, p document.Point, only string) (string, int, bool) {
	r := viewport.HitRadius(m.opts.VertexRadius, m.host.Transform())
	best, bestID, bestIdx := math.Inf(1), "", -1
	for i := len(doc.Polygons) - 1; i >= 0; i-- {
		poly := doc.Polygons[i]
		if only != "" && poly.ID != only {
			continue
		}
		for j, v := range poly.Points {
			if d := math.Hypot(v.X-p.X, v.Y-p.Y); d <= r && d < best {
				best, bestID, bestIdx = d, poly.ID, j
			}
		}
		if bestIdx >= 0 {
			return bestID, bestIdx, true
		}
	}
	return "", -1, false
}

// edgeAt returns the edge of poly closest to p within the edge radius.
// Edge i runs from vertex i to vertex i+1.
func (m *Machine) edgeAt(poly document.Polygon, p document.Point) (int, bool) {
	n := len(poly.Points)
	if n < 2 {
		return -1, false
	}
	k := m.host.Kernel()
	r := viewport.HitRadius(m.opts.EdgeRadius, m.host.Transform())
	best, idx := math.Inf(1), -1
	for i := 0; i < n; i++ {
		d := k.DistanceToSegment(p, poly.Points[i], poly.Points[(i+1)%n])
		if d <= r && d < best {
			best, idx = d, i
		}
	}
	return idx, idx >= 0
}

// polygonAt returns the topmost polygon containing p.
func (m *Machine) polygonAt(doc *document.Document, p document.Point) (string, bool) {
	k := m.host.Kernel()
	for i := len(doc.Polygons) - 1; i >= 0; i-- {
		if k.IsPointInPolygon(doc.Polygons[i], p) {
			return doc.Polygons[i].ID, true
		}
	}
	return "", false
}

func (m *Machine) hoverAt(doc *document.Document, p document.Point) Hover {
	h := Hover{VertexIndex: -1, EdgeIndex: -1}
	if id, idx, ok := m.vertexAt(doc, p, m.selected); ok {
		h.PolygonID, h.VertexIndex = id, idx
		return h
	}
	if sel, ok := doc.Find(m.selected); ok {
		if e, ok := m.edgeAt(*sel, p); ok {
			h.PolygonID, h.EdgeIndex = sel.ID, e
			return h
		}
	}
	if id, ok := m.polygonAt(doc, p); ok {
		h.PolygonID = id
	}
	return h
}

func distance(a, b document.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
