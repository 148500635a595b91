package interact

import (
	"errors"

	"github.com/spheroseg/segeditor/internal/document"
	"github.com/spheroseg/segeditor/internal/geometry"
	"github.com/spheroseg/segeditor/internal/notice"
	"github.com/spheroseg/segeditor/internal/typeid"
	"github.com/spheroseg/segeditor/internal/viewport"
)

func (m *Machine) viewDown(ev PointerDown, p document.Point) bool {
	doc := m.host.Document()
	if id, ok := m.polygonAt(doc, p); ok {
		m.SetMode(ModeEditVertices)
		m.selected = id
		return true
	}
	m.startPan(ev.X, ev.Y)
	return false
}

func (m *Machine) createDown(p document.Point) bool {
	draft := m.state.Draft
	if len(draft) > 0 {
		r := viewport.HitRadius(m.opts.CloseRadius, m.host.Transform())
		if distance(p, draft[0]) <= r {
			if len(draft) >= document.MinRingPoints {
				return m.closeDraft()
			}
			m.host.Notify(notice.Info, "A polygon needs at least 3 points")
			return false
		}
	}
	m.state.Draft = append(m.state.Draft, p)
	return true
}

// closeDraft commits the draft as a new external polygon and returns to View.
func (m *Machine) closeDraft() bool {
	if len(m.state.Draft) < document.MinRingPoints {
		m.host.Notify(notice.Info, "A polygon needs at least 3 points")
		return false
	}
	poly := document.Polygon{
		ID:     typeid.NewPolygonID(),
		Points: append([]document.Point(nil), m.state.Draft...),
		Kind:   document.KindExternal,
	}
	doc := m.host.Document()
	if err := doc.Append(poly); err != nil {
		m.logger.Error("create polygon", "error", err)
		return false
	}
	m.host.Commit("create polygon", doc)
	m.SetMode(ModeView)
	return true
}

func (m *Machine) editDown(ev PointerDown, p document.Point) bool {
	doc := m.host.Document()

	if ev.Shift && m.selected != "" {
		if sel, ok := doc.Find(m.selected); ok {
			if e, ok := m.edgeAt(*sel, p); ok {
				return m.insertVertex(doc, *sel, e, p)
			}
		}
	}

	if id, idx, ok := m.vertexAt(doc, p, m.selected); ok {
		m.beginDrag(doc, id, idx)
		return true
	}
	if m.selected == "" {
		if id, idx, ok := m.vertexAt(doc, p, ""); ok {
			m.beginDrag(doc, id, idx)
			return true
		}
	}

	if id, ok := m.polygonAt(doc, p); ok {
		changed := id != m.selected
		m.selected = id
		return changed
	}
	m.startPan(ev.X, ev.Y)
	return false
}

func (m *Machine) beginDrag(doc *document.Document, id string, idx int) {
	poly, _ := doc.Find(id)
	m.selected = id
	m.state.Drag = &Drag{PolygonID: id, Index: idx, Origin: poly.Points[idx]}
}

func (m *Machine) insertVertex(doc *document.Document, poly document.Polygon, edge int, p document.Point) bool {
	n := len(poly.Points)
	at := geometry.ClosestPoint(p, poly.Points[edge], poly.Points[(edge+1)%n])
	pts := make([]document.Point, 0, n+1)
	pts = append(pts, poly.Points[:edge+1]...)
	pts = append(pts, at)
	pts = append(pts, poly.Points[edge+1:]...)
	if err := doc.SetPoints(poly.ID, pts); err != nil {
		m.logger.Error("insert vertex", "error", err)
		return false
	}
	m.host.Commit("insert vertex", doc)
	return true
}

func (m *Machine) addPointsDown(p document.Point) bool {
	doc := m.host.Document()

	if m.state.AddStart < 0 {
		id, idx, ok := m.vertexAt(doc, p, m.selected)
		if !ok && m.selected != "" {
			id, idx, ok = m.vertexAt(doc, p, "")
		}
		if !ok {
			m.host.Notify(notice.Info, "Click a vertex to start adding points")
			return false
		}
		m.selected = id
		m.state.AddStart = idx
		return true
	}

	if _, idx, ok := m.vertexAt(doc, p, m.selected); ok {
		if idx == m.state.AddStart {
			return false
		}
		m.state.AddEnd = idx
		return m.spliceDraft(doc)
	}
	m.state.Draft = append(m.state.Draft, p)
	return true
}

// spliceDraft replaces one of the two arcs between the anchors with the
// draft. The arc whose replacement leaves the larger area is chosen; either
// way the kept arc is walked in its original direction.
func (m *Machine) spliceDraft(doc *document.Document) bool {
	poly, ok := doc.Find(m.selected)
	if !ok {
		m.state = neutralState()
		return false
	}
	ring := poly.Points
	s, e := m.state.AddStart, m.state.AddEnd
	draft := m.state.Draft

	forward := spliceArc(ring, s, e, draft)
	reversed := make([]document.Point, len(draft))
	for i, pt := range draft {
		reversed[len(draft)-1-i] = pt
	}
	backward := spliceArc(ring, e, s, reversed)

	k := m.host.Kernel()
	area := func(pts []document.Point) float64 {
		if len(pts) < document.MinRingPoints {
			return -1
		}
		return k.PolygonArea(document.Polygon{Points: pts})
	}
	best := forward
	if area(backward) > area(forward) {
		best = backward
	}

	m.state.Draft = nil
	m.state.AddStart, m.state.AddEnd = -1, -1
	if err := doc.SetPoints(poly.ID, best); err != nil {
		m.host.Notify(notice.Error, "Cannot add points: the polygon would have fewer than 3 points")
		return true
	}
	m.host.Commit("add points", doc)
	return true
}

// spliceArc returns ring with the vertices strictly between from and to
// (walking forward) replaced by pts.
func spliceArc(ring []document.Point, from, to int, pts []document.Point) []document.Point {
	n := len(ring)
	out := make([]document.Point, 0, n+len(pts))
	out = append(out, ring[from])
	out = append(out, pts...)
	for i := to; i != from; i = (i + 1) % n {
		out = append(out, ring[i])
	}
	return out
}

func (m *Machine) sliceDown(p document.Point) bool {
	doc := m.host.Document()
	if m.selected == "" || doc.IndexOf(m.selected) < 0 {
		if id, ok := m.polygonAt(doc, p); ok {
			m.selected = id
			return true
		}
		m.host.Notify(notice.Info, "Select a polygon to slice")
		return false
	}
	if m.state.SliceStart == nil {
		start := p
		m.state.SliceStart = &start
		return true
	}

	start := *m.state.SliceStart
	m.state.SliceStart = nil
	poly, _ := doc.Find(m.selected)
	res := m.host.Kernel().SlicePolygon(*poly, start, p)
	if !res.Success || len(res.Polygons) != 2 {
		m.host.Notify(notice.Error, "Slice failed: the line must cross the polygon outline exactly twice")
		return true
	}

	k := m.host.Kernel()
	pieces := res.Polygons
	for i := range pieces {
		pieces[i].ID = typeid.NewPolygonID()
	}
	larger := pieces[0].ID
	if k.PolygonArea(pieces[1]) > k.PolygonArea(pieces[0]) {
		larger = pieces[1].ID
	}
	if err := doc.Replace(poly.ID, pieces...); err != nil {
		msg := "Slice failed: " + err.Error()
		if errors.Is(err, document.ErrTooFewPoints) {
			msg = "Slice failed: a piece would have fewer than 3 points"
		}
		m.host.Notify(notice.Error, msg)
		return true
	}
	m.host.Commit("slice polygon", doc)
	m.SetMode(ModeEditVertices)
	m.selected = larger
	return true
}

func (m *Machine) deleteDown(p document.Point) bool {
	doc := m.host.Document()
	id, ok := m.polygonAt(doc, p)
	if !ok {
		return false
	}
	if err := doc.Remove(id); err != nil {
		return false
	}
	m.host.Commit("delete polygon", doc)
	if id == m.selected {
		m.selected = ""
	}
	m.state.Hover = Hover{VertexIndex: -1, EdgeIndex: -1}
	return true
}
