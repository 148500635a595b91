package editor

import (
	"fmt"

	"github.com/spheroseg/segeditor/internal/document"
	"github.com/spheroseg/segeditor/internal/notice"
)

// SimplifySelected reduces the selected polygon with the given tolerance in
// image pixels. It reports whether the polygon changed.
func (e *Editor) SimplifySelected(tolerance float64) (bool, error) {
	e.mu.Lock()
	defer e.unlock()
	doc, sel, err := e.selection()
	if err != nil {
		return false, err
	}
	before := len(sel.Points)
	pts := e.kernel.SimplifyPolygon(*sel, tolerance).Points
	if len(pts) == before {
		return false, nil
	}
	if err := doc.SetPoints(sel.ID, pts); err != nil {
		return false, fmt.Errorf("simplify polygon: %w", err)
	}
	e.logger.Debug("polygon simplified", "polygon", sel.ID, "before", before, "after", len(pts))
	return e.hist.Commit("simplify polygon", doc), nil
}

// MergeSelected combines the selected polygon with otherID. The merged
// polygon keeps the selected polygon's id and position; otherID is removed.
func (e *Editor) MergeSelected(otherID string) error {
	e.mu.Lock()
	defer e.unlock()
	doc, sel, err := e.selection()
	if err != nil {
		return err
	}
	other, ok := doc.Find(otherID)
	if !ok || otherID == sel.ID {
		return fmt.Errorf("merge with %s: %w", otherID, document.ErrPolygonNotFound)
	}
	merged, ok := e.kernel.CombinePolygons(*sel, *other)
	if !ok {
		e.notify(notice.Info, "Polygons do not overlap")
		return ErrNotOverlapping
	}
	merged.ID, merged.Kind, merged.Class, merged.Color = sel.ID, sel.Kind, sel.Class, sel.Color
	if err := doc.Replace(sel.ID, merged); err != nil {
		return fmt.Errorf("merge polygons: %w", err)
	}
	if err := doc.Remove(otherID); err != nil {
		return fmt.Errorf("merge polygons: %w", err)
	}
	e.hist.Commit("merge polygons", doc)
	e.logger.Debug("polygons merged", "polygon", sel.ID, "removed", otherID)
	return nil
}

// SelfIntersections returns the points where polygon id crosses itself.
func (e *Editor) SelfIntersections(id string) ([]document.Point, error) {
	e.mu.Lock()
	defer e.unlock()
	doc := e.hist.Working()
	if doc == nil {
		return nil, ErrNoDocument
	}
	p, ok := doc.Find(id)
	if !ok {
		return nil, fmt.Errorf("polygon %s: %w", id, document.ErrPolygonNotFound)
	}
	return e.kernel.DetectSelfIntersections(*p), nil
}

// selection returns a working copy and the selected polygon in it. Must
// hold e.mu.
func (e *Editor) selection() (*document.Document, *document.Polygon, error) {
	doc := e.hist.Working()
	if doc == nil {
		return nil, nil, ErrNoDocument
	}
	id := e.machine.Selected()
	if id == "" {
		return nil, nil, ErrNoSelection
	}
	sel, ok := doc.Find(id)
	if !ok {
		return nil, nil, fmt.Errorf("polygon %s: %w", id, document.ErrPolygonNotFound)
	}
	cp := sel.Clone()
	return doc, &cp, nil
}
