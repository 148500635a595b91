package document

import (
	"errors"
	"fmt"
	"time"

	"github.com/jinzhu/copier"
)

// MinRingPoints is the smallest number of points a committed polygon may have.
const MinRingPoints = 3

var (
	ErrTooFewPoints     = errors.New("polygon needs at least 3 points")
	ErrDuplicatePolygon = errors.New("duplicate polygon id")
	ErrPolygonNotFound  = errors.New("polygon not found")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

type PolygonKind string

const (
	KindExternal PolygonKind = "external"
	KindInternal PolygonKind = "internal"
)

// Point is a position in image space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Polygon struct {
	ID     string      `json:"id"`
	Points []Point     `json:"points"`
	Kind   PolygonKind `json:"type"`
	Class  string      `json:"class,omitempty"`
	Color  string      `json:"color,omitempty"`
}

// Document is the annotation state for one image.
type Document struct {
	ImageID   string    `json:"imageId"`
	Status    Status    `json:"status"`
	Polygons  []Polygon `json:"polygons"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ImageMeta describes the raster the polygons are drawn over.
type ImageMeta struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	URL    string `json:"url"`
}

// NewEmptyDocument creates the document used when an image has no annotation yet.
func NewEmptyDocument(imageID string) *Document {
	now := time.Now().UTC()
	return &Document{
		ImageID:   imageID,
		Status:    StatusCompleted,
		Polygons:  []Polygon{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PlaceholderImage stands in for image metadata that could not be loaded,
// so editing can continue on a blank canvas.
func PlaceholderImage(imageID string) ImageMeta {
	return ImageMeta{
		ID:     imageID,
		Name:   "unavailable",
		Width:  1024,
		Height: 768,
	}
}

// Validate checks that a polygon may be stored in a document.
func (p Polygon) Validate() error {
	if len(p.Points) < MinRingPoints {
		return fmt.Errorf("polygon %s has %d points: %w", p.ID, len(p.Points), ErrTooFewPoints)
	}
	return nil
}

// Clone returns an independent copy of the polygon.
func (p Polygon) Clone() Polygon {
	out := p
	out.Points = append([]Point(nil), p.Points...)
	return out
}

// Clone returns a deep copy of the document. Nothing in the copy aliases d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	var out Document
	if err := copier.CopyWithOption(&out, d, copier.Option{DeepCopy: true}); err != nil {
		// copier only fails on mismatched kinds, which cannot happen for
		// identical types; fall back to a manual copy all the same.
		out = *d
		out.Polygons = make([]Polygon, len(d.Polygons))
		for i, p := range d.Polygons {
			out.Polygons[i] = p.Clone()
		}
	}
	// time.Time has only unexported fields, which copier skips.
	out.CreatedAt = d.CreatedAt
	out.UpdatedAt = d.UpdatedAt
	if out.Polygons == nil {
		out.Polygons = []Polygon{}
	}
	return &out
}

// Validate checks every polygon and that ids are unique.
func (d *Document) Validate() error {
	seen := make(map[string]struct{}, len(d.Polygons))
	for _, p := range d.Polygons {
		if err := p.Validate(); err != nil {
			return err
		}
		if _, ok := seen[p.ID]; ok {
			return fmt.Errorf("polygon %s: %w", p.ID, ErrDuplicatePolygon)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

// IndexOf returns the position of the polygon with the given id, or -1.
func (d *Document) IndexOf(id string) int {
	for i := range d.Polygons {
		if d.Polygons[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns a pointer into the polygon slice. The pointer is invalidated
// by any call that changes the slice length.
func (d *Document) Find(id string) (*Polygon, bool) {
	i := d.IndexOf(id)
	if i < 0 {
		return nil, false
	}
	return &d.Polygons[i], true
}

// Append adds a new polygon, refusing drafts and duplicate ids.
func (d *Document) Append(p Polygon) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if d.IndexOf(p.ID) >= 0 {
		return fmt.Errorf("polygon %s: %w", p.ID, ErrDuplicatePolygon)
	}
	d.Polygons = append(d.Polygons, p)
	d.touch()
	return nil
}

// Replace swaps the polygon with the given id for zero or more polygons,
// keeping its position in the render order.
func (d *Document) Replace(id string, with ...Polygon) error {
	i := d.IndexOf(id)
	if i < 0 {
		return fmt.Errorf("polygon %s: %w", id, ErrPolygonNotFound)
	}
	for _, p := range with {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	rest := append([]Polygon(nil), d.Polygons[i+1:]...)
	d.Polygons = append(append(d.Polygons[:i], with...), rest...)
	d.touch()
	return nil
}

// Remove deletes the polygon with the given id.
func (d *Document) Remove(id string) error {
	return d.Replace(id)
}

// SetPoints overwrites the ring of an existing polygon.
func (d *Document) SetPoints(id string, pts []Point) error {
	p, ok := d.Find(id)
	if !ok {
		return fmt.Errorf("polygon %s: %w", id, ErrPolygonNotFound)
	}
	if len(pts) < MinRingPoints {
		return fmt.Errorf("polygon %s has %d points: %w", id, len(pts), ErrTooFewPoints)
	}
	p.Points = append(p.Points[:0:0], pts...)
	d.touch()
	return nil
}

// MoveVertex updates a single vertex in place.
func (d *Document) MoveVertex(id string, index int, to Point) error {
	p, ok := d.Find(id)
	if !ok {
		return fmt.Errorf("polygon %s: %w", id, ErrPolygonNotFound)
	}
	if index < 0 || index >= len(p.Points) {
		return fmt.Errorf("vertex %d out of range for polygon %s", index, id)
	}
	p.Points[index] = to
	d.touch()
	return nil
}

// PointCount returns the total number of vertices in the document.
func (d *Document) PointCount() int {
	n := 0
	for _, p := range d.Polygons {
		n += len(p.Points)
	}
	return n
}

func (d *Document) touch() {
	d.UpdatedAt = time.Now().UTC()
}
