package document

import (
	"math"
	"time"

	"github.com/spheroseg/segeditor/internal/typeid"
)

// NewSampleDocument builds a small annotation used by the playground and tests:
// a square, an irregular cell outline with an internal hole, and a triangle.
func NewSampleDocument(imageID string) *Document {
	now := time.Now().UTC()

	cell := make([]Point, 0, 24)
	for i := 0; i < 24; i++ {
		a := float64(i) / 24 * 2 * math.Pi
		r := 120 + 18*math.Sin(3*a)
		cell = append(cell, Point{X: 520 + r*math.Cos(a), Y: 360 + r*math.Sin(a)})
	}

	return &Document{
		ImageID: imageID,
		Status:  StatusCompleted,
		Polygons: []Polygon{
			{
				ID:     typeid.NewPolygonID(),
				Points: []Point{{X: 100, Y: 100}, {X: 260, Y: 100}, {X: 260, Y: 260}, {X: 100, Y: 260}},
				Kind:   KindExternal,
				Class:  "spheroid",
				Color:  "#e94560",
			},
			{
				ID:     typeid.NewPolygonID(),
				Points: cell,
				Kind:   KindExternal,
				Class:  "spheroid",
				Color:  "#0f9b8e",
			},
			{
				ID:     typeid.NewPolygonID(),
				Points: []Point{{X: 500, Y: 340}, {X: 545, Y: 340}, {X: 545, Y: 385}, {X: 500, Y: 385}},
				Kind:   KindInternal,
			},
			{
				ID:     typeid.NewPolygonID(),
				Points: []Point{{X: 800, Y: 120}, {X: 900, Y: 280}, {X: 700, Y: 280}},
				Kind:   KindExternal,
				Color:  "#f5a623",
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SampleImage is the image metadata paired with NewSampleDocument.
func SampleImage(imageID string) ImageMeta {
	return ImageMeta{
		ID:     imageID,
		Name:   "sample.png",
		Width:  1024,
		Height: 768,
		URL:    "/assets/sample.png",
	}
}
