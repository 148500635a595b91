// Package render compiles editor state into a flat list of draw commands
// for a Canvas2D frontend. It only reads the scene it is given.
package render

import (
	"encoding/json"

	"github.com/spheroseg/segeditor/internal/document"
	"github.com/spheroseg/segeditor/internal/interact"
	"github.com/spheroseg/segeditor/internal/viewport"
)

// PathCommand is one canvas path instruction: ["M", x, y], ["L", x, y] or ["Z"].
type PathCommand []interface{}

// DrawCommand is a single drawing operation. Coordinates are in image space;
// Transform maps them to canvas pixels.
type DrawCommand struct {
	Op          string        `json:"op"` // "image", "path", "vertex"
	ObjectID    string        `json:"objectId,omitempty"`
	Transform   []float64     `json:"transform,omitempty"`
	Path        []PathCommand `json:"path,omitempty"`
	Fill        string        `json:"fill,omitempty"`
	Stroke      string        `json:"stroke,omitempty"`
	StrokeWidth float64       `json:"strokeWidth,omitempty"`
	Dash        []float64     `json:"dash,omitempty"`
	Opacity     float64       `json:"opacity,omitempty"`
	X           float64       `json:"x,omitempty"`
	Y           float64       `json:"y,omitempty"`
	Radius      float64       `json:"radius,omitempty"`
	Index       int           `json:"index,omitempty"`
	ImageURL    string        `json:"imageUrl,omitempty"`
	ImageWidth  float64       `json:"imageWidth,omitempty"`
	ImageHeight float64       `json:"imageHeight,omitempty"`
}

// Scene is everything a frame depends on.
type Scene struct {
	Image     document.ImageMeta
	Document  *document.Document
	Transform viewport.Transform
	Mode      interact.Mode
	Selected  string
	State     interact.State
}

// Style holds colours and screen-space sizes.
type Style struct {
	ExternalFill   string
	ExternalStroke string
	InternalFill   string
	InternalStroke string
	Highlight      string
	Vertex         string
	VertexActive   string
	Draft          string
	SliceLine      string
	StrokeWidth    float64
	VertexRadius   float64
}

func DefaultStyle() Style {
	return Style{
		ExternalFill:   "rgba(255, 0, 0, 0.2)",
		ExternalStroke: "#ff0000",
		InternalFill:   "rgba(0, 0, 255, 0.2)",
		InternalStroke: "#0000ff",
		Highlight:      "#ffcc00",
		Vertex:         "#ffffff",
		VertexActive:   "#ffcc00",
		Draft:          "#00c853",
		SliceLine:      "#ff6d00",
		StrokeWidth:    2,
		VertexRadius:   5,
	}
}

// Compile emits commands in painter's order: image, polygons, vertex
// handles, then the in-progress draft or slice guide.
func Compile(sc Scene, style Style) []DrawCommand {
	tr := sc.Transform
	if tr.Zoom <= 0 {
		tr.Zoom = 1
	}
	m := tr.Matrix().ToSlice()
	px := func(v float64) float64 { return viewport.HitRadius(v, tr) }

	var cmds []DrawCommand
	if sc.Image.Width > 0 && sc.Image.Height > 0 {
		cmds = append(cmds, DrawCommand{
			Op:          "image",
			ObjectID:    sc.Image.ID,
			Transform:   m,
			ImageURL:    sc.Image.URL,
			ImageWidth:  float64(sc.Image.Width),
			ImageHeight: float64(sc.Image.Height),
			Opacity:     1,
		})
	}
	if sc.Document == nil {
		return cmds
	}

	hover := sc.State.Hover
	for _, p := range sc.Document.Polygons {
		if len(p.Points) == 0 {
			continue
		}
		fill, stroke := style.ExternalFill, style.ExternalStroke
		if p.Kind == document.KindInternal {
			fill, stroke = style.InternalFill, style.InternalStroke
		}
		width := style.StrokeWidth
		if p.ID == sc.Selected || p.ID == hover.PolygonID {
			stroke = style.Highlight
			width *= 1.5
		}
		cmds = append(cmds, DrawCommand{
			Op:          "path",
			ObjectID:    p.ID,
			Transform:   m,
			Path:        ringPath(p.Points, true),
			Fill:        fill,
			Stroke:      stroke,
			StrokeWidth: px(width),
			Opacity:     1,
		})
	}

	if showsHandles(sc.Mode) {
		if sel, ok := sc.Document.Find(sc.Selected); ok {
			for i, v := range sel.Points {
				color := style.Vertex
				active := (hover.PolygonID == sel.ID && hover.VertexIndex == i) ||
					(sc.State.Drag != nil && sc.State.Drag.Index == i) ||
					sc.State.AddStart == i
				if active {
					color = style.VertexActive
				}
				cmds = append(cmds, DrawCommand{
					Op:          "vertex",
					ObjectID:    sel.ID,
					Transform:   m,
					X:           v.X,
					Y:           v.Y,
					Index:       i,
					Radius:      px(style.VertexRadius),
					Fill:        color,
					Stroke:      style.ExternalStroke,
					StrokeWidth: px(1),
				})
			}
		}
	}

	if draft := sc.State.Draft; len(draft) > 0 {
		pts := append(append([]document.Point(nil), draft...), sc.State.Cursor)
		cmds = append(cmds, DrawCommand{
			Op:          "path",
			ObjectID:    "draft",
			Transform:   m,
			Path:        ringPath(pts, false),
			Stroke:      style.Draft,
			StrokeWidth: px(style.StrokeWidth),
			Dash:        []float64{px(6), px(4)},
			Opacity:     1,
		})
	}
	if s := sc.State.SliceStart; s != nil {
		cmds = append(cmds, DrawCommand{
			Op:          "path",
			ObjectID:    "slice",
			Transform:   m,
			Path:        ringPath([]document.Point{*s, sc.State.Cursor}, false),
			Stroke:      style.SliceLine,
			StrokeWidth: px(style.StrokeWidth),
			Dash:        []float64{px(8), px(4)},
			Opacity:     1,
		})
	}
	return cmds
}

func showsHandles(m interact.Mode) bool {
	return m == interact.ModeEditVertices || m == interact.ModeAddPoints || m == interact.ModeSlice
}

func ringPath(pts []document.Point, closed bool) []PathCommand {
	path := make([]PathCommand, 0, len(pts)+1)
	for i, p := range pts {
		op := "L"
		if i == 0 {
			op = "M"
		}
		path = append(path, PathCommand{op, p.X, p.Y})
	}
	if closed {
		path = append(path, PathCommand{"Z"})
	}
	return path
}

// ToJSON serializes draw commands for the JS bridge.
func ToJSON(commands []DrawCommand) (string, error) {
	if commands == nil {
		commands = []DrawCommand{}
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
