package interact

import "github.com/spheroseg/segeditor/internal/document"

// Drag is a vertex being moved. Origin is where it was on press.
type Drag struct {
	PolygonID string         `json:"polygonId"`
	Index     int            `json:"vertexIndex"`
	Origin    document.Point `json:"origin"`
}

// Hover is what the pointer is over. Indexes are -1 when unset.
type Hover struct {
	PolygonID   string `json:"polygonId,omitempty"`
	VertexIndex int    `json:"vertexIndex"`
	EdgeIndex   int    `json:"edgeIndex"`
}

// State is the transient, uncommitted part of an interaction. It is reset on
// every mode change.
type State struct {
	Draft      []document.Point `json:"draft"`
	Drag       *Drag            `json:"drag,omitempty"`
	Panning    bool             `json:"panning"`
	PanX, PanY float64          `json:"-"`
	SliceStart *document.Point  `json:"sliceStart,omitempty"`
	AddStart   int              `json:"addStart"`
	AddEnd     int              `json:"addEnd"`
	Hover      Hover            `json:"hover"`
	// Cursor is the last pointer position in image space.
	Cursor document.Point `json:"cursor"`
}

func neutralState() State {
	return State{
		AddStart: -1,
		AddEnd:   -1,
		Hover:    Hover{VertexIndex: -1, EdgeIndex: -1},
	}
}

// Clone copies s so that callers cannot reach the machine's draft slice.
func (s State) Clone() State {
	out := s
	out.Draft = append([]document.Point(nil), s.Draft...)
	if s.Drag != nil {
		d := *s.Drag
		out.Drag = &d
	}
	if s.SliceStart != nil {
		p := *s.SliceStart
		out.SliceStart = &p
	}
	return out
}
