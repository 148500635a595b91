// Package interact turns pointer and keyboard events into edits of the
// segmentation document.
//
// The Machine owns only the edit mode, the selection and the transient
// State. The document, transform and history belong to the Host; the
// machine reads a copy of the document for every event and hands mutated
// copies back through CommitLive (intermediate gesture frames) or Commit
// (one entry per finished gesture).
package interact

import (
	"log/slog"
	"strings"

	"github.com/spheroseg/segeditor/internal/document"
	"github.com/spheroseg/segeditor/internal/geometry"
	"github.com/spheroseg/segeditor/internal/notice"
	"github.com/spheroseg/segeditor/internal/viewport"
)

// Host is implemented by the editor.
type Host interface {
	// Document returns a copy of the working document that the machine may
	// modify freely.
	Document() *document.Document
	Transform() viewport.Transform
	SetTransform(t viewport.Transform)
	Kernel() geometry.Kernel
	CommitLive(doc *document.Document)
	Commit(action string, doc *document.Document) bool
	Undo() bool
	Redo() bool
	Notify(level notice.Level, message string)
}

// Options are the screen-space hit radii and zoom limits.
type Options struct {
	VertexRadius float64
	CloseRadius  float64
	EdgeRadius   float64
	Limits       viewport.Limits
}

func DefaultOptions() Options {
	return Options{VertexRadius: 8, CloseRadius: 10, EdgeRadius: 6, Limits: viewport.DefaultLimits()}
}

type Machine struct {
	host     Host
	opts     Options
	logger   *slog.Logger
	mode     Mode
	selected string
	state    State
}

func New(host Host, opts Options, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Machine{host: host, opts: opts, logger: logger, state: neutralState()}
}

func (m *Machine) Mode() Mode { return m.mode }

func (m *Machine) Selected() string { return m.selected }

func (m *Machine) State() State { return m.state.Clone() }

// SetMode enters mode, resetting the transient state. Entering View or
// CreatePolygon also clears the selection.
func (m *Machine) SetMode(mode Mode) {
	m.cancelDrag()
	if mode != m.mode {
		m.logger.Debug("mode changed", "from", m.mode, "to", mode)
	}
	m.mode = mode
	m.state = neutralState()
	if mode.clearsSelection() {
		m.selected = ""
	}
}

// Select sets the selected polygon without changing mode. An empty id
// clears the selection.
func (m *Machine) Select(id string) {
	m.selected = id
}

// Reset returns to View with nothing selected, as after loading a new
// document.
func (m *Machine) Reset() {
	m.state = neutralState()
	m.mode = ModeView
	m.selected = ""
}

// Handle dispatches one event. It reports whether anything a renderer
// draws may have changed.
func (m *Machine) Handle(ev Event) bool {
	switch ev := ev.(type) {
	case PointerDown:
		return m.pointerDown(ev)
	case PointerMove:
		return m.pointerMove(ev)
	case PointerUp:
		return m.pointerUp(ev)
	case Wheel:
		m.host.SetTransform(viewport.Wheel(m.host.Transform(), ev.X, ev.Y, ev.DeltaY, m.opts.Limits))
		return true
	case KeyDown:
		return m.keyDown(ev)
	case KeyUp:
		return false
	default:
		return false
	}
}

func (m *Machine) toImage(x, y float64) document.Point {
	return viewport.ToImageSpace(x, y, m.host.Transform())
}

func (m *Machine) pointerDown(ev PointerDown) bool {
	p := m.toImage(ev.X, ev.Y)
	m.state.Cursor = p
	if ev.Button != ButtonPrimary {
		m.startPan(ev.X, ev.Y)
		return false
	}

	switch m.mode {
	case ModeView:
		return m.viewDown(ev, p)
	case ModeCreatePolygon:
		return m.createDown(p)
	case ModeEditVertices:
		return m.editDown(ev, p)
	case ModeAddPoints:
		return m.addPointsDown(p)
	case ModeSlice:
		return m.sliceDown(p)
	case ModeDeletePolygon:
		return m.deleteDown(p)
	}
	return false
}

func (m *Machine) pointerMove(ev PointerMove) bool {
	p := m.toImage(ev.X, ev.Y)
	m.state.Cursor = p

	if m.state.Panning {
		dx, dy := ev.X-m.state.PanX, ev.Y-m.state.PanY
		m.state.PanX, m.state.PanY = ev.X, ev.Y
		m.host.SetTransform(viewport.Pan(m.host.Transform(), dx, dy))
		return true
	}

	doc := m.host.Document()
	if d := m.state.Drag; d != nil {
		if err := doc.MoveVertex(d.PolygonID, d.Index, p); err != nil {
			m.logger.Warn("drag target vanished", "polygon", d.PolygonID, "error", err)
			m.state.Drag = nil
			return false
		}
		m.host.CommitLive(doc)
		return true
	}

	prev := m.state.Hover
	m.state.Hover = m.hoverAt(doc, p)
	drafting := len(m.state.Draft) > 0 || m.state.SliceStart != nil
	return drafting || prev != m.state.Hover
}

func (m *Machine) pointerUp(PointerUp) bool {
	if m.state.Panning {
		m.state.Panning = false
		return false
	}
	d := m.state.Drag
	if d == nil {
		return false
	}
	m.state.Drag = nil
	if m.host.Commit("move vertex", m.host.Document()) {
		m.logger.Debug("vertex moved", "polygon", d.PolygonID, "index", d.Index)
	}
	return true
}

func (m *Machine) startPan(x, y float64) {
	m.state.Panning = true
	m.state.PanX, m.state.PanY = x, y
}

// cancelDrag restores the dragged vertex to where the gesture began.
func (m *Machine) cancelDrag() {
	d := m.state.Drag
	if d == nil {
		return
	}
	m.state.Drag = nil
	doc := m.host.Document()
	if err := doc.MoveVertex(d.PolygonID, d.Index, d.Origin); err == nil {
		m.host.CommitLive(doc)
	}
}

func (m *Machine) keyDown(ev KeyDown) bool {
	key := ev.Key
	if len(key) == 1 {
		key = strings.ToLower(key)
	}

	if ev.Command() {
		switch key {
		case "z":
			if ev.Shift {
				return m.redo()
			}
			return m.undo()
		case "y":
			return m.redo()
		}
		return false
	}

	switch key {
	case "Escape":
		m.SetMode(ModeView)
		return true
	case "Enter":
		if m.mode == ModeCreatePolygon {
			return m.closeDraft()
		}
	case "Backspace":
		if m.mode == ModeCreatePolygon && len(m.state.Draft) > 0 {
			m.state.Draft = m.state.Draft[:len(m.state.Draft)-1]
			return true
		}
		fallthrough
	case "Delete":
		if m.mode == ModeEditVertices && m.selected != "" {
			return m.deleteSelected()
		}
	default:
		if mode, ok := shortcuts[key]; ok && !ev.Alt {
			m.SetMode(mode)
			return true
		}
	}
	return false
}

func (m *Machine) undo() bool {
	m.cancelDrag()
	if !m.host.Undo() {
		return false
	}
	m.afterHistoryMove()
	return true
}

func (m *Machine) redo() bool {
	m.cancelDrag()
	if !m.host.Redo() {
		return false
	}
	m.afterHistoryMove()
	return true
}

// afterHistoryMove drops references into polygons that no longer exist.
func (m *Machine) afterHistoryMove() {
	doc := m.host.Document()
	if m.selected != "" && doc.IndexOf(m.selected) < 0 {
		m.selected = ""
	}
	m.state = neutralState()
}

func (m *Machine) deleteSelected() bool {
	doc := m.host.Document()
	id := m.selected
	if err := doc.Remove(id); err != nil {
		m.selected = ""
		return false
	}
	m.host.Commit("delete polygon", doc)
	m.selected = ""
	m.state = neutralState()
	return true
}
