// Package editor composes the geometry kernel, viewport, interaction machine
// and history into one editing session for a single image at a time.
//
// The Editor owns the document, transform and history. All state is behind
// one mutex, so host events and completions of background I/O are applied
// one at a time in the order they acquire it. Responses that belong to a
// previous image are recognised by a generation counter and dropped.
// Notices raised while the mutex is held are delivered after it is released.
package editor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/spheroseg/segeditor/internal/document"
	"github.com/spheroseg/segeditor/internal/geometry"
	"github.com/spheroseg/segeditor/internal/history"
	"github.com/spheroseg/segeditor/internal/interact"
	"github.com/spheroseg/segeditor/internal/notice"
	"github.com/spheroseg/segeditor/internal/render"
	"github.com/spheroseg/segeditor/internal/viewport"
)

type Editor struct {
	mu sync.Mutex

	opts     Options
	deps     Deps
	logger   *slog.Logger
	notifier notice.Notifier
	kernel   geometry.Kernel

	hist    *history.Manager
	machine *interact.Machine

	imageID   string
	image     document.ImageMeta
	transform viewport.Transform
	canvasW   float64
	canvasH   float64
	status    Status

	// gen increases whenever the subject changes; subject is cancelled at
	// the same time.
	gen     uint64
	subject context.Context
	cancel  context.CancelFunc
	closed  bool

	// queued notices are delivered by unlock once e.mu is released.
	queued []queuedNotice
}

type queuedNotice struct {
	level   notice.Level
	message string
}

func New(opts Options, deps Deps) *Editor {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.PollAttempts <= 0 {
		opts.PollAttempts = DefaultOptions().PollAttempts
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultOptions().PollInterval
	}
	if opts.Interaction.Limits.MaxZoom <= 0 {
		opts.Interaction.Limits = viewport.DefaultLimits()
	}

	kernel := deps.Kernel
	if kernel == nil {
		sw := geometry.NewSwitch(logger)
		sw.Load(context.Background(), geometry.LoadNative)
		kernel = sw
	}

	subject, cancel := context.WithCancel(context.Background())
	e := &Editor{
		opts:      opts,
		deps:      deps,
		logger:    logger,
		notifier:  notice.Safe(deps.Notifier),
		kernel:    kernel,
		hist:      history.New(opts.HistoryLimit),
		transform: viewport.Default(),
		subject:   subject,
		cancel:    cancel,
	}
	e.machine = interact.New(host{e}, opts.Interaction, logger)
	return e
}

// --- Queries ---

// Document returns a copy of the working document, or nil before a load.
func (e *Editor) Document() *document.Document {
	e.mu.Lock()
	defer e.unlock()
	return e.hist.Working()
}

func (e *Editor) Image() document.ImageMeta {
	e.mu.Lock()
	defer e.unlock()
	return e.image
}

func (e *Editor) Transform() viewport.Transform {
	e.mu.Lock()
	defer e.unlock()
	return e.transform
}

func (e *Editor) Mode() interact.Mode {
	e.mu.Lock()
	defer e.unlock()
	return e.machine.Mode()
}

func (e *Editor) SelectedPolygonID() string {
	e.mu.Lock()
	defer e.unlock()
	return e.machine.Selected()
}

func (e *Editor) Interaction() interact.State {
	e.mu.Lock()
	defer e.unlock()
	return e.machine.State()
}

func (e *Editor) Status() Status {
	e.mu.Lock()
	defer e.unlock()
	return e.status
}

func (e *Editor) CanUndo() bool {
	e.mu.Lock()
	defer e.unlock()
	return e.hist.CanUndo()
}

func (e *Editor) CanRedo() bool {
	e.mu.Lock()
	defer e.unlock()
	return e.hist.CanRedo()
}

// HistoryLen is the number of committed entries.
func (e *Editor) HistoryLen() int {
	e.mu.Lock()
	defer e.unlock()
	return e.hist.Len()
}

// Kernel is the geometry kernel in use.
func (e *Editor) Kernel() geometry.Kernel { return e.kernel }

// Render compiles the current frame.
func (e *Editor) Render(style render.Style) []render.DrawCommand {
	e.mu.Lock()
	defer e.unlock()
	return render.Compile(render.Scene{
		Image:     e.image,
		Document:  e.hist.Working(),
		Transform: e.transform,
		Mode:      e.machine.Mode(),
		Selected:  e.machine.Selected(),
		State:     e.machine.State(),
	}, style)
}

// --- Commands ---

// HandleEvent feeds one input event to the interaction machine. It reports
// whether the frame should be redrawn.
func (e *Editor) HandleEvent(ev interact.Event) bool {
	e.mu.Lock()
	defer e.unlock()
	if e.closed || e.hist.Working() == nil {
		return false
	}
	return e.machine.Handle(ev)
}

func (e *Editor) OnPointerDown(x, y float64, button interact.Button, mods interact.Modifiers) bool {
	return e.HandleEvent(interact.PointerDown{X: x, Y: y, Button: button, Modifiers: mods})
}

func (e *Editor) OnPointerMove(x, y float64, mods interact.Modifiers) bool {
	return e.HandleEvent(interact.PointerMove{X: x, Y: y, Modifiers: mods})
}

func (e *Editor) OnPointerUp(x, y float64, button interact.Button, mods interact.Modifiers) bool {
	return e.HandleEvent(interact.PointerUp{X: x, Y: y, Button: button, Modifiers: mods})
}

func (e *Editor) OnWheel(x, y, deltaY float64, mods interact.Modifiers) bool {
	return e.HandleEvent(interact.Wheel{X: x, Y: y, DeltaY: deltaY, Modifiers: mods})
}

func (e *Editor) OnKey(key string, mods interact.Modifiers) bool {
	return e.HandleEvent(interact.KeyDown{Key: key, Modifiers: mods})
}

func (e *Editor) SetMode(m interact.Mode) {
	e.mu.Lock()
	defer e.unlock()
	e.machine.SetMode(m)
}

// SelectPolygon selects id, or clears the selection when id is empty.
func (e *Editor) SelectPolygon(id string) error {
	e.mu.Lock()
	defer e.unlock()
	if id != "" {
		doc := e.hist.Working()
		if doc == nil || doc.IndexOf(id) < 0 {
			return document.ErrPolygonNotFound
		}
	}
	e.machine.Select(id)
	return nil
}

func (e *Editor) Undo() bool {
	return e.HandleEvent(interact.KeyDown{Key: "z", Modifiers: interact.Modifiers{Ctrl: true}})
}

func (e *Editor) Redo() bool {
	return e.HandleEvent(interact.KeyDown{Key: "y", Modifiers: interact.Modifiers{Ctrl: true}})
}

// Resize refits the image to a new canvas size.
func (e *Editor) Resize(canvasW, canvasH float64) {
	e.mu.Lock()
	defer e.unlock()
	e.canvasW, e.canvasH = canvasW, canvasH
	e.fit()
}

func (e *Editor) fit() {
	e.transform = viewport.FitToCanvas(float64(e.image.Width), float64(e.image.Height), e.canvasW, e.canvasH, e.opts.Interaction.Limits)
}

// Close cancels background work and rejects further events.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.gen++
	e.cancel()
	e.logger.Debug("editor closed", "image", e.imageID)
}

// notify queues a notice for delivery after the lock is released, so the
// notifier may call back into the editor. Must hold e.mu.
func (e *Editor) notify(level notice.Level, message string) {
	e.queued = append(e.queued, queuedNotice{level: level, message: message})
}

// unlock releases e.mu and then delivers the queued notices in order.
func (e *Editor) unlock() {
	queued := e.queued
	e.queued = nil
	e.mu.Unlock()
	for _, n := range queued {
		e.notifier.Notify(n.level, n.message)
	}
}

func (e *Editor) changed() {
	if e.deps.OnChange != nil {
		e.deps.OnChange()
	}
}

// host adapts the editor to interact.Host. Its methods run with e.mu held.
type host struct{ e *Editor }

func (h host) Document() *document.Document {
	if doc := h.e.hist.Working(); doc != nil {
		return doc
	}
	return document.NewEmptyDocument(h.e.imageID)
}

func (h host) Transform() viewport.Transform { return h.e.transform }

func (h host) SetTransform(t viewport.Transform) {
	t.Zoom = h.e.opts.Interaction.Limits.Clamp(t.Zoom)
	h.e.transform = t
}

func (h host) Kernel() geometry.Kernel { return h.e.kernel }

func (h host) CommitLive(doc *document.Document) { h.e.hist.CommitWithoutHistory(doc) }

func (h host) Commit(action string, doc *document.Document) bool {
	ok := h.e.hist.Commit(action, doc)
	if ok {
		h.e.logger.Debug("history commit", "action", action, "entries", h.e.hist.Len())
	}
	return ok
}

func (h host) Undo() bool {
	_, ok := h.e.hist.Undo()
	return ok
}

func (h host) Redo() bool {
	_, ok := h.e.hist.Redo()
	return ok
}

func (h host) Notify(level notice.Level, message string) {
	h.e.notify(level, message)
}
