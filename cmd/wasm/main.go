//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"syscall/js"

	"github.com/spheroseg/segeditor/internal/api"
	"github.com/spheroseg/segeditor/internal/document"
	"github.com/spheroseg/segeditor/internal/editor"
	"github.com/spheroseg/segeditor/internal/interact"
	"github.com/spheroseg/segeditor/internal/notice"
	"github.com/spheroseg/segeditor/internal/render"
)

var (
	ed    *editor.Editor
	style = render.DefaultStyle()

	errMissingArgs = errors.New("missing arguments")
)

func main() {
	logger := slog.New(slog.NewTextHandler(consoleWriter{}, &slog.HandlerOptions{Level: slog.LevelInfo}))
	deps := editor.Deps{
		Logger:   logger,
		Notifier: notice.Func(notify),
		OnChange: func() { callHook("segEditorOnChange") },
	}
	if base := js.Global().Get("segEditorAPIBase"); base.Type() == js.TypeString {
		token := js.Global().Get("segEditorAPIToken")
		var ts api.TokenSource = api.StaticToken("")
		if token.Type() == js.TypeString {
			ts = api.StaticToken(token.String())
		}
		c := api.NewClient(base.String(), api.WithTokenSource(ts), api.WithLogger(logger))
		deps.Documents, deps.Images, deps.Resegmenter = c, c, c
	}
	ed = editor.New(editor.DefaultOptions(), deps)

	segEditor := js.Global().Get("Object").New()

	// --- Commands (frontend → editor) ---
	segEditor.Set("load", js.FuncOf(load))
	segEditor.Set("loadSample", js.FuncOf(loadSample))
	segEditor.Set("pointerDown", js.FuncOf(pointerDown))
	segEditor.Set("pointerMove", js.FuncOf(pointerMove))
	segEditor.Set("pointerUp", js.FuncOf(pointerUp))
	segEditor.Set("wheel", js.FuncOf(wheel))
	segEditor.Set("keyDown", js.FuncOf(keyDown))
	segEditor.Set("setMode", js.FuncOf(setMode))
	segEditor.Set("selectPolygon", js.FuncOf(selectPolygon))
	segEditor.Set("undo", js.FuncOf(func(js.Value, []js.Value) interface{} { return ed.Undo() }))
	segEditor.Set("redo", js.FuncOf(func(js.Value, []js.Value) interface{} { return ed.Redo() }))
	segEditor.Set("resize", js.FuncOf(resize))
	segEditor.Set("save", js.FuncOf(save))
	segEditor.Set("resegment", js.FuncOf(resegment))

	// --- Queries (frontend ← editor) ---
	segEditor.Set("render", js.FuncOf(renderFrame))
	segEditor.Set("getDocument", js.FuncOf(getDocument))
	segEditor.Set("getTransform", js.FuncOf(func(js.Value, []js.Value) interface{} { return toJSON(ed.Transform()) }))
	segEditor.Set("getMode", js.FuncOf(func(js.Value, []js.Value) interface{} { return ed.Mode().String() }))
	segEditor.Set("getSelection", js.FuncOf(func(js.Value, []js.Value) interface{} { return ed.SelectedPolygonID() }))
	segEditor.Set("getStatus", js.FuncOf(func(js.Value, []js.Value) interface{} { return toJSON(ed.Status()) }))
	segEditor.Set("canUndo", js.FuncOf(func(js.Value, []js.Value) interface{} { return ed.CanUndo() }))
	segEditor.Set("canRedo", js.FuncOf(func(js.Value, []js.Value) interface{} { return ed.CanRedo() }))

	js.Global().Set("segEditor", segEditor)
	js.Global().Set("segEditorWasmReady", js.ValueOf(true))

	select {}
}

// --- Command Handlers ---

func result(err error) interface{} {
	if err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

// async runs fn off the JS thread and settles the returned promise.
func async(fn func(ctx context.Context) error) interface{} {
	var executor js.Func
	executor = js.FuncOf(func(_ js.Value, args []js.Value) interface{} {
		resolve := args[0]
		go func() {
			defer executor.Release()
			resolve.Invoke(result(fn(context.Background())))
		}()
		return nil
	})
	return js.Global().Get("Promise").New(executor)
}

// load(imageId, canvasWidth, canvasHeight) returns a promise.
func load(_ js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return result(errMissingArgs)
	}
	id, w, h := args[0].String(), args[1].Float(), args[2].Float()
	return async(func(ctx context.Context) error { return ed.Load(ctx, id, w, h) })
}

func loadSample(_ js.Value, args []js.Value) interface{} {
	w, h := 1024.0, 768.0
	if len(args) >= 2 {
		w, h = args[0].Float(), args[1].Float()
	}
	const id = "img_sample"
	ed.LoadDocument(document.SampleImage(id), document.NewSampleDocument(id), w, h)
	return result(nil)
}

func modifiers(args []js.Value, i int) interact.Modifiers {
	if len(args) <= i || args[i].Type() != js.TypeObject {
		return interact.Modifiers{}
	}
	m := args[i]
	return interact.Modifiers{
		Shift: m.Get("shift").Truthy(),
		Ctrl:  m.Get("ctrl").Truthy(),
		Meta:  m.Get("meta").Truthy(),
		Alt:   m.Get("alt").Truthy(),
	}
}

// pointerDown(x, y, button, modifiers)
func pointerDown(_ js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return false
	}
	return ed.OnPointerDown(args[0].Float(), args[1].Float(), interact.Button(args[2].Int()), modifiers(args, 3))
}

// pointerMove(x, y, modifiers)
func pointerMove(_ js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return false
	}
	return ed.OnPointerMove(args[0].Float(), args[1].Float(), modifiers(args, 2))
}

// pointerUp(x, y, button, modifiers)
func pointerUp(_ js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return false
	}
	return ed.OnPointerUp(args[0].Float(), args[1].Float(), interact.Button(args[2].Int()), modifiers(args, 3))
}

// wheel(x, y, deltaY, modifiers)
func wheel(_ js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return false
	}
	return ed.OnWheel(args[0].Float(), args[1].Float(), args[2].Float(), modifiers(args, 3))
}

// keyDown(key, modifiers)
func keyDown(_ js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return false
	}
	return ed.OnKey(args[0].String(), modifiers(args, 1))
}

func setMode(_ js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return result(errMissingArgs)
	}
	mode, err := interact.ParseMode(args[0].String())
	if err != nil {
		return result(err)
	}
	ed.SetMode(mode)
	return result(nil)
}

func selectPolygon(_ js.Value, args []js.Value) interface{} {
	id := ""
	if len(args) > 0 && args[0].Type() == js.TypeString {
		id = args[0].String()
	}
	return result(ed.SelectPolygon(id))
}

func resize(_ js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	ed.Resize(args[0].Float(), args[1].Float())
	return nil
}

func save(js.Value, []js.Value) interface{} {
	return async(ed.Save)
}

func resegment(js.Value, []js.Value) interface{} {
	return async(ed.Resegment)
}

// --- Query Handlers ---

func renderFrame(js.Value, []js.Value) interface{} {
	out, err := render.ToJSON(ed.Render(style))
	if err != nil {
		slog.Error("render", "error", err)
	}
	return js.ValueOf(out)
}

func getDocument(js.Value, []js.Value) interface{} {
	doc := ed.Document()
	if doc == nil {
		return js.Null()
	}
	return toJSON(doc)
}

func toJSON(v any) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return js.ValueOf("{}")
	}
	return js.ValueOf(string(data))
}

// --- Host hooks ---

func notify(level notice.Level, message string) {
	callHook("segEditorNotify", string(level), message)
}

func callHook(name string, args ...interface{}) {
	if fn := js.Global().Get(name); fn.Type() == js.TypeFunction {
		fn.Invoke(args...)
	}
}

type consoleWriter struct{}

func (consoleWriter) Write(p []byte) (int, error) {
	js.Global().Get("console").Call("log", string(p))
	return len(p), nil
}
