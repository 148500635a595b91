package render

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spheroseg/segeditor/internal/document"
	"github.com/spheroseg/segeditor/internal/interact"
	"github.com/spheroseg/segeditor/internal/viewport"
)

func scene() Scene {
	doc := document.NewEmptyDocument("img_1")
	doc.Polygons = []document.Polygon{
		{ID: "poly_a", Kind: document.KindExternal, Points: []document.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}},
		{ID: "poly_b", Kind: document.KindInternal, Points: []document.Point{{X: 2, Y: 2}, {X: 4, Y: 2}, {X: 4, Y: 4}}},
	}
	return Scene{
		Image:     document.ImageMeta{ID: "img_1", Width: 100, Height: 50, URL: "/img.png"},
		Document:  doc,
		Transform: viewport.Transform{Zoom: 2, TranslateX: 5},
		State:     interact.New(nil, interact.DefaultOptions(), nil).State(),
	}
}

func ops(cmds []DrawCommand) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.Op + ":" + c.ObjectID
	}
	return out
}

func TestCompileView(t *testing.T) {
	cmds := Compile(scene(), DefaultStyle())
	assert.Equal(t, []string{"image:img_1", "path:poly_a", "path:poly_b"}, ops(cmds))

	assert.Equal(t, []float64{2, 0, 0, 2, 5, 0}, cmds[0].Transform)
	assert.Equal(t, "#0000ff", cmds[2].Stroke)
	assert.Equal(t, 1.0, cmds[1].StrokeWidth, "stroke width is constant on screen")
	require.Len(t, cmds[1].Path, 4)
	assert.Equal(t, PathCommand{"Z"}, cmds[1].Path[3])
}

func TestCompileHandlesAndDraft(t *testing.T) {
	sc := scene()
	sc.Mode = interact.ModeEditVertices
	sc.Selected = "poly_b"
	sc.State.Draft = []document.Point{{X: 1, Y: 1}}
	sc.State.Cursor = document.Point{X: 3, Y: 3}

	cmds := Compile(sc, DefaultStyle())
	assert.Equal(t, []string{
		"image:img_1", "path:poly_a", "path:poly_b",
		"vertex:poly_b", "vertex:poly_b", "vertex:poly_b",
		"path:draft",
	}, ops(cmds))
	assert.Equal(t, DefaultStyle().Highlight, cmds[2].Stroke)
	assert.Equal(t, 2, cmds[5].Index)
	assert.Len(t, cmds[6].Path, 2)
}

func TestCompileNoHandlesInView(t *testing.T) {
	sc := scene()
	sc.Selected = "poly_a"
	sc.Document = nil
	assert.Equal(t, []string{"image:img_1"}, ops(Compile(sc, DefaultStyle())))
}

func TestToJSON(t *testing.T) {
	s, err := ToJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", s)

	s, err = ToJSON(Compile(scene(), DefaultStyle()))
	require.NoError(t, err)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &decoded))
	assert.Equal(t, "image", decoded[0]["op"])
	assert.Equal(t, "/img.png", decoded[0]["imageUrl"])
}
