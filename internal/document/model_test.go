package document

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tri(id string) Polygon {
	return Polygon{ID: id, Kind: KindExternal, Points: []Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 0, Y: 3}}}
}

func TestCloneIsIndependent(t *testing.T) {
	doc := NewEmptyDocument("img_1")
	doc.CreatedAt = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, doc.Append(tri("poly_a")))

	cp := doc.Clone()
	cp.Polygons[0].Points[0].X = 99
	cp.Polygons[0].Class = "changed"

	assert.Equal(t, 0.0, doc.Polygons[0].Points[0].X)
	assert.Empty(t, doc.Polygons[0].Class)
	assert.Equal(t, doc.CreatedAt, cp.CreatedAt)
	assert.Nil(t, (*Document)(nil).Clone())
}

func TestAppendRejectsInvalid(t *testing.T) {
	doc := NewEmptyDocument("img_1")
	require.NoError(t, doc.Append(tri("poly_a")))

	assert.ErrorIs(t, doc.Append(tri("poly_a")), ErrDuplicatePolygon)
	short := Polygon{ID: "poly_b", Points: []Point{{X: 0, Y: 0}, {X: 1, Y: 1}}}
	assert.ErrorIs(t, doc.Append(short), ErrTooFewPoints)
	assert.Len(t, doc.Polygons, 1)
}

func TestReplaceKeepsOrder(t *testing.T) {
	doc := NewEmptyDocument("img_1")
	for _, id := range []string{"poly_a", "poly_b", "poly_c"} {
		require.NoError(t, doc.Append(tri(id)))
	}

	require.NoError(t, doc.Replace("poly_b", tri("poly_x"), tri("poly_y")))
	ids := make([]string, 0, len(doc.Polygons))
	for _, p := range doc.Polygons {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"poly_a", "poly_x", "poly_y", "poly_c"}, ids)

	require.NoError(t, doc.Remove("poly_a"))
	assert.Equal(t, 0, doc.IndexOf("poly_x"))
	assert.ErrorIs(t, doc.Remove("poly_a"), ErrPolygonNotFound)
}

func TestVertexEdits(t *testing.T) {
	doc := NewEmptyDocument("img_1")
	require.NoError(t, doc.Append(tri("poly_a")))

	require.NoError(t, doc.MoveVertex("poly_a", 1, Point{X: 5, Y: 5}))
	assert.Equal(t, Point{X: 5, Y: 5}, doc.Polygons[0].Points[1])
	assert.Error(t, doc.MoveVertex("poly_a", 3, Point{}))

	assert.ErrorIs(t, doc.SetPoints("poly_a", []Point{{X: 1, Y: 1}}), ErrTooFewPoints)
	require.NoError(t, doc.SetPoints("poly_a", []Point{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 2, Y: 2}, {X: 1, Y: 2}}))
	assert.Equal(t, 4, doc.PointCount())
}

func TestJSONShape(t *testing.T) {
	doc := NewEmptyDocument("img_1")
	require.NoError(t, doc.Append(tri("poly_a")))

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	polys := raw["polygons"].([]any)
	first := polys[0].(map[string]any)
	assert.Equal(t, "external", first["type"])
	assert.Len(t, first["points"], 3)
}

func TestSampleDocumentIsValid(t *testing.T) {
	doc := NewSampleDocument("img_sample")
	require.NoError(t, doc.Validate())
	assert.NotEmpty(t, doc.Polygons)
	assert.Positive(t, SampleImage("img_sample").Width)
}
