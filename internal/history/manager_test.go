package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spheroseg/segeditor/internal/document"
)

func testDoc() *document.Document {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &document.Document{
		ImageID: "img_1",
		Status:  document.StatusCompleted,
		Polygons: []document.Polygon{{
			ID:     "poly_a",
			Points: []document.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}},
			Kind:   document.KindExternal,
		}},
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

func TestInitialState(t *testing.T) {
	m := New(0)
	assert.Equal(t, -1, m.Cursor())
	assert.Nil(t, m.Working())
	assert.False(t, m.CanUndo())
	assert.False(t, m.CanRedo())

	m.Init(testDoc())
	assert.Equal(t, 0, m.Cursor())
	assert.Equal(t, 1, m.Len())
	assert.False(t, m.CanUndo())
	assert.False(t, m.CanRedo())
}

func TestUndoRoundTrip(t *testing.T) {
	orig := testDoc()
	m := New(0)
	m.Init(orig)

	const n = 5
	doc := orig.Clone()
	for i := 1; i <= n; i++ {
		require.NoError(t, doc.MoveVertex("poly_a", 0, document.Point{X: float64(i), Y: float64(i)}))
		require.True(t, m.Commit("move vertex", doc))
	}
	assert.Equal(t, n+1, m.Len())

	var got *document.Document
	for i := 0; i < n; i++ {
		var ok bool
		got, ok = m.Undo()
		require.True(t, ok)
	}
	assert.Equal(t, orig, got)
	assert.Equal(t, orig, m.Working())

	_, ok := m.Undo()
	assert.False(t, ok, "undo at entry 0 is a no-op")
	assert.True(t, m.CanRedo())

	redone, ok := m.Redo()
	require.True(t, ok)
	assert.Equal(t, document.Point{X: 1, Y: 1}, redone.Polygons[0].Points[0])
}

func TestCommitSkipsIdenticalContent(t *testing.T) {
	m := New(0)
	m.Init(testDoc())

	same := testDoc()
	same.UpdatedAt = time.Now()
	assert.False(t, m.Commit("noop", same))
	assert.Equal(t, 1, m.Len())
}

func TestCommitTruncatesRedo(t *testing.T) {
	m := New(0)
	m.Init(testDoc())

	a := testDoc()
	require.NoError(t, a.MoveVertex("poly_a", 1, document.Point{X: 20, Y: 0}))
	m.Commit("a", a)
	b := a.Clone()
	require.NoError(t, b.MoveVertex("poly_a", 2, document.Point{X: 20, Y: 20}))
	m.Commit("b", b)

	_, ok := m.Undo()
	require.True(t, ok)
	require.True(t, m.CanRedo())

	c := a.Clone()
	require.NoError(t, c.Remove("poly_a"))
	require.True(t, m.Commit("c", c))
	assert.False(t, m.CanRedo())
	assert.Equal(t, 3, m.Len())
	assert.Equal(t, "c", m.UndoAction())
}

func TestLiveChangesDoNotAddEntries(t *testing.T) {
	m := New(0)
	m.Init(testDoc())
	rev := m.Revision()

	doc := m.Working()
	for i := 0; i < 25; i++ {
		require.NoError(t, doc.MoveVertex("poly_a", 0, document.Point{X: float64(i), Y: 0}))
		m.CommitWithoutHistory(doc)
	}
	assert.Equal(t, 1, m.Len())
	assert.Greater(t, m.Revision(), rev)
	assert.Equal(t, 24.0, m.Working().Polygons[0].Points[0].X)

	assert.True(t, m.Commit("drag", doc))
	assert.Equal(t, 2, m.Len())
}

func TestSnapshotsAreIsolated(t *testing.T) {
	m := New(0)
	doc := testDoc()
	m.Init(doc)
	doc.Polygons[0].Points[0].X = 99

	w := m.Working()
	assert.Equal(t, 0.0, w.Polygons[0].Points[0].X)
	w.Polygons[0].Points[0].X = 42
	assert.Equal(t, 0.0, m.Working().Polygons[0].Points[0].X)
}

func TestMaxEntriesDropsOldest(t *testing.T) {
	m := New(3)
	m.Init(testDoc())
	doc := testDoc()
	for i := 1; i <= 5; i++ {
		require.NoError(t, doc.MoveVertex("poly_a", 0, document.Point{X: float64(i)}))
		m.Commit("move", doc)
	}
	assert.Equal(t, 3, m.Len())
	assert.Equal(t, 2, m.Cursor())

	first, ok := m.Undo()
	require.True(t, ok)
	assert.Equal(t, 4.0, first.Polygons[0].Points[0].X)
}

func TestResetAndCommitBeforeInit(t *testing.T) {
	m := New(0)
	assert.True(t, m.Commit("first", testDoc()))
	assert.Equal(t, 0, m.Cursor())
	m.Reset()
	assert.Equal(t, 0, m.Len())
	assert.Nil(t, m.Working())
}

func TestHashIgnoresTimestamps(t *testing.T) {
	a, b := testDoc(), testDoc()
	b.UpdatedAt = b.UpdatedAt.Add(time.Hour)
	b.Status = document.StatusProcessing
	assert.Equal(t, Hash(a), Hash(b))

	b.Polygons[0].Class = "spheroid"
	assert.NotEqual(t, Hash(a), Hash(b))
}
