package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spheroseg/segeditor/internal/api/apitest"
	"github.com/spheroseg/segeditor/internal/document"
	"github.com/spheroseg/segeditor/internal/geometry"
	"github.com/spheroseg/segeditor/internal/store"
)

func writeDoc(t *testing.T, polys ...document.Polygon) string {
	t.Helper()
	doc := document.NewEmptyDocument("img_a")
	doc.Polygons = polys
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "seg.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	imageID, useAPI, tolerance, output = "", false, 1, ""
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

var (
	square = document.Polygon{ID: "poly_sq", Kind: document.KindExternal, Points: []document.Point{
		{X: 0, Y: 0}, {X: 5, Y: 0.2}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10},
	}}
	bowtie = document.Polygon{ID: "poly_bow", Points: []document.Point{
		{X: 0, Y: 0}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 10},
	}}
	line = document.Polygon{ID: "poly_line", Points: []document.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}}
)

func TestValidate(t *testing.T) {
	out, err := run(t, "validate", writeDoc(t, square))
	require.NoError(t, err)
	assert.Contains(t, out, "ok: 1 polygons, 5 points")

	out, err = run(t, "validate", writeDoc(t, square, bowtie, line))
	require.Error(t, err)
	assert.Contains(t, out, "poly_bow: 1 self-intersections")
	assert.Contains(t, out, "poly_line: only 2 points")
	assert.NotContains(t, out, "poly_sq")
}

func TestInspectDuplicates(t *testing.T) {
	doc := document.NewEmptyDocument("img_a")
	doc.Polygons = []document.Polygon{square, square}
	issues := Inspect(doc, geometry.Fallback{})
	assert.Equal(t, []Issue{{"poly_sq", "duplicate id"}}, issues)
}

func TestSimplifyWritesOutput(t *testing.T) {
	in := writeDoc(t, square)
	outPath := filepath.Join(t.TempDir(), "out.json")

	out, err := run(t, "simplify", "--tolerance", "1", "-o", outPath, in)
	require.NoError(t, err)
	assert.Contains(t, out, "removed 1 of 5 points")

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var doc document.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Len(t, doc.Polygons[0].Points, 4)

	_, err = run(t, "simplify", "--tolerance", "0", in)
	assert.Error(t, err)
}

func TestStats(t *testing.T) {
	out, err := run(t, "stats", writeDoc(t, square))
	require.NoError(t, err)
	assert.Contains(t, out, "poly_sq")
	assert.Contains(t, out, "total")
}

func TestNeedsSource(t *testing.T) {
	_, err := run(t, "stats")
	assert.ErrorContains(t, err, "need a document file")
}

func TestResegmentThroughAPI(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mem := store.NewMemory()
	mem.PutImage(document.ImageMeta{ID: "img_a", Width: 64, Height: 64})
	_, err := mem.SaveDocument(ctx, "img_a", []document.Polygon{square})
	require.NoError(t, err)

	auth := apitest.NewAuth("test-secret")
	srv := apitest.New(ctx, mem, mem, apitest.Options{Auth: auth})
	hs := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		hs.Close()
		cancel()
		srv.Wait()
	})
	token, err := auth.IssueToken("segtool", time.Hour)
	require.NoError(t, err)

	t.Setenv("SEGEDITOR_API_BASE_URL", hs.URL)
	t.Setenv("SEGEDITOR_API_TOKEN", token)
	t.Setenv("SEGEDITOR_STATUS_WS_URL", "ws"+strings.TrimPrefix(hs.URL, "http")+"/ws/status")
	t.Setenv("SEGEDITOR_POLL_INTERVAL", "20ms")
	t.Setenv("SEGEDITOR_POLL_ATTEMPTS", "100")

	out, err := run(t, "resegment", "--image", "img_a")
	require.NoError(t, err)
	assert.Contains(t, out, "img_a: 1 polygons, 4 points (was 5)")

	doc, err := mem.FetchDocument(ctx, "img_a")
	require.NoError(t, err)
	assert.Len(t, doc.Polygons[0].Points, 4)

	_, err = run(t, "resegment")
	assert.ErrorContains(t, err, "needs --image")
}
