package apitest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spheroseg/segeditor/internal/document"
	"github.com/spheroseg/segeditor/internal/geometry"
	"github.com/spheroseg/segeditor/internal/store"
)

func newTestServer(t *testing.T, opts Options) (*Server, *store.Memory) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	mem := store.NewMemory()
	mem.PutImage(document.ImageMeta{ID: "img_a", Width: 10, Height: 10})
	s := New(ctx, mem, mem, opts)
	t.Cleanup(func() {
		cancel()
		s.Wait()
	})
	return s, mem
}

func serve(s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestAuthTokens(t *testing.T) {
	a := NewAuth("secret")
	tok, err := a.IssueToken("alice", time.Minute)
	require.NoError(t, err)

	sub, err := a.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)

	_, err = NewAuth("other").ValidateToken(tok)
	assert.Error(t, err)

	expired, err := a.IssueToken("alice", -time.Minute)
	require.NoError(t, err)
	_, err = a.ValidateToken(expired)
	assert.Error(t, err)

	_, err = Auth{}.IssueToken("alice", time.Minute)
	assert.Error(t, err)
}

func TestRoutesRequireToken(t *testing.T) {
	auth := NewAuth("secret")
	s, _ := newTestServer(t, Options{Auth: auth})
	tok, err := auth.IssueToken("alice", time.Minute)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(s, http.MethodGet, "/api/images/img_a", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(s, http.MethodGet, "/api/images/img_a", "garbage", "").Code)

	rec := serve(s, http.MethodGet, "/api/images/img_a", tok, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, http.StatusNotFound, serve(s, http.MethodGet, "/api/images/img_missing", tok, "").Code)
}

func TestSaveAndStatus(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	rec := serve(s, http.MethodPut, "/api/images/img_a/segmentation", "",
		`{"polygons":[{"id":"poly_a","type":"external","points":[{"x":0,"y":0},{"x":1,"y":0},{"x":1,"y":1}]}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(s, http.MethodGet, "/api/images/img_a/segmentation/status", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"completed"`)
	assert.Contains(t, rec.Body.String(), `"poly_a"`)

	assert.Equal(t, http.StatusBadRequest, serve(s, http.MethodPut, "/api/images/img_a/segmentation", "", `{`).Code)
}

func TestResegmentConflictAndFailure(t *testing.T) {
	release := make(chan struct{})
	boom := errors.New("model crashed")
	s, mem := newTestServer(t, Options{Segmenter: func(ctx context.Context, _ *document.Document) ([]document.Polygon, error) {
		select {
		case <-release:
			return nil, boom
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}})

	assert.Equal(t, http.StatusAccepted, serve(s, http.MethodPost, "/api/images/img_a/resegment", "", "").Code)
	assert.Equal(t, http.StatusConflict, serve(s, http.MethodPost, "/api/images/img_a/resegment", "", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(s, http.MethodPost, "/api/images/img_none/resegment", "", "").Code)

	close(release)
	s.Wait()
	doc, err := mem.FetchDocument(context.Background(), "img_a")
	require.NoError(t, err)
	assert.Equal(t, document.StatusFailed, doc.Status)
}

func TestSimplifySegmenter(t *testing.T) {
	seg := SimplifySegmenter(geometry.Fallback{}, 1)
	doc := document.NewEmptyDocument("img_a")
	doc.Polygons = []document.Polygon{
		{ID: "poly_a", Points: []document.Point{{X: 0, Y: 0}, {X: 5, Y: 0.1}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}},
	}
	out, err := seg(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Len(t, out[0].Points, 4)
	assert.Len(t, doc.Polygons[0].Points, 5, "input is not modified")
}
