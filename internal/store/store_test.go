package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spheroseg/segeditor/internal/document"
	"github.com/spheroseg/segeditor/internal/editor"
	"github.com/spheroseg/segeditor/internal/typeid"
)

var (
	_ editor.DocumentStore = (*Memory)(nil)
	_ editor.ImageStore    = (*Memory)(nil)
	_ editor.DocumentStore = (*Postgres)(nil)
	_ editor.ImageStore    = (*Postgres)(nil)
)

type backend interface {
	editor.DocumentStore
	editor.ImageStore
	SetStatus(ctx context.Context, imageID string, status document.Status) error
}

func triangle(id string) document.Polygon {
	return document.Polygon{ID: id, Kind: document.KindExternal, Points: []document.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 0, Y: 3}}}
}

func exercise(t *testing.T, s backend) {
	ctx := context.Background()
	imageID := typeid.NewImageID()

	_, err := s.FetchDocument(ctx, imageID)
	assert.ErrorIs(t, err, editor.ErrNotFound)
	_, err = s.FetchImage(ctx, imageID)
	assert.ErrorIs(t, err, editor.ErrNotFound)

	saved, err := s.SaveDocument(ctx, imageID, []document.Polygon{triangle("poly_a")})
	require.NoError(t, err)
	assert.Equal(t, document.StatusCompleted, saved.Status)
	assert.False(t, saved.CreatedAt.IsZero())

	got, err := s.FetchDocument(ctx, imageID)
	require.NoError(t, err)
	require.Len(t, got.Polygons, 1)
	assert.Equal(t, triangle("poly_a"), got.Polygons[0])

	short := document.Polygon{ID: "poly_b", Points: []document.Point{{X: 0, Y: 0}}}
	_, err = s.SaveDocument(ctx, imageID, []document.Polygon{short})
	assert.ErrorIs(t, err, document.ErrTooFewPoints)

	require.NoError(t, s.SetStatus(ctx, imageID, document.StatusProcessing))
	got, err = s.FetchDocument(ctx, imageID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusProcessing, got.Status)
	assert.Len(t, got.Polygons, 1, "status changes keep polygons")
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	exercise(t, m)

	m.PutImage(document.ImageMeta{ID: "img_x", Width: 10, Height: 20})
	img, err := m.FetchImage(context.Background(), "img_x")
	require.NoError(t, err)
	assert.Equal(t, 20, img.Height)
}

func TestMemoryReturnsCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, err := m.SaveDocument(ctx, "img_a", []document.Polygon{triangle("poly_a")})
	require.NoError(t, err)

	doc, err := m.FetchDocument(ctx, "img_a")
	require.NoError(t, err)
	doc.Polygons[0].Points[0].X = 50

	again, err := m.FetchDocument(ctx, "img_a")
	require.NoError(t, err)
	assert.Equal(t, 0.0, again.Polygons[0].Points[0].X)
}

func TestPostgres(t *testing.T) {
	url := os.Getenv("SEGEDITOR_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("SEGEDITOR_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := NewPool(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	pg := NewPostgres(pool)
	require.NoError(t, pg.Migrate(ctx))
	exercise(t, pg)

	img := document.ImageMeta{ID: typeid.NewImageID(), Name: "cells.png", Width: 640, Height: 480}
	require.NoError(t, pg.PutImage(ctx, img))
	got, err := pg.FetchImage(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, img, got)
}
