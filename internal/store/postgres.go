package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spheroseg/segeditor/internal/document"
	"github.com/spheroseg/segeditor/internal/editor"
)

//go:embed schema.sql
var schema string

// Postgres stores segmentations in a jsonb column keyed by image id.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPool connects and pings the database.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (p *Postgres) FetchImage(ctx context.Context, imageID string) (document.ImageMeta, error) {
	img := document.ImageMeta{ID: imageID}
	err := p.pool.QueryRow(ctx,
		`SELECT name, width, height, url FROM images WHERE id = $1`, imageID,
	).Scan(&img.Name, &img.Width, &img.Height, &img.URL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return document.ImageMeta{}, fmt.Errorf("image %s: %w", imageID, editor.ErrNotFound)
		}
		return document.ImageMeta{}, fmt.Errorf("get image: %w", err)
	}
	return img, nil
}

// PutImage upserts image metadata.
func (p *Postgres) PutImage(ctx context.Context, img document.ImageMeta) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO images (id, name, width, height, url) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = $2, width = $3, height = $4, url = $5`,
		img.ID, img.Name, img.Width, img.Height, img.URL)
	if err != nil {
		return fmt.Errorf("put image: %w", err)
	}
	return nil
}

func (p *Postgres) FetchDocument(ctx context.Context, imageID string) (*document.Document, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT image_id, status, polygons, created_at, updated_at
		FROM segmentations WHERE image_id = $1`, imageID)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("segmentation %s: %w", imageID, editor.ErrNotFound)
		}
		return nil, fmt.Errorf("get segmentation: %w", err)
	}
	return doc, nil
}

// SaveDocument upserts the polygons and returns the stored row.
func (p *Postgres) SaveDocument(ctx context.Context, imageID string, polygons []document.Polygon) (*document.Document, error) {
	if err := (&document.Document{Polygons: polygons}).Validate(); err != nil {
		return nil, fmt.Errorf("save segmentation: %w", err)
	}
	if polygons == nil {
		polygons = []document.Polygon{}
	}
	data, err := json.Marshal(polygons)
	if err != nil {
		return nil, fmt.Errorf("marshal polygons: %w", err)
	}

	row := p.pool.QueryRow(ctx, `
		INSERT INTO segmentations (image_id, status, polygons) VALUES ($1, $2, $3)
		ON CONFLICT (image_id) DO UPDATE SET status = $2, polygons = $3, updated_at = now()
		RETURNING image_id, status, polygons, created_at, updated_at`,
		imageID, document.StatusCompleted, data)
	doc, err := scanDocument(row)
	if err != nil {
		return nil, fmt.Errorf("save segmentation: %w", err)
	}
	return doc, nil
}

// SetStatus records the segmentation status, creating an empty row if needed.
func (p *Postgres) SetStatus(ctx context.Context, imageID string, status document.Status) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO segmentations (image_id, status) VALUES ($1, $2)
		ON CONFLICT (image_id) DO UPDATE SET status = $2, updated_at = now()`,
		imageID, status)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

func scanDocument(row pgx.Row) (*document.Document, error) {
	var (
		doc  document.Document
		raw  []byte
		stat string
	)
	if err := row.Scan(&doc.ImageID, &stat, &raw, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	doc.Status = document.Status(stat)
	if err := json.Unmarshal(raw, &doc.Polygons); err != nil {
		return nil, fmt.Errorf("unmarshal polygons: %w", err)
	}
	if doc.Polygons == nil {
		doc.Polygons = []document.Polygon{}
	}
	return &doc, nil
}
