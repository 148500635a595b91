// Package store keeps segmentation documents and image metadata. Memory
// backs tests and the api fake; Postgres is the durable store.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spheroseg/segeditor/internal/document"
	"github.com/spheroseg/segeditor/internal/editor"
)

// Memory is an in-process store safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	docs   map[string]*document.Document
	images map[string]document.ImageMeta
}

func NewMemory() *Memory {
	return &Memory{
		docs:   make(map[string]*document.Document),
		images: make(map[string]document.ImageMeta),
	}
}

// PutImage registers image metadata.
func (m *Memory) PutImage(img document.ImageMeta) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images[img.ID] = img
}

// PutDocument stores doc as is, replacing any previous one.
func (m *Memory) PutDocument(doc *document.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ImageID] = doc.Clone()
}

func (m *Memory) FetchImage(_ context.Context, imageID string) (document.ImageMeta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	img, ok := m.images[imageID]
	if !ok {
		return document.ImageMeta{}, fmt.Errorf("image %s: %w", imageID, editor.ErrNotFound)
	}
	return img, nil
}

func (m *Memory) FetchDocument(_ context.Context, imageID string) (*document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[imageID]
	if !ok {
		return nil, fmt.Errorf("segmentation %s: %w", imageID, editor.ErrNotFound)
	}
	return doc.Clone(), nil
}

// SaveDocument replaces the polygons for imageID and returns the stored
// document.
func (m *Memory) SaveDocument(_ context.Context, imageID string, polygons []document.Polygon) (*document.Document, error) {
	doc := &document.Document{ImageID: imageID, Polygons: polygons}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("save segmentation: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if prev, ok := m.docs[imageID]; ok {
		doc.CreatedAt = prev.CreatedAt
	} else {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	doc.Status = document.StatusCompleted
	doc = doc.Clone()
	m.docs[imageID] = doc
	return doc.Clone(), nil
}

// SetStatus records the segmentation status without touching polygons.
func (m *Memory) SetStatus(_ context.Context, imageID string, status document.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[imageID]
	if !ok {
		doc = document.NewEmptyDocument(imageID)
		m.docs[imageID] = doc
	}
	doc.Status = status
	doc.UpdatedAt = time.Now().UTC()
	return nil
}
