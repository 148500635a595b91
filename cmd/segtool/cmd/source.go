package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spheroseg/segeditor/internal/api"
	"github.com/spheroseg/segeditor/internal/config"
	"github.com/spheroseg/segeditor/internal/document"
	"github.com/spheroseg/segeditor/internal/editor"
	"github.com/spheroseg/segeditor/internal/store"
)

// source is where a command reads a document from and writes it back to.
type source struct {
	path   string
	store  editor.DocumentStore
	close  func()
	logger *slog.Logger
}

func openSource(ctx context.Context, args []string) (*source, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger(cfg)

	switch {
	case imageID == "" && len(args) == 1:
		return &source{path: args[0], close: func() {}, logger: log}, nil
	case imageID == "":
		return nil, errors.New("need a document file or --image")
	case useAPI:
		c := api.NewClient(cfg.APIBaseURL,
			api.WithTokenSource(api.StaticToken(cfg.APIToken)),
			api.WithLogger(log),
			api.WithResponseLimit(cfg.RequestLimit))
		return &source{store: c, close: func() {}, logger: log}, nil
	default:
		pool, err := store.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &source{store: store.NewPostgres(pool), close: pool.Close, logger: log}, nil
	}
}

func (s *source) load(ctx context.Context) (*document.Document, error) {
	if s.store != nil {
		return s.store.FetchDocument(ctx, imageID)
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	var doc document.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return &doc, nil
}

// save writes doc to output, or back to where it came from when output is empty.
func (s *source) save(ctx context.Context, doc *document.Document, output string) error {
	if output == "" && s.store != nil {
		_, err := s.store.SaveDocument(ctx, imageID, doc.Polygons)
		return err
	}
	if output == "" {
		output = s.path
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := os.WriteFile(output, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}
