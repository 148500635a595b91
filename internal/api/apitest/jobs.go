package apitest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/spheroseg/segeditor/internal/api"
	"github.com/spheroseg/segeditor/internal/document"
	"github.com/spheroseg/segeditor/internal/geometry"
	"github.com/spheroseg/segeditor/internal/typeid"
)

// Segmenter produces a new segmentation for an image from its current one.
type Segmenter func(ctx context.Context, doc *document.Document) ([]document.Polygon, error)

// SimplifySegmenter stands in for a model service: it reduces every polygon
// with Douglas-Peucker at tolerance and drops rings that collapse.
func SimplifySegmenter(kernel geometry.Kernel, tolerance float64) Segmenter {
	if kernel == nil {
		kernel = geometry.Native{}
	}
	return func(ctx context.Context, doc *document.Document) ([]document.Polygon, error) {
		out := make([]document.Polygon, 0, len(doc.Polygons))
		for _, p := range doc.Polygons {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			p = p.Clone()
			p = kernel.SimplifyPolygon(p, tolerance)
			if p.Validate() != nil {
				continue
			}
			out = append(out, p)
		}
		return out, nil
	}
}

func (s *Server) resegment(w http.ResponseWriter, r *http.Request) {
	imageID := mux.Vars(r)["imageId"]
	if _, err := s.images.FetchImage(r.Context(), imageID); err != nil {
		s.fail(w, "resegment", err)
		return
	}

	s.mu.Lock()
	if s.busy[imageID] {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "resegmentation already running")
		return
	}
	s.busy[imageID] = true
	s.mu.Unlock()

	if err := s.setStatus(r.Context(), imageID, document.StatusProcessing); err != nil {
		s.release(imageID)
		s.fail(w, "resegment", err)
		return
	}

	job := typeid.NewJobID()
	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		defer s.release(imageID)
		s.runJob(s.ctx, job, imageID)
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"job": job, "status": string(document.StatusProcessing)})
}

func (s *Server) release(imageID string) {
	s.mu.Lock()
	delete(s.busy, imageID)
	s.mu.Unlock()
}

func (s *Server) runJob(ctx context.Context, job, imageID string) {
	logger := s.logger.With("job", job, "image", imageID)
	logger.Info("resegmentation started")
	if err := s.resegmentImage(ctx, imageID); err != nil {
		logger.Error("resegmentation failed", "error", err)
		if err := s.setStatus(context.WithoutCancel(ctx), imageID, document.StatusFailed); err != nil {
			logger.Error("record failed status", "error", err)
		}
		return
	}
	s.hub.Publish(api.Message{Type: api.TypeSegmentationUpdate, ImageID: imageID, Status: document.StatusCompleted})
	logger.Info("resegmentation completed")
}

func (s *Server) resegmentImage(ctx context.Context, imageID string) error {
	doc, err := s.docs.FetchDocument(ctx, imageID)
	if err != nil {
		return fmt.Errorf("fetch segmentation: %w", err)
	}
	polys, err := s.segment(ctx, doc)
	if err != nil {
		return fmt.Errorf("segment: %w", err)
	}
	if _, err := s.docs.SaveDocument(ctx, imageID, polys); err != nil {
		return fmt.Errorf("store segmentation: %w", err)
	}
	return nil
}

func (s *Server) setStatus(ctx context.Context, imageID string, status document.Status) error {
	if err := s.docs.SetStatus(ctx, imageID, status); err != nil {
		return err
	}
	s.hub.Publish(api.Message{Type: api.TypeSegmentationUpdate, ImageID: imageID, Status: status})
	return nil
}
