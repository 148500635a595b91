package editor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spheroseg/segeditor/internal/document"
	"github.com/spheroseg/segeditor/internal/notice"
)

// beginSubject switches to a new image: in-flight work for the previous
// one is cancelled and the generation advances. Must hold e.mu.
func (e *Editor) beginSubject(imageID string) uint64 {
	e.cancel()
	e.subject, e.cancel = context.WithCancel(context.Background())
	e.gen++
	e.imageID = imageID
	e.hist.Reset()
	e.machine.Reset()
	e.status = Status{}
	return e.gen
}

// bind derives a context that ends with either ctx or the current subject.
// Must hold e.mu.
func (e *Editor) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	c, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(e.subject, cancel)
	return c, func() {
		stop()
		cancel()
	}
}

// current reports whether gen still identifies the open subject. Must hold e.mu.
func (e *Editor) current(gen uint64) bool {
	return !e.closed && gen == e.gen
}

// Load fetches the image metadata and segmentation for imageID and fits the
// image to the canvas. A missing segmentation yields an empty document and
// unavailable metadata yields a placeholder image; both keep the editor
// usable, and the failures are returned joined and recorded in Status.
// Superseded loads return context.Canceled and change nothing.
func (e *Editor) Load(ctx context.Context, imageID string, canvasW, canvasH float64) error {
	e.mu.Lock()
	if e.closed {
		e.unlock()
		return ErrClosed
	}
	gen := e.beginSubject(imageID)
	e.canvasW, e.canvasH = canvasW, canvasH
	e.status.Loading = true
	ctx, done := e.bind(ctx)
	e.unlock()
	defer done()

	var (
		doc    *document.Document
		img    document.ImageMeta
		docErr error
		imgErr error
		g      errgroup.Group
	)
	if e.deps.Documents != nil {
		g.Go(func() error {
			doc, docErr = e.deps.Documents.FetchDocument(ctx, imageID)
			return nil
		})
	}
	if e.deps.Images != nil {
		g.Go(func() error {
			img, imgErr = e.deps.Images.FetchImage(ctx, imageID)
			return nil
		})
	} else {
		imgErr = ErrUnsupported
	}
	_ = g.Wait()

	e.mu.Lock()
	defer e.changed()
	defer e.unlock()
	if !e.current(gen) {
		e.logger.Debug("discarding stale load", "image", imageID)
		return context.Canceled
	}
	if ctx.Err() != nil && (errors.Is(docErr, context.Canceled) || errors.Is(imgErr, context.Canceled)) {
		e.status.Loading = false
		return context.Canceled
	}

	var errs []error
	switch {
	case docErr == nil && doc != nil:
	case docErr == nil || errors.Is(docErr, ErrNotFound):
		doc = document.NewEmptyDocument(imageID)
	default:
		e.logger.Error("load segmentation", "image", imageID, "error", docErr)
		errs = append(errs, fmt.Errorf("load segmentation: %w", docErr))
		doc = document.NewEmptyDocument(imageID)
	}
	if imgErr != nil {
		if !errors.Is(imgErr, ErrUnsupported) {
			e.logger.Warn("load image", "image", imageID, "error", imgErr)
			errs = append(errs, fmt.Errorf("load image: %w", imgErr))
		}
		img = document.PlaceholderImage(imageID)
	}

	e.install(imageID, img, doc)
	e.status.Loading = false
	err := errors.Join(errs...)
	if err != nil {
		e.status.Error = err.Error()
		e.notify(notice.Error, "Some data could not be loaded; editing a placeholder")
	}
	return err
}

// LoadDocument opens a document that is already in memory, such as a file
// or the built-in sample.
func (e *Editor) LoadDocument(img document.ImageMeta, doc *document.Document, canvasW, canvasH float64) {
	e.mu.Lock()
	defer e.unlock()
	if img.ID == "" {
		img.ID = doc.ImageID
	}
	e.beginSubject(img.ID)
	e.canvasW, e.canvasH = canvasW, canvasH
	e.install(img.ID, img, doc)
}

// install makes doc the history root. Must hold e.mu.
func (e *Editor) install(imageID string, img document.ImageMeta, doc *document.Document) {
	doc = doc.Clone()
	if doc.ImageID == "" {
		doc.ImageID = imageID
	}
	doc.Polygons = e.validPolygons(imageID, doc.Polygons)
	e.image = img
	e.hist.Init(doc)
	e.fit()
	e.logger.Info("document loaded", "image", imageID, "polygons", len(doc.Polygons), "points", doc.PointCount())
}

// validPolygons filters out polygons that fail Polygon.Validate, logging
// each one. polys is reused.
func (e *Editor) validPolygons(imageID string, polys []document.Polygon) []document.Polygon {
	kept := polys[:0]
	for _, p := range polys {
		if err := p.Validate(); err != nil {
			e.logger.Warn("dropping invalid polygon", "image", imageID, "polygon", p.ID, "error", err)
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// Save sends the working polygons to the document store. When the store
// answers with a canonical document and nothing was edited in the meantime,
// the working polygons are replaced with the canonical ones without adding
// a history entry.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.Lock()
	if e.deps.Documents == nil {
		e.unlock()
		return ErrUnsupported
	}
	doc := e.hist.Working()
	if doc == nil || e.closed {
		e.unlock()
		return ErrNoDocument
	}
	gen, rev, imageID := e.gen, e.hist.Revision(), e.imageID
	e.status.Saving = true
	ctx, done := e.bind(ctx)
	e.unlock()
	defer done()

	canonical, err := e.deps.Documents.SaveDocument(ctx, imageID, doc.Polygons)

	e.mu.Lock()
	defer e.changed()
	defer e.unlock()
	if !e.current(gen) {
		return context.Canceled
	}
	e.status.Saving = false
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		e.logger.Error("save segmentation", "image", imageID, "error", err)
		e.status.Error = err.Error()
		e.notify(notice.Error, "Saving failed; your changes are kept")
		return fmt.Errorf("save segmentation: %w", err)
	}
	e.status.Error = ""
	e.notify(notice.Success, "Segmentation saved")

	if canonical == nil {
		return nil
	}
	if e.hist.Revision() != rev {
		e.logger.Debug("skipping save refresh, document changed while saving", "image", imageID)
		return nil
	}
	w := e.hist.Working()
	w.Polygons = e.validPolygons(imageID, canonical.Clone().Polygons)
	e.hist.CommitWithoutHistory(w)
	return nil
}

// Resegment asks for a new automatic segmentation and polls until it
// finishes. A completed job replaces the document and resets history; a
// failed or timed out job leaves the document untouched.
func (e *Editor) Resegment(ctx context.Context) error {
	e.mu.Lock()
	if e.deps.Resegmenter == nil {
		e.unlock()
		return ErrUnsupported
	}
	if e.closed || e.imageID == "" {
		e.unlock()
		return ErrNoDocument
	}
	gen, imageID := e.gen, e.imageID
	e.status.Resegmenting = true
	ctx, done := e.bind(ctx)
	e.unlock()
	defer done()

	doc, err := e.runResegment(ctx, imageID)

	e.mu.Lock()
	defer e.changed()
	defer e.unlock()
	if !e.current(gen) {
		return context.Canceled
	}
	e.status.Resegmenting = false
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return err
		}
		e.logger.Error("resegment", "image", imageID, "error", err)
		e.status.Error = err.Error()
		e.notify(notice.Error, "Resegmentation did not complete")
		return err
	}

	e.machine.Reset()
	t := e.transform
	e.install(imageID, e.image, doc)
	e.transform = t
	e.status.Error = ""
	e.notify(notice.Success, "Resegmentation complete")
	return nil
}

func (e *Editor) runResegment(ctx context.Context, imageID string) (*document.Document, error) {
	r := e.deps.Resegmenter
	if err := r.Trigger(ctx, imageID); err != nil {
		return nil, fmt.Errorf("trigger resegmentation: %w", err)
	}
	e.logger.Info("resegmentation started", "image", imageID)

	for attempt := 1; attempt <= e.opts.PollAttempts; attempt++ {
		if err := e.waitPoll(ctx, imageID); err != nil {
			return nil, err
		}
		st, err := r.Poll(ctx, imageID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.logger.Warn("poll resegmentation", "image", imageID, "attempt", attempt, "error", err)
			continue
		}
		switch st.Status {
		case document.StatusCompleted:
			if st.Document == nil {
				return document.NewEmptyDocument(imageID), nil
			}
			return st.Document, nil
		case document.StatusFailed:
			return nil, ErrResegmentFailed
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", e.opts.PollAttempts, ErrResegmentTimeout)
}

// waitPoll sleeps one poll interval, waking early on a matching Wake id.
func (e *Editor) waitPoll(ctx context.Context, imageID string) error {
	t := time.NewTimer(e.opts.PollInterval)
	defer t.Stop()
	wake := e.deps.Wake
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		case id, ok := <-wake:
			if !ok {
				wake = nil
				continue
			}
			if id == imageID {
				return nil
			}
		}
	}
}
