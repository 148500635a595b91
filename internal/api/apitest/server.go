// Package apitest runs an in-process fake of the segmentation backend for
// tests: it serves documents and image metadata over the REST routes the api
// Client uses, runs resegmentation jobs and pushes status changes over a
// websocket. Mount Router on an httptest.Server.
package apitest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"

	"github.com/spheroseg/segeditor/internal/api"
	"github.com/spheroseg/segeditor/internal/document"
	"github.com/spheroseg/segeditor/internal/editor"
)

// Backend stores documents and their job status.
type Backend interface {
	editor.DocumentStore
	SetStatus(ctx context.Context, imageID string, status document.Status) error
}

type Options struct {
	Auth      Auth
	Segmenter Segmenter
	Logger    *slog.Logger
	// OriginPatterns are passed to websocket.Accept.
	OriginPatterns []string
	// RequestLimit caps request bodies in bytes.
	RequestLimit int64
}

type Server struct {
	docs    Backend
	images  editor.ImageStore
	opts    Options
	logger  *slog.Logger
	hub     *Hub
	segment Segmenter

	ctx  context.Context
	jobs sync.WaitGroup
	mu   sync.Mutex
	busy map[string]bool
}

// New starts the status hub; it and running jobs stop when ctx ends.
func New(ctx context.Context, docs Backend, images editor.ImageStore, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.RequestLimit <= 0 {
		opts.RequestLimit = 32 << 20
	}
	seg := opts.Segmenter
	if seg == nil {
		seg = SimplifySegmenter(nil, 1)
	}
	s := &Server{
		docs:    docs,
		images:  images,
		opts:    opts,
		logger:  logger,
		hub:     NewHub(logger),
		segment: seg,
		ctx:     ctx,
		busy:    make(map[string]bool),
	}
	go s.hub.Run(ctx)
	return s
}

// Wait blocks until running jobs finish.
func (s *Server) Wait() { s.jobs.Wait() }

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.recovery)
	r.Use(s.requestLogger)

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	a := r.PathPrefix("/api").Subrouter()
	a.Use(s.opts.Auth.Middleware)
	a.HandleFunc("/images/{imageId}", s.getImage).Methods(http.MethodGet)
	a.HandleFunc("/images/{imageId}/segmentation", s.getSegmentation).Methods(http.MethodGet)
	a.HandleFunc("/images/{imageId}/segmentation", s.putSegmentation).Methods(http.MethodPut)
	a.HandleFunc("/images/{imageId}/segmentation/status", s.getStatus).Methods(http.MethodGet)
	a.HandleFunc("/images/{imageId}/resegment", s.resegment).Methods(http.MethodPost)

	r.Handle("/ws/status", s.opts.Auth.Middleware(http.HandlerFunc(s.statusSocket)))
	return r
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, editor.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, document.ErrTooFewPoints), errors.Is(err, document.ErrDuplicatePolygon):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) getImage(w http.ResponseWriter, r *http.Request) {
	img, err := s.images.FetchImage(r.Context(), mux.Vars(r)["imageId"])
	if err != nil {
		s.fail(w, "get image", err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}

func (s *Server) getSegmentation(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.FetchDocument(r.Context(), mux.Vars(r)["imageId"])
	if err != nil {
		s.fail(w, "get segmentation", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) putSegmentation(w http.ResponseWriter, r *http.Request) {
	var req api.SaveRequest
	body := http.MaxBytesReader(w, r.Body, s.opts.RequestLimit)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	imageID := mux.Vars(r)["imageId"]
	doc, err := s.docs.SaveDocument(r.Context(), imageID, req.Polygons)
	if err != nil {
		s.fail(w, "save segmentation", err)
		return
	}
	s.logger.Info("segmentation saved", "image", imageID, "polygons", len(doc.Polygons), "subject", SubjectFromContext(r.Context()))
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.FetchDocument(r.Context(), mux.Vars(r)["imageId"])
	if err != nil {
		s.fail(w, "get status", err)
		return
	}
	st := editor.JobStatus{Status: doc.Status}
	if doc.Status == document.StatusCompleted {
		st.Document = doc
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) statusSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.opts.OriginPatterns})
	if err != nil {
		s.logger.Error("websocket accept", "error", err)
		return
	}
	c := &client{hub: s.hub, conn: conn, send: make(chan []byte, sendBuffer), subject: SubjectFromContext(r.Context())}
	ctx := r.Context()
	select {
	case s.hub.register <- c:
	case <-s.ctx.Done():
		conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	go c.writePump(ctx)
	c.readPump(ctx)
}
