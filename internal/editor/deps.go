package editor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spheroseg/segeditor/internal/config"
	"github.com/spheroseg/segeditor/internal/document"
	"github.com/spheroseg/segeditor/internal/geometry"
	"github.com/spheroseg/segeditor/internal/history"
	"github.com/spheroseg/segeditor/internal/interact"
	"github.com/spheroseg/segeditor/internal/notice"
	"github.com/spheroseg/segeditor/internal/viewport"
)

var (
	// ErrNotFound is returned by a DocumentStore when the image has no
	// segmentation yet.
	ErrNotFound         = errors.New("segmentation not found")
	ErrNoDocument       = errors.New("no document loaded")
	ErrUnsupported      = errors.New("operation not configured")
	ErrResegmentTimeout = errors.New("resegmentation timed out")
	ErrResegmentFailed  = errors.New("resegmentation failed")
	ErrNoSelection      = errors.New("no polygon selected")
	ErrNotOverlapping   = errors.New("polygons do not overlap")
	ErrClosed           = errors.New("editor closed")
)

type DocumentStore interface {
	FetchDocument(ctx context.Context, imageID string) (*document.Document, error)
	// SaveDocument stores the polygons and returns the canonical document
	// as the server now has it. A nil document means no refresh is needed.
	SaveDocument(ctx context.Context, imageID string, polygons []document.Polygon) (*document.Document, error)
}

type ImageStore interface {
	FetchImage(ctx context.Context, imageID string) (document.ImageMeta, error)
}

// JobStatus is one poll result. Document is set once Status is completed.
type JobStatus struct {
	Status   document.Status    `json:"status"`
	Document *document.Document `json:"document,omitempty"`
}

type Resegmenter interface {
	Trigger(ctx context.Context, imageID string) error
	Poll(ctx context.Context, imageID string) (JobStatus, error)
}

type Options struct {
	Interaction  interact.Options
	HistoryLimit int
	PollInterval time.Duration
	PollAttempts int
}

func DefaultOptions() Options {
	return Options{
		Interaction:  interact.DefaultOptions(),
		HistoryLimit: history.DefaultMaxEntries,
		PollInterval: 2 * time.Second,
		PollAttempts: 30,
	}
}

// OptionsFromConfig maps environment configuration onto editor options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Interaction: interact.Options{
			VertexRadius: cfg.VertexRadius,
			CloseRadius:  cfg.CloseRadius,
			EdgeRadius:   cfg.EdgeRadius,
			Limits:       viewport.Limits{MinZoom: cfg.MinZoom, MaxZoom: cfg.MaxZoom},
		},
		HistoryLimit: cfg.HistoryLimit,
		PollInterval: cfg.PollInterval,
		PollAttempts: cfg.PollAttempts,
	}
}

// Deps are the editor's collaborators. Every field is optional.
type Deps struct {
	Documents   DocumentStore
	Images      ImageStore
	Resegmenter Resegmenter
	Notifier    notice.Notifier
	// Kernel defaults to a geometry.Switch that loads the native kernel in
	// the background.
	Kernel geometry.Kernel
	Logger *slog.Logger
	// Wake carries image ids whose segmentation changed. A matching id cuts
	// the current resegment poll wait short.
	Wake <-chan string
	// OnChange is called, without the editor lock held, after an
	// asynchronous operation changed what should be rendered.
	OnChange func()
}

// Status reports the editor's background activity.
type Status struct {
	Loading      bool   `json:"loading"`
	Saving       bool   `json:"saving"`
	Resegmenting bool   `json:"resegmenting"`
	Error        string `json:"error,omitempty"`
}
