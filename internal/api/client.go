// Package api connects the editor to the segmentation backend over HTTP and
// websocket.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spheroseg/segeditor/internal/document"
	"github.com/spheroseg/segeditor/internal/editor"
)

const defaultResponseLimit = 32 << 20

// StatusError is a non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Client implements editor.DocumentStore, editor.ImageStore and
// editor.Resegmenter against the REST API.
type Client struct {
	base   string
	http   *http.Client
	tokens TokenSource
	logger *slog.Logger
	limit  int64
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

func WithTokenSource(ts TokenSource) Option { return func(c *Client) { c.tokens = ts } }

func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.logger = l } }

// WithResponseLimit caps how many bytes of a response body are read.
func WithResponseLimit(n int64) Option { return func(c *Client) { c.limit = n } }

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: 30 * time.Second},
		tokens: StaticToken(""),
		logger: slog.New(slog.DiscardHandler),
		limit:  defaultResponseLimit,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func imagePath(imageID string, rest ...string) string {
	return "/api/images/" + url.PathEscape(imageID) + strings.Join(rest, "")
}

func (c *Client) FetchImage(ctx context.Context, imageID string) (document.ImageMeta, error) {
	var img document.ImageMeta
	if err := c.do(ctx, http.MethodGet, imagePath(imageID), nil, &img); err != nil {
		return document.ImageMeta{}, fmt.Errorf("fetch image: %w", err)
	}
	if img.ID == "" {
		img.ID = imageID
	}
	return img, nil
}

func (c *Client) FetchDocument(ctx context.Context, imageID string) (*document.Document, error) {
	var doc document.Document
	if err := c.do(ctx, http.MethodGet, imagePath(imageID, "/segmentation"), nil, &doc); err != nil {
		return nil, fmt.Errorf("fetch segmentation: %w", err)
	}
	if doc.Polygons == nil {
		doc.Polygons = []document.Polygon{}
	}
	return &doc, nil
}

// SaveRequest is the body of a segmentation save.
type SaveRequest struct {
	Polygons []document.Polygon `json:"polygons"`
}

func (c *Client) SaveDocument(ctx context.Context, imageID string, polygons []document.Polygon) (*document.Document, error) {
	if polygons == nil {
		polygons = []document.Polygon{}
	}
	var doc document.Document
	if err := c.do(ctx, http.MethodPut, imagePath(imageID, "/segmentation"), SaveRequest{Polygons: polygons}, &doc); err != nil {
		return nil, fmt.Errorf("save segmentation: %w", err)
	}
	if doc.Polygons == nil {
		return nil, nil
	}
	return &doc, nil
}

func (c *Client) Trigger(ctx context.Context, imageID string) error {
	if err := c.do(ctx, http.MethodPost, imagePath(imageID, "/resegment"), nil, nil); err != nil {
		return fmt.Errorf("trigger resegmentation: %w", err)
	}
	return nil
}

func (c *Client) Poll(ctx context.Context, imageID string) (editor.JobStatus, error) {
	var st editor.JobStatus
	if err := c.do(ctx, http.MethodGet, imagePath(imageID, "/segmentation/status"), nil, &st); err != nil {
		return editor.JobStatus{}, fmt.Errorf("poll segmentation status: %w", err)
	}
	return st, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	c.logger.Debug("api request", "method", method, "path", path, "status", resp.StatusCode,
		"request_id", reqID, "elapsed", time.Since(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.limit))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, editor.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
