package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/spheroseg/segeditor/internal/document"
)

const (
	TypeSegmentationUpdate = "segmentation.update"

	maxMsgSize = 64 * 1024
)

// Message is one frame on the status socket.
type Message struct {
	Type    string          `json:"type"`
	ImageID string          `json:"imageId,omitempty"`
	Status  document.Status `json:"status,omitempty"`
}

// StatusWatcher listens for segmentation status pushes and forwards the
// affected image ids. Its Updates channel can be passed to the editor as
// the resegment wake signal.
type StatusWatcher struct {
	url     string
	tokens  TokenSource
	logger  *slog.Logger
	updates chan string
}

func NewStatusWatcher(wsURL string, tokens TokenSource, logger *slog.Logger) *StatusWatcher {
	if tokens == nil {
		tokens = StaticToken("")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &StatusWatcher{
		url:     wsURL,
		tokens:  tokens,
		logger:  logger,
		updates: make(chan string, 16),
	}
}

func (w *StatusWatcher) Updates() <-chan string { return w.updates }

// Run connects and reads until ctx ends or the connection drops. Updates
// that find the channel full are dropped; the poll loop catches up on its
// next tick.
func (w *StatusWatcher) Run(ctx context.Context) error {
	header := http.Header{}
	token, err := w.tokens.Token(ctx)
	if err != nil {
		return err
	}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, _, err := websocket.Dial(ctx, w.url, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return fmt.Errorf("dial status socket: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	conn.SetReadLimit(maxMsgSize)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			return fmt.Errorf("read status socket: %w", err)
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			w.logger.Warn("invalid status message", "error", err)
			continue
		}
		if msg.Type != TypeSegmentationUpdate || msg.ImageID == "" {
			continue
		}

		select {
		case w.updates <- msg.ImageID:
		default:
			w.logger.Warn("status updates full, dropping", "image", msg.ImageID)
		}
	}
}
