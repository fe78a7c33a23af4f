package publish

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"nanodet/internal/dto"
	"nanodet/internal/logger"
)

const writeWait = 10 * time.Second

// Publisher pushes run summaries to a websocket endpoint.
type Publisher struct {
	url          string
	dialer       *websocket.Dialer
	logger       *logger.Logger
	includeImage bool
}

// New creates a Publisher for url. When includeImage is set the output file
// is attached base64 encoded.
func New(url string, includeImage bool, log *logger.Logger) *Publisher {
	return &Publisher{
		url:          url,
		dialer:       &websocket.Dialer{HandshakeTimeout: writeWait},
		logger:       log,
		includeImage: includeImage,
	}
}

// Publish sends one summary and closes the connection.
func (p *Publisher) Publish(ctx context.Context, summary dto.RunSummary) error {
	if p.url == "" {
		return errors.New("no publish url")
	}

	if p.includeImage && summary.Output != "" {
		data, err := os.ReadFile(summary.Output)
		if err != nil {
			return fmt.Errorf("failed to read output image: %w", err)
		}
		summary.Image = base64.StdEncoding.EncodeToString(data)
	}

	conn, _, err := p.dialer.DialContext(ctx, p.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", p.url, err)
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(summary); err != nil {
		return fmt.Errorf("failed to send summary: %w", err)
	}

	err = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		p.logger.Warning("Error closing publish connection: %v", err)
	}

	p.logger.Info("Published %d objects to %s", len(summary.Objects), p.url)
	return nil
}
