// Package connector attaches to a broadcast bridge feed and turns its
// frames into canonical events. Session lifecycle, auth and the wire
// protocol live on the bridge side; this client only dials, reads and
// normalizes.
package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"github.com/you/livepulse/internal/core"
	"github.com/you/livepulse/internal/normalize"
)

type Config struct {
	// FeedURL is the bridge websocket endpoint, e.g. ws://bridge:8080/feed.
	FeedURL string
	// Username is the broadcaster handle, passed to the bridge as a query
	// parameter.
	Username string

	DialTimeout time.Duration
}

// Handler receives each canonical event in arrival order.
type Handler func(core.Event)

// StatusFunc is invoked on connect and on disconnect (with the cause).
type StatusFunc func(connected bool, err error)

type Client struct {
	cfg    Config
	handle Handler
	status StatusFunc
}

func New(cfg Config, h Handler, status StatusFunc) *Client {
	return &Client{cfg: cfg, handle: h, status: status}
}

// Run connects and reads frames until ctx is canceled, reconnecting with
// exponential backoff capped at one minute.
func (c *Client) Run(ctx context.Context) error {
	if strings.TrimSpace(c.cfg.FeedURL) == "" {
		return errors.New("connector: feed url is required")
	}

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := c.runOnce(ctx); err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			c.reportStatus(false, err)
			log.Printf("connector: disconnected: %v; reconnecting in %s", err, backoff)

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}

			if backoff < 60*time.Second {
				backoff *= 2
				if backoff > 60*time.Second {
					backoff = 60 * time.Second
				}
			}
			continue
		}

		backoff = time.Second
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	feed, err := buildFeedURL(c.cfg.FeedURL, c.cfg.Username)
	if err != nil {
		return err
	}

	dialTimeout := c.cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	conn, _, err := websocket.Dial(dialCtx, feed, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusInternalError, "closing")
	conn.SetReadLimit(1 << 20)

	log.Printf("connector: attached to %s", feed)
	c.reportStatus(true, nil)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		frameType, payload, err := decodeFrame(data)
		if err != nil {
			// Malformed frames are dropped, never fatal.
			log.Printf("connector: bad frame: %v", err)
			continue
		}

		ev := normalize.Event(frameType, payload, time.Now().UTC())
		if ev.Kind == "" {
			continue
		}
		if c.handle != nil {
			c.handle(ev)
		}
	}
}

func (c *Client) reportStatus(connected bool, err error) {
	if c.status != nil {
		c.status(connected, err)
	}
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func decodeFrame(raw []byte) (string, []byte, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return "", nil, err
	}
	if f.Type == "" {
		return "", nil, errors.New("frame missing type")
	}
	return f.Type, f.Data, nil
}

func buildFeedURL(feed, username string) (string, error) {
	u, err := url.Parse(feed)
	if err != nil {
		return "", fmt.Errorf("feed url: %w", err)
	}
	if username != "" {
		q := u.Query()
		q.Set("username", username)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
