package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/UkralStul/postboard/internal/domain"
)

// FeedURL derives the change-feed websocket URL from the base endpoint.
func (c *Client) FeedURL() (string, error) {
	u, err := url.Parse(c.BaseURL())
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("base url %q is not absolute http(s)", c.BaseURL())
	}
	return u.JoinPath("events").String(), nil
}

// Watch reads change events and hands them to fn until ctx is done or the
// connection drops. Malformed messages are logged and skipped.
func (c *Client) Watch(ctx context.Context, fn func(domain.Event)) error {
	target, err := c.FeedURL()
	if err != nil {
		return &Error{Kind: Transport, Message: err.Error(), Err: err}
	}

	conn, resp, err := c.dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return &Error{Kind: Protocol, Status: resp.StatusCode, Message: fmt.Sprintf("feed dial: %s", resp.Status), Err: err}
		}
		return &Error{Kind: Transport, Message: err.Error(), Err: err}
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	c.log.Info("following change feed", "url", target)
	for {
		mt, p, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &Error{Kind: Transport, Message: fmt.Sprintf("feed read: %v", err), Err: err}
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		var ev domain.Event
		if err := json.Unmarshal(p, &ev); err != nil || ev.ID == "" {
			c.log.Warn("skipping malformed feed event", "err", err, "payload", string(p))
			continue
		}
		fn(ev)
	}
}
