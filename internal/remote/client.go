// Package remote is the HTTP client for the posts REST API.
package remote

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
	"sync"

	"github.com/gorilla/websocket"

	"github.com/UkralStul/postboard/internal/domain"
)

// Client issues CRUD requests against a base endpoint. It never retries; a
// failed attempt is returned to the caller as is.
type Client struct {
	mu   sync.RWMutex
	base string

	http   *http.Client
	dialer *websocket.Dialer
	log    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithDialer replaces websocket.DefaultDialer for the change feed.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New returns a client for base, e.g. "http://localhost:8080/api/posts".
func New(base string, opts ...Option) *Client {
	c := &Client{
		http:   http.DefaultClient,
		dialer: websocket.DefaultDialer,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.SetBaseURL(base)
	return c
}

// SetBaseURL replaces the base endpoint, trimming one trailing slash. Calls
// made afterwards use the new value.
func (c *Client) SetBaseURL(base string) {
	base = strings.TrimSpace(base)
	if strings.HasSuffix(base, "/") {
		base = base[:len(base)-1]
	}
	c.mu.Lock()
	c.base = base
	c.mu.Unlock()
}

// BaseURL returns the endpoint in use.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base
}

func (c *Client) endpoint(id domain.ID) string {
	base := c.BaseURL()
	if id == "" {
		return base
	}
	return base + "/" + url.PathEscape(id.String())
}

// List fetches every post. It never returns a nil slice on success.
func (c *Client) List(ctx context.Context) ([]domain.Post, error) {
	reply, err := c.do(ctx, http.MethodGet, "", nil)
	if err != nil {
		return nil, err
	}
	if reply.Empty() {
		return []domain.Post{}, nil
	}
	if reply.JSON == nil {
		return nil, contractError("unexpected list payload", nil)
	}
	var posts []domain.Post
	if err := json.Unmarshal(reply.JSON, &posts); err != nil {
		return nil, contractError("unexpected list payload", err)
	}
	if posts == nil {
		posts = []domain.Post{}
	}
	return posts, nil
}

// Get fetches a single post.
func (c *Client) Get(ctx context.Context, id domain.ID) (*Reply, error) {
	return c.do(ctx, http.MethodGet, id, nil)
}

// GetPost is Get followed by Reply.Post.
func (c *Client) GetPost(ctx context.Context, id domain.ID) (*domain.Post, error) {
	reply, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return reply.Post()
}

// Create posts a new draft. The reply carries the server-confirmed post.
func (c *Client) Create(ctx context.Context, draft domain.Draft) (*Reply, error) {
	return c.do(ctx, http.MethodPost, "", draft)
}

// Update replaces the editable fields of post id.
func (c *Client) Update(ctx context.Context, id domain.ID, draft domain.Draft) (*Reply, error) {
	return c.do(ctx, http.MethodPut, id, draft)
}

// Delete removes post id. Any payload is ignored.
func (c *Client) Delete(ctx context.Context, id domain.ID) error {
	_, err := c.do(ctx, http.MethodDelete, id, nil)
	return err
}

func (c *Client) do(ctx context.Context, method string, id domain.ID, body any) (*Reply, error) {
	target := c.endpoint(id)

	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", method, err)
		}
		rdr = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return nil, &Error{Kind: Transport, Message: err.Error(), Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed", "method", method, "url", target, "err", err)
		return nil, &Error{Kind: Transport, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	reply, err := readResponse(resp)
	c.log.Debug("request done", "method", method, "url", target, "status", resp.StatusCode)
	return reply, err
}
