// Package posts owns the local collection of posts and reconciles it with the
// remote store. Mutations are applied only after the server confirms them.
package posts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/UkralStul/postboard/internal/dataloader"
	"github.com/UkralStul/postboard/internal/domain"
	"github.com/UkralStul/postboard/internal/remote"
)

// RefreshFailedPrefix starts the error shown when the list cannot be loaded.
const RefreshFailedPrefix = "Failed to load posts"

// DeletePrompt is the question asked before a delete is dispatched.
const DeletePrompt = "Delete this post?"

// Remote is the subset of remote.Client the controller needs.
type Remote interface {
	List(ctx context.Context) ([]domain.Post, error)
	Create(ctx context.Context, draft domain.Draft) (*remote.Reply, error)
	Update(ctx context.Context, id domain.ID, draft domain.Draft) (*remote.Reply, error)
	Delete(ctx context.Context, id domain.ID) error
}

// Loader fetches a single post.
type Loader interface {
	Load(ctx context.Context, id domain.ID) (*domain.Post, error)
}

// Feed delivers server change events.
type Feed interface {
	Watch(ctx context.Context, fn func(domain.Event)) error
}

// Confirmer gates destructive actions.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// State is a snapshot of the controller.
type State struct {
	Posts   []domain.Post
	Loading bool
	Err     string
	// Editing is the post being edited; nil means create mode.
	Editing *domain.Post
}

// Index returns the position of id in Posts or -1.
func (s State) Index(id domain.ID) int {
	for i := range s.Posts {
		if s.Posts[i].ID == id {
			return i
		}
	}
	return -1
}

func (s State) clone() State {
	out := s
	out.Posts = append([]domain.Post(nil), s.Posts...)
	if out.Posts == nil {
		out.Posts = []domain.Post{}
	}
	if s.Editing != nil {
		e := *s.Editing
		out.Editing = &e
	}
	return out
}

// Controller mediates every mutation of the collection.
//
// Each request takes a ticket from a single counter. A resolved response is
// applied only if no newer request for the same target (the whole list for
// Refresh, the post id otherwise) was issued in the meantime.
type Controller struct {
	remote Remote
	loader Loader
	feed   Feed
	log    *slog.Logger

	mu        sync.Mutex
	state     State
	seq       uint64
	refreshAt uint64
	targets   map[domain.ID]uint64
	listeners []func(State)
}

// Option configures a Controller.
type Option func(*Controller)

func WithLoader(l Loader) Option { return func(c *Controller) { c.loader = l } }

func WithFeed(f Feed) Option { return func(c *Controller) { c.feed = f } }

func WithLogger(l *slog.Logger) Option { return func(c *Controller) { c.log = l } }

// New builds a controller over r. When r can also fetch single posts or
// follow the change feed, those capabilities are wired automatically.
func New(r Remote, opts ...Option) *Controller {
	c := &Controller{
		remote:  r,
		log:     slog.Default(),
		state:   State{Posts: []domain.Post{}},
		targets: make(map[domain.ID]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.loader == nil {
		if f, ok := r.(dataloader.Fetcher); ok {
			c.loader = dataloader.New(f)
		}
	}
	if c.feed == nil {
		if f, ok := r.(Feed); ok {
			c.feed = f
		}
	}
	return c
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// OnChange registers fn to be called synchronously after every state change.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// update runs fn under the lock and notifies listeners when fn reports a change.
func (c *Controller) update(fn func(s *State) bool) {
	c.mu.Lock()
	if !fn(&c.state) {
		c.mu.Unlock()
		return
	}
	snap := c.state.clone()
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

func (c *Controller) issue(id domain.ID) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.targets[id] = c.seq
	return c.seq
}

// current reports whether ticket is still the newest for id and retires it if so.
// Must be called with mu held.
func (c *Controller) current(id domain.ID, ticket uint64) bool {
	if c.targets[id] != ticket {
		return false
	}
	delete(c.targets, id)
	return true
}

// Refresh replaces the collection with the server's list, newest first.
// On failure the collection is kept and the error is surfaced.
func (c *Controller) Refresh(ctx context.Context) error {
	var ticket uint64
	c.update(func(s *State) bool {
		c.seq++
		ticket = c.seq
		c.refreshAt = ticket
		s.Loading = true
		return true
	})

	posts, err := c.remote.List(ctx)
	if err != nil {
		c.log.Error("refresh failed", "err", err, "kind", remote.KindOf(err))
	} else {
		posts = uniqueByID(SortNewestFirst(c.confirmedOnly(posts)))
	}

	c.update(func(s *State) bool {
		if ticket != c.refreshAt {
			c.log.Debug("discarding superseded refresh", "ticket", ticket)
			return false
		}
		s.Loading = false
		if err != nil {
			s.Err = fmt.Sprintf("%s: %s", RefreshFailedPrefix, err.Error())
			return true
		}
		s.Posts = posts
		s.Err = ""
		return true
	})
	return err
}

// Create sends draft and inserts the confirmed post at the front.
func (c *Controller) Create(ctx context.Context, draft domain.Draft) (*domain.Post, error) {
	post, err := confirmed(c.remote.Create(ctx, draft))
	if err != nil {
		c.fail("create failed", err)
		return nil, err
	}

	c.update(func(s *State) bool {
		// a feed event may have delivered the post already
		if i := s.Index(post.ID); i >= 0 {
			s.Posts[i] = *post
		} else {
			s.Posts = append([]domain.Post{*post}, s.Posts...)
		}
		s.Err = ""
		return true
	})
	return post, nil
}

// Update sends draft for post id and replaces the local entry with the
// server's representation.
func (c *Controller) Update(ctx context.Context, id domain.ID, draft domain.Draft) (*domain.Post, error) {
	ticket := c.issue(id)
	post, err := confirmed(c.remote.Update(ctx, id, draft))
	if err != nil {
		c.log.Error("update failed", "post", id, "err", err, "kind", remote.KindOf(err))
	}

	c.update(func(s *State) bool {
		if !c.current(id, ticket) {
			c.log.Debug("discarding superseded update", "post", id, "ticket", ticket)
			return false
		}
		if err != nil {
			s.Err = err.Error()
			return true
		}
		s.Editing = nil
		s.Err = ""
		if i := s.Index(post.ID); i >= 0 {
			s.Posts[i] = *post
		} else {
			c.log.Debug("updated post no longer listed", "post", post.ID)
		}
		return true
	})
	return post, err
}

// Delete asks confirm first; a declined prompt is a no-op and returns false.
func (c *Controller) Delete(ctx context.Context, id domain.ID, confirm Confirmer) (bool, error) {
	ok, err := confirm.Confirm(ctx, DeletePrompt)
	if err != nil {
		return false, fmt.Errorf("confirm delete: %w", err)
	}
	if !ok {
		return false, nil
	}

	ticket := c.issue(id)
	err = c.remote.Delete(ctx, id)
	if err != nil {
		c.log.Error("delete failed", "post", id, "err", err, "kind", remote.KindOf(err))
	}

	c.update(func(s *State) bool {
		if !c.current(id, ticket) {
			c.log.Debug("discarding superseded delete", "post", id, "ticket", ticket)
			return false
		}
		if err != nil {
			s.Err = err.Error()
			return true
		}
		removeLocked(s, id)
		return true
	})
	return err == nil, err
}

// Reload refetches one post and replaces it in place if it is still listed.
func (c *Controller) Reload(ctx context.Context, id domain.ID) (*domain.Post, error) {
	if c.loader == nil {
		return nil, errors.New("reload: no loader configured")
	}
	ticket := c.issue(id)
	post, err := c.loader.Load(ctx, id)
	if err != nil {
		c.log.Error("reload failed", "post", id, "err", err, "kind", remote.KindOf(err))
	}

	c.update(func(s *State) bool {
		if !c.current(id, ticket) {
			return false
		}
		if err != nil {
			s.Err = err.Error()
			return true
		}
		i := s.Index(post.ID)
		if i < 0 {
			return false
		}
		s.Posts[i] = *post
		return true
	})
	return post, err
}

// Edit selects post id as the editing target. It reports false if id is not listed.
func (c *Controller) Edit(id domain.ID) bool {
	found := false
	c.update(func(s *State) bool {
		i := s.Index(id)
		if i < 0 {
			return false
		}
		p := s.Posts[i]
		s.Editing = &p
		found = true
		return true
	})
	return found
}

// CancelEdit returns to create mode.
func (c *Controller) CancelEdit() {
	c.update(func(s *State) bool {
		if s.Editing == nil {
			return false
		}
		s.Editing = nil
		return true
	})
}

// ClearError empties the error slot.
func (c *Controller) ClearError() {
	c.update(func(s *State) bool {
		if s.Err == "" {
			return false
		}
		s.Err = ""
		return true
	})
}

// Follow applies change-feed events until ctx is done or the feed fails.
func (c *Controller) Follow(ctx context.Context) error {
	if c.feed == nil {
		return errors.New("follow: no feed configured")
	}
	err := c.feed.Watch(ctx, c.Apply)
	if err != nil && !errors.Is(err, context.Canceled) {
		c.log.Error("change feed stopped", "err", err)
	}
	return err
}

// Apply merges one server event into the collection without creating duplicates.
func (c *Controller) Apply(ev domain.Event) {
	c.update(func(s *State) bool {
		switch ev.Type {
		case domain.EventCreated:
			if ev.Post == nil || ev.Post.ID != ev.ID {
				return false
			}
			if i := s.Index(ev.ID); i >= 0 {
				s.Posts[i] = *ev.Post
				return true
			}
			s.Posts = append([]domain.Post{*ev.Post}, s.Posts...)
			return true
		case domain.EventUpdated:
			if ev.Post == nil || ev.Post.ID != ev.ID {
				return false
			}
			i := s.Index(ev.ID)
			if i < 0 {
				return false
			}
			s.Posts[i] = *ev.Post
			return true
		case domain.EventDeleted:
			return removeLocked(s, ev.ID)
		default:
			c.log.Warn("unknown feed event", "type", ev.Type, "post", ev.ID)
			return false
		}
	})
}

func (c *Controller) fail(msg string, err error) {
	c.log.Error(msg, "err", err, "kind", remote.KindOf(err))
	c.update(func(s *State) bool {
		s.Err = err.Error()
		return true
	})
}

func removeLocked(s *State, id domain.ID) bool {
	i := s.Index(id)
	if i < 0 {
		return false
	}
	s.Posts = append(s.Posts[:i:i], s.Posts[i+1:]...)
	if s.Editing != nil && s.Editing.ID == id {
		s.Editing = nil
	}
	return true
}

// confirmed turns a reply into a post, treating malformed payloads as failures.
func confirmed(reply *remote.Reply, err error) (*domain.Post, error) {
	if err != nil {
		return nil, err
	}
	return reply.Post()
}

// SortNewestFirst orders posts by createdAt descending. Missing or
// unparseable timestamps sort last. The sort is stable.
func SortNewestFirst(posts []domain.Post) []domain.Post {
	type keyed struct {
		post domain.Post
		at   time.Time
		ok   bool
	}
	items := make([]keyed, len(posts))
	for i, p := range posts {
		at, ok := p.CreatedAt.Time()
		items[i] = keyed{post: p, at: at, ok: ok}
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.ok != b.ok {
			return a.ok
		}
		return a.ok && a.at.After(b.at)
	})

	out := make([]domain.Post, len(items))
	for i, it := range items {
		out[i] = it.post
	}
	return out
}

// confirmedOnly drops list entries the server returned without an id.
func (c *Controller) confirmedOnly(posts []domain.Post) []domain.Post {
	out := make([]domain.Post, 0, len(posts))
	for _, p := range posts {
		if p.ID == "" {
			c.log.Warn("dropping listed post without id", "kind", remote.Contract, "content", p.Content)
			continue
		}
		out = append(out, p)
	}
	return out
}

func uniqueByID(posts []domain.Post) []domain.Post {
	seen := make(map[domain.ID]struct{}, len(posts))
	out := posts[:0]
	for _, p := range posts {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}
