// Package dataloader coalesces concurrent single-post fetches.
package dataloader

import (
	"context"
	"fmt"
	"time"

	"github.com/graph-gophers/dataloader"
	"golang.org/x/sync/errgroup"

	"github.com/UkralStul/postboard/internal/domain"
)

const (
	defaultWait     = time.Millisecond
	defaultParallel = 4
)

// Fetcher loads one post by id.
type Fetcher interface {
	GetPost(ctx context.Context, id domain.ID) (*domain.Post, error)
}

// Loader batches Load calls that arrive within the wait window. Nothing is
// cached between batches, so every batch observes current server state.
type Loader struct {
	fetcher  Fetcher
	parallel int
	wait     time.Duration
	loader   *dataloader.Loader
}

// Option configures a Loader.
type Option func(*Loader)

// WithParallel bounds the number of requests in flight per batch.
func WithParallel(n int) Option {
	return func(l *Loader) { l.parallel = n }
}

// WithWait sets how long a batch collects keys before dispatching.
func WithWait(d time.Duration) Option {
	return func(l *Loader) { l.wait = d }
}

func New(fetcher Fetcher, opts ...Option) *Loader {
	l := &Loader{fetcher: fetcher, parallel: defaultParallel, wait: defaultWait}
	for _, opt := range opts {
		opt(l)
	}
	l.loader = dataloader.NewBatchedLoader(l.batch,
		dataloader.WithCache(&dataloader.NoCache{}),
		dataloader.WithWait(l.wait),
	)
	return l
}

// Load fetches post id, sharing the request with other callers in the same batch.
func (l *Loader) Load(ctx context.Context, id domain.ID) (*domain.Post, error) {
	v, err := l.loader.Load(ctx, dataloader.StringKey(id))()
	if err != nil {
		return nil, err
	}
	post, ok := v.(*domain.Post)
	if !ok {
		return nil, fmt.Errorf("loader returned %T for post %s", v, id)
	}
	return post, nil
}

type outcome struct {
	post *domain.Post
	err  error
}

// batch fetches every distinct id once and returns results in key order.
// The batch belongs to all of its callers, so it ignores the cancellation of
// the one whose Load happened to start it.
func (l *Loader) batch(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
	ctx = context.WithoutCancel(ctx)
	outcomes := make(map[string]*outcome, len(keys))
	for _, key := range keys {
		outcomes[key.String()] = &outcome{}
	}

	var g errgroup.Group
	g.SetLimit(l.parallel)
	for id, out := range outcomes {
		g.Go(func() error {
			out.post, out.err = l.fetcher.GetPost(ctx, domain.ID(id))
			return nil
		})
	}
	_ = g.Wait()

	results := make([]*dataloader.Result, len(keys))
	for i, key := range keys {
		out := outcomes[key.String()]
		results[i] = &dataloader.Result{Data: out.post, Error: out.err}
	}
	return results
}
