package dataloader

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/postboard/internal/domain"
)

type countingFetcher struct {
	mu    sync.Mutex
	calls map[domain.ID]int
}

func (f *countingFetcher) GetPost(ctx context.Context, id domain.ID) (*domain.Post, error) {
	f.mu.Lock()
	f.calls[id]++
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == "missing" {
		return nil, errors.New("not found")
	}
	return &domain.Post{ID: id, Content: "content of " + id.String()}, nil
}

func (f *countingFetcher) count(id domain.ID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func TestLoader_CoalescesDuplicateKeys(t *testing.T) {
	fetcher := &countingFetcher{calls: map[domain.ID]int{}}
	loader := New(fetcher, WithWait(100*time.Millisecond))
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*domain.Post, 6)
	for i := range results {
		id := domain.ID("a")
		if i%2 == 1 {
			id = "b"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			post, err := loader.Load(ctx, id)
			assert.NoError(t, err)
			results[i] = post
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, fetcher.count("a"))
	assert.Equal(t, 1, fetcher.count("b"))
	for i, post := range results {
		require.NotNil(t, post)
		if i%2 == 0 {
			assert.Equal(t, domain.ID("a"), post.ID)
		} else {
			assert.Equal(t, domain.ID("b"), post.ID)
		}
	}
}

func TestLoader_NoCacheBetweenBatches(t *testing.T) {
	fetcher := &countingFetcher{calls: map[domain.ID]int{}}
	loader := New(fetcher)
	ctx := context.Background()

	_, err := loader.Load(ctx, "a")
	require.NoError(t, err)
	_, err = loader.Load(ctx, "a")
	require.NoError(t, err)

	assert.Equal(t, 2, fetcher.count("a"))
}

func TestLoader_PropagatesErrors(t *testing.T) {
	fetcher := &countingFetcher{calls: map[domain.ID]int{}}
	loader := New(fetcher)

	post, err := loader.Load(context.Background(), "missing")
	assert.Nil(t, post)
	assert.EqualError(t, err, "not found")
}

func TestLoader_BatchOutlivesCancelledCaller(t *testing.T) {
	fetcher := &countingFetcher{calls: map[domain.ID]int{}}
	loader := New(fetcher, WithWait(100*time.Millisecond))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	first := make(chan error, 1)
	go func() {
		_, err := loader.Load(cancelled, "a")
		first <- err
	}()
	time.Sleep(10 * time.Millisecond)

	post, err := loader.Load(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, domain.ID("a"), post.ID)
	assert.NoError(t, <-first)
	assert.Equal(t, 1, fetcher.count("a"))
}
