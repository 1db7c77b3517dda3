package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/UkralStul/postboard/internal/domain"
	"github.com/UkralStul/postboard/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tickingClock возвращает часы, которые сдвигаются на минуту при каждом вызове.
func tickingClock() func() time.Time {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

// newTestStore создает хранилище и один пост для тестов
func newTestStore(t *testing.T) (storage.Storage, *domain.Post) {
	store := New(WithClock(tickingClock()))
	post, err := store.CreatePost(context.Background(), domain.Draft{Author: "Amy", Content: "hello"})
	require.NoError(t, err)
	return store, post
}

func TestStore_CreateAndGetPost(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	assert.NotEmpty(t, post.ID)
	assert.NotEmpty(t, post.CreatedAt)
	assert.Empty(t, post.ModifiedAt)

	retrieved, err := store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, *post, *retrieved)

	_, err = store.GetPost(ctx, "non-existent-id")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_CreatePost_EmptyContent(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.CreatePost(context.Background(), domain.Draft{Content: "  "})
	assert.ErrorIs(t, err, storage.ErrEmptyContent)
}

func TestStore_ListNewestFirst(t *testing.T) {
	store, first := newTestStore(t)
	ctx := context.Background()

	second, err := store.CreatePost(ctx, domain.Draft{Content: "second"})
	require.NoError(t, err)

	posts, err := store.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, second.ID, posts[0].ID)
	assert.Equal(t, first.ID, posts[1].ID)
}

func TestStore_UpdatePost(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	updated, err := store.UpdatePost(ctx, post.ID, domain.Draft{Content: "edited", ImageURL: "http://img"})
	require.NoError(t, err)
	assert.Equal(t, post.ID, updated.ID)
	assert.Equal(t, "edited", updated.Content)
	assert.Empty(t, updated.Author)
	assert.Equal(t, post.CreatedAt, updated.CreatedAt)
	assert.NotEmpty(t, updated.ModifiedAt)

	_, err = store.UpdatePost(ctx, "missing", domain.Draft{Content: "x"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_DeletePost(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.DeletePost(ctx, post.ID))
	assert.ErrorIs(t, store.DeletePost(ctx, post.ID), storage.ErrNotFound)

	posts, err := store.ListPosts(ctx)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestStore_ReturnsCopies(t *testing.T) {
	store, post := newTestStore(t)

	post.Content = "mutated outside"
	retrieved, err := store.GetPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", retrieved.Content)
}
