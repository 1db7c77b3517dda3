package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/UkralStul/postboard/internal/domain"
	"github.com/UkralStul/postboard/internal/storage"
)

// Store реализует интерфейс Storage в памяти.
type Store struct {
	mu    sync.RWMutex
	posts map[domain.ID]*domain.Post
	now   func() time.Time
}

// Option настраивает Store.
type Option func(*Store)

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New создает новый экземпляр in-memory хранилища.
func New(opts ...Option) *Store {
	s := &Store{
		posts: make(map[domain.ID]*domain.Post),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) CreatePost(ctx context.Context, draft domain.Draft) (*domain.Post, error) {
	if err := storage.Validate(draft); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	post := &domain.Post{
		ID:        domain.ID(uuid.NewString()),
		Author:    draft.Author,
		Content:   draft.Content,
		ImageURL:  draft.ImageURL,
		CreatedAt: domain.NewTimestamp(s.now()),
	}
	s.posts[post.ID] = post
	cp := *post
	return &cp, nil
}

func (s *Store) GetPost(ctx context.Context, id domain.ID) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *post
	return &cp, nil
}

func (s *Store) ListPosts(ctx context.Context) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*domain.Post, 0, len(s.posts))
	for _, p := range s.posts {
		cp := *p
		all = append(all, &cp)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt > all[j].CreatedAt
	})
	return all, nil
}

func (s *Store) UpdatePost(ctx context.Context, id domain.ID, draft domain.Draft) (*domain.Post, error) {
	if err := storage.Validate(draft); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	post.Author = draft.Author
	post.Content = draft.Content
	post.ImageURL = draft.ImageURL
	post.ModifiedAt = domain.NewTimestamp(s.now())
	cp := *post
	return &cp, nil
}

func (s *Store) DeletePost(ctx context.Context, id domain.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.posts, id)
	return nil
}
