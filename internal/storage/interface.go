package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/UkralStul/postboard/internal/domain"
)

// ErrNotFound возвращается, если поста с таким id нет.
var ErrNotFound = errors.New("post not found")

// ErrEmptyContent возвращается для черновика без текста.
var ErrEmptyContent = errors.New("post content cannot be empty")

// Validate проверяет черновик перед записью.
func Validate(draft domain.Draft) error {
	if strings.TrimSpace(draft.Content) == "" {
		return ErrEmptyContent
	}
	return nil
}

// Storage определяет контракт для хранилищ постов.
type Storage interface {
	ListPosts(ctx context.Context) ([]*domain.Post, error)
	GetPost(ctx context.Context, id domain.ID) (*domain.Post, error)
	CreatePost(ctx context.Context, draft domain.Draft) (*domain.Post, error)
	UpdatePost(ctx context.Context, id domain.ID, draft domain.Draft) (*domain.Post, error)
	DeletePost(ctx context.Context, id domain.ID) error
}
