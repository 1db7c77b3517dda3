package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/UkralStul/postboard/internal/domain"
	"github.com/UkralStul/postboard/internal/storage"
)

// Store реализует интерфейс Storage с использованием PostgreSQL.
type Store struct {
	db *gorm.DB
}

// New создает новый экземпляр хранилища PostgreSQL.
func New(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Выполняем миграцию схемы
	if err := db.AutoMigrate(&domain.Post{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) CreatePost(ctx context.Context, draft domain.Draft) (*domain.Post, error) {
	if err := storage.Validate(draft); err != nil {
		return nil, err
	}
	post := &domain.Post{
		ID:        domain.ID(uuid.NewString()),
		Author:    draft.Author,
		Content:   draft.Content,
		ImageURL:  draft.ImageURL,
		CreatedAt: domain.NewTimestamp(time.Now()),
	}
	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

func (s *Store) GetPost(ctx context.Context, id domain.ID) (*domain.Post, error) {
	var post domain.Post
	if err := s.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

func (s *Store) ListPosts(ctx context.Context) ([]*domain.Post, error) {
	posts := []*domain.Post{}
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&posts).Error
	return posts, err
}

func (s *Store) UpdatePost(ctx context.Context, id domain.ID, draft domain.Draft) (*domain.Post, error) {
	if err := storage.Validate(draft); err != nil {
		return nil, err
	}
	var post domain.Post
	// Используем транзакцию для атомарности операции чтения-записи
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&post, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		post.Author = draft.Author
		post.Content = draft.Content
		post.ImageURL = draft.ImageURL
		post.ModifiedAt = domain.NewTimestamp(time.Now())
		return tx.Save(&post).Error
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *Store) DeletePost(ctx context.Context, id domain.ID) error {
	res := s.db.WithContext(ctx).Delete(&domain.Post{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GORM возвращает gorm.ErrRecordNotFound, если запись не найдена
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	return err
}
