package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/yapper/models"
)

// PostStore persists posts.
type PostStore struct {
	db *gorm.DB
}

func NewPostStore(db *gorm.DB) *PostStore {
	return &PostStore{db: db}
}

// Create inserts a post with zero likes, stamped now.
func (s *PostStore) Create(ctx context.Context, p *models.Post) error {
	p.ID = 0
	p.Likes = 0
	p.Edited = false
	if p.Timestamp.IsZero() {
		p.Timestamp = now()
	}
	return translate(s.db.WithContext(ctx).Create(p).Error)
}

func (s *PostStore) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var p models.Post
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// List returns every post in the requested order, newest first for ties.
func (s *PostStore) List(ctx context.Context, sort SortOption) ([]models.Post, error) {
	var posts []models.Post
	if err := s.ordered(ctx, sort).Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// ListByUsername returns the posts owned by username, newest first.
func (s *PostStore) ListByUsername(ctx context.Context, username string) ([]models.Post, error) {
	var posts []models.Post
	err := s.ordered(ctx, SortByDate).Where("username = ?", username).Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// UpdateContent replaces the body, restamps the post and marks it edited.
func (s *PostStore) UpdateContent(ctx context.Context, id uint, content string) error {
	res := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Updates(map[string]interface{}{
		"content":   content,
		"timestamp": now(),
		"edited":    true,
	})
	return affected(res)
}

// IncrementLikes adds one like in a single statement.
func (s *PostStore) IncrementLikes(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).
		UpdateColumn("likes", gorm.Expr("likes + ?", 1))
	return affected(res)
}

// Delete removes the post. Its replies are left in place.
func (s *PostStore) Delete(ctx context.Context, id uint) error {
	return affected(s.db.WithContext(ctx).Delete(&models.Post{}, id))
}

func (s *PostStore) ordered(ctx context.Context, sort SortOption) *gorm.DB {
	q := s.db.WithContext(ctx)
	if sort == SortByLikes {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: "likes"}, Desc: true})
	}
	return q.Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true})
}

func affected(res *gorm.DB) error {
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
