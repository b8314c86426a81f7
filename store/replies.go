package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/yapper/models"
)

const (
	columnReplyID        = "replyId"
	columnOriginalPostID = "originalPostId"
)

// ReplyStore persists replies.
type ReplyStore struct {
	db *gorm.DB
}

func NewReplyStore(db *gorm.DB) *ReplyStore {
	return &ReplyStore{db: db}
}

// Create inserts a reply with zero likes, stamped now. The parent post is not checked.
func (s *ReplyStore) Create(ctx context.Context, r *models.Reply) error {
	r.ReplyID = 0
	r.Likes = 0
	if r.Timestamp.IsZero() {
		r.Timestamp = now()
	}
	return translate(s.db.WithContext(ctx).Create(r).Error)
}

func (s *ReplyStore) GetByID(ctx context.Context, id uint) (*models.Reply, error) {
	var r models.Reply
	if err := s.db.WithContext(ctx).Where(eq(columnReplyID, id)).First(&r).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

// List returns all replies ordered by parent post, then newest first.
func (s *ReplyStore) List(ctx context.Context) ([]models.Reply, error) {
	var replies []models.Reply
	if err := s.ordered(ctx).Find(&replies).Error; err != nil {
		return nil, err
	}
	return replies, nil
}

// ListByPost returns the replies to one post, newest first.
func (s *ReplyStore) ListByPost(ctx context.Context, postID uint) ([]models.Reply, error) {
	var replies []models.Reply
	if err := s.ordered(ctx).Where(eq(columnOriginalPostID, postID)).Find(&replies).Error; err != nil {
		return nil, err
	}
	return replies, nil
}

func (s *ReplyStore) IncrementLikes(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Reply{}).Where(eq(columnReplyID, id)).
		UpdateColumn("likes", gorm.Expr("likes + ?", 1))
	return affected(res)
}

func (s *ReplyStore) Delete(ctx context.Context, id uint) error {
	return affected(s.db.WithContext(ctx).Where(eq(columnReplyID, id)).Delete(&models.Reply{}))
}

func (s *ReplyStore) ordered(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: columnOriginalPostID}}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: columnReplyID}, Desc: true})
}
