package repository

import (
	"context"
	"strings"
	"time"

	"socialrank/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	// GetForUpdate fetches the post inside a transaction with FOR UPDATE where supported.
	// The lock must be at least as strong as the like_count UPDATE that follows it,
	// or two concurrent likers holding weaker locks deadlock on the upgrade.
	GetForUpdate(ctx context.Context, id uint) (*models.Post, error)
	GetByUserID(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error)
	ListLatest(ctx context.Context, limit, offset int) ([]*models.Post, error)
	ListPopularSince(ctx context.Context, since time.Time, limit, offset int) ([]*models.Post, error)
	ListByFollowed(ctx context.Context, followerID uint, limit, offset int) ([]*models.Post, error)
	ListLikedBy(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error)
	Search(ctx context.Context, query string, limit, offset int) ([]*models.Post, error)
	IDsByAuthor(ctx context.Context, userID uint) ([]uint, error)
	AddLikeCount(ctx context.Context, id uint, delta int64) error
	Delete(ctx context.Context, id uint) error
	DeleteByAuthor(ctx context.Context, userID uint) error
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Omit("User").Create(post).Error
	return wrapErr(err, "Post", post.ID)
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("User").First(&post, id).Error; err != nil {
		return nil, wrapErr(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) GetForUpdate(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	q := r.db.WithContext(ctx)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&post, id).Error; err != nil {
		return nil, wrapErr(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) GetByUserID(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	limit, offset = Page(limit, offset)
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) ListLatest(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	limit, offset = Page(limit, offset)
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) ListPopularSince(ctx context.Context, since time.Time, limit, offset int) ([]*models.Post, error) {
	limit, offset = Page(limit, offset)
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("created_at >= ?", since).
		Order("like_count DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) ListByFollowed(ctx context.Context, followerID uint, limit, offset int) ([]*models.Post, error) {
	limit, offset = Page(limit, offset)
	var posts []*models.Post
	followed := r.db.Model(&models.Follow{}).Select("followee_id").Where("follower_id = ?", followerID)
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id IN (?)", followed).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// ListLikedBy returns the posts userID liked, most recent like first.
func (r *postRepository) ListLikedBy(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	limit, offset = Page(limit, offset)
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Joins("JOIN likes ON likes.post_id = posts.id").
		Where("likes.user_id = ?", userID).
		Order("likes.created_at DESC, likes.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) Search(ctx context.Context, query string, limit, offset int) ([]*models.Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*models.Post{}, nil
	}
	limit, offset = Page(limit, offset)
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("LOWER(content) LIKE ?", "%"+strings.ToLower(query)+"%").
		Order("like_count DESC, created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) IDsByAuthor(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Post{}).Where("user_id = ?", userID).Pluck("id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *postRepository) AddLikeCount(ctx context.Context, id uint, delta int64) error {
	if delta == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		Update("like_count", counterDelta("like_count", delta))
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func (r *postRepository) DeleteByAuthor(ctx context.Context, userID uint) error {
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Post{}).Error
	return wrapErr(err, "Post", userID)
}
