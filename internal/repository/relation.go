package repository

import (
	"context"

	"socialrank/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeCount is a per-user aggregate used during cascade cleanup.
type LikeCount struct {
	UserID uint
	Count  int64
}

// LikeRepository persists Like rows.
type LikeRepository interface {
	// Create inserts the like, returning a duplicate error when the pair already exists.
	Create(ctx context.Context, like *models.Like) error
	GetByID(ctx context.Context, id uint) (*models.Like, error)
	GetByPair(ctx context.Context, userID, postID uint) (*models.Like, error)
	Delete(ctx context.Context, id uint) error
	LikedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error)
	// CountByLikerOnPosts groups likes on the given posts by liker.
	CountByLikerOnPosts(ctx context.Context, postIDs []uint) ([]LikeCount, error)
	// PostsLikedBy lists the post IDs userID has liked.
	PostsLikedBy(ctx context.Context, userID uint) ([]uint, error)
	DeleteByPosts(ctx context.Context, postIDs []uint) error
	DeleteByUser(ctx context.Context, userID uint) error
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository returns a LikeRepository bound to db.
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) Create(ctx context.Context, like *models.Like) error {
	// ON CONFLICT DO NOTHING keeps the check and the insert in one statement
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(like)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return models.NewDuplicateError("like")
		}
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewDuplicateError("like")
	}
	return nil
}

func (r *likeRepository) GetByID(ctx context.Context, id uint) (*models.Like, error) {
	var like models.Like
	if err := r.db.WithContext(ctx).First(&like, id).Error; err != nil {
		return nil, wrapErr(err, "Like", id)
	}
	return &like, nil
}

func (r *likeRepository) GetByPair(ctx context.Context, userID, postID uint) (*models.Like, error) {
	var like models.Like
	err := r.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).First(&like).Error
	if err != nil {
		return nil, wrapErr(err, "Like for post", postID)
	}
	return &like, nil
}

func (r *likeRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Like{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Like", id)
	}
	return nil
}

func (r *likeRepository) LikedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error) {
	if len(postIDs) == 0 {
		return []uint{}, nil
	}
	var liked []uint
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &liked).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return liked, nil
}

func (r *likeRepository) CountByLikerOnPosts(ctx context.Context, postIDs []uint) ([]LikeCount, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	var rows []LikeCount
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Select("user_id, COUNT(*) AS count").
		Where("post_id IN ?", postIDs).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

func (r *likeRepository) PostsLikedBy(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Like{}).Where("user_id = ?", userID).Pluck("post_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *likeRepository) DeleteByPosts(ctx context.Context, postIDs []uint) error {
	if len(postIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Where("post_id IN ?", postIDs).Delete(&models.Like{}).Error
	return wrapErr(err, "Like", postIDs)
}

func (r *likeRepository) DeleteByUser(ctx context.Context, userID uint) error {
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Like{}).Error
	return wrapErr(err, "Like", userID)
}

// FollowRepository persists Follow edges.
type FollowRepository interface {
	Create(ctx context.Context, follow *models.Follow) error
	GetByID(ctx context.Context, id uint) (*models.Follow, error)
	GetByPair(ctx context.Context, followerID, followeeID uint) (*models.Follow, error)
	Delete(ctx context.Context, id uint) error
	FollowerIDs(ctx context.Context, followeeID uint) ([]uint, error)
	FolloweeIDs(ctx context.Context, followerID uint) ([]uint, error)
	DeleteByUser(ctx context.Context, userID uint) error
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository returns a FollowRepository bound to db.
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Create(ctx context.Context, follow *models.Follow) error {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(follow)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return models.NewDuplicateError("follow")
		}
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewDuplicateError("follow")
	}
	return nil
}

func (r *followRepository) GetByID(ctx context.Context, id uint) (*models.Follow, error) {
	var follow models.Follow
	if err := r.db.WithContext(ctx).First(&follow, id).Error; err != nil {
		return nil, wrapErr(err, "Follow", id)
	}
	return &follow, nil
}

func (r *followRepository) GetByPair(ctx context.Context, followerID, followeeID uint) (*models.Follow, error) {
	var follow models.Follow
	err := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		First(&follow).Error
	if err != nil {
		return nil, wrapErr(err, "Follow of user", followeeID)
	}
	return &follow, nil
}

func (r *followRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Follow{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Follow", id)
	}
	return nil
}

func (r *followRepository) FollowerIDs(ctx context.Context, followeeID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Follow{}).Where("followee_id = ?", followeeID).Pluck("follower_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *followRepository) FolloweeIDs(ctx context.Context, followerID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Follow{}).Where("follower_id = ?", followerID).Pluck("followee_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *followRepository) DeleteByUser(ctx context.Context, userID uint) error {
	err := r.db.WithContext(ctx).
		Where("follower_id = ? OR followee_id = ?", userID, userID).
		Delete(&models.Follow{}).Error
	return wrapErr(err, "Follow", userID)
}
