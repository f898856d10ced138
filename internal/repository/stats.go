package repository

import (
	"context"
	"time"

	"socialrank/internal/models"

	"gorm.io/gorm"
)

// Stat counter columns.
const (
	ColExperience     = "experience_points"
	ColLikesReceived  = "total_likes_received"
	ColLikesGiven     = "total_likes_given"
	ColFollowerCount  = "follower_count"
	ColFollowingCount = "following_count"
	ColPostCount      = "post_count"
)

// StatsRepository mutates per-user counters with atomic SQL deltas.
type StatsRepository interface {
	Create(ctx context.Context, userID uint) error
	Get(ctx context.Context, userID uint) (*models.UserStats, error)
	// Add applies each column delta in one UPDATE. Negative deltas clamp at zero.
	Add(ctx context.Context, userID uint, deltas map[string]int64) error
	// AddExperience increments experience and returns the new total.
	AddExperience(ctx context.Context, userID uint, points int64) (int64, error)
	MarkLevelUp(ctx context.Context, userID uint, at time.Time) error
	Delete(ctx context.Context, userID uint) error
}

type statsRepository struct {
	db *gorm.DB
}

// NewStatsRepository returns a StatsRepository bound to db.
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) Create(ctx context.Context, userID uint) error {
	err := r.db.WithContext(ctx).Create(&models.UserStats{UserID: userID}).Error
	if isUniqueViolation(err) {
		return models.NewDuplicateError("user stats")
	}
	return wrapErr(err, "UserStats", userID)
}

func (r *statsRepository) Get(ctx context.Context, userID uint) (*models.UserStats, error) {
	var stats models.UserStats
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&stats).Error; err != nil {
		return nil, wrapErr(err, "UserStats", userID)
	}
	return &stats, nil
}

func (r *statsRepository) Add(ctx context.Context, userID uint, deltas map[string]int64) error {
	updates := make(map[string]interface{}, len(deltas))
	for col, d := range deltas {
		if d == 0 {
			continue
		}
		updates[col] = counterDelta(col, d)
	}
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.UserStats{}).Where("user_id = ?", userID).Updates(updates)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("UserStats", userID)
	}
	return nil
}

func (r *statsRepository) AddExperience(ctx context.Context, userID uint, points int64) (int64, error) {
	if err := r.Add(ctx, userID, map[string]int64{ColExperience: points}); err != nil {
		return 0, err
	}
	var total int64
	err := r.db.WithContext(ctx).Model(&models.UserStats{}).
		Where("user_id = ?", userID).
		Select(ColExperience).
		Scan(&total).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return total, nil
}

func (r *statsRepository) MarkLevelUp(ctx context.Context, userID uint, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&models.UserStats{}).
		Where("user_id = ?", userID).
		Update("last_level_up", at).Error
	return wrapErr(err, "UserStats", userID)
}

func (r *statsRepository) Delete(ctx context.Context, userID uint) error {
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.UserStats{}).Error
	return wrapErr(err, "UserStats", userID)
}
