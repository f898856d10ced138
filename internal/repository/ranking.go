package repository

import (
	"context"
	"fmt"
	"time"

	"socialrank/internal/models"

	"gorm.io/gorm"
)

// RankingRepository evaluates leaderboards against live aggregates.
//
// Entities are ordered by metric value descending, then created_at ascending,
// then id ascending, so every entity has a distinct position.
type RankingRepository interface {
	// RankOf returns the 1-based position of subjectID, or ok=false when the subject
	// does not exist or falls outside the trend window. since is only used by the
	// 24h post metric.
	RankOf(ctx context.Context, metric models.Metric, subjectID uint, since time.Time) (rank int, ok bool, err error)
	TopUsers(ctx context.Context, metric models.Metric, limit, offset int) ([]models.RankedUser, error)
	TopPosts(ctx context.Context, metric models.Metric, since time.Time, limit, offset int) ([]models.RankedPost, error)
}

type rankingRepository struct {
	db *gorm.DB
}

// NewRankingRepository returns a RankingRepository bound to db.
func NewRankingRepository(db *gorm.DB) RankingRepository {
	return &rankingRepository{db: db}
}

// subject is the ordering key of a ranked entity.
type subject struct {
	ID        uint
	Value     int64
	CreatedAt time.Time
}

func userValueColumn(metric models.Metric) (string, error) {
	switch metric {
	case models.MetricUserTotalLikes:
		return "user_stats.total_likes_received", nil
	case models.MetricUserLevel:
		return "users.level", nil
	case models.MetricUserFollowers:
		return "user_stats.follower_count", nil
	default:
		return "", models.NewValidationError(fmt.Sprintf("%s is not a user metric", metric))
	}
}

func (r *rankingRepository) userBase(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN user_stats ON user_stats.user_id = users.id")
}

func (r *rankingRepository) postBase(ctx context.Context, metric models.Metric, since time.Time) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Post{})
	if metric == models.MetricPostLikes24h {
		q = q.Where("posts.created_at >= ?", since)
	}
	return q
}

func (r *rankingRepository) RankOf(ctx context.Context, metric models.Metric, subjectID uint, since time.Time) (int, bool, error) {
	var (
		base    *gorm.DB
		value   string
		table   string
		subj    subject
		scanned *gorm.DB
	)
	if metric.IsPostMetric() {
		table, value = "posts", "posts.like_count"
		base = r.postBase(ctx, metric, since)
		scanned = r.postBase(ctx, metric, since)
	} else {
		col, err := userValueColumn(metric)
		if err != nil {
			return 0, false, err
		}
		table, value = "users", col
		base = r.userBase(ctx)
		scanned = r.userBase(ctx)
	}

	res := scanned.
		Select(fmt.Sprintf("%s.id AS id, %s AS value, %s.created_at AS created_at", table, value, table)).
		Where(table+".id = ?", subjectID).
		Limit(1).
		Scan(&subj)
	if res.Error != nil {
		return 0, false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, false, nil
	}

	var ahead int64
	err := base.
		Where(fmt.Sprintf(
			"(%[1]s > ? OR (%[1]s = ? AND (%[2]s.created_at < ? OR (%[2]s.created_at = ? AND %[2]s.id < ?))))",
			value, table,
		), subj.Value, subj.Value, subj.CreatedAt, subj.CreatedAt, subj.ID).
		Count(&ahead).Error
	if err != nil {
		return 0, false, models.NewInternalError(err)
	}
	return int(ahead) + 1, true, nil
}

func (r *rankingRepository) TopUsers(ctx context.Context, metric models.Metric, limit, offset int) ([]models.RankedUser, error) {
	col, err := userValueColumn(metric)
	if err != nil {
		return nil, err
	}
	limit, offset = Page(limit, offset)
	var users []models.User
	err = r.userBase(ctx).
		Preload("Stats").
		Order(col + " DESC").
		Order("users.created_at ASC").
		Order("users.id ASC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	ranked := make([]models.RankedUser, 0, len(users))
	for i, u := range users {
		ranked = append(ranked, models.RankedUser{
			Rank:  offset + i + 1,
			Value: userMetricValue(metric, &u),
			User:  u,
		})
	}
	return ranked, nil
}

func userMetricValue(metric models.Metric, u *models.User) int64 {
	if metric == models.MetricUserLevel {
		return int64(u.Level)
	}
	if u.Stats == nil {
		return 0
	}
	if metric == models.MetricUserFollowers {
		return u.Stats.FollowerCount
	}
	return u.Stats.TotalLikesReceived
}

func (r *rankingRepository) TopPosts(ctx context.Context, metric models.Metric, since time.Time, limit, offset int) ([]models.RankedPost, error) {
	if !metric.IsPostMetric() {
		return nil, models.NewValidationError(fmt.Sprintf("%s is not a post metric", metric))
	}
	limit, offset = Page(limit, offset)
	var posts []models.Post
	err := r.postBase(ctx, metric, since).
		Preload("User").
		Order("posts.like_count DESC").
		Order("posts.created_at ASC").
		Order("posts.id ASC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	ranked := make([]models.RankedPost, 0, len(posts))
	for i, p := range posts {
		ranked = append(ranked, models.RankedPost{
			Rank:  offset + i + 1,
			Value: p.LikeCount,
			Post:  p,
		})
	}
	return ranked, nil
}
