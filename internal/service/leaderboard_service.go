package service

import (
	"context"
	"strconv"
	"time"

	"socialrank/internal/cache"
	"socialrank/internal/models"
	"socialrank/internal/observability"
	"socialrank/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// Default leaderboard tuning.
const (
	DefaultTopN        = 10
	DefaultTrendWindow = 24 * time.Hour
)

// LeaderboardConfig tunes the leaderboard evaluator.
type LeaderboardConfig struct {
	TopN        int
	TrendWindow time.Duration
	CacheTTL    time.Duration
}

// LeaderboardService answers rank and top-N questions against current aggregates.
// Nothing is materialized: every query reads the live counters.
type LeaderboardService struct {
	store       repository.Store
	topN        int
	trendWindow time.Duration
	cacheTTL    time.Duration
	now         Clock
}

// NewLeaderboardService applies defaults for zero config values.
func NewLeaderboardService(store repository.Store, cfg LeaderboardConfig) *LeaderboardService {
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}
	if cfg.TrendWindow <= 0 {
		cfg.TrendWindow = DefaultTrendWindow
	}
	return &LeaderboardService{
		store:       store,
		topN:        cfg.TopN,
		trendWindow: cfg.TrendWindow,
		cacheTTL:    cfg.CacheTTL,
		now:         systemClock,
	}
}

// WithClock overrides the clock that anchors the trend window.
func (s *LeaderboardService) WithClock(now Clock) *LeaderboardService {
	s.now = now
	return s
}

// TopN is the configured notification band.
func (s *LeaderboardService) TopN() int {
	return s.topN
}

func (s *LeaderboardService) windowStart() time.Time {
	return s.now().Add(-s.trendWindow)
}

// RankOf returns the 1-based rank of subjectID under metric when it is within
// the first topN positions, and nil otherwise. topN <= 0 uses the configured band.
func (s *LeaderboardService) RankOf(ctx context.Context, subjectID uint, metric models.Metric, topN int) (_ *int, err error) {
	span, ctx := observability.NewServiceSpan(ctx, "LeaderboardService", "RankOf",
		attribute.String("metric", string(metric)),
		attribute.Int64("subject.id", int64(subjectID)),
	)
	defer func() { span.Finish(err) }()

	if topN <= 0 {
		topN = s.topN
	}
	rank, ok, err := s.store.Rankings().RankOf(ctx, metric, subjectID, s.windowStart())
	if err != nil {
		return nil, err
	}
	if !ok || rank > topN {
		return nil, nil
	}
	return &rank, nil
}

// TopUsers lists a page of a user leaderboard.
func (s *LeaderboardService) TopUsers(ctx context.Context, metric models.Metric, limit, offset int) ([]models.RankedUser, error) {
	if metric.IsPostMetric() {
		return nil, models.NewValidationError(string(metric) + " ranks posts")
	}
	limit, offset = repository.Page(limit, offset)
	var rows []models.RankedUser
	err := cache.Aside(ctx, cache.LeaderboardKey(metric, limit, offset), &rows, s.cacheTTL, func() error {
		var err error
		rows, err = s.store.Rankings().TopUsers(ctx, metric, limit, offset)
		return err
	})
	return rows, err
}

// TopPosts lists a page of a post leaderboard.
func (s *LeaderboardService) TopPosts(ctx context.Context, metric models.Metric, limit, offset int) ([]models.RankedPost, error) {
	if !metric.IsPostMetric() {
		return nil, models.NewValidationError(string(metric) + " ranks users")
	}
	limit, offset = repository.Page(limit, offset)
	var rows []models.RankedPost
	err := cache.Aside(ctx, cache.LeaderboardKey(metric, limit, offset), &rows, s.cacheTTL, func() error {
		var err error
		rows, err = s.store.Rankings().TopPosts(ctx, metric, s.windowStart(), limit, offset)
		return err
	})
	return rows, err
}

// Evaluate turns a rank check into a ranking intent when the subject is in the
// top band. Post rankings notify the post's author.
func (s *LeaderboardService) Evaluate(ctx context.Context, check models.RankCheck) (*models.NotificationIntent, error) {
	rank, err := s.RankOf(ctx, check.SubjectID, check.Metric, s.topN)
	if err != nil || rank == nil {
		return nil, err
	}

	payload := map[string]string{
		"rank":         strconv.Itoa(*rank),
		"ranking_type": check.Metric.RankingType(),
		"metric":       string(check.Metric),
	}

	if check.Metric.IsPostMetric() {
		post, err := s.store.Posts().GetByID(ctx, check.SubjectID)
		if err != nil {
			return nil, err
		}
		payload["post_id"] = strconv.FormatUint(uint64(post.ID), 10)
		return &models.NotificationIntent{
			RecipientID: post.UserID,
			Kind:        models.KindPostRanking,
			Payload:     payload,
		}, nil
	}

	return &models.NotificationIntent{
		RecipientID: check.SubjectID,
		Kind:        models.KindUserRanking,
		Payload:     payload,
	}, nil
}
