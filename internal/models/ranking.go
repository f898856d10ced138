package models

import "fmt"

// Metric names a leaderboard.
type Metric string

// Supported leaderboards.
const (
	MetricPostLikesAllTime Metric = "post_likes_all_time"
	MetricPostLikes24h     Metric = "post_likes_24h"
	MetricUserTotalLikes   Metric = "user_total_likes"
	MetricUserLevel        Metric = "user_level"
	MetricUserFollowers    Metric = "user_followers"
)

// AllMetrics lists every leaderboard in a stable order.
var AllMetrics = []Metric{
	MetricPostLikesAllTime,
	MetricPostLikes24h,
	MetricUserTotalLikes,
	MetricUserLevel,
	MetricUserFollowers,
}

// ParseMetric validates a metric name.
func ParseMetric(s string) (Metric, error) {
	for _, m := range AllMetrics {
		if string(m) == s {
			return m, nil
		}
	}
	return "", NewValidationError(fmt.Sprintf("unknown ranking metric %q", s))
}

// IsPostMetric reports whether the metric ranks posts rather than users.
func (m Metric) IsPostMetric() bool {
	return m == MetricPostLikesAllTime || m == MetricPostLikes24h
}

// RankingType is the short client-facing name used in notification payloads.
func (m Metric) RankingType() string {
	switch m {
	case MetricPostLikes24h:
		return "trend"
	case MetricPostLikesAllTime:
		return "popular"
	case MetricUserTotalLikes:
		return "likes"
	case MetricUserLevel:
		return "level"
	case MetricUserFollowers:
		return "followers"
	default:
		return string(m)
	}
}

// RankCheck asks the leaderboard whether SubjectID sits in the top band of Metric.
// Subject is a post ID for post metrics and a user ID otherwise.
type RankCheck struct {
	SubjectID uint
	Metric    Metric
}

// RankedUser is a leaderboard row for user metrics.
type RankedUser struct {
	Rank  int   `json:"rank"`
	Value int64 `json:"value"`
	User  User  `json:"user"`
}

// RankedPost is a leaderboard row for post metrics.
type RankedPost struct {
	Rank  int   `json:"rank"`
	Value int64 `json:"value"`
	Post  Post  `json:"post"`
}
