package cache

import (
	"context"
	"fmt"

	"socialrank/internal/models"
)

const (
	LeaderboardKeyPrefix = "leaderboard:%s:%d:%d"
	// UserNotificationChannel is the pub/sub channel of realtime notifications for a user.
	UserNotificationChannel = "notifications:user:%d"
)

// LeaderboardKey names a cached leaderboard page.
func LeaderboardKey(metric models.Metric, limit, offset int) string {
	return fmt.Sprintf(LeaderboardKeyPrefix, metric, limit, offset)
}

// NotificationChannel returns the pub/sub channel for userID.
func NotificationChannel(userID uint) string {
	return fmt.Sprintf(UserNotificationChannel, userID)
}

// InvalidateLeaderboards drops every cached leaderboard page.
func InvalidateLeaderboards(ctx context.Context) {
	if client == nil {
		return
	}
	iter := client.Scan(ctx, 0, "leaderboard:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	Invalidate(ctx, keys...)
}
