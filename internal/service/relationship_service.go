package service

import (
	"context"
	"strconv"

	"socialrank/internal/cache"
	"socialrank/internal/models"
	"socialrank/internal/observability"
	"socialrank/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const postContextRunes = 50

// Actor identifies the caller of a mutating operation.
type Actor struct {
	UserID  uint
	IsStaff bool
}

func (a Actor) canModify(ownerID uint) bool {
	return a.IsStaff || a.UserID == ownerID
}

// RelationshipService creates and removes likes and follows, keeping both
// parties' counters in step inside one transaction.
type RelationshipService struct {
	store     repository.Store
	ledger    *StatsLedger
	publisher Publisher
}

// NewRelationshipService builds the service. ledger supplies the transaction-scoped
// counter operations.
func NewRelationshipService(store repository.Store, ledger *StatsLedger, publisher Publisher) *RelationshipService {
	return &RelationshipService{store: store, ledger: ledger, publisher: publisher}
}

// LikePost records actor's like on postID.
func (s *RelationshipService) LikePost(ctx context.Context, actor Actor, postID uint) (_ *models.Like, err error) {
	span, ctx := observability.NewServiceSpan(ctx, "RelationshipService", "LikePost",
		attribute.Int64("user.id", int64(actor.UserID)),
		attribute.Int64("post.id", int64(postID)),
	)
	defer func() { span.Finish(err) }()

	var (
		like    *models.Like
		post    *models.Post
		liker   *models.User
		effects models.Effects
	)
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		if post, err = tx.Posts().GetForUpdate(ctx, postID); err != nil {
			return err
		}
		if liker, err = tx.Users().GetByID(ctx, actor.UserID); err != nil {
			return err
		}

		like = &models.Like{UserID: liker.ID, PostID: post.ID}
		if err := tx.Likes().Create(ctx, like); err != nil {
			return err
		}
		if err := tx.Posts().AddLikeCount(ctx, post.ID, 1); err != nil {
			return err
		}

		received, err := s.ledger.registerLikeReceived(ctx, tx, post.UserID, 1)
		if err != nil {
			return err
		}
		given, err := s.ledger.registerLikeGiven(ctx, tx, liker.ID, 1)
		if err != nil {
			return err
		}
		effects.Merge(received)
		effects.Merge(given)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if liker.ID != post.UserID {
		effects.Intents = append(effects.Intents, models.NotificationIntent{
			RecipientID: post.UserID,
			Kind:        models.KindLiked,
			Payload: map[string]string{
				"post_id":        strconv.FormatUint(uint64(post.ID), 10),
				"liker_id":       strconv.FormatUint(uint64(liker.ID), 10),
				"liker_username": liker.Username,
				"post_context":   truncateRunes(post.Content, postContextRunes),
			},
		})
		effects.Checks = append(effects.Checks,
			models.RankCheck{SubjectID: post.ID, Metric: models.MetricPostLikes24h},
			models.RankCheck{SubjectID: post.ID, Metric: models.MetricPostLikesAllTime},
			models.RankCheck{SubjectID: post.UserID, Metric: models.MetricUserTotalLikes},
		)
	}

	cache.InvalidateLeaderboards(ctx)
	s.publisher.Publish(ctx, effects)
	return like, nil
}

// DeleteLike removes the like identified by likeID.
func (s *RelationshipService) DeleteLike(ctx context.Context, actor Actor, likeID uint) error {
	return s.removeLike(ctx, actor, func(tx repository.Store) (*models.Like, error) {
		return tx.Likes().GetByID(ctx, likeID)
	})
}

// UnlikePost removes actor's like on postID.
func (s *RelationshipService) UnlikePost(ctx context.Context, actor Actor, postID uint) error {
	return s.removeLike(ctx, actor, func(tx repository.Store) (*models.Like, error) {
		return tx.Likes().GetByPair(ctx, actor.UserID, postID)
	})
}

func (s *RelationshipService) removeLike(ctx context.Context, actor Actor, find func(tx repository.Store) (*models.Like, error)) (err error) {
	span, ctx := observability.NewServiceSpan(ctx, "RelationshipService", "RemoveLike",
		attribute.Int64("user.id", int64(actor.UserID)),
	)
	defer func() { span.Finish(err) }()

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		like, err := find(tx)
		if err != nil {
			return err
		}
		if !actor.canModify(like.UserID) {
			return models.NewPermissionError("You can only remove your own likes")
		}
		post, err := tx.Posts().GetForUpdate(ctx, like.PostID)
		if err != nil {
			return err
		}

		if err := tx.Likes().Delete(ctx, like.ID); err != nil {
			return err
		}
		if err := tx.Posts().AddLikeCount(ctx, post.ID, -1); err != nil {
			return err
		}
		if err := tx.Stats().Add(ctx, post.UserID, map[string]int64{repository.ColLikesReceived: -1}); err != nil {
			return err
		}
		return tx.Stats().Add(ctx, like.UserID, map[string]int64{repository.ColLikesGiven: -1})
	})
	if err == nil {
		cache.InvalidateLeaderboards(ctx)
	}
	return err
}

// Follow makes actor follow followeeID.
func (s *RelationshipService) Follow(ctx context.Context, actor Actor, followeeID uint) (_ *models.Follow, err error) {
	span, ctx := observability.NewServiceSpan(ctx, "RelationshipService", "Follow",
		attribute.Int64("user.id", int64(actor.UserID)),
		attribute.Int64("followee.id", int64(followeeID)),
	)
	defer func() { span.Finish(err) }()

	if actor.UserID == followeeID {
		return nil, models.NewSelfFollowError()
	}

	var (
		follow   *models.Follow
		follower *models.User
	)
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		if follower, err = tx.Users().GetByID(ctx, actor.UserID); err != nil {
			return err
		}
		if _, err = tx.Users().GetByID(ctx, followeeID); err != nil {
			return err
		}

		follow = &models.Follow{FollowerID: follower.ID, FolloweeID: followeeID}
		if err := tx.Follows().Create(ctx, follow); err != nil {
			return err
		}
		if err := s.ledger.updateFollowCounts(ctx, tx, follower.ID, 0, 1); err != nil {
			return err
		}
		return s.ledger.updateFollowCounts(ctx, tx, followeeID, 1, 0)
	})
	if err != nil {
		return nil, err
	}

	cache.InvalidateLeaderboards(ctx)
	s.publisher.Publish(ctx, models.Effects{
		Intents: []models.NotificationIntent{{
			RecipientID: followeeID,
			Kind:        models.KindFollowed,
			Payload: map[string]string{
				"follower_id":       strconv.FormatUint(uint64(follower.ID), 10),
				"follower_username": follower.Username,
			},
		}},
		Checks: []models.RankCheck{{SubjectID: followeeID, Metric: models.MetricUserFollowers}},
	})
	return follow, nil
}

// DeleteFollow removes the follow edge identified by followID.
func (s *RelationshipService) DeleteFollow(ctx context.Context, actor Actor, followID uint) error {
	return s.removeFollow(ctx, actor, func(tx repository.Store) (*models.Follow, error) {
		return tx.Follows().GetByID(ctx, followID)
	})
}

// Unfollow removes actor's follow of followeeID.
func (s *RelationshipService) Unfollow(ctx context.Context, actor Actor, followeeID uint) error {
	return s.removeFollow(ctx, actor, func(tx repository.Store) (*models.Follow, error) {
		return tx.Follows().GetByPair(ctx, actor.UserID, followeeID)
	})
}

func (s *RelationshipService) removeFollow(ctx context.Context, actor Actor, find func(tx repository.Store) (*models.Follow, error)) (err error) {
	span, ctx := observability.NewServiceSpan(ctx, "RelationshipService", "RemoveFollow",
		attribute.Int64("user.id", int64(actor.UserID)),
	)
	defer func() { span.Finish(err) }()

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		follow, err := find(tx)
		if err != nil {
			return err
		}
		if !actor.canModify(follow.FollowerID) {
			return models.NewPermissionError("You can only remove your own follows")
		}
		if err := tx.Follows().Delete(ctx, follow.ID); err != nil {
			return err
		}
		if err := s.ledger.updateFollowCounts(ctx, tx, follow.FollowerID, 0, -1); err != nil {
			return err
		}
		return s.ledger.updateFollowCounts(ctx, tx, follow.FolloweeID, -1, 0)
	})
	if err == nil {
		cache.InvalidateLeaderboards(ctx)
	}
	return err
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
