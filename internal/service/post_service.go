package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"socialrank/internal/cache"
	"socialrank/internal/models"
	"socialrank/internal/observability"
	"socialrank/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// MaxPostLength bounds post content, counted in runes.
const MaxPostLength = 1000

// Timeline tabs.
const (
	TabLatest    = "latest"
	TabPopular   = "popular"
	TabFollowing = "following"
)

// PostService creates, lists and deletes posts.
type PostService struct {
	store       repository.Store
	ledger      *StatsLedger
	publisher   Publisher
	leaderboard *LeaderboardService
}

// NewPostService builds the service. leaderboard supplies the trend window for the popular tab.
func NewPostService(store repository.Store, ledger *StatsLedger, publisher Publisher, leaderboard *LeaderboardService) *PostService {
	return &PostService{store: store, ledger: ledger, publisher: publisher, leaderboard: leaderboard}
}

// Create stores a post for actor and credits the author's ledger in the same transaction.
func (s *PostService) Create(ctx context.Context, actor Actor, content string) (_ *models.Post, err error) {
	span, ctx := observability.NewServiceSpan(ctx, "PostService", "Create", attribute.Int64("user.id", int64(actor.UserID)))
	defer func() { span.Finish(err) }()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.NewValidationError("Post content is required")
	}
	if utf8.RuneCountInString(content) > MaxPostLength {
		return nil, models.NewValidationError("Post content is too long")
	}

	post := &models.Post{UserID: actor.UserID, Content: content}
	var effects models.Effects
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Users().GetByID(ctx, actor.UserID); err != nil {
			return err
		}
		if err := tx.Posts().Create(ctx, post); err != nil {
			return err
		}
		e, err := s.ledger.registerPostCreated(ctx, tx, actor.UserID)
		effects = e
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, effects)
	return s.store.Posts().GetByID(ctx, post.ID)
}

// Get returns a post, marking whether viewerID liked it. viewerID 0 is anonymous.
func (s *PostService) Get(ctx context.Context, postID, viewerID uint) (*models.Post, error) {
	post, err := s.store.Posts().GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.markLiked(ctx, viewerID, []*models.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

// Delete removes a post and its likes, unwinding every counter they contributed.
// Experience already earned is kept.
func (s *PostService) Delete(ctx context.Context, actor Actor, postID uint) (err error) {
	span, ctx := observability.NewServiceSpan(ctx, "PostService", "Delete", attribute.Int64("post.id", int64(postID)))
	defer func() { span.Finish(err) }()

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		post, err := tx.Posts().GetForUpdate(ctx, postID)
		if err != nil {
			return err
		}
		if !actor.canModify(post.UserID) {
			return models.NewPermissionError("You can only delete your own posts")
		}

		likers, err := tx.Likes().CountByLikerOnPosts(ctx, []uint{post.ID})
		if err != nil {
			return err
		}
		var received int64
		for _, lc := range likers {
			received += lc.Count
			if err := tx.Stats().Add(ctx, lc.UserID, map[string]int64{repository.ColLikesGiven: -lc.Count}); err != nil {
				return err
			}
		}
		if err := tx.Stats().Add(ctx, post.UserID, map[string]int64{
			repository.ColLikesReceived: -received,
			repository.ColPostCount:     -1,
		}); err != nil {
			return err
		}

		if err := tx.Likes().DeleteByPosts(ctx, []uint{post.ID}); err != nil {
			return err
		}
		return tx.Posts().Delete(ctx, post.ID)
	})
	if err == nil {
		cache.InvalidateLeaderboards(ctx)
	}
	return err
}

// ListByUser returns userID's posts, newest first.
func (s *PostService) ListByUser(ctx context.Context, userID, viewerID uint, limit, offset int) ([]*models.Post, error) {
	if _, err := s.store.Users().GetByID(ctx, userID); err != nil {
		return nil, err
	}
	posts, err := s.store.Posts().GetByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return posts, s.markLiked(ctx, viewerID, posts)
}

// Timeline lists posts for one of the timeline tabs. The following tab requires a viewer.
func (s *PostService) Timeline(ctx context.Context, tab string, viewerID uint, limit, offset int) ([]*models.Post, error) {
	var (
		posts []*models.Post
		err   error
	)
	switch tab {
	case "", TabLatest:
		posts, err = s.store.Posts().ListLatest(ctx, limit, offset)
	case TabPopular:
		posts, err = s.store.Posts().ListPopularSince(ctx, s.leaderboard.windowStart(), limit, offset)
	case TabFollowing:
		if viewerID == 0 {
			return nil, models.NewUnauthorizedError("Sign in to see followed posts")
		}
		posts, err = s.store.Posts().ListByFollowed(ctx, viewerID, limit, offset)
	default:
		return nil, models.NewValidationError("Unknown timeline tab " + tab)
	}
	if err != nil {
		return nil, err
	}
	return posts, s.markLiked(ctx, viewerID, posts)
}

// LikedPosts lists the posts userID liked, most recent like first.
func (s *PostService) LikedPosts(ctx context.Context, userID, viewerID uint, limit, offset int) ([]*models.Post, error) {
	if _, err := s.store.Users().GetByID(ctx, userID); err != nil {
		return nil, err
	}
	posts, err := s.store.Posts().ListLikedBy(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return posts, s.markLiked(ctx, viewerID, posts)
}

// LikedStatus reports, per post ID, whether viewerID liked it.
func (s *PostService) LikedStatus(ctx context.Context, viewerID uint, postIDs []uint) (map[uint]bool, error) {
	status := make(map[uint]bool, len(postIDs))
	for _, id := range postIDs {
		status[id] = false
	}
	liked, err := s.store.Likes().LikedPostIDs(ctx, viewerID, postIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range liked {
		status[id] = true
	}
	return status, nil
}

// Search matches post content.
func (s *PostService) Search(ctx context.Context, query string, viewerID uint, limit, offset int) ([]*models.Post, error) {
	posts, err := s.store.Posts().Search(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	return posts, s.markLiked(ctx, viewerID, posts)
}

func (s *PostService) markLiked(ctx context.Context, viewerID uint, posts []*models.Post) error {
	if viewerID == 0 || len(posts) == 0 {
		return nil
	}
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	status, err := s.LikedStatus(ctx, viewerID, ids)
	if err != nil {
		return err
	}
	for _, p := range posts {
		p.Liked = status[p.ID]
	}
	return nil
}
