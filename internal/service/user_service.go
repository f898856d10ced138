package service

import (
	"context"
	"regexp"
	"strings"

	"socialrank/internal/cache"
	"socialrank/internal/models"
	"socialrank/internal/observability"
	"socialrank/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)

// CreateUserInput carries the fields accepted at sign-up.
type CreateUserInput struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// UpdateProfileInput carries the editable profile fields.
type UpdateProfileInput struct {
	DisplayName string `json:"display_name"`
	URL         string `json:"url"`
	Bio         string `json:"bio"`
	Rank        string `json:"rank"`
}

// UserService manages accounts and their ledgers.
type UserService struct {
	store repository.Store
}

// NewUserService builds the service.
func NewUserService(store repository.Store) *UserService {
	return &UserService{store: store}
}

// Create stores a user and its zeroed ledger in one transaction.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (_ *models.User, err error) {
	span, ctx := observability.NewServiceSpan(ctx, "UserService", "Create")
	defer func() { span.Finish(err) }()

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if !usernamePattern.MatchString(in.Username) {
		return nil, models.NewValidationError("Username must be 3-30 letters, digits or underscores")
	}
	if !strings.Contains(in.Email, "@") {
		return nil, models.NewValidationError("A valid email is required")
	}
	if len([]rune(in.DisplayName)) > 50 {
		return nil, models.NewValidationError("Display name is too long")
	}

	user := &models.User{
		Username:    in.Username,
		Email:       in.Email,
		DisplayName: strings.TrimSpace(in.DisplayName),
		Level:       1,
	}
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		return tx.Stats().Create(ctx, user.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.store.Users().GetByID(ctx, user.ID)
}

// Get returns a user with stats.
func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	return s.store.Users().GetByID(ctx, id)
}

// GetByUsername returns a user with stats.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.store.Users().GetByUsername(ctx, username)
}

// UpdateProfile edits the descriptive fields of userID. Level and counters are not editable.
func (s *UserService) UpdateProfile(ctx context.Context, actor Actor, userID uint, in UpdateProfileInput) (*models.User, error) {
	if !actor.canModify(userID) {
		return nil, models.NewPermissionError("You can only edit your own profile")
	}
	if len([]rune(in.DisplayName)) > 50 {
		return nil, models.NewValidationError("Display name is too long")
	}
	if len([]rune(in.Rank)) > 20 {
		return nil, models.NewValidationError("Rank is too long")
	}

	user := &models.User{
		ID:          userID,
		DisplayName: strings.TrimSpace(in.DisplayName),
		URL:         strings.TrimSpace(in.URL),
		Bio:         in.Bio,
		Rank:        strings.TrimSpace(in.Rank),
	}
	if err := s.store.Users().UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	return s.store.Users().GetByID(ctx, userID)
}

// Search matches usernames and display names.
func (s *UserService) Search(ctx context.Context, query string, limit, offset int) ([]models.User, error) {
	return s.store.Users().Search(ctx, query, limit, offset)
}

// List returns users, newest first.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.store.Users().List(ctx, limit, offset)
}

// Delete removes a user with everything they own. Counters of the other parties
// (likers of the user's posts, authors of posts the user liked, follow
// counterparts) are decremented in the same transaction.
func (s *UserService) Delete(ctx context.Context, actor Actor, userID uint) (err error) {
	span, ctx := observability.NewServiceSpan(ctx, "UserService", "Delete", attribute.Int64("user.id", int64(userID)))
	defer func() { span.Finish(err) }()

	if !actor.canModify(userID) {
		return models.NewPermissionError("You can only delete your own account")
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Users().GetByID(ctx, userID); err != nil {
			return err
		}

		postIDs, err := tx.Posts().IDsByAuthor(ctx, userID)
		if err != nil {
			return err
		}
		likers, err := tx.Likes().CountByLikerOnPosts(ctx, postIDs)
		if err != nil {
			return err
		}
		for _, lc := range likers {
			if lc.UserID == userID {
				continue
			}
			if err := tx.Stats().Add(ctx, lc.UserID, map[string]int64{repository.ColLikesGiven: -lc.Count}); err != nil {
				return err
			}
		}

		liked, err := tx.Likes().PostsLikedBy(ctx, userID)
		if err != nil {
			return err
		}
		for _, postID := range liked {
			post, err := tx.Posts().GetForUpdate(ctx, postID)
			if err != nil {
				return err
			}
			if post.UserID == userID {
				continue
			}
			if err := tx.Posts().AddLikeCount(ctx, post.ID, -1); err != nil {
				return err
			}
			if err := tx.Stats().Add(ctx, post.UserID, map[string]int64{repository.ColLikesReceived: -1}); err != nil {
				return err
			}
		}

		followees, err := tx.Follows().FolloweeIDs(ctx, userID)
		if err != nil {
			return err
		}
		for _, id := range followees {
			if err := tx.Stats().Add(ctx, id, map[string]int64{repository.ColFollowerCount: -1}); err != nil {
				return err
			}
		}
		followers, err := tx.Follows().FollowerIDs(ctx, userID)
		if err != nil {
			return err
		}
		for _, id := range followers {
			if err := tx.Stats().Add(ctx, id, map[string]int64{repository.ColFollowingCount: -1}); err != nil {
				return err
			}
		}

		if err := tx.Likes().DeleteByPosts(ctx, postIDs); err != nil {
			return err
		}
		if err := tx.Likes().DeleteByUser(ctx, userID); err != nil {
			return err
		}
		if err := tx.Follows().DeleteByUser(ctx, userID); err != nil {
			return err
		}
		if err := tx.DeviceTokens().DeleteByUser(ctx, userID); err != nil {
			return err
		}
		if err := tx.Posts().DeleteByAuthor(ctx, userID); err != nil {
			return err
		}
		if err := tx.Stats().Delete(ctx, userID); err != nil {
			return err
		}
		return tx.Users().Delete(ctx, userID)
	})
	if err == nil {
		cache.InvalidateLeaderboards(ctx)
	}
	return err
}
