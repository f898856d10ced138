// Package seed creates demo data by driving the real services, so every
// counter, level and relation stays consistent with what the API would produce.
// It is intended for development and testing only.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"socialrank/internal/middleware"
	"socialrank/internal/models"
	"socialrank/internal/repository"
	"socialrank/internal/service"

	"github.com/brianvoe/gofakeit/v6"
)

// Options configuration for the seeder
type Options struct {
	Users          int
	Posts          int
	LikesPerPost   int
	FollowsPerUser int
	// RandomSeed makes runs reproducible when non-zero.
	RandomSeed int64
}

// Summary reports what a run created.
type Summary struct {
	Users   int
	Posts   int
	Likes   int
	Follows int
}

// Seeder populates a store through the service layer.
type Seeder struct {
	users         *service.UserService
	posts         *service.PostService
	relationships *service.RelationshipService
	faker         *gofakeit.Faker
}

// NewSeeder wires services over store. Notifications produced while seeding go to publisher.
func NewSeeder(store repository.Store, publisher service.Publisher, opts Options) *Seeder {
	ledger := service.NewStatsLedger(store, publisher)
	leaderboard := service.NewLeaderboardService(store, service.LeaderboardConfig{})
	return &Seeder{
		users:         service.NewUserService(store),
		posts:         service.NewPostService(store, ledger, publisher, leaderboard),
		relationships: service.NewRelationshipService(store, ledger, publisher),
		faker:         gofakeit.New(opts.RandomSeed),
	}
}

var nonUsername = regexp.MustCompile(`[^A-Za-z0-9_]`)

func (s *Seeder) username(i int) string {
	base := nonUsername.ReplaceAllString(s.faker.Username(), "")
	if len(base) > 20 {
		base = base[:20]
	}
	if len(base) < 3 {
		base = "user"
	}
	return fmt.Sprintf("%s_%d", base, i)
}

// CreateUser builds a fake account.
func (s *Seeder) CreateUser(ctx context.Context, i int) (*models.User, error) {
	return s.users.Create(ctx, service.CreateUserInput{
		Username:    s.username(i),
		Email:       fmt.Sprintf("seed%d.%s", i, strings.ToLower(s.faker.Email())),
		DisplayName: s.faker.Name(),
	})
}

// CreatePost builds a fake post for author.
func (s *Seeder) CreatePost(ctx context.Context, author *models.User) (*models.Post, error) {
	content := s.faker.Paragraph(1, 2, 12, " ")
	if r := []rune(content); len(r) > service.MaxPostLength {
		content = string(r[:service.MaxPostLength])
	}
	return s.posts.Create(ctx, service.Actor{UserID: author.ID}, content)
}

// Run creates users, posts, follows and likes. Duplicate relations picked at
// random are skipped rather than treated as failures.
func (s *Seeder) Run(ctx context.Context, opts Options) (Summary, error) {
	var sum Summary
	if opts.Users <= 0 {
		return sum, models.NewValidationError("at least one user is required")
	}

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		u, err := s.CreateUser(ctx, i)
		if err != nil {
			return sum, fmt.Errorf("create user %d: %w", i, err)
		}
		users = append(users, u)
	}
	sum.Users = len(users)

	posts := make([]*models.Post, 0, opts.Posts)
	for i := 0; i < opts.Posts; i++ {
		author := users[s.faker.Number(0, len(users)-1)]
		p, err := s.CreatePost(ctx, author)
		if err != nil {
			return sum, fmt.Errorf("create post %d: %w", i, err)
		}
		posts = append(posts, p)
	}
	sum.Posts = len(posts)

	if len(users) > 1 {
		for _, u := range users {
			for j := 0; j < opts.FollowsPerUser; j++ {
				target := users[s.faker.Number(0, len(users)-1)]
				_, err := s.relationships.Follow(ctx, service.Actor{UserID: u.ID}, target.ID)
				if skippable(err) {
					continue
				}
				if err != nil {
					return sum, fmt.Errorf("follow: %w", err)
				}
				sum.Follows++
			}
		}
	}

	for _, p := range posts {
		for j := 0; j < opts.LikesPerPost; j++ {
			liker := users[s.faker.Number(0, len(users)-1)]
			_, err := s.relationships.LikePost(ctx, service.Actor{UserID: liker.ID}, p.ID)
			if skippable(err) {
				continue
			}
			if err != nil {
				return sum, fmt.Errorf("like: %w", err)
			}
			sum.Likes++
		}
	}

	middleware.Logger.Info("seed complete",
		slog.Int("users", sum.Users),
		slog.Int("posts", sum.Posts),
		slog.Int("likes", sum.Likes),
		slog.Int("follows", sum.Follows),
	)
	return sum, nil
}

func skippable(err error) bool {
	return errors.Is(err, models.ErrDuplicate) || errors.Is(err, models.ErrSelfFollow)
}
