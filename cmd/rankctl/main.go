// Command rankctl is the operator tool for socialrank: schema migration, demo
// data, rank lookups and development tokens.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"socialrank/internal/config"
	"socialrank/internal/database"
	"socialrank/internal/middleware"
	"socialrank/internal/models"
	"socialrank/internal/repository"
	"socialrank/internal/seed"
	"socialrank/internal/service"

	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

func main() {
	app := &cli.App{
		Name:  "rankctl",
		Usage: "manage the socialrank database and leaderboards",
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "create or update every table",
				Action: migrate,
			},
			{
				Name:  "seed",
				Usage: "populate the database with fake users, posts, follows and likes",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "users", Value: 20},
					&cli.IntFlag{Name: "posts", Value: 60},
					&cli.IntFlag{Name: "likes-per-post", Value: 4},
					&cli.IntFlag{Name: "follows-per-user", Value: 3},
					&cli.Int64Flag{Name: "random-seed", Usage: "0 picks a random seed"},
				},
				Action: seedData,
			},
			{
				Name:  "rank",
				Usage: "print the rank of a post or user on a leaderboard",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "metric", Required: true, Usage: "one of post_likes_all_time, post_likes_24h, user_total_likes, user_level, user_followers"},
					&cli.UintFlag{Name: "id", Required: true, Usage: "post ID for post metrics, user ID otherwise"},
					&cli.IntFlag{Name: "top", Value: service.DefaultTopN},
				},
				Action: rank,
			},
			{
				Name:  "top",
				Usage: "print the head of a leaderboard",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "metric", Required: true},
					&cli.IntFlag{Name: "limit", Value: service.DefaultTopN},
				},
				Action: top,
			},
			{
				Name:  "token",
				Usage: "issue a bearer token for a user (development only)",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "user", Required: true},
					&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
				},
				Action: token,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		middleware.Logger.Error("rankctl failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func open() (*config.Config, *gorm.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func leaderboard(cfg *config.Config, store repository.Store) *service.LeaderboardService {
	return service.NewLeaderboardService(store, service.LeaderboardConfig{
		TopN:        cfg.RankingTopN,
		TrendWindow: time.Duration(cfg.TrendWindowHours) * time.Hour,
	})
}

func migrate(c *cli.Context) error {
	_, db, err := open()
	if err != nil {
		return err
	}
	return database.Migrate(db)
}

func seedData(c *cli.Context) error {
	cfg, db, err := open()
	if err != nil {
		return err
	}
	if cfg.IsProduction() {
		return fmt.Errorf("refusing to seed a production database")
	}

	opts := seed.Options{
		Users:          c.Int("users"),
		Posts:          c.Int("posts"),
		LikesPerPost:   c.Int("likes-per-post"),
		FollowsPerUser: c.Int("follows-per-user"),
		RandomSeed:     c.Int64("random-seed"),
	}
	// nothing listens for notifications during a seed run
	sum, err := seed.NewSeeder(repository.NewStore(db), &service.RecordingPublisher{}, opts).Run(c.Context, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "created %d users, %d posts, %d follows, %d likes\n", sum.Users, sum.Posts, sum.Follows, sum.Likes)
	return nil
}

func rank(c *cli.Context) error {
	metric, err := models.ParseMetric(c.String("metric"))
	if err != nil {
		return err
	}
	cfg, db, err := open()
	if err != nil {
		return err
	}

	r, err := leaderboard(cfg, repository.NewStore(db)).RankOf(c.Context, c.Uint("id"), metric, c.Int("top"))
	if err != nil {
		return err
	}
	if r == nil {
		fmt.Fprintf(c.App.Writer, "%s %d: outside top %d\n", metric, c.Uint("id"), c.Int("top"))
		return nil
	}
	fmt.Fprintf(c.App.Writer, "%s %d: rank %d\n", metric, c.Uint("id"), *r)
	return nil
}

func top(c *cli.Context) error {
	metric, err := models.ParseMetric(c.String("metric"))
	if err != nil {
		return err
	}
	cfg, db, err := open()
	if err != nil {
		return err
	}
	lb := leaderboard(cfg, repository.NewStore(db))

	if metric.IsPostMetric() {
		rows, err := lb.TopPosts(c.Context, metric, c.Int("limit"), 0)
		if err != nil {
			return err
		}
		for _, row := range rows {
			fmt.Fprintf(c.App.Writer, "%3d  %6d  post %d by user %d\n", row.Rank, row.Value, row.Post.ID, row.Post.UserID)
		}
		return nil
	}

	rows, err := lb.TopUsers(c.Context, metric, c.Int("limit"), 0)
	if err != nil {
		return err
	}
	for _, row := range rows {
		fmt.Fprintf(c.App.Writer, "%3d  %6d  %s (%d)\n", row.Rank, row.Value, row.User.Username, row.User.ID)
	}
	return nil
}

func token(c *cli.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.IsProduction() {
		return fmt.Errorf("refusing to issue tokens in production")
	}
	tok, err := middleware.IssueUserToken(c.Uint("user"), cfg, c.Duration("ttl"))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, tok)
	return nil
}
