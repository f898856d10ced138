package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what happens to a request when Redis cannot be reached.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

// Limit is a fixed-window request budget for one action.
type Limit struct {
	Name   string
	Max    int
	Window time.Duration
	Policy FailPolicy
}

// Budgets for the write and search paths.
var (
	SignupLimit     = Limit{Name: "signup", Max: 5, Window: 10 * time.Minute}
	CreatePostLimit = Limit{Name: "create_post", Max: 10, Window: time.Minute}
	LikeLimit       = Limit{Name: "like", Max: 60, Window: time.Minute}
	FollowLimit     = Limit{Name: "follow", Max: 30, Window: time.Minute}
	SearchLimit     = Limit{Name: "search", Max: 20, Window: time.Minute}
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

var errNoRedis = errors.New("redis client is nil")

// limitsEnforced is false in test and development, where every request is allowed.
func limitsEnforced() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development":
		return false
	}
	return true
}

// Allow counts one request by subject against l.
func (l Limit) Allow(ctx context.Context, rdb *redis.Client, subject string) (Decision, error) {
	if !limitsEnforced() {
		return Decision{Allowed: true, Remaining: l.Max}, nil
	}
	if rdb == nil {
		return Decision{}, errNoRedis
	}

	key := fmt.Sprintf("rl:%s:%s", l.Name, subject)
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, l.Window)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return Decision{}, err
	}

	count := int(incr.Val())
	d := Decision{
		Allowed:   count <= l.Max,
		Remaining: max(l.Max-count, 0),
		ResetIn:   ttl.Val(),
	}
	return d, nil
}

// Handler enforces l, keyed by the authenticated user when there is one and by IP otherwise.
func (l Limit) Handler(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		subject := "ip:" + c.IP()
		if uid, ok := c.Locals("userID").(uint); ok && uid != 0 {
			subject = "user:" + strconv.FormatUint(uint64(uid), 10)
		}

		d, err := l.Allow(c.UserContext(), rdb, subject)
		if err != nil {
			Logger.WarnContext(c.UserContext(), "rate limit unavailable",
				slog.String("limit", l.Name),
				slog.String("error", err.Error()),
			)
			if l.Policy == FailClosed {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "rate limit unavailable",
				})
			}
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(l.Max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			RateLimited.WithLabelValues(l.Name).Inc()
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(d.ResetIn.Round(time.Second)/time.Second)))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
