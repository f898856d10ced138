package notifications

import (
	"context"
	"encoding/json"
	"log/slog"
	"runtime/debug"

	"socialrank/internal/cache"
	"socialrank/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// UserChannel returns the pub/sub channel for a user's notifications.
func UserChannel(userID uint) string {
	return cache.NotificationChannel(userID)
}

// PublishUser sends a notification payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// SubscribeUser streams payloads published for userID until ctx is cancelled.
// The returned channel is closed when the subscription ends.
func (n *Notifier) SubscribeUser(ctx context.Context, userID uint) (<-chan string, error) {
	out := make(chan string, 16)
	if n.rdb == nil {
		close(out)
		return out, nil
	}

	sub := n.rdb.Subscribe(ctx, UserChannel(userID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}
	ch := sub.Channel()

	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()
		defer func() {
			if r := recover(); r != nil {
				middleware.Logger.Error("panic in notification subscriber",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// RealtimeChannel publishes rendered messages to connected clients through Redis.
type RealtimeChannel struct {
	notifier *Notifier
}

// NewRealtimeChannel wraps a Notifier as a delivery Channel.
func NewRealtimeChannel(n *Notifier) *RealtimeChannel {
	return &RealtimeChannel{notifier: n}
}

func (c *RealtimeChannel) Name() string { return "realtime" }

func (c *RealtimeChannel) Deliver(ctx context.Context, userID uint, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.notifier.PublishUser(ctx, userID, string(payload))
}
