package notifications

import (
	"context"
	"log/slog"

	"socialrank/internal/middleware"
	"socialrank/internal/models"
	"socialrank/internal/observability"

	"golang.org/x/sync/errgroup"
)

// Channel delivers a rendered message to one user.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, userID uint, msg Message) error
}

// Dispatcher fans intents out to every configured channel. Delivery failures are
// logged and counted, never returned: a notification is best effort.
type Dispatcher struct {
	channels []Channel
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over channels. Nil channels are skipped.
func NewDispatcher(channels ...Channel) *Dispatcher {
	d := &Dispatcher{logger: middleware.Logger}
	for _, ch := range channels {
		if ch != nil {
			d.channels = append(d.channels, ch)
		}
	}
	return d
}

// Dispatch delivers every intent over every channel concurrently and waits for completion.
func (d *Dispatcher) Dispatch(ctx context.Context, intents []models.NotificationIntent) {
	if len(intents) == 0 || len(d.channels) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(8)
	for _, intent := range intents {
		msg := Render(intent)
		for _, ch := range d.channels {
			g.Go(func() error {
				d.deliver(ctx, ch, intent.RecipientID, msg)
				return nil
			})
		}
	}
	_ = g.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, ch Channel, userID uint, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			observability.DeliveryResults.WithLabelValues(ch.Name(), "panic").Inc()
			d.logger.ErrorContext(ctx, "notification channel panicked",
				slog.String("channel", ch.Name()),
				slog.Any("panic", r),
			)
		}
	}()

	if err := ch.Deliver(ctx, userID, msg); err != nil {
		observability.DeliveryResults.WithLabelValues(ch.Name(), "error").Inc()
		d.logger.WarnContext(ctx, "notification delivery failed",
			slog.String("channel", ch.Name()),
			slog.String("kind", string(msg.Kind)),
			slog.Uint64("recipient_id", uint64(userID)),
			slog.String("error", err.Error()),
		)
		return
	}
	observability.DeliveryResults.WithLabelValues(ch.Name(), "ok").Inc()
}
