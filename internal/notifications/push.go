package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"socialrank/internal/middleware"
	"socialrank/internal/observability"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCM accepts at most 500 tokens per multicast request.
const maxMulticastTokens = 500

// MulticastSender is the subset of *messaging.Client used for push delivery.
type MulticastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// TokenStore resolves and retires device tokens.
type TokenStore interface {
	ActiveTokens(ctx context.Context, userID uint) ([]string, error)
	Deactivate(ctx context.Context, tokens []string) error
}

// NewMessagingClient initializes Firebase from a service account file.
func NewMessagingClient(ctx context.Context, credentialsPath string) (*messaging.Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	middleware.Logger.Info("Firebase messaging client initialized")
	return client, nil
}

// PushChannel sends a message to every active device of a user through FCM.
// Tokens the provider reports as unregistered are deactivated.
type PushChannel struct {
	sender         MulticastSender
	tokens         TokenStore
	isUnregistered func(error) bool
}

// NewPushChannel builds a push channel.
func NewPushChannel(sender MulticastSender, tokens TokenStore) *PushChannel {
	return &PushChannel{
		sender:         sender,
		tokens:         tokens,
		isUnregistered: messaging.IsUnregistered,
	}
}

func (c *PushChannel) Name() string { return "push" }

func (c *PushChannel) Deliver(ctx context.Context, userID uint, msg Message) error {
	tokens, err := c.tokens.ActiveTokens(ctx, userID)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return nil
	}

	var (
		stale  []string
		failed int
	)
	for start := 0; start < len(tokens); start += maxMulticastTokens {
		end := min(start+maxMulticastTokens, len(tokens))
		batch := tokens[start:end]

		resp, err := c.sender.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens:       batch,
			Notification: &messaging.Notification{Title: msg.Title, Body: msg.Body},
			Data:         msg.Data,
		})
		if err != nil {
			return fmt.Errorf("multicast to user %d: %w", userID, err)
		}

		for i, r := range resp.Responses {
			if r == nil || r.Success {
				continue
			}
			if c.isUnregistered(r.Error) {
				stale = append(stale, batch[i])
				continue
			}
			failed++
		}
	}

	if len(stale) > 0 {
		if err := c.tokens.Deactivate(ctx, stale); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to deactivate device tokens", slog.String("error", err.Error()))
		} else {
			observability.PushTokensDeactivated.Add(float64(len(stale)))
		}
	}
	if failed > 0 {
		return fmt.Errorf("push to user %d failed for %d of %d devices", userID, failed, len(tokens))
	}
	return nil
}
