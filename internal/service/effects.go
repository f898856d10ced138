// Package service implements the gamification core: the stats ledger, relationship
// counters, leaderboards and the publication of notification effects.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"socialrank/internal/middleware"
	"socialrank/internal/models"
	"socialrank/internal/observability"
)

// Clock returns the current time. Tests inject fixed clocks.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// IntentDispatcher delivers notification intents. Implementations must not fail the caller.
type IntentDispatcher interface {
	Dispatch(ctx context.Context, intents []models.NotificationIntent)
}

// Publisher receives the effects of a committed mutation.
type Publisher interface {
	Publish(ctx context.Context, effects models.Effects)
}

// RankEvaluator turns a rank check into a ranking intent when the subject is in the top band.
type RankEvaluator interface {
	Evaluate(ctx context.Context, check models.RankCheck) (*models.NotificationIntent, error)
}

// EffectPublisher runs after commit: it resolves rank checks against current
// aggregates and hands every resulting intent to the dispatcher.
type EffectPublisher struct {
	evaluator  RankEvaluator
	dispatcher IntentDispatcher
	logger     *slog.Logger
}

// NewEffectPublisher wires an evaluator and a dispatcher. Either may be nil.
func NewEffectPublisher(evaluator RankEvaluator, dispatcher IntentDispatcher) *EffectPublisher {
	return &EffectPublisher{
		evaluator:  evaluator,
		dispatcher: dispatcher,
		logger:     middleware.Logger,
	}
}

// Publish never returns an error; evaluation and delivery problems are logged.
func (p *EffectPublisher) Publish(ctx context.Context, effects models.Effects) {
	if effects.Empty() {
		return
	}

	intents := append([]models.NotificationIntent(nil), effects.Intents...)
	if p.evaluator != nil {
		for _, check := range effects.Checks {
			intent, err := p.evaluator.Evaluate(ctx, check)
			if err != nil {
				observability.RankChecks.WithLabelValues(string(check.Metric), "error").Inc()
				p.logger.WarnContext(ctx, "rank check failed",
					slog.String("metric", string(check.Metric)),
					slog.Uint64("subject_id", uint64(check.SubjectID)),
					slog.String("error", err.Error()),
				)
				continue
			}
			if intent == nil {
				observability.RankChecks.WithLabelValues(string(check.Metric), "outside").Inc()
				continue
			}
			observability.RankChecks.WithLabelValues(string(check.Metric), "ranked").Inc()
			intents = append(intents, *intent)
		}
	}

	for _, intent := range intents {
		observability.IntentsEmitted.WithLabelValues(string(intent.Kind)).Inc()
	}
	if p.dispatcher != nil && len(intents) > 0 {
		p.dispatcher.Dispatch(ctx, intents)
	}
}

// RecordingPublisher keeps published effects in memory. Used by tooling and tests.
type RecordingPublisher struct {
	mu      sync.Mutex
	effects []models.Effects
}

func (r *RecordingPublisher) Publish(_ context.Context, effects models.Effects) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.effects = append(r.effects, effects)
}

// Intents flattens every recorded intent.
func (r *RecordingPublisher) Intents() []models.NotificationIntent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.NotificationIntent
	for _, e := range r.effects {
		out = append(out, e.Intents...)
	}
	return out
}

// Checks flattens every recorded rank check.
func (r *RecordingPublisher) Checks() []models.RankCheck {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.RankCheck
	for _, e := range r.effects {
		out = append(out, e.Checks...)
	}
	return out
}

// Reset drops everything recorded so far.
func (r *RecordingPublisher) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.effects = nil
}
