package service

import (
	"context"
	"strconv"

	"socialrank/internal/models"
	"socialrank/internal/observability"
	"socialrank/internal/progression"
	"socialrank/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// StatsLedger owns the per-user aggregate counters and the experience/level rules.
// Every mutation is an atomic SQL delta inside a transaction; level-ups are
// published only after the transaction commits.
type StatsLedger struct {
	store     repository.Store
	publisher Publisher
	now       Clock
}

// NewStatsLedger returns a ledger over store that publishes through publisher.
func NewStatsLedger(store repository.Store, publisher Publisher) *StatsLedger {
	return &StatsLedger{store: store, publisher: publisher, now: systemClock}
}

// WithClock overrides the clock used to stamp level-ups.
func (l *StatsLedger) WithClock(now Clock) *StatsLedger {
	l.now = now
	return l
}

// Stats returns the counters for userID.
func (l *StatsLedger) Stats(ctx context.Context, userID uint) (*models.UserStats, error) {
	return l.store.Stats().Get(ctx, userID)
}

// GainExperience adds points and raises the level when the curve says so.
// Non-positive points are ignored.
func (l *StatsLedger) GainExperience(ctx context.Context, userID uint, points int64) error {
	return l.run(ctx, "GainExperience", userID, func(tx repository.Store) (models.Effects, error) {
		return l.gainExperience(ctx, tx, userID, points)
	})
}

// RegisterPostCreated counts a new post and awards its experience.
func (l *StatsLedger) RegisterPostCreated(ctx context.Context, userID uint) error {
	return l.run(ctx, "RegisterPostCreated", userID, func(tx repository.Store) (models.Effects, error) {
		return l.registerPostCreated(ctx, tx, userID)
	})
}

// RegisterLikeGiven records value likes given by userID.
func (l *StatsLedger) RegisterLikeGiven(ctx context.Context, userID uint, value int64) error {
	return l.run(ctx, "RegisterLikeGiven", userID, func(tx repository.Store) (models.Effects, error) {
		return l.registerLikeGiven(ctx, tx, userID, value)
	})
}

// RegisterLikeReceived records value likes received by userID.
func (l *StatsLedger) RegisterLikeReceived(ctx context.Context, userID uint, value int64) error {
	return l.run(ctx, "RegisterLikeReceived", userID, func(tx repository.Store) (models.Effects, error) {
		return l.registerLikeReceived(ctx, tx, userID, value)
	})
}

// UpdateFollowCounts applies follower/following deltas, clamping at zero.
func (l *StatsLedger) UpdateFollowCounts(ctx context.Context, userID uint, followersDelta, followingDelta int64) error {
	return l.run(ctx, "UpdateFollowCounts", userID, func(tx repository.Store) (models.Effects, error) {
		return models.Effects{}, l.updateFollowCounts(ctx, tx, userID, followersDelta, followingDelta)
	})
}

func (l *StatsLedger) run(ctx context.Context, method string, userID uint, fn func(tx repository.Store) (models.Effects, error)) (err error) {
	span, ctx := observability.NewServiceSpan(ctx, "StatsLedger", method, attribute.Int64("user.id", int64(userID)))
	defer func() { span.Finish(err) }()

	var effects models.Effects
	err = l.store.Transaction(ctx, func(tx repository.Store) error {
		e, err := fn(tx)
		effects = e
		return err
	})
	if err != nil {
		return err
	}
	l.publisher.Publish(ctx, effects)
	return nil
}

func (l *StatsLedger) gainExperience(ctx context.Context, tx repository.Store, userID uint, points int64) (models.Effects, error) {
	var effects models.Effects
	if points <= 0 {
		return effects, nil
	}

	total, err := tx.Stats().AddExperience(ctx, userID, points)
	if err != nil {
		return effects, err
	}

	level := progression.LevelForExperience(total)
	raised, err := tx.Users().RaiseLevel(ctx, userID, level)
	if err != nil || !raised {
		return effects, err
	}
	if err := tx.Stats().MarkLevelUp(ctx, userID, l.now()); err != nil {
		return effects, err
	}

	observability.LevelUps.Inc()
	effects.Intents = append(effects.Intents, models.NotificationIntent{
		RecipientID: userID,
		Kind:        models.KindLevelUp,
		Payload:     map[string]string{"new_level": strconv.Itoa(level)},
	})
	effects.Checks = append(effects.Checks, models.RankCheck{SubjectID: userID, Metric: models.MetricUserLevel})
	return effects, nil
}

func (l *StatsLedger) registerPostCreated(ctx context.Context, tx repository.Store, userID uint) (models.Effects, error) {
	if err := tx.Stats().Add(ctx, userID, map[string]int64{repository.ColPostCount: 1}); err != nil {
		return models.Effects{}, err
	}
	return l.gainExperience(ctx, tx, userID, progression.PostCreateExp)
}

func (l *StatsLedger) registerLikeGiven(ctx context.Context, tx repository.Store, userID uint, value int64) (models.Effects, error) {
	if value <= 0 {
		return models.Effects{}, nil
	}
	if err := tx.Stats().Add(ctx, userID, map[string]int64{repository.ColLikesGiven: value}); err != nil {
		return models.Effects{}, err
	}
	return l.gainExperience(ctx, tx, userID, progression.LikeGainExp*value)
}

func (l *StatsLedger) registerLikeReceived(ctx context.Context, tx repository.Store, userID uint, value int64) (models.Effects, error) {
	if value <= 0 {
		return models.Effects{}, nil
	}
	if err := tx.Stats().Add(ctx, userID, map[string]int64{repository.ColLikesReceived: value}); err != nil {
		return models.Effects{}, err
	}
	return l.gainExperience(ctx, tx, userID, progression.LikeReceiveExp*value)
}

func (l *StatsLedger) updateFollowCounts(ctx context.Context, tx repository.Store, userID uint, followersDelta, followingDelta int64) error {
	return tx.Stats().Add(ctx, userID, map[string]int64{
		repository.ColFollowerCount:  followersDelta,
		repository.ColFollowingCount: followingDelta,
	})
}
