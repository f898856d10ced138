package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"socialrank/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsLedger_PostThenLikesReceived(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.user(t)
	require.Zero(t, h.stats(t, a.ID).ExperiencePoints)
	require.Equal(t, 1, h.level(t, a.ID))

	require.NoError(t, h.ledger.RegisterPostCreated(ctx, a.ID))
	stats := h.stats(t, a.ID)
	assert.EqualValues(t, 10, stats.ExperiencePoints)
	assert.EqualValues(t, 1, stats.PostCount)
	assert.Equal(t, 2, h.level(t, a.ID))
	require.NotNil(t, stats.LastLevelUp)
	assert.WithinDuration(t, h.now, *stats.LastLevelUp, time.Second)

	levelUps := intentsOfKind(h.recorder.Intents(), models.KindLevelUp)
	require.Len(t, levelUps, 1)
	assert.Equal(t, a.ID, levelUps[0].RecipientID)
	assert.Equal(t, "2", levelUps[0].Payload["new_level"])
	assert.Equal(t, []models.RankCheck{{SubjectID: a.ID, Metric: models.MetricUserLevel}}, h.recorder.Checks())

	h.recorder.Reset()
	require.NoError(t, h.ledger.RegisterLikeReceived(ctx, a.ID, 3))
	stats = h.stats(t, a.ID)
	assert.EqualValues(t, 25, stats.ExperiencePoints)
	assert.EqualValues(t, 3, stats.TotalLikesReceived)
	assert.Equal(t, 2, h.level(t, a.ID))
	assert.Empty(t, h.recorder.Intents())
	assert.Empty(t, h.recorder.Checks())
}

func TestStatsLedger_LikeGivenAwardsTwoPerLike(t *testing.T) {
	h := newHarness(t)
	u := h.user(t)

	require.NoError(t, h.ledger.RegisterLikeGiven(context.Background(), u.ID, 5))
	stats := h.stats(t, u.ID)
	assert.EqualValues(t, 5, stats.TotalLikesGiven)
	assert.EqualValues(t, 10, stats.ExperiencePoints)
	assert.Equal(t, 2, h.level(t, u.ID))
}

func TestStatsLedger_NonPositiveIsNoop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.user(t)

	require.NoError(t, h.ledger.GainExperience(ctx, u.ID, 0))
	require.NoError(t, h.ledger.GainExperience(ctx, u.ID, -40))
	require.NoError(t, h.ledger.RegisterLikeGiven(ctx, u.ID, 0))
	require.NoError(t, h.ledger.RegisterLikeReceived(ctx, u.ID, -2))

	stats := h.stats(t, u.ID)
	assert.Zero(t, stats.ExperiencePoints)
	assert.Zero(t, stats.TotalLikesGiven)
	assert.Zero(t, stats.TotalLikesReceived)
	assert.Empty(t, h.recorder.Intents())
}

func TestStatsLedger_SkipsLevelsInOneGain(t *testing.T) {
	h := newHarness(t)
	u := h.user(t)

	require.NoError(t, h.ledger.GainExperience(context.Background(), u.ID, 400))
	assert.Equal(t, 10, h.level(t, u.ID))

	levelUps := intentsOfKind(h.recorder.Intents(), models.KindLevelUp)
	require.Len(t, levelUps, 1)
	assert.Equal(t, "10", levelUps[0].Payload["new_level"])
}

func TestStatsLedger_PlateauDoesNotRefire(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.user(t)

	require.NoError(t, h.ledger.GainExperience(ctx, u.ID, 350))
	h.recorder.Reset()
	require.NoError(t, h.ledger.GainExperience(ctx, u.ID, 99))
	assert.Equal(t, 10, h.level(t, u.ID))
	assert.Empty(t, h.recorder.Intents())
}

func TestStatsLedger_FollowCountsClampAtZero(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.user(t)

	require.NoError(t, h.ledger.UpdateFollowCounts(ctx, u.ID, 2, 1))
	require.NoError(t, h.ledger.UpdateFollowCounts(ctx, u.ID, -5, -1))

	stats := h.stats(t, u.ID)
	assert.Zero(t, stats.FollowerCount)
	assert.Zero(t, stats.FollowingCount)
}

func TestStatsLedger_UnknownUser(t *testing.T) {
	h := newHarness(t)

	err := h.ledger.GainExperience(context.Background(), 9999, 10)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	err = h.ledger.UpdateFollowCounts(context.Background(), 9999, 1, 0)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}
