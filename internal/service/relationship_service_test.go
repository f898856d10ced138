package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"socialrank/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestLikePost_UpdatesBothLedgers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	author := h.user(t)
	liker := h.user(t)
	post := h.post(t, author, "hello world")
	h.recorder.Reset()

	like, err := h.relationships.LikePost(ctx, Actor{UserID: liker.ID}, post.ID)
	require.NoError(t, err)
	assert.Equal(t, liker.ID, like.UserID)
	assert.Equal(t, post.ID, like.PostID)

	assert.EqualValues(t, 1, h.likeCount(t, post.ID))
	authorStats := h.stats(t, author.ID)
	assert.EqualValues(t, 1, authorStats.TotalLikesReceived)
	assert.EqualValues(t, 15, authorStats.ExperiencePoints)
	likerStats := h.stats(t, liker.ID)
	assert.EqualValues(t, 1, likerStats.TotalLikesGiven)
	assert.EqualValues(t, 2, likerStats.ExperiencePoints)

	liked := intentsOfKind(h.recorder.Intents(), models.KindLiked)
	require.Len(t, liked, 1)
	assert.Equal(t, author.ID, liked[0].RecipientID)
	assert.Equal(t, liker.Username, liked[0].Payload["liker_username"])
	assert.Equal(t, strconv.FormatUint(uint64(post.ID), 10), liked[0].Payload["post_id"])
	assert.Equal(t, "hello world", liked[0].Payload["post_context"])

	assert.ElementsMatch(t, []models.RankCheck{
		{SubjectID: post.ID, Metric: models.MetricPostLikes24h},
		{SubjectID: post.ID, Metric: models.MetricPostLikesAllTime},
		{SubjectID: author.ID, Metric: models.MetricUserTotalLikes},
	}, h.recorder.Checks())
}

func TestLikePost_PostContextTruncatedByRunes(t *testing.T) {
	h := newHarness(t)
	author := h.user(t)
	liker := h.user(t)
	post := h.post(t, author, strings.Repeat("い", 80))
	h.recorder.Reset()

	_, err := h.relationships.LikePost(context.Background(), Actor{UserID: liker.ID}, post.ID)
	require.NoError(t, err)

	liked := intentsOfKind(h.recorder.Intents(), models.KindLiked)
	require.Len(t, liked, 1)
	assert.Equal(t, strings.Repeat("い", 50), liked[0].Payload["post_context"])
}

func TestLikePost_DuplicateRejectedWithSingleIncrement(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	author := h.user(t)
	liker := h.user(t)
	post := h.post(t, author, "once")

	_, err := h.relationships.LikePost(ctx, Actor{UserID: liker.ID}, post.ID)
	require.NoError(t, err)
	h.recorder.Reset()

	_, err = h.relationships.LikePost(ctx, Actor{UserID: liker.ID}, post.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrDuplicate))

	assert.EqualValues(t, 1, h.likeCount(t, post.ID))
	assert.EqualValues(t, 1, h.stats(t, author.ID).TotalLikesReceived)
	assert.EqualValues(t, 1, h.stats(t, liker.ID).TotalLikesGiven)
	assert.EqualValues(t, 2, h.stats(t, liker.ID).ExperiencePoints)
	assert.Empty(t, h.recorder.Intents())
}

func TestLikePost_SelfLikeCountsWithoutNotification(t *testing.T) {
	h := newHarness(t)
	author := h.user(t)
	post := h.post(t, author, "mine")
	h.recorder.Reset()

	_, err := h.relationships.LikePost(context.Background(), Actor{UserID: author.ID}, post.ID)
	require.NoError(t, err)

	stats := h.stats(t, author.ID)
	assert.EqualValues(t, 1, stats.TotalLikesReceived)
	assert.EqualValues(t, 1, stats.TotalLikesGiven)
	assert.EqualValues(t, 17, stats.ExperiencePoints)
	assert.Empty(t, intentsOfKind(h.recorder.Intents(), models.KindLiked))
	assert.Empty(t, h.recorder.Checks())
}

func TestLikePost_MissingPost(t *testing.T) {
	h := newHarness(t)
	liker := h.user(t)

	_, err := h.relationships.LikePost(context.Background(), Actor{UserID: liker.ID}, 4242)
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.Zero(t, h.stats(t, liker.ID).TotalLikesGiven)
}

func TestUnlikePost_RestoresCounters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	author := h.user(t)
	liker := h.user(t)
	post := h.post(t, author, "round trip")

	_, err := h.relationships.LikePost(ctx, Actor{UserID: liker.ID}, post.ID)
	require.NoError(t, err)
	h.recorder.Reset()

	require.NoError(t, h.relationships.UnlikePost(ctx, Actor{UserID: liker.ID}, post.ID))

	assert.Zero(t, h.likeCount(t, post.ID))
	assert.Zero(t, h.stats(t, author.ID).TotalLikesReceived)
	assert.Zero(t, h.stats(t, liker.ID).TotalLikesGiven)
	// experience is never taken back
	assert.EqualValues(t, 2, h.stats(t, liker.ID).ExperiencePoints)
	assert.Empty(t, h.recorder.Intents())
	assert.Empty(t, h.recorder.Checks())

	err = h.relationships.UnlikePost(ctx, Actor{UserID: liker.ID}, post.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestDeleteLike_Permissions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	author := h.user(t)
	liker := h.user(t)
	other := h.user(t)
	post := h.post(t, author, "guarded")

	like, err := h.relationships.LikePost(ctx, Actor{UserID: liker.ID}, post.ID)
	require.NoError(t, err)

	err = h.relationships.DeleteLike(ctx, Actor{UserID: other.ID}, like.ID)
	assert.True(t, errors.Is(err, models.ErrPermission))
	assert.EqualValues(t, 1, h.likeCount(t, post.ID))

	require.NoError(t, h.relationships.DeleteLike(ctx, Actor{UserID: other.ID, IsStaff: true}, like.ID))
	assert.Zero(t, h.likeCount(t, post.ID))
}

func TestFollow_SelfFollowRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.user(t)

	_, err := h.relationships.Follow(ctx, Actor{UserID: u.ID}, u.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrSelfFollow))

	_, err = h.store.Follows().GetByPair(ctx, u.ID, u.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.Zero(t, h.stats(t, u.ID).FollowerCount)
}

func TestFollow_CountsIntentAndDuplicate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	follower := h.user(t)
	followee := h.user(t)
	h.recorder.Reset()

	_, err := h.relationships.Follow(ctx, Actor{UserID: follower.ID}, followee.ID)
	require.NoError(t, err)

	assert.EqualValues(t, 1, h.stats(t, follower.ID).FollowingCount)
	assert.EqualValues(t, 1, h.stats(t, followee.ID).FollowerCount)

	followed := intentsOfKind(h.recorder.Intents(), models.KindFollowed)
	require.Len(t, followed, 1)
	assert.Equal(t, followee.ID, followed[0].RecipientID)
	assert.Equal(t, follower.Username, followed[0].Payload["follower_username"])
	assert.Equal(t, []models.RankCheck{{SubjectID: followee.ID, Metric: models.MetricUserFollowers}}, h.recorder.Checks())

	_, err = h.relationships.Follow(ctx, Actor{UserID: follower.ID}, followee.ID)
	assert.True(t, errors.Is(err, models.ErrDuplicate))
	assert.EqualValues(t, 1, h.stats(t, followee.ID).FollowerCount)

	_, err = h.relationships.Follow(ctx, Actor{UserID: follower.ID}, 777)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestUnfollow_SymmetricDecrement(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	follower := h.user(t)
	followee := h.user(t)
	other := h.user(t)

	follow, err := h.relationships.Follow(ctx, Actor{UserID: follower.ID}, followee.ID)
	require.NoError(t, err)

	err = h.relationships.DeleteFollow(ctx, Actor{UserID: other.ID}, follow.ID)
	assert.True(t, errors.Is(err, models.ErrPermission))

	h.recorder.Reset()
	require.NoError(t, h.relationships.Unfollow(ctx, Actor{UserID: follower.ID}, followee.ID))
	assert.Zero(t, h.stats(t, follower.ID).FollowingCount)
	assert.Zero(t, h.stats(t, followee.ID).FollowerCount)
	assert.Empty(t, h.recorder.Checks())

	err = h.relationships.DeleteFollow(ctx, Actor{UserID: follower.ID}, follow.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

// SQLite runs these transactions one at a time; the Postgres row lock order is
// asserted in repository.TestPostRepository_GetForUpdateLocksBeforeDelta.
func TestLikePost_ConcurrentLikersKeepCountersExact(t *testing.T) {
	h := newHarness(t)
	author := h.user(t)
	post := h.post(t, author, "popular")

	const likers = 8
	ids := make([]uint, likers)
	for i := range ids {
		ids[i] = h.user(t).ID
	}

	g, ctx := errgroup.WithContext(context.Background())
	for _, id := range ids {
		g.Go(func() error {
			_, err := h.relationships.LikePost(ctx, Actor{UserID: id}, post.ID)
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.EqualValues(t, likers, h.likeCount(t, post.ID))
	stats := h.stats(t, author.ID)
	assert.EqualValues(t, likers, stats.TotalLikesReceived)
	assert.EqualValues(t, 10+5*likers, stats.ExperiencePoints)
}
