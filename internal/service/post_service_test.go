package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"socialrank/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostService_CreateValidates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.user(t)

	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"whitespace", "   \n"},
		{"too long", strings.Repeat("x", MaxPostLength+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.posts.Create(ctx, Actor{UserID: u.ID}, tt.content)
			assert.True(t, errors.Is(err, models.ErrValidation))
		})
	}
	assert.Zero(t, h.stats(t, u.ID).PostCount)

	_, err := h.posts.Create(ctx, Actor{UserID: 555}, "ghost")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestPostService_CreateCreditsAuthor(t *testing.T) {
	h := newHarness(t)
	u := h.user(t)

	post := h.post(t, u, "  trimmed  ")
	assert.Equal(t, "trimmed", post.Content)
	require.NotNil(t, post.User)
	assert.Equal(t, u.Username, post.User.Username)

	stats := h.stats(t, u.ID)
	assert.EqualValues(t, 1, stats.PostCount)
	assert.EqualValues(t, 10, stats.ExperiencePoints)
}

func TestPostService_DeleteUnwindsCounters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	author := h.user(t)
	liker := h.user(t)
	stranger := h.user(t)
	post := h.post(t, author, "short lived")

	_, err := h.relationships.LikePost(ctx, Actor{UserID: liker.ID}, post.ID)
	require.NoError(t, err)
	_, err = h.relationships.LikePost(ctx, Actor{UserID: author.ID}, post.ID)
	require.NoError(t, err)

	err = h.posts.Delete(ctx, Actor{UserID: stranger.ID}, post.ID)
	assert.True(t, errors.Is(err, models.ErrPermission))

	require.NoError(t, h.posts.Delete(ctx, Actor{UserID: author.ID}, post.ID))

	_, err = h.store.Posts().GetByID(ctx, post.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	authorStats := h.stats(t, author.ID)
	assert.Zero(t, authorStats.PostCount)
	assert.Zero(t, authorStats.TotalLikesReceived)
	assert.Zero(t, authorStats.TotalLikesGiven)
	assert.Zero(t, h.stats(t, liker.ID).TotalLikesGiven)
	assert.EqualValues(t, 2, h.stats(t, liker.ID).ExperiencePoints)
}

func TestPostService_TimelineTabs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.user(t)
	b := h.user(t)
	viewer := h.user(t)
	first := h.post(t, a, "from a")
	second := h.post(t, b, "from b")

	_, err := h.relationships.LikePost(ctx, Actor{UserID: viewer.ID}, first.ID)
	require.NoError(t, err)
	_, err = h.relationships.Follow(ctx, Actor{UserID: viewer.ID}, b.ID)
	require.NoError(t, err)

	latest, err := h.posts.Timeline(ctx, TabLatest, viewer.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, second.ID, latest[0].ID)
	assert.False(t, latest[0].Liked)
	assert.True(t, latest[1].Liked)

	popular, err := h.posts.Timeline(ctx, TabPopular, 0, 10, 0)
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, first.ID, popular[0].ID)

	following, err := h.posts.Timeline(ctx, TabFollowing, viewer.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, second.ID, following[0].ID)

	_, err = h.posts.Timeline(ctx, TabFollowing, 0, 10, 0)
	assert.True(t, errors.Is(err, models.ErrUnauthorized))
	_, err = h.posts.Timeline(ctx, "sideways", viewer.ID, 10, 0)
	assert.True(t, errors.Is(err, models.ErrValidation))

	h.leaderboard.WithClock(func() time.Time { return h.now.Add(72 * time.Hour) })
	popular, err = h.posts.Timeline(ctx, TabPopular, 0, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, popular)
}

func TestPostService_LikedPostsAndStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	author := h.user(t)
	liker := h.user(t)
	p1 := h.post(t, author, "one")
	p2 := h.post(t, author, "two")
	p3 := h.post(t, author, "three")

	for _, p := range []*models.Post{p1, p3} {
		_, err := h.relationships.LikePost(ctx, Actor{UserID: liker.ID}, p.ID)
		require.NoError(t, err)
	}

	liked, err := h.posts.LikedPosts(ctx, liker.ID, 0, 10, 0)
	require.NoError(t, err)
	require.Len(t, liked, 2)
	assert.Equal(t, p3.ID, liked[0].ID)
	assert.Equal(t, p1.ID, liked[1].ID)

	status, err := h.posts.LikedStatus(ctx, liker.ID, []uint{p1.ID, p2.ID, p3.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uint]bool{p1.ID: true, p2.ID: false, p3.ID: true}, status)

	got, err := h.posts.Get(ctx, p1.ID, liker.ID)
	require.NoError(t, err)
	assert.True(t, got.Liked)

	_, err = h.posts.LikedPosts(ctx, 9999, 0, 10, 0)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestPostService_ListByUserAndSearch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.user(t)
	b := h.user(t)
	h.post(t, a, "Gophers are great")
	h.post(t, b, "nothing to see")

	posts, err := h.posts.ListByUser(ctx, a.ID, 0, 10, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)

	found, err := h.posts.Search(ctx, "gopher", 0, 10, 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, a.ID, found[0].UserID)

	found, err = h.posts.Search(ctx, "   ", 0, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, found)
}
