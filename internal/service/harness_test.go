package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"socialrank/internal/models"
	"socialrank/internal/repository"
	"socialrank/internal/testutil"

	"github.com/stretchr/testify/require"
)

type harness struct {
	store         repository.Store
	recorder      *RecordingPublisher
	ledger        *StatsLedger
	leaderboard   *LeaderboardService
	relationships *RelationshipService
	posts         *PostService
	users         *UserService
	tokens        *DeviceTokenService
	now           time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := repository.NewStore(testutil.NewDB(t))
	recorder := &RecordingPublisher{}
	now := time.Now().UTC()
	clock := func() time.Time { return now }

	ledger := NewStatsLedger(store, recorder).WithClock(clock)
	leaderboard := NewLeaderboardService(store, LeaderboardConfig{}).WithClock(clock)
	return &harness{
		store:         store,
		recorder:      recorder,
		ledger:        ledger,
		leaderboard:   leaderboard,
		relationships: NewRelationshipService(store, ledger, recorder),
		posts:         NewPostService(store, ledger, recorder, leaderboard),
		users:         NewUserService(store),
		tokens:        NewDeviceTokenService(store),
		now:           now,
	}
}

var userSeq int

func (h *harness) user(t *testing.T) *models.User {
	t.Helper()
	userSeq++
	u, err := h.users.Create(context.Background(), CreateUserInput{
		Username: fmt.Sprintf("user_%d", userSeq),
		Email:    fmt.Sprintf("user_%d@example.com", userSeq),
	})
	require.NoError(t, err)
	return u
}

func (h *harness) post(t *testing.T, author *models.User, content string) *models.Post {
	t.Helper()
	p, err := h.posts.Create(context.Background(), Actor{UserID: author.ID}, content)
	require.NoError(t, err)
	return p
}

func (h *harness) stats(t *testing.T, userID uint) *models.UserStats {
	t.Helper()
	s, err := h.ledger.Stats(context.Background(), userID)
	require.NoError(t, err)
	return s
}

func (h *harness) level(t *testing.T, userID uint) int {
	t.Helper()
	u, err := h.store.Users().GetByID(context.Background(), userID)
	require.NoError(t, err)
	return u.Level
}

func (h *harness) likeCount(t *testing.T, postID uint) int64 {
	t.Helper()
	p, err := h.store.Posts().GetByID(context.Background(), postID)
	require.NoError(t, err)
	return p.LikeCount
}

func intentsOfKind(intents []models.NotificationIntent, kind models.NotificationKind) []models.NotificationIntent {
	var out []models.NotificationIntent
	for _, i := range intents {
		if i.Kind == kind {
			out = append(out, i)
		}
	}
	return out
}
