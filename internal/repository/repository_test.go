package repository

import (
	"context"
	"testing"
	"time"

	"socialrank/internal/models"
	"socialrank/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func seedUser(t *testing.T, s Store, username string, createdAt time.Time) *models.User {
	t.Helper()
	ctx := context.Background()
	u := &models.User{Username: username, Email: username + "@example.com", Level: 1, CreatedAt: createdAt}
	require.NoError(t, s.Users().Create(ctx, u))
	require.NoError(t, s.Stats().Create(ctx, u.ID))
	return u
}

func seedPost(t *testing.T, s Store, author uint, likes int64, createdAt time.Time) *models.Post {
	t.Helper()
	p := &models.Post{UserID: author, Content: "hello", LikeCount: likes, CreatedAt: createdAt}
	require.NoError(t, s.Posts().Create(context.Background(), p))
	return p
}

func TestStatsRepository_Add_UsesClampedDelta(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewStatsRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "user_stats" SET "follower_count"=CASE WHEN follower_count \+ \$1 < 0 THEN 0 ELSE follower_count \+ \$2 END,"updated_at"=\$3 WHERE user_id = \$4`).
		WithArgs(int64(-1), int64(-1), sqlmock.AnyArg(), 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Add(context.Background(), 7, map[string]int64{ColFollowerCount: -1})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepository_Add_MissingRow(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewStatsRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "user_stats" SET "post_count"=post_count \+ \$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.Add(context.Background(), 99, map[string]int64{ColPostCount: 1})
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepository_Add_SkipsZeroDeltas(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewStatsRepository(db)

	require.NoError(t, repo.Add(context.Background(), 1, map[string]int64{ColLikesGiven: 0}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_GetForUpdateLocksBeforeDelta(t *testing.T) {
	tests := []struct {
		name  string
		delta int64
		set   string
	}{
		{name: "like", delta: 1, set: `"like_count"=like_count \+ \$1,"updated_at"=\$2 WHERE id = \$3`},
		{name: "unlike", delta: -1, set: `"like_count"=CASE WHEN like_count \+ \$1 < 0 THEN 0 ELSE like_count \+ \$2 END,"updated_at"=\$3 WHERE id = \$4`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			s := NewStore(db)

			mock.ExpectBegin()
			// FOR SHARE here would let two likers deadlock on the UPDATE below
			mock.ExpectQuery(`SELECT \* FROM "posts" WHERE "posts"."id" = \$1 ORDER BY "posts"."id" LIMIT \$2 FOR UPDATE$`).
				WithArgs(7, 1).
				WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "content", "like_count"}).
					AddRow(7, 3, "hello", 4))
			mock.ExpectExec(`UPDATE "posts" SET ` + tt.set).
				WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectCommit()

			err := s.Transaction(context.Background(), func(tx Store) error {
				post, err := tx.Posts().GetForUpdate(context.Background(), 7)
				if err != nil {
					return err
				}
				assert.EqualValues(t, 4, post.LikeCount)
				return tx.Posts().AddLikeCount(context.Background(), post.ID, tt.delta)
			})
			require.NoError(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_RaiseLevel(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{name: "raised", affected: 1, want: true},
		{name: "already higher", affected: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewUserRepository(db)

			mock.ExpectBegin()
			mock.ExpectExec(`UPDATE "users" SET "level"=\$1,"updated_at"=\$2 WHERE id = \$3 AND level < \$4`).
				WithArgs(5, sqlmock.AnyArg(), 3, 5).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))
			mock.ExpectCommit()

			raised, err := repo.RaiseLevel(context.Background(), 3, 5)
			require.NoError(t, err)
			assert.Equal(t, tt.want, raised)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(gorm.ErrRecordNotFound))
}

func TestPage(t *testing.T) {
	limit, offset := Page(0, -5)
	assert.Equal(t, 20, limit)
	assert.Equal(t, 0, offset)

	limit, _ = Page(500, 0)
	assert.Equal(t, 100, limit)
}

func TestStatsRepository_ClampsAtZero(t *testing.T) {
	s := NewStore(testutil.NewDB(t))
	ctx := context.Background()
	u := seedUser(t, s, "clamp", time.Now().UTC())

	require.NoError(t, s.Stats().Add(ctx, u.ID, map[string]int64{ColLikesReceived: 2, ColFollowerCount: 1}))
	require.NoError(t, s.Stats().Add(ctx, u.ID, map[string]int64{ColLikesReceived: -5, ColFollowerCount: -1}))

	stats, err := s.Stats().Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalLikesReceived)
	assert.Zero(t, stats.FollowerCount)

	total, err := s.Stats().AddExperience(ctx, u.ID, 15)
	require.NoError(t, err)
	assert.EqualValues(t, 15, total)
}

func TestLikeRepository_CreateDuplicate(t *testing.T) {
	s := NewStore(testutil.NewDB(t))
	ctx := context.Background()
	u := seedUser(t, s, "liker", time.Now().UTC())
	p := seedPost(t, s, u.ID, 0, time.Now().UTC())

	require.NoError(t, s.Likes().Create(ctx, &models.Like{UserID: u.ID, PostID: p.ID}))
	err := s.Likes().Create(ctx, &models.Like{UserID: u.ID, PostID: p.ID})
	assert.ErrorIs(t, err, models.ErrDuplicate)

	ids, err := s.Likes().LikedPostIDs(ctx, u.ID, []uint{p.ID, p.ID + 100})
	require.NoError(t, err)
	assert.Equal(t, []uint{p.ID}, ids)
}

func TestFollowRepository_CreateDuplicate(t *testing.T) {
	s := NewStore(testutil.NewDB(t))
	ctx := context.Background()
	a := seedUser(t, s, "alice", time.Now().UTC())
	b := seedUser(t, s, "bob", time.Now().UTC())

	require.NoError(t, s.Follows().Create(ctx, &models.Follow{FollowerID: a.ID, FolloweeID: b.ID}))
	err := s.Follows().Create(ctx, &models.Follow{FollowerID: a.ID, FolloweeID: b.ID})
	assert.ErrorIs(t, err, models.ErrDuplicate)

	// the reverse edge is a different relation
	require.NoError(t, s.Follows().Create(ctx, &models.Follow{FollowerID: b.ID, FolloweeID: a.ID}))

	followers, err := s.Follows().FollowerIDs(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID}, followers)
}

func TestPostRepository_AddLikeCount(t *testing.T) {
	s := NewStore(testutil.NewDB(t))
	ctx := context.Background()
	u := seedUser(t, s, "author", time.Now().UTC())
	p := seedPost(t, s, u.ID, 1, time.Now().UTC())

	require.NoError(t, s.Posts().AddLikeCount(ctx, p.ID, -3))
	got, err := s.Posts().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, got.LikeCount)

	assert.ErrorIs(t, s.Posts().AddLikeCount(ctx, p.ID+100, 1), models.ErrNotFound)
}

func TestDeviceTokenRepository_Upsert(t *testing.T) {
	s := NewStore(testutil.NewDB(t))
	ctx := context.Background()
	a := seedUser(t, s, "alice", time.Now().UTC())
	b := seedUser(t, s, "bob", time.Now().UTC())

	dt, created, err := s.DeviceTokens().Upsert(ctx, a.ID, "tok-1", models.PlatformIOS)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, a.ID, dt.UserID)

	require.NoError(t, s.DeviceTokens().Deactivate(ctx, []string{"tok-1"}))
	tokens, err := s.DeviceTokens().ActiveTokens(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, tokens)

	// re-registering moves the token and reactivates it
	dt, created, err = s.DeviceTokens().Upsert(ctx, b.ID, "tok-1", models.PlatformAndroid)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, b.ID, dt.UserID)
	assert.True(t, dt.IsActive)

	tokens, err = s.DeviceTokens().ActiveTokens(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"tok-1"}, tokens)

	assert.ErrorIs(t, s.DeviceTokens().Remove(ctx, a.ID, "tok-1"), models.ErrNotFound)
	require.NoError(t, s.DeviceTokens().Remove(ctx, b.ID, "tok-1"))
}

func TestRankingRepository_RankOf(t *testing.T) {
	s := NewStore(testutil.NewDB(t))
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	older := seedUser(t, s, "older", base)
	newer := seedUser(t, s, "newer", base.Add(time.Hour))
	top := seedUser(t, s, "top", base.Add(2*time.Hour))

	require.NoError(t, s.Stats().Add(ctx, older.ID, map[string]int64{ColLikesReceived: 3}))
	require.NoError(t, s.Stats().Add(ctx, newer.ID, map[string]int64{ColLikesReceived: 3}))
	require.NoError(t, s.Stats().Add(ctx, top.ID, map[string]int64{ColLikesReceived: 9}))

	tests := []struct {
		name string
		id   uint
		want int
	}{
		{name: "highest value", id: top.ID, want: 1},
		{name: "tie goes to the older account", id: older.ID, want: 2},
		{name: "newer account in a tie", id: newer.ID, want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rank, ok, err := s.Rankings().RankOf(ctx, models.MetricUserTotalLikes, tt.id, time.Time{})
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.want, rank)
		})
	}

	_, ok, err := s.Rankings().RankOf(ctx, models.MetricUserTotalLikes, 9999, time.Time{})
	require.NoError(t, err)
	assert.False(t, ok)

	rows, err := s.Rankings().TopUsers(ctx, models.MetricUserTotalLikes, 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []uint{top.ID, older.ID, newer.ID}, []uint{rows[0].User.ID, rows[1].User.ID, rows[2].User.ID})
	assert.EqualValues(t, 9, rows[0].Value)
}

func TestRankingRepository_TrendWindow(t *testing.T) {
	s := NewStore(testutil.NewDB(t))
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	since := now.Add(-24 * time.Hour)

	u := seedUser(t, s, "author", now.Add(-72*time.Hour))
	stale := seedPost(t, s, u.ID, 50, now.Add(-48*time.Hour))
	fresh := seedPost(t, s, u.ID, 2, now.Add(-time.Hour))

	_, ok, err := s.Rankings().RankOf(ctx, models.MetricPostLikes24h, stale.ID, since)
	require.NoError(t, err)
	assert.False(t, ok)

	rank, ok, err := s.Rankings().RankOf(ctx, models.MetricPostLikes24h, fresh.ID, since)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, rank)

	rank, ok, err = s.Rankings().RankOf(ctx, models.MetricPostLikesAllTime, fresh.ID, since)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, rank)

	rows, err := s.Rankings().TopPosts(ctx, models.MetricPostLikes24h, since, 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, fresh.ID, rows[0].Post.ID)

	_, err = s.Rankings().TopPosts(ctx, models.MetricUserLevel, since, 10, 0)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestStore_TransactionRollsBack(t *testing.T) {
	s := NewStore(testutil.NewDB(t))
	ctx := context.Background()

	err := s.Transaction(ctx, func(tx Store) error {
		u := &models.User{Username: "ghost", Email: "ghost@example.com", Level: 1}
		require.NoError(t, tx.Users().Create(ctx, u))
		return models.NewValidationError("abort")
	})
	require.Error(t, err)

	_, err = s.Users().GetByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
