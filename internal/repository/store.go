// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"

	"socialrank/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store groups the repositories that share one connection or transaction.
type Store interface {
	Users() UserRepository
	Stats() StatsRepository
	Posts() PostRepository
	Likes() LikeRepository
	Follows() FollowRepository
	DeviceTokens() DeviceTokenRepository
	Rankings() RankingRepository
	// Transaction runs fn against a Store bound to a single database transaction.
	// Returning an error from fn rolls everything back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type store struct {
	db *gorm.DB
}

// NewStore creates a Store backed by db.
func NewStore(db *gorm.DB) Store {
	return &store{db: db}
}

func (s *store) Users() UserRepository               { return NewUserRepository(s.db) }
func (s *store) Stats() StatsRepository              { return NewStatsRepository(s.db) }
func (s *store) Posts() PostRepository               { return NewPostRepository(s.db) }
func (s *store) Likes() LikeRepository               { return NewLikeRepository(s.db) }
func (s *store) Follows() FollowRepository           { return NewFollowRepository(s.db) }
func (s *store) DeviceTokens() DeviceTokenRepository { return NewDeviceTokenRepository(s.db) }
func (s *store) Rankings() RankingRepository         { return NewRankingRepository(s.db) }

func (s *store) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&store{db: tx})
	})
}

// counterDelta builds an atomic column update. Negative deltas are clamped so
// the column never drops below zero.
func counterDelta(column string, delta int64) clause.Expr {
	if delta >= 0 {
		return gorm.Expr(column+" + ?", delta)
	}
	return gorm.Expr("CASE WHEN "+column+" + ? < 0 THEN 0 ELSE "+column+" + ? END", delta, delta)
}

// isUniqueViolation reports whether err is a unique constraint failure.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// wrapErr maps gorm errors onto application errors.
func wrapErr(err error, resource string, id interface{}) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewInternalError(err)
}

// Page normalizes a limit/offset pair.
func Page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
