package repository

import (
	"context"
	"strings"

	"socialrank/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, user *models.User) error
	// RaiseLevel sets the level only if it is currently lower. It reports whether a row changed.
	RaiseLevel(ctx context.Context, id uint, level int) (bool, error)
	Delete(ctx context.Context, id uint) error
	Search(ctx context.Context, query string, limit, offset int) ([]models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Stats").First(&user, id).Error
	if err != nil {
		return nil, wrapErr(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Stats").Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, wrapErr(err, "User", username)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Omit("Stats").Create(user).Error
	if isUniqueViolation(err) {
		return models.NewDuplicateError("user")
	}
	return wrapErr(err, "User", user.Username)
}

func (r *userRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"display_name": user.DisplayName,
			"url":          user.URL,
			"bio":          user.Bio,
			"rank":         user.Rank,
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", user.ID)
	}
	return nil
}

func (r *userRepository) RaiseLevel(ctx context.Context, id uint, level int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND level < ?", id, level).
		Update("level", level)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

// Search matches usernames, strongest accounts first.
func (r *userRepository) Search(ctx context.Context, query string, limit, offset int) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.User{}, nil
	}
	limit, offset = Page(limit, offset)
	like := "%" + strings.ToLower(query) + "%"
	var users []models.User
	err := r.db.WithContext(ctx).
		Preload("Stats").
		Joins("JOIN user_stats ON user_stats.user_id = users.id").
		Where("LOWER(users.username) LIKE ? OR LOWER(users.display_name) LIKE ?", like, like).
		Order("user_stats.total_likes_received DESC, users.level DESC, users.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	limit, offset = Page(limit, offset)
	var users []models.User
	err := r.db.WithContext(ctx).Preload("Stats").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
