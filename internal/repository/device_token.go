package repository

import (
	"context"

	"socialrank/internal/models"

	"gorm.io/gorm"
)

// DeviceTokenRepository stores push registrations.
type DeviceTokenRepository interface {
	// Upsert binds token to userID and reactivates it. The bool reports whether a new row was inserted.
	Upsert(ctx context.Context, userID uint, token, platform string) (*models.DeviceToken, bool, error)
	Remove(ctx context.Context, userID uint, token string) error
	ActiveTokens(ctx context.Context, userID uint) ([]string, error)
	Deactivate(ctx context.Context, tokens []string) error
	DeleteByUser(ctx context.Context, userID uint) error
}

type deviceTokenRepository struct {
	db *gorm.DB
}

// NewDeviceTokenRepository returns a DeviceTokenRepository bound to db.
func NewDeviceTokenRepository(db *gorm.DB) DeviceTokenRepository {
	return &deviceTokenRepository{db: db}
}

func (r *deviceTokenRepository) Upsert(ctx context.Context, userID uint, token, platform string) (*models.DeviceToken, bool, error) {
	var dt models.DeviceToken
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("token = ?", token).Limit(1).Find(&dt)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			dt = models.DeviceToken{UserID: userID, Token: token, Platform: platform, IsActive: true}
			created = true
			return tx.Create(&dt).Error
		}
		dt.UserID = userID
		dt.Platform = platform
		dt.IsActive = true
		return tx.Model(&dt).Select("user_id", "platform", "is_active", "updated_at").Updates(&dt).Error
	})
	if err != nil {
		return nil, false, models.NewInternalError(err)
	}
	return &dt, created, nil
}

func (r *deviceTokenRepository) Remove(ctx context.Context, userID uint, token string) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND token = ?", userID, token).Delete(&models.DeviceToken{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Device token", token)
	}
	return nil
}

func (r *deviceTokenRepository) ActiveTokens(ctx context.Context, userID uint) ([]string, error) {
	var tokens []string
	err := r.db.WithContext(ctx).Model(&models.DeviceToken{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("id").
		Pluck("token", &tokens).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return tokens, nil
}

func (r *deviceTokenRepository) Deactivate(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&models.DeviceToken{}).
		Where("token IN ?", tokens).
		Update("is_active", false).Error
	return wrapErr(err, "Device token", tokens)
}

func (r *deviceTokenRepository) DeleteByUser(ctx context.Context, userID uint) error {
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.DeviceToken{}).Error
	return wrapErr(err, "Device token", userID)
}
