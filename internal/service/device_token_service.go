package service

import (
	"context"
	"strings"

	"socialrank/internal/models"
	"socialrank/internal/repository"
)

// DeviceTokenService manages push registrations.
type DeviceTokenService struct {
	store repository.Store
}

// NewDeviceTokenService builds the service.
func NewDeviceTokenService(store repository.Store) *DeviceTokenService {
	return &DeviceTokenService{store: store}
}

// Register binds token to userID, moving it from any previous owner.
// The bool reports whether the token was new.
func (s *DeviceTokenService) Register(ctx context.Context, userID uint, token, platform string) (*models.DeviceToken, bool, error) {
	token = strings.TrimSpace(token)
	platform = strings.ToLower(strings.TrimSpace(platform))
	if token == "" {
		return nil, false, models.NewValidationError("token is required")
	}
	if !models.ValidPlatform(platform) {
		return nil, false, models.NewValidationError("platform must be ios or android")
	}
	return s.store.DeviceTokens().Upsert(ctx, userID, token, platform)
}

// Remove deletes userID's registration of token.
func (s *DeviceTokenService) Remove(ctx context.Context, userID uint, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.NewValidationError("token is required")
	}
	return s.store.DeviceTokens().Remove(ctx, userID, token)
}
