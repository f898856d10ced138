package models

import "time"

// Supported push platforms.
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
)

// DeviceToken is a push registration for one of a user's devices.
type DeviceToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Token     string    `gorm:"size:255;uniqueIndex;not null" json:"token"`
	Platform  string    `gorm:"size:10;not null" json:"platform"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidPlatform reports whether p is a supported push platform.
func ValidPlatform(p string) bool {
	return p == PlatformIOS || p == PlatformAndroid
}
