// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents an account. Level is only raised by the stats ledger.
type User struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Username    string     `gorm:"unique;not null" json:"username"`
	Email       string     `gorm:"unique;not null" json:"email"`
	DisplayName string     `gorm:"size:50" json:"display_name"`
	URL         string     `json:"url"`
	Bio         string     `json:"bio"`
	Rank        string     `gorm:"size:20" json:"rank"`
	Level       int        `gorm:"not null;default:1" json:"level"`
	IsStaff     bool       `gorm:"not null;default:false" json:"is_staff"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Stats       *UserStats `gorm:"foreignKey:UserID" json:"stats,omitempty"`
}

// UserStats holds the per-user aggregate counters. All counters are non-negative
// and ExperiencePoints never decreases.
type UserStats struct {
	UserID             uint       `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	ExperiencePoints   int64      `gorm:"not null;default:0" json:"experience_points"`
	TotalLikesReceived int64      `gorm:"not null;default:0" json:"total_likes_received"`
	TotalLikesGiven    int64      `gorm:"not null;default:0" json:"total_likes_given"`
	FollowerCount      int64      `gorm:"not null;default:0" json:"follower_count"`
	FollowingCount     int64      `gorm:"not null;default:0" json:"following_count"`
	PostCount          int64      `gorm:"not null;default:0" json:"post_count"`
	LastLevelUp        *time.Time `json:"last_level_up,omitempty"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// TableName pins the stats table name.
func (UserStats) TableName() string { return "user_stats" }
