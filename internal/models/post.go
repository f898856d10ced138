package models

import (
	"time"
)

// Post is a piece of user content. LikeCount mirrors the number of Like rows.
type Post struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	UserID    uint   `gorm:"not null;index" json:"user_id"`
	User      *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Content   string `gorm:"type:text;not null" json:"content"`
	LikeCount int64  `gorm:"not null;default:0;index" json:"like_count"`
	// Liked indicates whether the current requesting user liked this post (computed)
	Liked     bool      `gorm:"-" json:"liked"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
