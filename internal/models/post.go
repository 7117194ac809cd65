package models

import "time"

// Post is a news item shared by a user, tagged with a country and a category.
type Post struct {
	ID       uint     `gorm:"primaryKey" json:"id"`
	UserID   uint     `gorm:"not null;index" json:"user_id"`
	Author   User     `gorm:"foreignKey:UserID" json:"author"`
	Country  string   `gorm:"size:2;not null;index:idx_posts_feed,priority:2" json:"country"`
	Category Category `gorm:"size:32;not null;index" json:"category"`
	Title    string   `gorm:"not null" json:"title"`
	Content  string   `gorm:"type:text;not null" json:"content"`
	Image    string   `gorm:"type:text" json:"image"`
	// Likes mirrors the number of Like rows for the post.
	Likes    int  `gorm:"not null;default:0" json:"likes"`
	IsActive bool `gorm:"not null;default:true;index:idx_posts_feed,priority:1" json:"is_active"`
	// Liked reports whether the requesting user is in the like set (computed).
	Liked     bool      `gorm:"-" json:"liked"`
	CreatedAt time.Time `gorm:"index:idx_posts_feed,priority:3" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
