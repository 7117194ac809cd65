package models

import "time"

// Like is one membership of a user in a post's like set.
// The pair (PostID, UserID) is the primary key, so a user likes a post at most once.
type Like struct {
	PostID    uint      `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
