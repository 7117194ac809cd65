// Package models contains data structures for the application's domain models.
package models

import "time"

// User represents a registered WorldNews member.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     *string   `gorm:"uniqueIndex" json:"email,omitempty"`
	Phone     *string   `gorm:"uniqueIndex" json:"phone,omitempty"`
	Password  string    `gorm:"not null" json:"-"`
	Name      string    `gorm:"not null" json:"name"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	Country   string    `gorm:"size:2;not null" json:"country"`
	Avatar    string    `json:"avatar"`
	Bio       string    `json:"bio"`
	IsAdmin   bool      `gorm:"not null;default:false" json:"is_admin"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	IsGuest   bool      `gorm:"-" json:"is_guest,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Contact returns the identifier the user signs in with.
func (u *User) Contact() string {
	if u.Email != nil && *u.Email != "" {
		return *u.Email
	}
	if u.Phone != nil {
		return *u.Phone
	}
	return ""
}

// GuestUser is the read-only identity handed out to visitors. It has no stored record.
func GuestUser() *User {
	return &User{
		Name:     "Guest User",
		Username: "guest_explorer",
		Country:  "US",
		Avatar:   "👤",
		Bio:      "Exploring the platform",
		IsActive: true,
		IsGuest:  true,
	}
}

// PlaceholderAuthor stands in for the owner of a post whose user row is gone.
func PlaceholderAuthor(userID uint, country string) User {
	return User{
		ID:       userID,
		Name:     "User",
		Username: "user",
		Country:  country,
		Avatar:   "👤",
		IsActive: true,
	}
}

// Public returns a copy of u without contact details.
func (u User) Public() User {
	u.Email = nil
	u.Phone = nil
	return u
}
