package models

import "time"

// Like represents a user's like on a poem.
// The combination of UserID and PoemID must be unique.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_like_user_poem" json:"userId"`
	PoemID    uint      `gorm:"not null;uniqueIndex:idx_like_user_poem;index" json:"poemId"`
	CreatedAt time.Time `json:"createdAt"`
}
