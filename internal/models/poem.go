package models

import "time"

// Poem is a piece of writing owned by exactly one user.
type Poem struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Title   string `gorm:"size:200;not null" json:"title"`
	Content string `gorm:"type:text;not null" json:"content"`
	// UpdatedAt stays nil until the first edit.
	UpdatedAt   *time.Time `gorm:"autoUpdateTime:false" json:"updatedAt"`
	CreatedAt   time.Time  `gorm:"index" json:"createdAt"`
	IsPublished bool       `gorm:"not null;index" json:"isPublished"`
	UserID      string     `gorm:"size:36;not null;index" json:"userId"`
	User        User       `gorm:"foreignKey:UserID" json:"user"`

	Likes []Like `gorm:"foreignKey:PoemID;constraint:OnDelete:CASCADE" json:"-"`

	// LikeCount is computed at query time
	LikeCount int64 `gorm:"->;-:migration" json:"likeCount"`
	// IsLikedByCurrentUser is computed per viewer at query time
	IsLikedByCurrentUser bool `gorm:"->;-:migration" json:"isLikedByCurrentUser"`
}
