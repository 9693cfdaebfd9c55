// Package models contains data structures for the application's domain models.
package models

import "time"

// User is an account that can author and like poems.
// IDs are opaque strings assigned at registration.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:256;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	DisplayName  string    `gorm:"size:100;not null" json:"displayName"`
	CreatedAt    time.Time `json:"createdAt"`

	Poems []Poem `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Likes []Like `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
