// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"testing"
	"time"

	"verses/internal/database"
	"verses/internal/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB returns a migrated in-memory SQLite database private to the test.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// every connection to :memory: is a fresh database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateUser inserts a user with a fresh id.
func CreateUser(t testing.TB, db *gorm.DB, displayName string) *models.User {
	t.Helper()
	id := uuid.NewString()
	u := &models.User{
		ID:           id,
		Email:        id + "@example.com",
		PasswordHash: "x",
		DisplayName:  displayName,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// CreatePoem inserts a poem for owner. A zero createdAt uses the current time.
func CreatePoem(t testing.TB, db *gorm.DB, owner *models.User, title string, published bool, createdAt time.Time) *models.Poem {
	t.Helper()
	p := &models.Poem{
		Title:       title,
		Content:     "<p>" + title + "</p>",
		IsPublished: published,
		UserID:      owner.ID,
		CreatedAt:   createdAt,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create poem: %v", err)
	}
	return p
}

// AddLikes inserts one like per liker on poem.
func AddLikes(t testing.TB, db *gorm.DB, poem *models.Poem, likers ...*models.User) {
	t.Helper()
	for _, u := range likers {
		if err := db.Create(&models.Like{UserID: u.ID, PoemID: poem.ID}).Error; err != nil {
			t.Fatalf("create like: %v", err)
		}
	}
}
