package seed

import (
	"fmt"

	"verses/internal/middleware"
	"verses/internal/models"

	"gorm.io/gorm"
)

// Result summarizes what a seeding run inserted.
type Result struct {
	Users int
	Poems int
	Likes int
}

// Seeder populates a database.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) (*Seeder, error) {
	f, err := NewFactory(db, opts)
	if err != nil {
		return nil, err
	}
	return &Seeder{db: db, factory: f}, nil
}

// ClearAll removes every like, poem and user.
func (s *Seeder) ClearAll() error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&models.Like{}, &models.Poem{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("clear %T: %w", model, err)
			}
		}
		return nil
	})
}

// Random inserts Options.Users users with Options.PoemsPerUser poems each
// and a random spread of likes.
func (s *Seeder) Random() (Result, error) {
	opts := s.factory.opts

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		users = append(users, s.factory.BuildUser())
	}
	if err := s.factory.CreateUsers(users); err != nil {
		return Result{}, fmt.Errorf("seed users: %w", err)
	}

	poems := make([]*models.Poem, 0, opts.Users*opts.PoemsPerUser)
	for _, u := range users {
		for i := 0; i < opts.PoemsPerUser; i++ {
			poems = append(poems, s.factory.BuildPoem(u))
		}
	}
	if err := s.factory.CreatePoems(poems); err != nil {
		return Result{}, fmt.Errorf("seed poems: %w", err)
	}

	likes := s.factory.RandomLikes(users, poems)
	if err := s.factory.CreateLikes(likes); err != nil {
		return Result{}, fmt.Errorf("seed likes: %w", err)
	}

	res := Result{Users: len(users), Poems: len(poems), Likes: len(likes)}
	middleware.Logger.Info("seeded random data", "users", res.Users, "poems", res.Poems, "likes", res.Likes)
	return res, nil
}
