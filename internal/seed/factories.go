// Package seed creates demo data: random users, poems and likes, or a
// hand-written YAML fixture. Intended for development and tests only.
package seed

import (
	"fmt"
	"html"
	"strings"
	"time"

	"verses/internal/models"
	"verses/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the password of every generated user.
const DefaultPassword = "password123"

// Options tunes generated data.
type Options struct {
	Users        int
	PoemsPerUser int
	// DraftRatio is the share of poems left unpublished, in [0,1].
	DraftRatio float64
	// LikeRatio is the chance that a given user likes a given published poem.
	LikeRatio float64
	// MaxDays spreads created_at over the past MaxDays days.
	MaxDays    int
	BcryptCost int
	// RandSeed makes output reproducible when non-zero.
	RandSeed int64
}

// DefaultOptions returns the settings used by the seed command.
func DefaultOptions() Options {
	return Options{
		Users:        20,
		PoemsPerUser: 5,
		DraftRatio:   0.15,
		LikeRatio:    0.2,
		MaxDays:      90,
		BcryptCost:   bcrypt.DefaultCost,
	}
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db    *gorm.DB
	opts  Options
	faker *gofakeit.Faker
	hash  string
}

// NewFactory creates a Factory bound to db.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if opts.BcryptCost <= 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	// one hash for every generated user keeps large seeds fast
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash default password: %w", err)
	}
	return &Factory{db: db, opts: opts, faker: gofakeit.New(seed), hash: string(hash)}, nil
}

// BuildUser returns an unsaved user with a fake name and a unique email.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	id := uuid.NewString()
	user := &models.User{
		ID:           id,
		Email:        fmt.Sprintf("%s.%s@example.com", strings.ToLower(f.faker.FirstName()), id[:8]),
		PasswordHash: f.hash,
		DisplayName:  f.faker.Name(),
		CreatedAt:    f.pastTime(),
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// BuildPoem returns an unsaved poem for owner with a few stanzas of fake verse.
func (f *Factory) BuildPoem(owner *models.User, overrides ...func(*models.Poem)) *models.Poem {
	title := strings.TrimSuffix(f.faker.Sentence(f.faker.Number(2, 5)), ".")
	if len([]rune(title)) > validation.MaxPoemTitleLength {
		title = string([]rune(title)[:validation.MaxPoemTitleLength])
	}

	createdAt := f.pastTime()
	if createdAt.Before(owner.CreatedAt) {
		createdAt = owner.CreatedAt
	}

	poem := &models.Poem{
		Title:       title,
		Content:     f.verse(),
		IsPublished: f.faker.Float64Range(0, 1) >= f.opts.DraftRatio,
		UserID:      owner.ID,
		CreatedAt:   createdAt,
	}
	for _, override := range overrides {
		override(poem)
	}
	return poem
}

// verse renders stanzas as the HTML the rich-text editor produces.
func (f *Factory) verse() string {
	var b strings.Builder
	stanzas := f.faker.Number(1, 4)
	for i := 0; i < stanzas; i++ {
		lines := make([]string, f.faker.Number(2, 5))
		for j := range lines {
			lines[j] = html.EscapeString(f.faker.Sentence(f.faker.Number(4, 9)))
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(lines, "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}

func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.faker.Number(0, maxDays*24*60)) * time.Minute
	return time.Now().UTC().Add(-back)
}

// CreateUsers persists users in one batch.
func (f *Factory) CreateUsers(users []*models.User) error {
	if len(users) == 0 {
		return nil
	}
	return f.db.Create(&users).Error
}

// CreatePoems persists poems in one batch.
func (f *Factory) CreatePoems(poems []*models.Poem) error {
	if len(poems) == 0 {
		return nil
	}
	return f.db.Omit(clause.Associations).Create(&poems).Error
}

// CreateLikes persists likes, ignoring pairs that already exist.
func (f *Factory) CreateLikes(likes []*models.Like) error {
	if len(likes) == 0 {
		return nil
	}
	return f.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&likes).Error
}

// RandomLikes picks likes for published poems with probability LikeRatio.
// Authors never like their own poems.
func (f *Factory) RandomLikes(users []*models.User, poems []*models.Poem) []*models.Like {
	var likes []*models.Like
	for _, p := range poems {
		if !p.IsPublished {
			continue
		}
		for _, u := range users {
			if u.ID == p.UserID || f.faker.Float64Range(0, 1) >= f.opts.LikeRatio {
				continue
			}
			likes = append(likes, &models.Like{UserID: u.ID, PoemID: p.ID, CreatedAt: p.CreatedAt})
		}
	}
	return likes
}
