package seed

import (
	"fmt"
	"os"
	"strings"

	"verses/internal/models"
	"verses/internal/validation"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Fixture is a hand-written dataset, usually loaded from YAML:
//
//	users:
//	  - email: ada@example.com
//	    displayName: Ada
//	    poems:
//	      - title: Numbers
//	        content: "<p>one, two</p>"
//	        likedBy: [grace@example.com]
type Fixture struct {
	Users []FixtureUser `yaml:"users"`
}

// FixtureUser is one account and its poems. Password defaults to DefaultPassword.
type FixtureUser struct {
	Email       string        `yaml:"email"`
	DisplayName string        `yaml:"displayName"`
	Password    string        `yaml:"password"`
	Poems       []FixturePoem `yaml:"poems"`
}

// FixturePoem is one poem. Published defaults to true; LikedBy lists emails.
type FixturePoem struct {
	Title     string   `yaml:"title"`
	Content   string   `yaml:"content"`
	Published *bool    `yaml:"published"`
	LikedBy   []string `yaml:"likedBy"`
}

// LoadFixture reads and validates a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(raw)
}

// ParseFixture decodes and validates YAML fixture data.
func ParseFixture(raw []byte) (*Fixture, error) {
	var fx Fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if err := fx.validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

func (fx *Fixture) validate() error {
	emails := make(map[string]bool, len(fx.Users))
	for i := range fx.Users {
		u := &fx.Users[i]
		u.Email = strings.ToLower(strings.TrimSpace(u.Email))
		if err := validation.ValidateEmail(u.Email); err != nil {
			return fmt.Errorf("user %d: %w", i, err)
		}
		if emails[u.Email] {
			return fmt.Errorf("user %d: duplicate email %s", i, u.Email)
		}
		emails[u.Email] = true
		if err := validation.ValidateDisplayName(u.DisplayName); err != nil {
			return fmt.Errorf("user %s: %w", u.Email, err)
		}
		for j, p := range u.Poems {
			if err := validation.ValidatePoemTitle(p.Title); err != nil {
				return fmt.Errorf("user %s poem %d: %w", u.Email, j, err)
			}
			if err := validation.ValidatePoemContent(p.Content); err != nil {
				return fmt.Errorf("user %s poem %d: %w", u.Email, j, err)
			}
		}
	}
	for _, u := range fx.Users {
		for _, p := range u.Poems {
			for _, liker := range p.LikedBy {
				if !emails[strings.ToLower(liker)] {
					return fmt.Errorf("poem %q liked by unknown user %s", p.Title, liker)
				}
			}
		}
	}
	return nil
}

// ApplyFixture inserts fx. Users get fresh ids.
func (s *Seeder) ApplyFixture(fx *Fixture) (Result, error) {
	byEmail := make(map[string]*models.User, len(fx.Users))
	users := make([]*models.User, 0, len(fx.Users))
	for _, fu := range fx.Users {
		fu := fu
		user := s.factory.BuildUser(func(u *models.User) {
			u.Email = fu.Email
			u.DisplayName = fu.DisplayName
		})
		if fu.Password != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(fu.Password), s.factory.opts.BcryptCost)
			if err != nil {
				return Result{}, fmt.Errorf("hash password for %s: %w", fu.Email, err)
			}
			user.PasswordHash = string(hash)
		}
		byEmail[fu.Email] = user
		users = append(users, user)
	}
	if err := s.factory.CreateUsers(users); err != nil {
		return Result{}, fmt.Errorf("fixture users: %w", err)
	}

	var poems []*models.Poem
	var likers [][]string
	for _, fu := range fx.Users {
		owner := byEmail[fu.Email]
		for _, fp := range fu.Poems {
			fp := fp
			poems = append(poems, s.factory.BuildPoem(owner, func(p *models.Poem) {
				p.Title = fp.Title
				p.Content = fp.Content
				p.IsPublished = fp.Published == nil || *fp.Published
			}))
			likers = append(likers, fp.LikedBy)
		}
	}
	if err := s.factory.CreatePoems(poems); err != nil {
		return Result{}, fmt.Errorf("fixture poems: %w", err)
	}

	var likes []*models.Like
	for i, p := range poems {
		for _, email := range likers[i] {
			likes = append(likes, &models.Like{UserID: byEmail[strings.ToLower(email)].ID, PoemID: p.ID, CreatedAt: p.CreatedAt})
		}
	}
	if err := s.factory.CreateLikes(likes); err != nil {
		return Result{}, fmt.Errorf("fixture likes: %w", err)
	}

	return Result{Users: len(users), Poems: len(poems), Likes: len(likes)}, nil
}
