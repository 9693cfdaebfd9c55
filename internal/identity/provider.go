// Package identity stores credentials and verifies passwords.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"verses/internal/models"
	"verses/internal/repository"
	"verses/internal/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials covers unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Provider registers users and authenticates them by email and password.
type Provider struct {
	users repository.UserRepository
	cost  int
}

// NewProvider returns a Provider backed by users. cost <= 0 means bcrypt.DefaultCost.
func NewProvider(users repository.UserRepository, cost int) *Provider {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &Provider{users: users, cost: cost}
}

// Register validates the input and creates a user with a fresh opaque id.
func (p *Provider) Register(ctx context.Context, email, password, displayName string) (*models.User, error) {
	email = normalizeEmail(email)
	displayName = strings.TrimSpace(displayName)

	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateDisplayName(displayName); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := p.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, models.NewValidationError(err.Error())
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
	}
	if err := p.users.Create(ctx, user); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

// Authenticate returns the user owning email if password matches.
func (p *Provider) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := p.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
