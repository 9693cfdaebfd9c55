// Package service holds the domain operations behind the HTTP handlers.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"verses/internal/cache"
	"verses/internal/featureflags"
	"verses/internal/models"
	"verses/internal/observability"
	"verses/internal/repository"
	"verses/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

var (
	// ErrPoemNotFound covers both missing poems and poems the caller may not mutate.
	ErrPoemNotFound = errors.New("poem not found")
	// ErrUserNotFound is returned for profile lookups of unknown users.
	ErrUserNotFound = errors.New("user not found")
)

// TopPoemsLimit is how many poems a profile shows.
const TopPoemsLimit = 10

// Viewer identifies who is reading. The zero value is an anonymous reader.
type Viewer struct {
	UserID string
}

// Anonymous returns the unauthenticated viewer.
func Anonymous() Viewer { return Viewer{} }

// IsAnonymous reports whether no user is attached.
func (v Viewer) IsAnonymous() bool { return v.UserID == "" }

func (v Viewer) String() string {
	if v.IsAnonymous() {
		return "anonymous"
	}
	return fmt.Sprintf("user:%s", v.UserID)
}

// CreatePoemInput holds a new poem's fields.
type CreatePoemInput struct {
	Title       string
	Content     string
	IsPublished bool
}

// UpdatePoemInput is a partial update; nil fields are left unchanged.
type UpdatePoemInput struct {
	Title       *string
	Content     *string
	IsPublished *bool
}

// PoemService aggregates poems and likes: pagination, like counts,
// per-viewer liked status and profile ranking.
type PoemService struct {
	poems repository.PoemRepository
	users repository.UserRepository
	cache *cache.Store
	flags *featureflags.Manager
	now   func() time.Time
}

// PoemServiceOption configures optional PoemService collaborators.
type PoemServiceOption func(*PoemService)

// WithCache enables cache-aside for anonymous reads.
func WithCache(store *cache.Store) PoemServiceOption {
	return func(s *PoemService) { s.cache = store }
}

// WithFeatureFlags wires runtime toggles.
func WithFeatureFlags(m *featureflags.Manager) PoemServiceOption {
	return func(s *PoemService) { s.flags = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) PoemServiceOption {
	return func(s *PoemService) { s.now = now }
}

// NewPoemService creates a PoemService.
func NewPoemService(poems repository.PoemRepository, users repository.UserRepository, opts ...PoemServiceOption) *PoemService {
	s := &PoemService{poems: poems, users: users, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func startSpan(ctx context.Context, method string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := observability.StartServiceSpan(ctx, "PoemService", method, attrs...)
	return ctx, func(err error) { observability.EndSpan(span, err) }
}

// Create stores a new poem for ownerID and returns it with zero likes.
func (s *PoemService) Create(ctx context.Context, ownerID string, in CreatePoemInput) (resp *models.PoemResponse, err error) {
	ctx, end := startSpan(ctx, "Create")
	defer func() { end(err) }()

	if err := validation.ValidatePoemTitle(in.Title); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePoemContent(in.Content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	poem := &models.Poem{
		Title:       in.Title,
		Content:     in.Content,
		IsPublished: in.IsPublished,
		UserID:      ownerID,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.poems.Create(ctx, poem); err != nil {
		return nil, err
	}
	observability.PoemEvents.WithLabelValues("created").Inc()
	s.invalidate(ctx, poem.ID, ownerID)

	return s.load(ctx, poem.ID, Viewer{UserID: ownerID})
}

// GetByID returns a poem as seen by viewer. Drafts are visible to anyone
// holding the id unless the draft_guard flag restricts them to the owner.
func (s *PoemService) GetByID(ctx context.Context, id uint, viewer Viewer) (resp *models.PoemResponse, err error) {
	ctx, end := startSpan(ctx, "GetByID",
		attribute.Int("poem.id", int(id)), attribute.String("viewer", viewer.String()))
	defer func() { end(err) }()

	var poem *models.PoemResponse
	if viewer.IsAnonymous() {
		var cached models.PoemResponse
		err = s.cache.Aside(ctx, cache.PoemKey(id), &cached, cache.PoemTTL, func() error {
			p, loadErr := s.load(ctx, id, viewer)
			if loadErr != nil {
				return loadErr
			}
			cached = *p
			return nil
		})
		if err != nil {
			return nil, err
		}
		poem = &cached
	} else {
		poem, err = s.load(ctx, id, viewer)
		if err != nil {
			return nil, err
		}
	}

	if s.hiddenDraft(poem, viewer.UserID) {
		return nil, ErrPoemNotFound
	}
	return poem, nil
}

// GetFeed lists published poems from all authors, newest first.
func (s *PoemService) GetFeed(ctx context.Context, page, pageSize int, viewer Viewer) (resp *models.PoemListResponse, err error) {
	ctx, end := startSpan(ctx, "GetFeed", attribute.String("viewer", viewer.String()))
	defer func() { end(err) }()
	return s.page(ctx, repository.PoemFilter{PublishedOnly: true}, page, pageSize, viewer)
}

// GetUserPoems lists all of ownerID's poems including drafts.
func (s *PoemService) GetUserPoems(ctx context.Context, ownerID string, page, pageSize int, viewer Viewer) (resp *models.PoemListResponse, err error) {
	ctx, end := startSpan(ctx, "GetUserPoems")
	defer func() { end(err) }()
	return s.page(ctx, repository.PoemFilter{OwnerID: ownerID}, page, pageSize, viewer)
}

// GetPublicUserPoems lists profileUserID's published poems.
func (s *PoemService) GetPublicUserPoems(ctx context.Context, profileUserID string, page, pageSize int, viewer Viewer) (resp *models.PoemListResponse, err error) {
	ctx, end := startSpan(ctx, "GetPublicUserPoems")
	defer func() { end(err) }()
	return s.page(ctx, repository.PoemFilter{OwnerID: profileUserID, PublishedOnly: true}, page, pageSize, viewer)
}

// Update applies a partial update if callerID owns the poem. A poem owned
// by someone else is reported as ErrPoemNotFound. UpdatedAt is always set.
func (s *PoemService) Update(ctx context.Context, id uint, callerID string, in UpdatePoemInput) (resp *models.PoemResponse, err error) {
	ctx, end := startSpan(ctx, "Update", attribute.Int("poem.id", int(id)))
	defer func() { end(err) }()

	if in.Title != nil {
		if err := validation.ValidatePoemTitle(*in.Title); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}
	if in.Content != nil {
		if err := validation.ValidatePoemContent(*in.Content); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}

	poem, err := s.poems.FindOwned(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	if poem == nil {
		return nil, ErrPoemNotFound
	}

	if in.Title != nil {
		poem.Title = *in.Title
	}
	if in.Content != nil {
		poem.Content = *in.Content
	}
	if in.IsPublished != nil {
		poem.IsPublished = *in.IsPublished
	}
	now := s.now().UTC()
	poem.UpdatedAt = &now

	if err := s.poems.UpdateContent(ctx, poem); err != nil {
		return nil, err
	}
	observability.PoemEvents.WithLabelValues("updated").Inc()
	s.invalidate(ctx, id, callerID)

	return s.load(ctx, id, Viewer{UserID: callerID})
}

// Delete removes callerID's poem and its likes. It returns false when the
// poem is missing or owned by someone else.
func (s *PoemService) Delete(ctx context.Context, id uint, callerID string) (deleted bool, err error) {
	ctx, end := startSpan(ctx, "Delete", attribute.Int("poem.id", int(id)))
	defer func() { end(err) }()

	deleted, err = s.poems.DeleteOwned(ctx, id, callerID)
	if err != nil {
		return false, err
	}
	if deleted {
		observability.PoemEvents.WithLabelValues("deleted").Inc()
		s.invalidate(ctx, id, callerID)
	}
	return deleted, nil
}

// Like records callerID's like; liking twice changes nothing.
func (s *PoemService) Like(ctx context.Context, id uint, callerID string) (resp *models.PoemResponse, err error) {
	ctx, end := startSpan(ctx, "Like", attribute.Int("poem.id", int(id)))
	defer func() { end(err) }()

	if err := s.requirePoem(ctx, id, callerID); err != nil {
		return nil, err
	}
	if err := s.poems.AddLike(ctx, callerID, id); err != nil {
		return nil, err
	}
	observability.PoemEvents.WithLabelValues("liked").Inc()
	return s.afterLikeChange(ctx, id, callerID)
}

// Unlike removes callerID's like if present; other users' likes are untouched.
func (s *PoemService) Unlike(ctx context.Context, id uint, callerID string) (resp *models.PoemResponse, err error) {
	ctx, end := startSpan(ctx, "Unlike", attribute.Int("poem.id", int(id)))
	defer func() { end(err) }()

	if err := s.requirePoem(ctx, id, callerID); err != nil {
		return nil, err
	}
	if err := s.poems.RemoveLike(ctx, callerID, id); err != nil {
		return nil, err
	}
	observability.PoemEvents.WithLabelValues("unliked").Inc()
	return s.afterLikeChange(ctx, id, callerID)
}

// GetUserProfile returns the user's public profile: published poem count
// and the ten most liked published poems.
func (s *PoemService) GetUserProfile(ctx context.Context, profileUserID string, viewer Viewer) (resp *models.UserProfileResponse, err error) {
	ctx, end := startSpan(ctx, "GetUserProfile", attribute.String("profile.user_id", profileUserID))
	defer func() { end(err) }()

	if !viewer.IsAnonymous() {
		return s.buildProfile(ctx, profileUserID, viewer)
	}

	var cached models.UserProfileResponse
	err = s.cache.Aside(ctx, cache.ProfileKey(profileUserID), &cached, cache.ProfileTTL, func() error {
		p, buildErr := s.buildProfile(ctx, profileUserID, viewer)
		if buildErr != nil {
			return buildErr
		}
		cached = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cached, nil
}

func (s *PoemService) buildProfile(ctx context.Context, profileUserID string, viewer Viewer) (*models.UserProfileResponse, error) {
	user, err := s.users.GetByID(ctx, profileUserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	total, err := s.poems.Count(ctx, repository.PoemFilter{OwnerID: profileUserID, PublishedOnly: true})
	if err != nil {
		return nil, err
	}
	top, err := s.poems.TopByLikes(ctx, profileUserID, viewer.UserID, TopPoemsLimit)
	if err != nil {
		return nil, err
	}

	return &models.UserProfileResponse{
		ID:             user.ID,
		DisplayName:    user.DisplayName,
		CreatedAt:      user.CreatedAt,
		TotalPoemCount: total,
		TopPoems:       models.NewPoemResponses(top),
	}, nil
}

// page runs the count and the page query. Inputs are trusted; the HTTP
// layer clamps them.
func (s *PoemService) page(ctx context.Context, filter repository.PoemFilter, page, pageSize int, viewer Viewer) (*models.PoemListResponse, error) {
	total, err := s.poems.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	poems, err := s.poems.List(ctx, filter, viewer.UserID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	return &models.PoemListResponse{
		Items:      models.NewPoemResponses(poems),
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

func (s *PoemService) load(ctx context.Context, id uint, viewer Viewer) (*models.PoemResponse, error) {
	poem, err := s.poems.GetByID(ctx, id, viewer.UserID)
	if err != nil {
		return nil, err
	}
	if poem == nil {
		return nil, ErrPoemNotFound
	}
	resp := models.NewPoemResponse(poem)
	return &resp, nil
}

// hiddenDraft reports whether draft_guard keeps poem from viewerID.
func (s *PoemService) hiddenDraft(poem *models.PoemResponse, viewerID string) bool {
	return !poem.IsPublished && poem.Author.ID != viewerID &&
		s.flags.Enabled(featureflags.DraftGuard, viewerID)
}

// requirePoem fails with ErrPoemNotFound unless callerID may see poem id.
func (s *PoemService) requirePoem(ctx context.Context, id uint, callerID string) error {
	if s.flags.Enabled(featureflags.DraftGuard, callerID) {
		poem, err := s.load(ctx, id, Viewer{UserID: callerID})
		if err != nil {
			return err
		}
		if s.hiddenDraft(poem, callerID) {
			return ErrPoemNotFound
		}
		return nil
	}

	exists, err := s.poems.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return ErrPoemNotFound
	}
	return nil
}

func (s *PoemService) afterLikeChange(ctx context.Context, id uint, callerID string) (*models.PoemResponse, error) {
	resp, err := s.load(ctx, id, Viewer{UserID: callerID})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id, resp.Author.ID)
	return resp, nil
}

// invalidate drops cached anonymous views touched by a change to poem id.
func (s *PoemService) invalidate(ctx context.Context, id uint, ownerID string) {
	s.cache.Invalidate(ctx, cache.PoemKey(id), cache.ProfileKey(ownerID))
}

// IsNotFound reports whether err means a poem or user does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPoemNotFound) || errors.Is(err, ErrUserNotFound)
}
