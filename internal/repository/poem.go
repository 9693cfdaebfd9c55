package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"verses/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PoemFilter narrows listings. Zero value matches every poem.
type PoemFilter struct {
	OwnerID       string
	PublishedOnly bool
}

// PoemRepository defines the interface for poem and like data operations.
// viewerID is "" for anonymous reads; it only affects IsLikedByCurrentUser.
type PoemRepository interface {
	Create(ctx context.Context, poem *models.Poem) error
	GetByID(ctx context.Context, id uint, viewerID string) (*models.Poem, error)
	Exists(ctx context.Context, id uint) (bool, error)
	FindOwned(ctx context.Context, id uint, ownerID string) (*models.Poem, error)
	List(ctx context.Context, filter PoemFilter, viewerID string, limit, offset int) ([]models.Poem, error)
	Count(ctx context.Context, filter PoemFilter) (int64, error)
	TopByLikes(ctx context.Context, ownerID, viewerID string, limit int) ([]models.Poem, error)
	UpdateContent(ctx context.Context, poem *models.Poem) error
	DeleteOwned(ctx context.Context, id uint, ownerID string) (bool, error)
	AddLike(ctx context.Context, userID string, poemID uint) error
	RemoveLike(ctx context.Context, userID string, poemID uint) error
}

type poemRepository struct {
	db *gorm.DB
}

// NewPoemRepository creates a new poem repository
func NewPoemRepository(db *gorm.DB) PoemRepository {
	return &poemRepository{db: db}
}

const likeCountSelect = "(SELECT COUNT(*) FROM likes WHERE likes.poem_id = poems.id) AS like_count"

// withDetails selects the aggregate like count and the viewer's liked flag
// alongside the poem columns, so a page of poems costs one query.
func withDetails(db *gorm.DB, viewerID string) *gorm.DB {
	if viewerID == "" {
		return db.Select("poems.*, " + likeCountSelect + ", false AS is_liked_by_current_user")
	}
	return db.Select("poems.*, "+likeCountSelect+
		", EXISTS(SELECT 1 FROM likes WHERE likes.poem_id = poems.id AND likes.user_id = ?) AS is_liked_by_current_user",
		viewerID)
}

func applyFilter(db *gorm.DB, filter PoemFilter) *gorm.DB {
	if filter.OwnerID != "" {
		db = db.Where("poems.user_id = ?", filter.OwnerID)
	}
	if filter.PublishedOnly {
		db = db.Where("poems.is_published = ?", true)
	}
	return db
}

func (r *poemRepository) Create(ctx context.Context, poem *models.Poem) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(poem).Error; err != nil {
		return fmt.Errorf("create poem: %w", err)
	}
	return nil
}

// GetByID returns nil, nil when the poem does not exist.
func (r *poemRepository) GetByID(ctx context.Context, id uint, viewerID string) (*models.Poem, error) {
	var poem models.Poem
	err := withDetails(r.db.WithContext(ctx).Model(&models.Poem{}), viewerID).
		Preload("User").
		Where("poems.id = ?", id).
		Take(&poem).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get poem %d: %w", id, err)
	}
	return &poem, nil
}

func (r *poemRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Poem{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check poem %d: %w", id, err)
	}
	return n > 0, nil
}

// FindOwned loads a poem only if ownerID owns it; nil, nil otherwise.
func (r *poemRepository) FindOwned(ctx context.Context, id uint, ownerID string) (*models.Poem, error) {
	var poem models.Poem
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		Take(&poem).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find poem %d: %w", id, err)
	}
	return &poem, nil
}

// List returns poems newest first. Ties on created_at fall back to id so pages are stable.
func (r *poemRepository) List(ctx context.Context, filter PoemFilter, viewerID string, limit, offset int) ([]models.Poem, error) {
	var poems []models.Poem
	base := withDetails(r.db.WithContext(ctx).Model(&models.Poem{}), viewerID).Preload("User")
	err := applyFilter(base, filter).
		Order("poems.created_at DESC").
		Order("poems.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&poems).Error
	if err != nil {
		return nil, fmt.Errorf("list poems: %w", err)
	}
	return poems, nil
}

func (r *poemRepository) Count(ctx context.Context, filter PoemFilter) (int64, error) {
	var n int64
	if err := applyFilter(r.db.WithContext(ctx).Model(&models.Poem{}), filter).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count poems: %w", err)
	}
	return n, nil
}

// TopByLikes returns the owner's published poems ranked by like count,
// newest first among equals.
func (r *poemRepository) TopByLikes(ctx context.Context, ownerID, viewerID string, limit int) ([]models.Poem, error) {
	var poems []models.Poem
	base := withDetails(r.db.WithContext(ctx).Model(&models.Poem{}), viewerID).Preload("User")
	err := applyFilter(base, PoemFilter{OwnerID: ownerID, PublishedOnly: true}).
		Order("like_count DESC").
		Order("poems.created_at DESC").
		Order("poems.id DESC").
		Limit(limit).
		Find(&poems).Error
	if err != nil {
		return nil, fmt.Errorf("top poems for %s: %w", ownerID, err)
	}
	return poems, nil
}

// UpdateContent writes the editable columns of poem, guarded by its owner.
func (r *poemRepository) UpdateContent(ctx context.Context, poem *models.Poem) error {
	res := r.db.WithContext(ctx).
		Model(&models.Poem{}).
		Where("id = ? AND user_id = ?", poem.ID, poem.UserID).
		Updates(map[string]interface{}{
			"title":        poem.Title,
			"content":      poem.Content,
			"is_published": poem.IsPublished,
			"updated_at":   poem.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("update poem %d: %w", poem.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update poem %d: %w", poem.ID, gorm.ErrRecordNotFound)
	}
	return nil
}

// DeleteOwned removes the poem and its likes. It reports false when the
// poem does not exist or belongs to someone else.
func (r *poemRepository) DeleteOwned(ctx context.Context, id uint, ownerID string) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, ownerID).Delete(&models.Poem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		// FK cascade covers Postgres; SQLite may run without foreign keys
		if err := tx.Where("poem_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete poem %d: %w", id, err)
	}
	return deleted, nil
}

// AddLike is idempotent: the unique (user_id, poem_id) index turns a
// concurrent or repeated like into a no-op.
func (r *poemRepository) AddLike(ctx context.Context, userID string, poemID uint) error {
	like := models.Like{UserID: userID, PoemID: poemID, CreatedAt: time.Now()}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&like).Error
	if err != nil {
		return fmt.Errorf("like poem %d: %w", poemID, err)
	}
	return nil
}

// RemoveLike deletes only userID's like; it is a no-op when none exists.
func (r *poemRepository) RemoveLike(ctx context.Context, userID string, poemID uint) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND poem_id = ?", userID, poemID).
		Delete(&models.Like{}).Error
	if err != nil {
		return fmt.Errorf("unlike poem %d: %w", poemID, err)
	}
	return nil
}
