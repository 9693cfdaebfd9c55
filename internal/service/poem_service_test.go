package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"verses/internal/cache"
	"verses/internal/featureflags"
	"verses/internal/models"
	"verses/internal/repository"
	"verses/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, opts ...PoemServiceOption) (*PoemService, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	svc := NewPoemService(repository.NewPoemRepository(db), repository.NewUserRepository(db), opts...)
	return svc, db
}

func published(title string) CreatePoemInput {
	return CreatePoemInput{Title: title, Content: "<p>" + title + "</p>", IsPublished: true}
}

func TestPoemService_CreateReturnsZeroLikes(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "Author")

	poem, err := svc.Create(ctx, author.ID, published("Dawn"))
	require.NoError(t, err)
	assert.NotZero(t, poem.ID)
	assert.Equal(t, "Dawn", poem.Title)
	assert.Equal(t, int64(0), poem.LikeCount)
	assert.False(t, poem.IsLikedByCurrentUser)
	assert.Nil(t, poem.UpdatedAt)
	assert.Equal(t, author.ID, poem.Author.ID)
	assert.Equal(t, "Author", poem.Author.DisplayName)
}

func TestPoemService_CreateValidation(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "Author")

	_, err := svc.Create(ctx, author.ID, CreatePoemInput{Title: "", Content: "x"})
	assert.True(t, models.HasCode(err, models.CodeValidation))

	_, err = svc.Create(ctx, author.ID, CreatePoemInput{Title: "t", Content: "  "})
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

func TestPoemService_LikeIsIdempotent(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "Author")
	reader := testutil.CreateUser(t, db, "Reader")

	poem, err := svc.Create(ctx, author.ID, published("Once"))
	require.NoError(t, err)

	first, err := svc.Like(ctx, poem.ID, reader.ID)
	require.NoError(t, err)
	second, err := svc.Like(ctx, poem.ID, reader.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.LikeCount)
	assert.Equal(t, int64(1), second.LikeCount)
	assert.True(t, second.IsLikedByCurrentUser)
}

func TestPoemService_UnlikeOnlyRemovesCallersLike(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "Author")
	a := testutil.CreateUser(t, db, "A")
	b := testutil.CreateUser(t, db, "B")

	poem, err := svc.Create(ctx, author.ID, published("Shared"))
	require.NoError(t, err)

	_, err = svc.Like(ctx, poem.ID, a.ID)
	require.NoError(t, err)
	_, err = svc.Like(ctx, poem.ID, b.ID)
	require.NoError(t, err)

	afterA, err := svc.Unlike(ctx, poem.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), afterA.LikeCount)
	assert.False(t, afterA.IsLikedByCurrentUser)

	asB, err := svc.GetByID(ctx, poem.ID, Viewer{UserID: b.ID})
	require.NoError(t, err)
	assert.True(t, asB.IsLikedByCurrentUser)
}

func TestPoemService_UnlikeNeverLikedIsNoop(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "Author")
	reader := testutil.CreateUser(t, db, "Reader")

	poem, err := svc.Create(ctx, author.ID, published("Quiet"))
	require.NoError(t, err)

	got, err := svc.Unlike(ctx, poem.ID, reader.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.LikeCount)
	assert.False(t, got.IsLikedByCurrentUser)
}

func TestPoemService_LikeMissingPoem(t *testing.T) {
	svc, db := newTestService(t)
	reader := testutil.CreateUser(t, db, "Reader")

	_, err := svc.Like(context.Background(), 9999, reader.ID)
	assert.ErrorIs(t, err, ErrPoemNotFound)

	_, err = svc.Unlike(context.Background(), 9999, reader.ID)
	assert.ErrorIs(t, err, ErrPoemNotFound)
}

func TestPoemService_GetByIDAnonymousNeverLiked(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "Author")

	poem, err := svc.Create(ctx, author.ID, published("Mine"))
	require.NoError(t, err)
	_, err = svc.Like(ctx, poem.ID, author.ID)
	require.NoError(t, err)

	anon, err := svc.GetByID(ctx, poem.ID, Anonymous())
	require.NoError(t, err)
	assert.Equal(t, int64(1), anon.LikeCount)
	assert.False(t, anon.IsLikedByCurrentUser)

	_, err = svc.GetByID(ctx, 12345, Anonymous())
	assert.ErrorIs(t, err, ErrPoemNotFound)
}

func TestPoemService_Listings(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "Author")
	other := testutil.CreateUser(t, db, "Other")

	for i := 0; i < 12; i++ {
		_, err := svc.Create(ctx, author.ID, published("p"))
		require.NoError(t, err)
	}
	draft, err := svc.Create(ctx, author.ID, CreatePoemInput{Title: "draft", Content: "d", IsPublished: false})
	require.NoError(t, err)
	_, err = svc.Create(ctx, other.ID, published("other"))
	require.NoError(t, err)

	feed, err := svc.GetFeed(ctx, 2, 10, Anonymous())
	require.NoError(t, err)
	assert.Equal(t, int64(13), feed.TotalCount)
	assert.Equal(t, 2, feed.Page)
	assert.Equal(t, 10, feed.PageSize)
	assert.Len(t, feed.Items, 3)
	for _, p := range feed.Items {
		assert.True(t, p.IsPublished)
	}

	mine, err := svc.GetUserPoems(ctx, author.ID, 1, 50, Viewer{UserID: author.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(13), mine.TotalCount)
	assert.Equal(t, draft.ID, mine.Items[0].ID, "newest first")

	public, err := svc.GetPublicUserPoems(ctx, author.ID, 1, 50, Anonymous())
	require.NoError(t, err)
	assert.Equal(t, int64(12), public.TotalCount)
	for _, p := range public.Items {
		assert.NotEqual(t, draft.ID, p.ID)
	}

	empty, err := svc.GetFeed(ctx, 10, 10, Anonymous())
	require.NoError(t, err)
	assert.NotNil(t, empty.Items)
	assert.Empty(t, empty.Items)
}

func TestPoemService_UpdateOwnerOnly(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, db := newTestService(t, WithClock(func() time.Time { return fixed }))
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "Author")
	intruder := testutil.CreateUser(t, db, "Intruder")

	poem, err := svc.Create(ctx, author.ID, published("Before"))
	require.NoError(t, err)

	title := "After"
	_, err = svc.Update(ctx, poem.ID, intruder.ID, UpdatePoemInput{Title: &title})
	assert.ErrorIs(t, err, ErrPoemNotFound)

	untouched, err := svc.GetByID(ctx, poem.ID, Viewer{UserID: author.ID})
	require.NoError(t, err)
	assert.Equal(t, "Before", untouched.Title)
	assert.Nil(t, untouched.UpdatedAt)

	updated, err := svc.Update(ctx, poem.ID, author.ID, UpdatePoemInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "After", updated.Title)
	assert.Equal(t, "<p>Before</p>", updated.Content, "content untouched")
	assert.True(t, updated.IsPublished)
	require.NotNil(t, updated.UpdatedAt)
	assert.True(t, fixed.Equal(*updated.UpdatedAt))

	unpublish := false
	updated, err = svc.Update(ctx, poem.ID, author.ID, UpdatePoemInput{IsPublished: &unpublish})
	require.NoError(t, err)
	assert.False(t, updated.IsPublished)
	assert.Equal(t, "After", updated.Title)

	_, err = svc.Update(ctx, 424242, author.ID, UpdatePoemInput{Title: &title})
	assert.ErrorIs(t, err, ErrPoemNotFound)
}

func TestPoemService_DeleteOwnerOnly(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "Author")
	intruder := testutil.CreateUser(t, db, "Intruder")

	poem, err := svc.Create(ctx, author.ID, published("Doomed"))
	require.NoError(t, err)
	_, err = svc.Like(ctx, poem.ID, intruder.ID)
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, poem.ID, intruder.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = svc.Delete(ctx, poem.ID, author.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = svc.GetByID(ctx, poem.ID, Anonymous())
	assert.ErrorIs(t, err, ErrPoemNotFound)

	var likes int64
	require.NoError(t, db.Model(&models.Like{}).Where("poem_id = ?", poem.ID).Count(&likes).Error)
	assert.Zero(t, likes)
}

func TestPoemService_UserProfile(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "Prolific")

	likers := make([]*models.User, 12)
	for i := range likers {
		likers[i] = testutil.CreateUser(t, db, "liker")
	}
	for i := 1; i <= 12; i++ {
		p := testutil.CreatePoem(t, db, author, "poem", true, time.Time{})
		testutil.AddLikes(t, db, p, likers[:i]...)
	}
	draft := testutil.CreatePoem(t, db, author, "draft", false, time.Time{})
	testutil.AddLikes(t, db, draft, likers...)

	profile, err := svc.GetUserProfile(ctx, author.ID, Anonymous())
	require.NoError(t, err)
	assert.Equal(t, author.ID, profile.ID)
	assert.Equal(t, "Prolific", profile.DisplayName)
	assert.Equal(t, int64(12), profile.TotalPoemCount)
	require.Len(t, profile.TopPoems, TopPoemsLimit)
	assert.Equal(t, int64(12), profile.TopPoems[0].LikeCount)
	assert.Equal(t, int64(3), profile.TopPoems[9].LikeCount)
	for _, p := range profile.TopPoems {
		assert.NotEqual(t, draft.ID, p.ID)
	}

	asLiker, err := svc.GetUserProfile(ctx, author.ID, Viewer{UserID: likers[11].ID})
	require.NoError(t, err)
	assert.True(t, asLiker.TopPoems[0].IsLikedByCurrentUser)
	assert.False(t, asLiker.TopPoems[9].IsLikedByCurrentUser)

	_, err = svc.GetUserProfile(ctx, "missing", Anonymous())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestPoemService_DraftGuard(t *testing.T) {
	flags := featureflags.NewManager(featureflags.DraftGuard + "=on")
	svc, db := newTestService(t, WithFeatureFlags(flags))
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "Author")
	reader := testutil.CreateUser(t, db, "Reader")

	draft, err := svc.Create(ctx, author.ID, CreatePoemInput{Title: "wip", Content: "..."})
	require.NoError(t, err)

	_, err = svc.GetByID(ctx, draft.ID, Viewer{UserID: reader.ID})
	assert.ErrorIs(t, err, ErrPoemNotFound)
	_, err = svc.GetByID(ctx, draft.ID, Anonymous())
	assert.ErrorIs(t, err, ErrPoemNotFound)

	own, err := svc.GetByID(ctx, draft.ID, Viewer{UserID: author.ID})
	require.NoError(t, err)
	assert.False(t, own.IsPublished)

	liked, err := svc.Like(ctx, draft.ID, reader.ID)
	assert.ErrorIs(t, err, ErrPoemNotFound)
	assert.Nil(t, liked)
	unliked, err := svc.Unlike(ctx, draft.ID, reader.ID)
	assert.ErrorIs(t, err, ErrPoemNotFound)
	assert.Nil(t, unliked)

	var likes int64
	require.NoError(t, db.Model(&models.Like{}).Where("poem_id = ?", draft.ID).Count(&likes).Error)
	assert.Zero(t, likes)

	ownLike, err := svc.Like(ctx, draft.ID, author.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ownLike.LikeCount)
}

func TestPoemService_DraftVisibleByIDWithoutGuard(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "Author")

	draft, err := svc.Create(ctx, author.ID, CreatePoemInput{Title: "wip", Content: "..."})
	require.NoError(t, err)

	got, err := svc.GetByID(ctx, draft.ID, Anonymous())
	require.NoError(t, err)
	assert.Equal(t, draft.ID, got.ID)
}

func TestPoemService_AnonymousReadsAreCachedAndInvalidated(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	svc, db := newTestService(t, WithCache(cache.NewStore(rdb)))
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "Author")
	reader := testutil.CreateUser(t, db, "Reader")

	poem, err := svc.Create(ctx, author.ID, published("Cached"))
	require.NoError(t, err)

	_, err = svc.GetByID(ctx, poem.ID, Anonymous())
	require.NoError(t, err)
	assert.True(t, mr.Exists(cache.PoemKey(poem.ID)))

	_, err = svc.GetUserProfile(ctx, author.ID, Anonymous())
	require.NoError(t, err)
	assert.True(t, mr.Exists(cache.ProfileKey(author.ID)))

	_, err = svc.Like(ctx, poem.ID, reader.ID)
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.PoemKey(poem.ID)))
	assert.False(t, mr.Exists(cache.ProfileKey(author.ID)))

	anon, err := svc.GetByID(ctx, poem.ID, Anonymous())
	require.NoError(t, err)
	assert.Equal(t, int64(1), anon.LikeCount)
}

// poemRepoStub overrides single PoemRepository methods; calling any other panics.
type poemRepoStub struct {
	repository.PoemRepository
	countFn  func(context.Context, repository.PoemFilter) (int64, error)
	createFn func(context.Context, *models.Poem) error
}

func (s *poemRepoStub) Count(ctx context.Context, f repository.PoemFilter) (int64, error) {
	return s.countFn(ctx, f)
}

func (s *poemRepoStub) Create(ctx context.Context, p *models.Poem) error {
	return s.createFn(ctx, p)
}

func TestPoemService_PropagatesRepositoryErrors(t *testing.T) {
	boom := errors.New("db down")
	repo := &poemRepoStub{
		countFn:  func(context.Context, repository.PoemFilter) (int64, error) { return 0, boom },
		createFn: func(context.Context, *models.Poem) error { return boom },
	}
	svc := NewPoemService(repo, nil)

	_, err := svc.GetFeed(context.Background(), 1, 10, Anonymous())
	assert.ErrorIs(t, err, boom)

	_, err = svc.Create(context.Background(), "u", published("x"))
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsNotFound(err))
}

func TestPoemService_ValidationSkipsRepository(t *testing.T) {
	repo := &poemRepoStub{
		createFn: func(context.Context, *models.Poem) error {
			t.Fatal("repository must not be called")
			return nil
		},
	}
	svc := NewPoemService(repo, nil)

	long := make([]rune, 201)
	for i := range long {
		long[i] = 'a'
	}
	_, err := svc.Create(context.Background(), "u", CreatePoemInput{Title: string(long), Content: "c"})
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

func TestViewer(t *testing.T) {
	assert.True(t, Anonymous().IsAnonymous())
	assert.Equal(t, "anonymous", Anonymous().String())
	assert.Equal(t, "user:abc", Viewer{UserID: "abc"}.String())
}
