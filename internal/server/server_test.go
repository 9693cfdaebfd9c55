package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"verses/internal/config"
	"verses/internal/models"
	"verses/internal/notifications"
	"verses/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:         "test",
		JWTSecret:   "test-secret-that-is-long-enough-for-hs256",
		JWTIssuer:   "verses-api",
		JWTAudience: "verses-client",
		JWTTTLHours: 1,
	}
}

func newTestServer(t *testing.T) (*Server, *fiber.App) {
	t.Helper()
	s, err := NewServerWithDeps(testConfig(), testutil.NewTestDB(t), nil)
	require.NoError(t, err)
	return s, s.NewApp()
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func register(t *testing.T, app *fiber.App, email, name string) models.AuthResponse {
	t.Helper()
	status, raw := doJSON(t, app, http.MethodPost, "/api/auth/register", "", models.RegisterRequest{
		Email: email, Password: "secret1", DisplayName: name,
	})
	require.Equal(t, http.StatusOK, status, string(raw))
	return decode[models.AuthResponse](t, raw)
}

func TestEndToEndPoemFlow(t *testing.T) {
	_, app := newTestServer(t)

	alice := register(t, app, "alice@example.com", "Alice")
	bob := register(t, app, "bob@example.com", "Bob")
	require.NotEmpty(t, alice.Token)
	assert.Equal(t, "Alice", alice.DisplayName)

	status, raw := doJSON(t, app, http.MethodPost, "/api/poems", alice.Token, map[string]any{
		"title": "Morning", "content": "<p>light</p>",
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	poem := decode[models.PoemResponse](t, raw)
	assert.True(t, poem.IsPublished, "published by default")
	assert.Equal(t, alice.UserID, poem.Author.ID)

	status, raw = doJSON(t, app, http.MethodPost, "/api/poems", alice.Token, map[string]any{
		"title": "Draft", "content": "<p>soon</p>", "isPublished": false,
	})
	require.Equal(t, http.StatusCreated, status, string(raw))

	status, raw = doJSON(t, app, http.MethodGet, "/api/poems/feed", "", nil)
	require.Equal(t, http.StatusOK, status)
	feed := decode[models.PoemListResponse](t, raw)
	assert.Equal(t, int64(1), feed.TotalCount)
	assert.Equal(t, 1, feed.Page)
	assert.Equal(t, 10, feed.PageSize)

	for i := 0; i < 2; i++ {
		status, raw = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/poems/%d/like", poem.ID), bob.Token, nil)
		require.Equal(t, http.StatusOK, status, string(raw))
	}
	liked := decode[models.PoemResponse](t, raw)
	assert.Equal(t, int64(1), liked.LikeCount)
	assert.True(t, liked.IsLikedByCurrentUser)

	status, raw = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/poems/%d", poem.ID), "", nil)
	require.Equal(t, http.StatusOK, status)
	anon := decode[models.PoemResponse](t, raw)
	assert.Equal(t, int64(1), anon.LikeCount)
	assert.False(t, anon.IsLikedByCurrentUser)

	status, raw = doJSON(t, app, http.MethodGet, "/api/users/"+alice.UserID, bob.Token, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	profile := decode[models.UserProfileResponse](t, raw)
	assert.Equal(t, "Alice", profile.DisplayName)
	assert.Equal(t, int64(1), profile.TotalPoemCount)
	require.Len(t, profile.TopPoems, 1)
	assert.True(t, profile.TopPoems[0].IsLikedByCurrentUser)

	status, raw = doJSON(t, app, http.MethodGet, "/api/poems/my-poems", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(2), decode[models.PoemListResponse](t, raw).TotalCount)

	status, raw = doJSON(t, app, http.MethodGet, "/api/users/"+alice.UserID+"/poems", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(1), decode[models.PoemListResponse](t, raw).TotalCount)

	// not the owner: indistinguishable from a missing poem
	status, _ = doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/poems/%d", poem.ID), bob.Token, map[string]any{"title": "Mine now"})
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/poems/%d", poem.ID), bob.Token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, raw = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/poems/%d", poem.ID), "", nil)
	require.Equal(t, http.StatusOK, status)
	unchanged := decode[models.PoemResponse](t, raw)
	assert.Equal(t, "Morning", unchanged.Title)
	assert.Nil(t, unchanged.UpdatedAt)

	status, raw = doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/poems/%d", poem.ID), alice.Token, map[string]any{"title": "Noon"})
	require.Equal(t, http.StatusOK, status, string(raw))
	updated := decode[models.PoemResponse](t, raw)
	assert.Equal(t, "Noon", updated.Title)
	assert.NotNil(t, updated.UpdatedAt)

	status, raw = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/poems/%d/like", poem.ID), bob.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(0), decode[models.PoemResponse](t, raw).LikeCount)

	status, _ = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/poems/%d", poem.ID), alice.Token, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, raw = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/poems/%d", poem.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, models.CodeNotFound, decode[models.ErrorResponse](t, raw).Code)
}

func TestAuthErrors(t *testing.T) {
	_, app := newTestServer(t)
	register(t, app, "poet@example.com", "Poet")

	status, raw := doJSON(t, app, http.MethodPost, "/api/auth/register", "", models.RegisterRequest{
		Email: "POET@example.com", Password: "secret1", DisplayName: "Again",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Email already registered", decode[models.ErrorResponse](t, raw).Error)

	status, _ = doJSON(t, app, http.MethodPost, "/api/auth/register", "", models.RegisterRequest{
		Email: "weak@example.com", Password: "short", DisplayName: "Weak",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, raw = doJSON(t, app, http.MethodPost, "/api/auth/register", "", models.RegisterRequest{
		Email: "long@example.com", Password: strings.Repeat("a", 79) + "1", DisplayName: "Long",
	})
	assert.Equal(t, http.StatusBadRequest, status, string(raw))
	assert.Equal(t, models.CodeValidation, decode[models.ErrorResponse](t, raw).Code)

	status, raw = doJSON(t, app, http.MethodPost, "/api/auth/login", "", models.LoginRequest{
		Email: "poet@example.com", Password: "wrong99",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, models.CodeUnauthorized, decode[models.ErrorResponse](t, raw).Code)

	status, raw = doJSON(t, app, http.MethodPost, "/api/auth/login", "", models.LoginRequest{
		Email: "poet@example.com", Password: "secret1",
	})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, decode[models.AuthResponse](t, raw).Token)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	_, app := newTestServer(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/poems"},
		{http.MethodGet, "/api/poems/my-poems"},
		{http.MethodPut, "/api/poems/1"},
		{http.MethodDelete, "/api/poems/1"},
		{http.MethodPost, "/api/poems/1/like"},
		{http.MethodDelete, "/api/poems/1/like"},
	}
	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			status, _ := doJSON(t, app, r.method, r.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, status)

			status, _ = doJSON(t, app, r.method, r.path, "not-a-jwt", nil)
			assert.Equal(t, http.StatusUnauthorized, status)
		})
	}
}

func TestOptionalAuthIgnoresBadToken(t *testing.T) {
	_, app := newTestServer(t)

	status, _ := doJSON(t, app, http.MethodGet, "/api/poems/feed", "garbage", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestNotFoundAndBadIDs(t *testing.T) {
	_, app := newTestServer(t)
	user := register(t, app, "x@example.com", "X")

	status, _ := doJSON(t, app, http.MethodGet, "/api/poems/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, app, http.MethodGet, "/api/poems/999", "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doJSON(t, app, http.MethodPost, "/api/poems/999/like", user.Token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doJSON(t, app, http.MethodGet, "/api/users/nobody", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestFeedPaginationClamping(t *testing.T) {
	_, app := newTestServer(t)

	tests := []struct {
		query        string
		wantPage     int
		wantPageSize int
	}{
		{"", 1, 10},
		{"?page=0&pageSize=0", 1, 10},
		{"?page=-3&pageSize=500", 1, 10},
		{"?page=2&pageSize=50", 2, 50},
		{"?page=3&pageSize=51", 3, 10},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			status, raw := doJSON(t, app, http.MethodGet, "/api/poems/feed"+tt.query, "", nil)
			require.Equal(t, http.StatusOK, status)
			page := decode[models.PoemListResponse](t, raw)
			assert.Equal(t, tt.wantPage, page.Page)
			assert.Equal(t, tt.wantPageSize, page.PageSize)
			assert.NotNil(t, page.Items)
		})
	}
}

func TestFeedHugePageIsEmpty(t *testing.T) {
	_, app := newTestServer(t)
	user := register(t, app, "pager@example.com", "Pager")
	status, _ := doJSON(t, app, http.MethodPost, "/api/poems", user.Token, map[string]any{
		"title": "Only", "content": "<p>one</p>",
	})
	require.Equal(t, http.StatusCreated, status)

	status, raw := doJSON(t, app, http.MethodGet, "/api/poems/feed?page=1000000000000000000&pageSize=10", "", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	page := decode[models.PoemListResponse](t, raw)
	assert.Equal(t, maxPage, page.Page)
	assert.Equal(t, int64(1), page.TotalCount)
	assert.Empty(t, page.Items)
}

func TestCreatePoemBroadcastsToLocalHub(t *testing.T) {
	s, app := newTestServer(t)
	user := register(t, app, "live@example.com", "Live")

	client, err := s.hub.Register("", nil)
	require.NoError(t, err)

	status, _ := doJSON(t, app, http.MethodPost, "/api/poems", user.Token, map[string]any{
		"title": "Broadcast", "content": "<p>hi</p>",
	})
	require.Equal(t, http.StatusCreated, status)

	select {
	case raw := <-client.Send:
		ev := decode[notifications.FeedEvent](t, raw)
		assert.Equal(t, notifications.EventPoemCreated, ev.Type)
		require.NotNil(t, ev.Poem)
		assert.Equal(t, "Broadcast", ev.Poem.Title)
	case <-time.After(time.Second):
		t.Fatal("no feed event")
	}

	// drafts are not announced
	status, _ = doJSON(t, app, http.MethodPost, "/api/poems", user.Token, map[string]any{
		"title": "Hidden", "content": "<p>shh</p>", "isPublished": false,
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Empty(t, client.Send)
}

func TestHealthEndpoints(t *testing.T) {
	_, app := newTestServer(t)

	status, _ := doJSON(t, app, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, raw := doJSON(t, app, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status, string(raw))
	body := decode[map[string]any](t, raw)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "disabled", checks["redis"])
}

func TestFeedSocketRequiresUpgrade(t *testing.T) {
	_, app := newTestServer(t)

	status, _ := doJSON(t, app, http.MethodGet, "/api/ws/feed", "", nil)
	assert.Equal(t, http.StatusUpgradeRequired, status)
}

func TestSwaggerDocServed(t *testing.T) {
	_, app := newTestServer(t)

	status, raw := doJSON(t, app, http.MethodGet, "/api/swagger/doc.json", "", nil)
	require.Equal(t, http.StatusOK, status)
	doc := decode[map[string]any](t, raw)
	info := doc["info"].(map[string]any)
	assert.Equal(t, "Verses API", info["title"])
	assert.Contains(t, doc["paths"], "/poems/feed")
}
