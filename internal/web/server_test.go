package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloggera/bloggera/internal/apiclient"
	"github.com/bloggera/bloggera/internal/category"
	"github.com/bloggera/bloggera/internal/domain"
	"github.com/bloggera/bloggera/internal/guard"
	"github.com/bloggera/bloggera/internal/logger"
	"github.com/bloggera/bloggera/internal/session"
	"github.com/bloggera/bloggera/internal/testutil"
	"github.com/bloggera/bloggera/internal/views"
)

type harness struct {
	srv    *Server
	api    *testutil.MockBloggeraServer
	store  *session.Store
	client *apiclient.Client
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mock := testutil.NewMockBloggeraServer()
	t.Cleanup(mock.Close)

	log := logger.Discard()
	store := session.NewStore(session.NewFileStorage(filepath.Join(t.TempDir(), "session.json")), log)
	client := apiclient.New(apiclient.Options{
		BaseURL: mock.URL(),
		Timeout: 5 * time.Second,
		Logger:  log,
	}, store)

	srv := New(Options{
		API:        client,
		Sessions:   session.NewService(store, client, log),
		Guard:      guard.New(store, "", log),
		Categories: category.NewCache(client, 4, time.Minute),
		Feed:       views.FeedOptions{Logger: log},
		Logger:     log,
	})
	t.Cleanup(srv.unmount)

	return &harness{srv: srv, api: mock, store: store, client: client}
}

func (h *harness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (h *harness) login(t *testing.T, username, password string) {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/auth/login", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestGuardedRoutesWithoutSession(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/feed", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode[ErrorBody](t, rec)
	assert.Equal(t, "NOT_LOGGED_IN", body.Error.Code)
	assert.Equal(t, guard.Landing, body.Error.Redirect)
	assert.Zero(t, h.api.RequestCount())

	rec = h.do(t, http.MethodGet, "/start", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"loggedIn":false}`, rec.Body.String())
}

func TestLoginFeedAndLike(t *testing.T) {
	h := newHarness(t)
	ids := h.api.SeedPosts(3)
	h.api.SetPageSize(2)

	h.login(t, "bob", "secret2")

	rec := h.do(t, http.MethodGet, "/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "token")

	rec = h.do(t, http.MethodGet, "/feed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[views.FeedSnapshot](t, rec)
	assert.Len(t, snap.Posts, 2)
	assert.True(t, snap.CanLoadMore)

	rec = h.do(t, http.MethodPost, "/feed/more", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[views.FeedSnapshot](t, rec).Posts, 3)

	rec = h.do(t, http.MethodPost, "/feed/posts/"+ids[0]+"/like", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[toggleResponse](t, rec)
	assert.True(t, res.Committed)
	assert.True(t, res.Active)
	assert.Equal(t, 1, res.Count)

	sess, _ := h.store.Current()
	assert.True(t, h.api.IsLiked(ids[0], sess.UserID))
}

func TestLoginFailure(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/auth/login", map[string]string{"username": "bob", "password": "wrong-one"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode[ErrorBody](t, rec)
	assert.Equal(t, "AUTH_FAILED", body.Error.Code)

	rec = h.do(t, http.MethodPost, "/auth/login", map[string]string{"username": "bob", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "password", decode[ErrorBody](t, rec).Error.Field)
}

func TestLogoutDropsViews(t *testing.T) {
	h := newHarness(t)
	h.api.SeedPosts(1)
	h.login(t, "bob", "secret2")

	require.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/feed", nil).Code)
	h.srv.mu.Lock()
	home := h.srv.home
	h.srv.mu.Unlock()
	require.NotNil(t, home)

	rec := h.do(t, http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"redirect":"/start"}`, rec.Body.String())

	h.srv.mu.Lock()
	assert.Nil(t, h.srv.home)
	h.srv.mu.Unlock()
	_, err := home.Load(t.Context())
	assert.ErrorIs(t, err, domain.ErrViewClosed)

	assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodGet, "/feed", nil).Code)

	// Logging back in mounts fresh views.
	h.login(t, "bob", "secret2")
	require.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/feed", nil).Code)
	h.srv.mu.Lock()
	assert.NotNil(t, h.srv.home)
	assert.NotSame(t, home, h.srv.home)
	h.srv.mu.Unlock()
}

func TestUserSwitchDropsViews(t *testing.T) {
	h := newHarness(t)
	h.api.SeedPosts(1)
	h.login(t, "bob", "secret2")

	require.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/feed", nil).Code)
	h.srv.mu.Lock()
	home := h.srv.home
	h.srv.mu.Unlock()
	require.NotNil(t, home)

	require.NoError(t, h.store.Set(&domain.Session{UserID: "someone-else", Username: "carol", Token: "t9"}))

	h.srv.mu.Lock()
	assert.Nil(t, h.srv.home)
	h.srv.mu.Unlock()
	_, err := home.Load(t.Context())
	assert.ErrorIs(t, err, domain.ErrViewClosed)
}

func TestEmptyFeedLoadsOnce(t *testing.T) {
	h := newHarness(t)
	h.login(t, "bob", "secret2")

	for range 3 {
		rec := h.do(t, http.MethodGet, "/feed", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		snap := decode[views.FeedSnapshot](t, rec)
		assert.Empty(t, snap.Posts)
		assert.False(t, snap.CanLoadMore)
	}
	assert.Len(t, h.api.Requests("/api/posts/cardDetails"), 1)
}

func TestExploreSearch(t *testing.T) {
	h := newHarness(t)
	h.api.SeedPosts(4)
	h.login(t, "bob", "secret2")

	rec := h.do(t, http.MethodGet, "/explore/suggestions?q=trav", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sugg := decode[[]domain.Category](t, rec)
	assert.Equal(t, []string{"Travel", "Travel Tips"}, category.Names(sugg))

	rec = h.do(t, http.MethodPost, "/explore/search", searchRequest{Text: "ab"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, h.api.Requests("/api/posts/search"))

	rec = h.do(t, http.MethodPost, "/explore/search", searchRequest{Categories: []string{"tech"}})
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[views.ExploreSnapshot](t, rec)
	assert.Len(t, snap.Posts, 2)
	assert.True(t, snap.SearchEnabled)
	require.Len(t, snap.Selected, 1)
	assert.Equal(t, "Tech", snap.Selected[0].Name)

	rec = h.do(t, http.MethodPost, "/explore/search", searchRequest{Categories: []string{"Cooking"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func multipartWrite(t *testing.T, fields map[string][]string, image []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, values := range fields {
		for _, v := range values {
			require.NoError(t, w.WriteField(key, v))
		}
	}
	if image != nil {
		part, err := w.CreateFormFile("postImage", "photo.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/write", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestWrite(t *testing.T) {
	h := newHarness(t)
	h.login(t, "alice", "secret1")

	t.Run("validation happens before any request", func(t *testing.T) {
		req := multipartWrite(t, map[string][]string{"content": {"<p>body</p>"}, "category": {"Travel"}}, nil)
		rec := httptest.NewRecorder()
		h.srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "title", decode[ErrorBody](t, rec).Error.Field)
		assert.Empty(t, h.api.Requests("/api/posts/addPost"))
	})

	t.Run("empty markup", func(t *testing.T) {
		req := multipartWrite(t, map[string][]string{"title": {"T"}, "content": {"<p><br></p>"}, "category": {"Travel"}}, nil)
		rec := httptest.NewRecorder()
		h.srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, "content", decode[ErrorBody](t, rec).Error.Field)
	})

	t.Run("created", func(t *testing.T) {
		png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
		req := multipartWrite(t, map[string][]string{
			"title":    {"Lisbon"},
			"content":  {"<p>Trams</p>"},
			"category": {"Travel", "2"},
		}, png)
		rec := httptest.NewRecorder()
		h.srv.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		postID := decode[map[string]string](t, rec)["postId"]
		assert.Equal(t, []string{"Travel", "Tech"}, h.api.PostCategories(postID))
		assert.Equal(t, png, h.api.PostImage(postID))
	})
}

func TestPostAndComments(t *testing.T) {
	h := newHarness(t)
	id := h.api.AddPost("alice", "Hello", "<p>World</p>", "Tech")
	h.login(t, "bob", "secret2")

	rec := h.do(t, http.MethodGet, "/posts/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, views.StatusReady, decode[views.PostSnapshot](t, rec).Status)
	assert.Len(t, h.api.Requests("/api/like/likeStatus"), 1)

	rec = h.do(t, http.MethodPost, "/posts/"+id+"/like", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	liked := decode[toggleResponse](t, rec)
	assert.True(t, liked.Committed)
	assert.True(t, liked.Active)
	assert.Equal(t, 1, liked.Count)
	assert.Len(t, h.api.Requests("/api/like/likeStatus"), 2)
	assert.Len(t, h.api.Requests("/api/like/getCount"), 2)

	rec = h.do(t, http.MethodPost, "/posts/"+id+"/comments", commentRequest{Text: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, h.api.Requests("/api/comment/add"))

	rec = h.do(t, http.MethodPost, "/posts/"+id+"/comments", commentRequest{Text: "great"})
	require.Equal(t, http.StatusCreated, rec.Code)
	snap := decode[views.PostSnapshot](t, rec)
	assert.Equal(t, 1, snap.Post.CommentCount)

	rec = h.do(t, http.MethodGet, "/posts/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProfileAndFollow(t *testing.T) {
	h := newHarness(t)
	h.login(t, "bob", "secret2")

	rec := h.do(t, http.MethodGet, "/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	own := decode[views.ProfileSnapshot](t, rec)
	assert.True(t, own.Own)
	assert.False(t, own.CanFollow)

	rec = h.do(t, http.MethodGet, "/profile/ghost@example.com", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, views.StatusNotFound, decode[views.ProfileSnapshot](t, rec).Status)

	rec = h.do(t, http.MethodPost, "/profile/alice@example.com/follow", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[toggleResponse](t, rec)
	assert.True(t, res.Committed)
	assert.True(t, res.Active)

	sess, _ := h.store.Current()
	assert.True(t, h.api.IsFollowing(sess.UserID, "u1"))
}

func TestErrorBoundary(t *testing.T) {
	h := newHarness(t)
	h.srv.echo.GET("/boom", func(echo.Context) error {
		panic("render exploded")
	})

	rec := h.do(t, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[ErrorBody](t, rec)
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	assert.True(t, body.Error.Reload)
	assert.NotContains(t, rec.Body.String(), "exploded")
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "go_goroutines"))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.NewValidationError("title", "title is required"), http.StatusBadRequest, "VALIDATION_FAILED"},
		{domain.ErrNoSession, http.StatusUnauthorized, "NOT_LOGGED_IN"},
		{&domain.AuthError{Message: "nope"}, http.StatusUnauthorized, "AUTH_FAILED"},
		{fmt.Errorf("x: %w", domain.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{domain.ErrTogglePending, http.StatusConflict, "IN_PROGRESS"},
		{domain.ErrViewClosed, http.StatusConflict, "VIEW_CLOSED"},
		{fmt.Errorf("x: %w", domain.ErrNetwork), http.StatusBadGateway, "BACKEND_UNAVAILABLE"},
		{echo.NewHTTPError(http.StatusMethodNotAllowed, "nope"), http.StatusMethodNotAllowed, "HTTP_ERROR"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		status, detail := mapError(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, detail.Code, tt.err.Error())
	}
}

func TestHealthReportsBreaker(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","api":"closed"}`, rec.Body.String())
}
