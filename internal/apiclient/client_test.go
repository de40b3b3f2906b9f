package apiclient

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloggera/bloggera/internal/domain"
	"github.com/bloggera/bloggera/internal/logger"
	"github.com/bloggera/bloggera/internal/resilience"
	"github.com/bloggera/bloggera/internal/testutil"
)

func newTestClient(t *testing.T, srv *testutil.MockBloggeraServer, sess *domain.Session) (*Client, *testutil.StaticCredentials) {
	t.Helper()
	creds := testutil.NewStaticCredentials(sess)
	c := New(Options{
		BaseURL: srv.URL(),
		Timeout: 5 * time.Second,
		Breaker: resilience.Config{FailureThreshold: 2, SuccessThreshold: 1, OpenTimeout: time.Hour},
		Logger:  logger.Discard(),
	}, creds)
	return c, creds
}

func newServer(t *testing.T) *testutil.MockBloggeraServer {
	t.Helper()
	srv := testutil.NewMockBloggeraServer()
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_NoSessionMakesNoRequest(t *testing.T) {
	srv := newServer(t)
	c, _ := newTestClient(t, srv, nil)
	ctx := context.Background()

	_, err := c.CardDetails(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrNoSession)

	_, err = c.ListCategories(ctx)
	assert.ErrorIs(t, err, domain.ErrNoSession)

	assert.ErrorIs(t, c.AddLike(ctx, "p1"), domain.ErrNoSession)
	assert.ErrorIs(t, c.Follow(ctx, "u2"), domain.ErrNoSession)

	_, err = c.AddPost(ctx, NewPost{Title: "t"})
	assert.ErrorIs(t, err, domain.ErrNoSession)

	assert.Zero(t, srv.RequestCount())
}

func TestClient_AttachesBearerTokenAndRequestID(t *testing.T) {
	srv := newServer(t)
	sess := srv.SessionFor("alice")
	c, _ := newTestClient(t, srv, sess)

	_, err := c.ListCategories(context.Background())
	require.NoError(t, err)

	reqs := srv.Requests("/api/category/list")
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer "+sess.Token, reqs[0].Headers.Get("Authorization"))
	assert.NotEmpty(t, reqs[0].Headers.Get("X-Request-Id"))
}

func TestClient_NormalizesStatusErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		kind      error
		code      string
		retryable bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"token expired"}`, domain.ErrAuth, CodeInvalidCredentials, false},
		{"forbidden", http.StatusForbidden, `{}`, domain.ErrAuth, CodeAccessDenied, false},
		{"not found", http.StatusNotFound, `{}`, domain.ErrNotFound, CodeNotFound, false},
		{"bad request", http.StatusBadRequest, `{"error":"bad excludedIds"}`, domain.ErrValidation, CodeBadRequest, false},
		{"server error", http.StatusInternalServerError, `oops`, domain.ErrNetwork, CodeInternalError, true},
		{"rate limited", http.StatusTooManyRequests, `{}`, domain.ErrNetwork, CodeRateLimitExceeded, true},
		{"teapot", http.StatusTeapot, `{}`, domain.ErrValidation, CodeUnknownError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t)
			c, _ := newTestClient(t, srv, srv.SessionFor("alice"))
			srv.SetResponse("/api/posts/cardDetails", testutil.MockResponse{StatusCode: tt.status, Body: tt.body})

			_, err := c.CardDetails(context.Background(), nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.retryable, apiErr.Retryable)
			assert.Equal(t, tt.retryable, IsRetryable(err))
			assert.NotEmpty(t, apiErr.RequestID)
		})
	}
}

func TestClient_ServerMessageAndRetryAfter(t *testing.T) {
	srv := newServer(t)
	c, _ := newTestClient(t, srv, srv.SessionFor("alice"))
	srv.SetResponse("/api/posts/search", testutil.MockResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       `{"message":"maintenance window"}`,
		Headers:    map[string]string{"Retry-After": "42"},
	})

	_, err := c.SearchPosts(context.Background(), SearchRequest{ListOfCategories: []string{"Tech"}})

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "maintenance window", apiErr.Message)
	assert.Equal(t, "maintenance window", MessageOf(err))
	assert.Equal(t, 42*time.Second, apiErr.RetryAfter)
}

func TestClient_TransportErrorIsNetworkError(t *testing.T) {
	srv := testutil.NewMockBloggeraServer()
	sess := srv.SessionFor("alice")
	c, _ := newTestClient(t, srv, sess)
	srv.Close()

	_, err := c.CardDetails(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.True(t, IsRetryable(err))
}

func TestClient_BreakerOpensAndShortCircuits(t *testing.T) {
	srv := newServer(t)
	c, _ := newTestClient(t, srv, srv.SessionFor("alice"))
	srv.SetResponse("/api/posts/cardDetails", testutil.MockResponse{StatusCode: http.StatusBadGateway, Body: `{}`})

	for i := 0; i < 2; i++ {
		_, err := c.CardDetails(context.Background(), nil)
		require.ErrorIs(t, err, domain.ErrNetwork)
	}
	assert.Equal(t, resilience.Open, c.BreakerState())

	before := srv.RequestCount()
	_, err := c.CardDetails(context.Background(), nil)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, CodeCircuitOpen, apiErr.Code)
	assert.ErrorIs(t, err, resilience.ErrOpen)
	assert.Equal(t, before, srv.RequestCount())
}

func TestClient_ClientErrorsDoNotTripBreaker(t *testing.T) {
	srv := newServer(t)
	c, _ := newTestClient(t, srv, srv.SessionFor("alice"))

	for i := 0; i < 5; i++ {
		_, err := c.FullPostDetails(context.Background(), "missing")
		require.ErrorIs(t, err, domain.ErrNotFound)
	}
	assert.Equal(t, resilience.Closed, c.BreakerState())
}

func TestClient_CanceledContext(t *testing.T) {
	srv := newServer(t)
	c, _ := newTestClient(t, srv, srv.SessionFor("alice"))
	srv.SetDelay(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.CardDetails(ctx, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, resilience.Closed, c.BreakerState())
}

func TestClient_MalformedBody(t *testing.T) {
	srv := newServer(t)
	c, _ := newTestClient(t, srv, srv.SessionFor("alice"))
	srv.SetResponse("/api/category/list", testutil.MockResponse{StatusCode: http.StatusOK, Body: `{"not":"a list"}`})

	_, err := c.ListCategories(context.Background())

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, CodeMalformedResponse, apiErr.Code)
}

func TestClient_DecodesRegardlessOfContentType(t *testing.T) {
	srv := newServer(t)
	c, _ := newTestClient(t, srv, srv.SessionFor("alice"))

	// Acknowledgements may come back empty.
	srv.SetResponse("/api/like/addlike", testutil.MockResponse{StatusCode: http.StatusOK})
	require.NoError(t, c.SetLike(context.Background(), "p1", true))

	srv.SetResponse("/api/category/list", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
		Body:       `[{"id":"9","name":"Gardening"}]`,
	})
	cats, err := c.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Gardening", cats[0].Name)
}

func TestDecodeBool(t *testing.T) {
	v, err := decodeBool([]byte(`true`), "likeStatus")
	require.NoError(t, err)
	assert.True(t, v)

	v, err = decodeBool([]byte(`{"likeStatus":false}`), "likeStatus")
	require.NoError(t, err)
	assert.False(t, v)

	_, err = decodeBool([]byte(`{"other":true}`), "likeStatus")
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer  abc"))
	assert.Empty(t, bearerToken("Basic abc"))
	assert.Empty(t, bearerToken(""))
}
