package views

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloggera/bloggera/internal/apiclient"
	"github.com/bloggera/bloggera/internal/category"
	"github.com/bloggera/bloggera/internal/domain"
	"github.com/bloggera/bloggera/internal/logger"
	"github.com/bloggera/bloggera/internal/testutil"
	"github.com/bloggera/bloggera/internal/toggle"
)

func newAPI(t *testing.T, username string) (*apiclient.Client, *testutil.MockBloggeraServer, *domain.Session) {
	t.Helper()
	srv := testutil.NewMockBloggeraServer()
	t.Cleanup(srv.Close)
	sess := srv.SessionFor(username)
	c := apiclient.New(apiclient.Options{
		BaseURL: srv.URL(),
		Timeout: 5 * time.Second,
		Logger:  logger.Discard(),
	}, testutil.NewStaticCredentials(sess))
	return c, srv, sess
}

func waitToggle(t *testing.T, res *toggle.Result) (toggle.State, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return res.Wait(ctx)
}

func TestHome_LoadPagesAndLikes(t *testing.T) {
	api, srv, sess := newAPI(t, "bob")
	ids := srv.SeedPosts(3)
	srv.SetPageSize(2)

	home := NewHome(api, FeedOptions{Logger: logger.Discard()})
	defer home.Close()
	ctx := context.Background()

	cards, err := home.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, cards, 2)
	assert.Equal(t, "Body of post 1", cards[0].Excerpt)

	_, err = home.More(ctx)
	require.NoError(t, err)
	snap := home.Snapshot()
	assert.Len(t, snap.Posts, 3)
	assert.True(t, snap.CanLoadMore)

	_, err = home.More(ctx)
	require.NoError(t, err)
	assert.False(t, home.Snapshot().CanLoadMore)

	res, err := home.ToggleLike(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, toggle.State{Active: true, Count: 1}, res.Optimistic())
	state, err := waitToggle(t, res)
	require.NoError(t, err)
	assert.True(t, state.Active)
	assert.True(t, srv.IsLiked(ids[1], sess.UserID))

	liked := home.Cards()[1]
	assert.True(t, liked.ViewerHasLiked)
	assert.Equal(t, 1, liked.LikeCount)

	_, err = home.ToggleLike(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHome_LikeRollsBackOnFailure(t *testing.T) {
	api, srv, _ := newAPI(t, "bob")
	ids := srv.SeedPosts(1)

	home := NewHome(api, FeedOptions{Logger: logger.Discard()})
	defer home.Close()
	_, err := home.Load(context.Background())
	require.NoError(t, err)

	srv.SetResponse("/api/like/addlike", testutil.MockResponse{StatusCode: 500, Body: `{"message":"boom"}`})
	res, err := home.ToggleLike(context.Background(), ids[0])
	require.NoError(t, err)
	_, err = waitToggle(t, res)
	require.Error(t, err)

	card := home.Cards()[0]
	assert.False(t, card.ViewerHasLiked)
	assert.Equal(t, 0, card.LikeCount)
}

func TestHome_ErrorStateIsRetryable(t *testing.T) {
	api, srv, _ := newAPI(t, "bob")
	srv.SetResponse("/api/posts/cardDetails", testutil.MockResponse{StatusCode: 503, Body: `{"message":"down"}`})

	home := NewHome(api, FeedOptions{Logger: logger.Discard()})
	defer home.Close()

	_, err := home.Load(context.Background())
	require.ErrorIs(t, err, domain.ErrNetwork)

	snap := home.Snapshot()
	require.NotNil(t, snap.Error)
	assert.True(t, snap.Error.Retryable)
	assert.Empty(t, snap.Posts)
}

func TestHome_ClosedViewRejectsLoads(t *testing.T) {
	api, srv, _ := newAPI(t, "bob")
	srv.SeedPosts(1)

	home := NewHome(api, FeedOptions{Logger: logger.Discard()})
	home.Close()

	_, err := home.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrViewClosed)
	assert.Nil(t, home.Snapshot().Error)
}

func newExplore(t *testing.T) (*Explore, *testutil.MockBloggeraServer) {
	t.Helper()
	api, srv, _ := newAPI(t, "bob")
	cache := category.NewCache(api, 4, time.Minute)
	ex := NewExplore(api, cache, ExploreOptions{FeedOptions: FeedOptions{Logger: logger.Discard()}})
	t.Cleanup(ex.Close)
	return ex, srv
}

func TestExplore_EnabledRule(t *testing.T) {
	ex, srv := newExplore(t)

	assert.False(t, ex.SearchEnabled())
	ex.SetText("ab")
	assert.False(t, ex.SearchEnabled())

	_, err := ex.Search(context.Background())
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, srv.Requests("/api/posts/search"))

	ex.SetText("abc")
	assert.True(t, ex.SearchEnabled())

	ex.SetText("")
	ex.AddCategory(domain.Category{ID: "2", Name: "Tech"})
	assert.True(t, ex.SearchEnabled())
	assert.True(t, ex.Snapshot().SearchEnabled)
}

func TestExplore_CategorySearchAndSuggestions(t *testing.T) {
	ex, srv := newExplore(t)
	srv.SeedPosts(4)
	ctx := context.Background()

	sugg, err := ex.Suggestions(ctx, "trav")
	require.NoError(t, err)
	require.Equal(t, []string{"Travel", "Travel Tips"}, category.Names(sugg))

	ex.AddCategory(sugg[0])
	ex.SetText("ignored when categories are set")

	cards, err := ex.Search(ctx)
	require.NoError(t, err)
	assert.Len(t, cards, 2)
	for _, c := range cards {
		assert.Contains(t, []string{"Post 1", "Post 3"}, c.Title)
	}

	reqs := srv.Requests("/api/posts/search")
	require.Len(t, reqs, 1)
	var body apiclient.SearchRequest
	require.NoError(t, reqs[0].JSON(&body))
	assert.Equal(t, []string{"Travel"}, body.ListOfCategories)
	assert.Nil(t, body.Text)
	assert.Equal(t, DefaultSearchSample, body.Sample)

	sugg, err = ex.Suggestions(ctx, "trav")
	require.NoError(t, err)
	assert.Equal(t, []string{"Travel Tips"}, category.Names(sugg))
	assert.Equal(t, []string{"Travel"}, ex.ActiveFilter().Categories)
}

func TestExplore_NewSearchReplacesResults(t *testing.T) {
	ex, srv := newExplore(t)
	srv.SeedPosts(4)
	ctx := context.Background()

	ex.AddCategory(domain.Category{ID: "1", Name: "Travel"})
	_, err := ex.Search(ctx)
	require.NoError(t, err)

	ex.RemoveCategory("1")
	ex.SetText("post 4")
	cards, err := ex.Search(ctx)
	require.NoError(t, err)

	require.Len(t, cards, 1)
	assert.Equal(t, "Post 4", cards[0].Title)
	assert.Len(t, ex.Cards(), 1)
}

func TestExplore_MoreBeforeSearch(t *testing.T) {
	ex, _ := newExplore(t)
	_, err := ex.More(context.Background())
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPost_LoadLikeAndComment(t *testing.T) {
	api, srv, sess := newAPI(t, "bob")
	id := srv.AddPost("alice", "Hello", `<p>Hi<script>alert(1)</script></p>`, "Tech")
	ctx := context.Background()

	v := NewPost(api, id, logger.Discard())
	require.NoError(t, v.Load(ctx))
	assert.Equal(t, StatusReady, v.Status())

	d, ok := v.Detail()
	require.True(t, ok)
	assert.NotContains(t, d.HTMLContent, "script")
	assert.Equal(t, []string{"Tech"}, d.Categories)

	res, err := v.ToggleLike(ctx)
	require.NoError(t, err)
	_, err = waitToggle(t, res)
	require.NoError(t, err)
	assert.True(t, srv.IsLiked(id, sess.UserID))
	assert.True(t, v.Snapshot().Liked)
	assert.Equal(t, 1, v.Snapshot().Likes)

	before := srv.RequestCount()
	_, err = v.AddComment(ctx, "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "comment", domain.FieldOf(err))
	assert.Equal(t, before, srv.RequestCount())

	c, err := v.AddComment(ctx, "  nice post ")
	require.NoError(t, err)
	assert.Equal(t, "nice post", c.Text)

	d, _ = v.Detail()
	assert.Equal(t, 1, d.CommentCount)
	require.Len(t, d.Comments, 1)
	assert.Equal(t, "bob", d.Comments[0].AuthorUsername)

	require.NoError(t, v.Reconcile(ctx))
	snap := v.Snapshot()
	assert.True(t, snap.Liked)
	assert.Equal(t, 1, snap.Likes)
	assert.Equal(t, 1, snap.Post.CommentCount)
}

func TestPost_NotFound(t *testing.T) {
	api, _, _ := newAPI(t, "bob")

	v := NewPost(api, "nope", logger.Discard())
	err := v.Load(context.Background())

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, StatusNotFound, v.Status())
	_, err = v.ToggleLike(context.Background())
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = v.AddComment(context.Background(), "hi")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestProfile_OtherUserFollowToggle(t *testing.T) {
	api, srv, sess := newAPI(t, "bob")
	srv.SeedPosts(2)
	ctx := context.Background()

	v := NewProfile(api, sess, "alice@example.com", logger.Discard())
	require.NoError(t, v.Load(ctx))

	snap := v.Snapshot()
	assert.Equal(t, StatusReady, snap.Status)
	assert.False(t, snap.Own)
	assert.True(t, snap.CanFollow)
	assert.Len(t, snap.Posts, 2)
	assert.False(t, snap.User.FollowStatus)

	res, err := v.ToggleFollow(ctx)
	require.NoError(t, err)
	assert.Equal(t, toggle.State{Active: true, Count: 1}, res.Optimistic())
	_, err = waitToggle(t, res)
	require.NoError(t, err)

	aliceID := srv.SessionFor("alice").UserID
	assert.True(t, srv.IsFollowing(sess.UserID, aliceID))
	assert.True(t, v.Snapshot().User.FollowStatus)
	assert.Equal(t, 1, v.Snapshot().User.FollowerCount)
}

func TestProfile_OwnProfileHasNoFollow(t *testing.T) {
	api, _, sess := newAPI(t, "alice")

	v := NewProfile(api, sess, "", logger.Discard())
	require.NoError(t, v.Load(context.Background()))

	assert.True(t, v.Snapshot().Own)
	assert.False(t, v.CanFollow())
	_, err := v.ToggleFollow(context.Background())
	assert.Equal(t, "follow", domain.FieldOf(err))
}

func TestProfile_UnknownUser(t *testing.T) {
	api, _, sess := newAPI(t, "bob")

	v := NewProfile(api, sess, "ghost@example.com", logger.Discard())
	err := v.Load(context.Background())

	assert.ErrorIs(t, err, domain.ErrNotFound)
	snap := v.Snapshot()
	assert.Equal(t, StatusNotFound, snap.Status)
	assert.Nil(t, snap.User)
	require.NotNil(t, snap.Error)
	assert.False(t, snap.Error.Retryable)
}

type staleProfileAPI struct {
	ProfileAPI
	statusCalls int
}

func (s *staleProfileAPI) UserDetails(context.Context, string) (*apiclient.Profile, error) {
	return &apiclient.Profile{User: domain.UserProfile{UserID: "u9", Username: "zed"}}, nil
}

func (s *staleProfileAPI) FollowStatus(context.Context, string) (bool, error) {
	s.statusCalls++
	return true, nil
}

func TestProfile_FollowStatusFallback(t *testing.T) {
	api := &staleProfileAPI{}
	v := NewProfile(api, &domain.Session{UserID: "u1"}, "zed@example.com", logger.Discard())

	require.NoError(t, v.Load(context.Background()))
	assert.Equal(t, 1, api.statusCalls)
	assert.True(t, v.Snapshot().User.FollowStatus)
}

func TestErrorState(t *testing.T) {
	assert.Nil(t, errorState(nil))
	st := errorState(errors.New("plain"))
	assert.Equal(t, "plain", st.Message)
	assert.False(t, st.Retryable)
}

func TestCardsOf_Excerpt(t *testing.T) {
	cards := cardsOf([]domain.PostSummary{{PostID: "p1", HTMLContent: "<p>" + strings.Repeat("x", 120) + "</p>"}})
	assert.True(t, strings.HasPrefix(cards[0].Excerpt, strings.Repeat("x", 100)))
	assert.True(t, strings.HasSuffix(cards[0].Excerpt, "read more"))
}
