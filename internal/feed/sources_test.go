package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloggera/bloggera/internal/apiclient"
	"github.com/bloggera/bloggera/internal/domain"
	"github.com/bloggera/bloggera/internal/logger"
	"github.com/bloggera/bloggera/internal/testutil"
)

func newAPI(t *testing.T) (*apiclient.Client, *testutil.MockBloggeraServer) {
	t.Helper()
	srv := testutil.NewMockBloggeraServer()
	t.Cleanup(srv.Close)
	c := apiclient.New(apiclient.Options{
		BaseURL: srv.URL(),
		Timeout: 5 * time.Second,
		Logger:  logger.Discard(),
	}, testutil.NewStaticCredentials(srv.SessionFor("alice")))
	return c, srv
}

func TestHomeSource_PagesThroughBackend(t *testing.T) {
	api, srv := newAPI(t)
	all := srv.SeedPosts(5)
	srv.SetPageSize(2)

	acc := New(HomeSource(api), Options{Name: "home", Logger: logger.Discard()})
	ctx := context.Background()

	_, err := acc.LoadInitial(ctx)
	require.NoError(t, err)
	for acc.CanLoadMore() {
		_, err := acc.LoadMore(ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, all, acc.ExcludedIDs())
	assert.Len(t, srv.Requests("/api/posts/cardDetails"), 4)
}

func TestHomeSource_BackendIgnoringExclusions(t *testing.T) {
	api, srv := newAPI(t)
	all := srv.SeedPosts(3)
	srv.SetIgnoreExclusions(true)

	acc := New(HomeSource(api), Options{Name: "home", Logger: logger.Discard()})
	ctx := context.Background()

	_, err := acc.LoadInitial(ctx)
	require.NoError(t, err)
	more, err := acc.LoadMore(ctx)
	require.NoError(t, err)

	assert.Empty(t, more)
	assert.False(t, acc.CanLoadMore())
	assert.Equal(t, all, acc.ExcludedIDs())
}

func TestSearchSource_ByCategory(t *testing.T) {
	api, srv := newAPI(t)
	srv.SeedPosts(6)

	src, err := SearchSource(api, domain.Filter{Categories: []string{"Tech"}, Sample: 30})
	require.NoError(t, err)

	acc := New(src, Options{Name: "search", Logger: logger.Discard()})
	got, err := acc.LoadInitial(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 3)
	for _, p := range got {
		assert.Equal(t, "alice", p.AuthorUsername)
	}
}

func TestSearchSource_ByText(t *testing.T) {
	api, srv := newAPI(t)
	srv.AddPost("bob", "Golang generics", "<p>type params</p>", "Tech")
	srv.AddPost("bob", "Pasta", "<p>carbonara</p>", "Food")

	src, err := SearchSource(api, domain.Filter{Text: "golang", Sample: 30})
	require.NoError(t, err)

	got, err := New(src, Options{Logger: logger.Discard()}).LoadInitial(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Golang generics", got[0].Title)
}
