package feed

import (
	"context"

	"github.com/bloggera/bloggera/internal/apiclient"
	"github.com/bloggera/bloggera/internal/domain"
)

// Source fetches one page of posts, skipping excludedIDs.
type Source interface {
	Page(ctx context.Context, excludedIDs []string) ([]domain.PostSummary, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, excludedIDs []string) ([]domain.PostSummary, error)

func (f SourceFunc) Page(ctx context.Context, excludedIDs []string) ([]domain.PostSummary, error) {
	return f(ctx, excludedIDs)
}

// HomeAPI serves the unfiltered home feed.
type HomeAPI interface {
	CardDetails(ctx context.Context, excludedIDs []string) ([]domain.PostSummary, error)
}

// SearchAPI serves filtered searches.
type SearchAPI interface {
	SearchPosts(ctx context.Context, req apiclient.SearchRequest) ([]domain.PostSummary, error)
}

// HomeSource reads /api/posts/cardDetails.
func HomeSource(api HomeAPI) Source {
	return SourceFunc(api.CardDetails)
}

// SearchSource reads /api/posts/search with filter. The filter must be searchable.
func SearchSource(api SearchAPI, filter domain.Filter) (Source, error) {
	if err := filter.ValidateSearch(); err != nil {
		return nil, err
	}
	return SourceFunc(func(ctx context.Context, excludedIDs []string) ([]domain.PostSummary, error) {
		return api.SearchPosts(ctx, apiclient.NewSearchRequest(filter, excludedIDs))
	}), nil
}
