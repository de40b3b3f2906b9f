// Package views holds the view-models of the guarded screens: home feed, explore,
// post detail and profile. CLI commands and the web companion both drive them.
package views

import (
	"context"
	"errors"

	"github.com/bloggera/bloggera/internal/apiclient"
	"github.com/bloggera/bloggera/internal/domain"
	"github.com/bloggera/bloggera/internal/feed"
	"github.com/bloggera/bloggera/internal/richtext"
	"github.com/bloggera/bloggera/internal/toggle"
)

// Status of a view's data.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusLoading  Status = "loading"
	StatusReady    Status = "ready"
	StatusNotFound Status = "not_found"
	StatusFailed   Status = "failed"
)

// ErrorState is what a view shows when its last request failed.
type ErrorState struct {
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func errorState(err error) *ErrorState {
	if err == nil {
		return nil
	}
	return &ErrorState{Message: apiclient.MessageOf(err), Retryable: apiclient.IsRetryable(err)}
}

// Card is a feed entry as rendered.
type Card struct {
	domain.PostSummary
	Excerpt string `json:"excerpt"`
}

func cardsOf(posts []domain.PostSummary) []Card {
	cards := make([]Card, len(posts))
	for i, p := range posts {
		cards[i] = Card{PostSummary: p, Excerpt: richtext.Excerpt(p.HTMLContent, richtext.ExcerptLength)}
	}
	return cards
}

// FeedSnapshot is the renderable state of a feed view.
type FeedSnapshot struct {
	Posts       []Card      `json:"posts"`
	CanLoadMore bool        `json:"canLoadMore"`
	Loading     bool        `json:"loading"`
	Error       *ErrorState `json:"error,omitempty"`
}

// LikeSetter sends like/unlike requests.
type LikeSetter interface {
	SetLike(ctx context.Context, postID string, liked bool) error
}

func likeState(p domain.PostSummary) toggle.State {
	return toggle.State{Active: p.ViewerHasLiked, Count: p.LikeCount}
}

// isAbort reports errors caused by the view going away rather than by the backend.
func isAbort(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrViewClosed) || errors.Is(err, feed.ErrDiscarded)
}
