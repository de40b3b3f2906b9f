package views

import (
	"context"

	"github.com/bloggera/bloggera/internal/feed"
)

// HomeAPI is what the home view needs from the backend.
type HomeAPI interface {
	feed.HomeAPI
	LikeSetter
}

// Home is the unfiltered feed.
type Home struct {
	*feedView
}

// NewHome creates the home view. Nothing is fetched until Load.
func NewHome(api HomeAPI, opts FeedOptions) *Home {
	logger := opts.logger()
	v := newFeedView("home", api, logger)
	v.setAccumulator(feed.New(feed.HomeSource(api), feed.Options{
		Name:        "home",
		MaxExcluded: opts.MaxExcluded,
		Logger:      logger,
	}))
	return &Home{feedView: v}
}

// Load fetches the first page.
func (h *Home) Load(ctx context.Context) ([]Card, error) {
	return h.load(ctx, false)
}
