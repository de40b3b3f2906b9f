package views

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/bloggera/bloggera/internal/category"
	"github.com/bloggera/bloggera/internal/domain"
	"github.com/bloggera/bloggera/internal/feed"
)

// DefaultSearchSample is the page size hint sent with searches.
const DefaultSearchSample = 30

// ExploreAPI is what the explore view needs from the backend.
type ExploreAPI interface {
	feed.SearchAPI
	LikeSetter
}

// CategorySource lists and ranks categories.
type CategorySource interface {
	List(ctx context.Context) ([]domain.Category, error)
	Suggest(ctx context.Context, query string, selected []domain.Category) ([]domain.Category, error)
}

// ExploreOptions configures the explore view.
type ExploreOptions struct {
	FeedOptions
	Sample int
}

// Explore searches posts by categories or free text.
type Explore struct {
	*feedView
	api        ExploreAPI
	categories CategorySource
	opts       ExploreOptions

	mu       sync.Mutex
	selected []domain.Category
	text     string
	filter   domain.Filter
}

// ExploreSnapshot is the renderable state of the explore view.
type ExploreSnapshot struct {
	FeedSnapshot
	Selected      []domain.Category `json:"selected"`
	Text          string            `json:"text"`
	SearchEnabled bool              `json:"searchEnabled"`
}

// NewExplore creates the explore view with nothing selected.
func NewExplore(api ExploreAPI, categories CategorySource, opts ExploreOptions) *Explore {
	if opts.Sample <= 0 {
		opts.Sample = DefaultSearchSample
	}
	return &Explore{
		feedView:   newFeedView("explore", api, opts.logger()),
		api:        api,
		categories: categories,
		opts:       opts,
	}
}

// Categories lists every category.
func (e *Explore) Categories(ctx context.Context) ([]domain.Category, error) {
	return e.categories.List(ctx)
}

// Suggestions ranks unselected categories against query.
func (e *Explore) Suggestions(ctx context.Context, query string) ([]domain.Category, error) {
	return e.categories.Suggest(ctx, query, e.Selected())
}

// SetText replaces the free-text query.
func (e *Explore) SetText(text string) {
	e.mu.Lock()
	e.text = text
	e.mu.Unlock()
}

// AddCategory selects cat.
func (e *Explore) AddCategory(cat domain.Category) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !slices.ContainsFunc(e.selected, func(c domain.Category) bool { return c.ID == cat.ID }) {
		e.selected = append(e.selected, cat)
	}
}

// RemoveCategory deselects the category with id.
func (e *Explore) RemoveCategory(id string) {
	e.mu.Lock()
	e.selected = slices.DeleteFunc(e.selected, func(c domain.Category) bool { return c.ID == id })
	e.mu.Unlock()
}

// Selected returns the selected categories.
func (e *Explore) Selected() []domain.Category {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.selected)
}

// Filter builds the filter for the current selection and text.
func (e *Explore) Filter() domain.Filter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filterLocked()
}

func (e *Explore) filterLocked() domain.Filter {
	f := domain.Filter{Text: strings.TrimSpace(e.text), Sample: e.opts.Sample}
	f.Categories = category.Names(e.selected)
	if len(f.Categories) == 0 {
		f.Categories = nil
	}
	return f
}

// SearchEnabled reports whether Search may be issued: at least one category or three
// characters of text.
func (e *Explore) SearchEnabled() bool {
	return e.Filter().SearchEnabled()
}

// Search starts a new result set for the current filter, abandoning the previous one.
func (e *Explore) Search(ctx context.Context) ([]Card, error) {
	if e.isClosed() {
		return nil, domain.ErrViewClosed
	}

	filter := e.Filter()
	src, err := feed.SearchSource(e.api, filter)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.filter = filter
	e.mu.Unlock()

	e.setAccumulator(feed.New(src, feed.Options{
		Name:        "search",
		MaxExcluded: e.opts.MaxExcluded,
		Logger:      e.opts.logger(),
	}))
	e.logger.DebugContext(ctx, "search started", "mode", filter.Kind().String())
	return e.load(ctx, false)
}

// More fetches the next page of the current search.
func (e *Explore) More(ctx context.Context) ([]Card, error) {
	if e.current() == nil {
		return nil, domain.NewValidationError("query", "run a search first")
	}
	return e.feedView.More(ctx)
}

// Snapshot returns the renderable state.
func (e *Explore) Snapshot() ExploreSnapshot {
	snap := ExploreSnapshot{FeedSnapshot: e.feedView.Snapshot()}
	e.mu.Lock()
	snap.Selected = slices.Clone(e.selected)
	if snap.Selected == nil {
		snap.Selected = []domain.Category{}
	}
	snap.Text = e.text
	snap.SearchEnabled = e.filterLocked().SearchEnabled()
	e.mu.Unlock()
	return snap
}

// ActiveFilter returns the filter the displayed results were searched with.
func (e *Explore) ActiveFilter() domain.Filter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filter
}
