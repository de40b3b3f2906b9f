// Package feed grows a view's list of posts page by page without repeating a post.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/bloggera/bloggera/internal/domain"
	"github.com/bloggera/bloggera/internal/metrics"
)

// ErrDiscarded is returned for a page that arrived after Reset.
var ErrDiscarded = errors.New("feed was reset; page discarded")

// Options configures an Accumulator.
type Options struct {
	// Name labels metrics and logs, e.g. home or search.
	Name string
	// MaxExcluded caps how many ids are sent as excludedIds, keeping the most recent.
	// Zero sends all of them. Client-side de-duplication applies either way, and ids the
	// server hands back after falling out of the cap are sent again on the next request.
	MaxExcluded int
	Logger      *slog.Logger
}

// Accumulator holds the ordered posts of one mounted view.
//
// Loads are serialized: a load issued while another is in flight fails with
// domain.ErrLoadInFlight. An empty page exhausts the feed, as does a page holding only
// ids that were sent as excluded.
type Accumulator struct {
	mu sync.Mutex

	src    Source
	opts   Options
	logger *slog.Logger

	posts []domain.PostSummary
	seen  map[string]struct{}
	// resend holds accumulated ids the server returned again after the cap dropped them.
	resend []string

	exhausted bool
	loading   bool
	closed    bool
	gen       uint64
	cancel    context.CancelFunc
}

// New creates an empty accumulator over src.
func New(src Source, opts Options) *Accumulator {
	if opts.Name == "" {
		opts.Name = "feed"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Accumulator{
		src:    src,
		opts:   opts,
		logger: logger.With("feed", opts.Name),
		seen:   make(map[string]struct{}),
	}
}

// LoadInitial discards accumulated posts and fetches the first page.
func (a *Accumulator) LoadInitial(ctx context.Context) ([]domain.PostSummary, error) {
	a.mu.Lock()
	if err := a.checkLoadableLocked(); err != nil {
		a.mu.Unlock()
		return nil, err
	}
	a.resetLocked()
	gen, reqCtx := a.beginLocked(ctx)
	a.mu.Unlock()

	page, err := a.src.Page(reqCtx, []string{})
	return a.apply(gen, []string{}, page, err)
}

// LoadMore fetches the next page and returns only the posts it appended.
// An exhausted feed returns nothing without a request.
func (a *Accumulator) LoadMore(ctx context.Context) ([]domain.PostSummary, error) {
	a.mu.Lock()
	if err := a.checkLoadableLocked(); err != nil {
		a.mu.Unlock()
		return nil, err
	}
	if a.exhausted {
		a.mu.Unlock()
		return nil, nil
	}
	excluded := a.excludedLocked()
	gen, reqCtx := a.beginLocked(ctx)
	a.mu.Unlock()

	page, err := a.src.Page(reqCtx, excluded)
	return a.apply(gen, excluded, page, err)
}

func (a *Accumulator) checkLoadableLocked() error {
	if a.closed {
		return domain.ErrViewClosed
	}
	if a.loading {
		return domain.ErrLoadInFlight
	}
	return nil
}

func (a *Accumulator) beginLocked(ctx context.Context) (uint64, context.Context) {
	reqCtx, cancel := context.WithCancel(ctx)
	a.loading = true
	a.cancel = cancel
	return a.gen, reqCtx
}

func (a *Accumulator) resetLocked() {
	a.gen++
	a.posts = nil
	a.seen = make(map[string]struct{})
	a.resend = nil
	a.exhausted = false
}

func (a *Accumulator) apply(gen uint64, sent []string, page []domain.PostSummary, err error) ([]domain.PostSummary, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if gen != a.gen {
		if a.closed {
			return nil, domain.ErrViewClosed
		}
		return nil, ErrDiscarded
	}

	a.loading = false
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}

	if err != nil {
		a.logger.Warn("feed page failed", "error", err)
		return nil, err
	}

	added := make([]domain.PostSummary, 0, len(page))
	for _, p := range page {
		if p.PostID == "" {
			continue
		}
		if _, dup := a.seen[p.PostID]; dup {
			continue
		}
		a.seen[p.PostID] = struct{}{}
		a.posts = append(a.posts, p)
		added = append(added, p)
	}

	metrics.RecordFeedPage(a.opts.Name, len(added))
	if len(added) == 0 && len(page) > 0 {
		// Repeats the server was not told to exclude say nothing about the end of the feed.
		if leaked := unsent(page, sent); len(leaked) > 0 {
			a.resend = append(a.resend, leaked...)
			a.logger.Debug("server repeated ids beyond the exclusion cap", "count", len(leaked))
			return added, nil
		}
	}
	if len(added) == 0 {
		a.exhausted = true
		metrics.RecordFeedExhausted(a.opts.Name)
		a.logger.Debug("feed exhausted", "page_size", len(page), "total", len(a.posts))
	}
	return added, nil
}

// excludedLocked returns the ids to send, most recent last, honoring MaxExcluded.
// Ids in resend are always sent, ahead of the most recent ones.
func (a *Accumulator) excludedLocked() []string {
	ids := make([]string, len(a.posts))
	for i, p := range a.posts {
		ids[i] = p.PostID
	}
	n := a.opts.MaxExcluded
	if n <= 0 || len(ids) <= n {
		return ids
	}
	recent := ids[len(ids)-n:]
	if len(a.resend) == 0 {
		return recent
	}
	out := make([]string, 0, len(a.resend)+n)
	for _, id := range a.resend {
		if !slices.Contains(recent, id) {
			out = append(out, id)
		}
	}
	return append(out, recent...)
}

// unsent returns the distinct ids in page that are missing from sent.
func unsent(page []domain.PostSummary, sent []string) []string {
	var out []string
	for _, p := range page {
		if p.PostID == "" || slices.Contains(sent, p.PostID) || slices.Contains(out, p.PostID) {
			continue
		}
		out = append(out, p.PostID)
	}
	return out
}

// Posts returns a copy of the accumulated sequence.
func (a *Accumulator) Posts() []domain.PostSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.posts)
}

// Len returns the number of accumulated posts.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.posts)
}

// ExcludedIDs returns every accumulated post id in display order.
func (a *Accumulator) ExcludedIDs() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := make([]string, len(a.posts))
	for i, p := range a.posts {
		ids[i] = p.PostID
	}
	return ids
}

// CanLoadMore reports whether a "load more" affordance should be offered.
func (a *Accumulator) CanLoadMore() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.exhausted && !a.closed
}

// Loading reports whether a page is in flight.
func (a *Accumulator) Loading() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loading
}

// Update applies fn to the accumulated post with postID. The id itself cannot change.
func (a *Accumulator) Update(postID string, fn func(p *domain.PostSummary)) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.posts {
		if a.posts[i].PostID == postID {
			fn(&a.posts[i])
			a.posts[i].PostID = postID
			return true
		}
	}
	return false
}

// Reset cancels any in-flight load, discarding its page, and empties the feed.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.abortLocked()
	a.resetLocked()
}

// Close cancels any in-flight load and rejects further loads.
func (a *Accumulator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.abortLocked()
	a.gen++
	a.closed = true
}

func (a *Accumulator) abortLocked() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.loading = false
}
