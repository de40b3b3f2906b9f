package views

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bloggera/bloggera/internal/domain"
	"github.com/bloggera/bloggera/internal/feed"
	"github.com/bloggera/bloggera/internal/toggle"
)

// FeedOptions configures the accumulators behind feed views.
type FeedOptions struct {
	MaxExcluded int
	Logger      *slog.Logger
}

func (o FeedOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// feedView is the part shared by the home and explore views: an accumulator plus
// like toggles for the posts it holds.
type feedView struct {
	name   string
	likes  *toggle.Registry
	logger *slog.Logger

	mu      sync.Mutex
	acc     *feed.Accumulator
	lastErr error
	closed  bool
}

func newFeedView(name string, likes LikeSetter, logger *slog.Logger) *feedView {
	v := &feedView{name: name, logger: logger.With("view", name)}
	v.likes = toggle.NewRegistry("like", likes.SetLike, logger)
	v.likes.OnChange(func(postID string, state toggle.State, _ toggle.Phase) {
		if acc := v.current(); acc != nil {
			acc.Update(postID, func(p *domain.PostSummary) {
				p.ViewerHasLiked = state.Active
				p.LikeCount = state.Count
			})
		}
	})
	return v
}

func (v *feedView) current() *feed.Accumulator {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.acc
}

func (v *feedView) setAccumulator(acc *feed.Accumulator) {
	v.mu.Lock()
	old := v.acc
	v.acc = acc
	v.lastErr = nil
	v.mu.Unlock()

	if old != nil && old != acc {
		old.Close()
	}
}

func (v *feedView) record(err error) {
	if isAbort(err) || errors.Is(err, domain.ErrLoadInFlight) {
		return
	}
	v.mu.Lock()
	v.lastErr = err
	v.mu.Unlock()
	if err != nil {
		v.logger.Warn("feed load failed", "error", err)
	}
}

func (v *feedView) load(ctx context.Context, more bool) ([]Card, error) {
	acc := v.current()
	if acc == nil {
		return nil, domain.ErrViewClosed
	}

	var (
		page []domain.PostSummary
		err  error
	)
	if more {
		page, err = acc.LoadMore(ctx)
	} else {
		page, err = acc.LoadInitial(ctx)
	}
	v.record(err)
	if err != nil {
		return nil, err
	}

	// Reloaded posts carry server truth for likes that are not in flight.
	for _, p := range page {
		if t, ok := v.likes.Lookup(p.PostID); ok && t.Phase() != toggle.Pending {
			t.Reset(likeState(p))
		}
	}
	return cardsOf(page), nil
}

// More fetches the next page.
func (v *feedView) More(ctx context.Context) ([]Card, error) {
	return v.load(ctx, true)
}

// Cards returns every loaded post.
func (v *feedView) Cards() []Card {
	acc := v.current()
	if acc == nil {
		return nil
	}
	return cardsOf(acc.Posts())
}

// Snapshot returns the renderable state.
func (v *feedView) Snapshot() FeedSnapshot {
	v.mu.Lock()
	acc, lastErr := v.acc, v.lastErr
	v.mu.Unlock()

	snap := FeedSnapshot{Posts: []Card{}, Error: errorState(lastErr)}
	if acc != nil {
		snap.Posts = cardsOf(acc.Posts())
		snap.CanLoadMore = acc.CanLoadMore()
		snap.Loading = acc.Loading()
	}
	return snap
}

// ToggleLike flips the viewer's like on a loaded post.
func (v *feedView) ToggleLike(ctx context.Context, postID string) (*toggle.Result, error) {
	acc := v.current()
	if acc == nil {
		return nil, domain.ErrViewClosed
	}

	var (
		post  domain.PostSummary
		found bool
	)
	for _, p := range acc.Posts() {
		if p.PostID == postID {
			post, found = p, true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("post %s is not in the %s feed: %w", postID, v.name, domain.ErrNotFound)
	}

	return v.likes.Get(postID, likeState(post)).Toggle(ctx)
}

// Close aborts in-flight loads. The view cannot be used afterwards.
func (v *feedView) Close() {
	v.mu.Lock()
	acc := v.acc
	v.closed = true
	v.mu.Unlock()
	if acc != nil {
		acc.Close()
	}
}

func (v *feedView) isClosed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}
