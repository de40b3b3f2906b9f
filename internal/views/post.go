package views

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/bloggera/bloggera/internal/domain"
	"github.com/bloggera/bloggera/internal/richtext"
	"github.com/bloggera/bloggera/internal/toggle"
)

// PostAPI is what the post view needs from the backend.
type PostAPI interface {
	LikeSetter
	FullPostDetails(ctx context.Context, postID string) (*domain.PostDetail, error)
	LikeStatus(ctx context.Context, postID string) (bool, error)
	LikeCounts(ctx context.Context, postID string) (domain.Counts, error)
	AddComment(ctx context.Context, postID, text string) (*domain.Comment, error)
}

// PostSnapshot is the renderable state of the post view.
type PostSnapshot struct {
	Status Status             `json:"status"`
	Post   *domain.PostDetail `json:"post,omitempty"`
	Liked  bool               `json:"liked"`
	Likes  int                `json:"likeCount"`
	Error  *ErrorState        `json:"error,omitempty"`
}

// Post shows one post with its comments.
type Post struct {
	api    PostAPI
	postID string
	logger *slog.Logger

	mu      sync.Mutex
	status  Status
	detail  *domain.PostDetail
	like    *toggle.Toggle
	lastErr error
}

// NewPost creates the view for postID. Nothing is fetched until Load.
func NewPost(api PostAPI, postID string, logger *slog.Logger) *Post {
	if logger == nil {
		logger = slog.Default()
	}
	return &Post{
		api:    api,
		postID: postID,
		logger: logger.With("view", "post", "post_id", postID),
		status: StatusIdle,
	}
}

// Load fetches the post. Its HTML is sanitized before display.
func (v *Post) Load(ctx context.Context) error {
	v.mu.Lock()
	v.status = StatusLoading
	v.mu.Unlock()

	detail, err := v.api.FullPostDetails(ctx, v.postID)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		v.lastErr = err
		v.status = StatusFailed
		if errors.Is(err, domain.ErrNotFound) {
			v.status = StatusNotFound
		}
		return err
	}

	detail.HTMLContent = richtext.Sanitize(detail.HTMLContent)
	v.detail = detail
	v.lastErr = nil
	v.status = StatusReady

	state := likeState(detail.PostSummary)
	if v.like == nil {
		v.like = toggle.New("like", v.postID, state, func(ctx context.Context, desired bool) error {
			return v.api.SetLike(ctx, v.postID, desired)
		}, v.logger)
	} else if v.like.Phase() != toggle.Pending {
		v.like.Reset(state)
	}
	return nil
}

// Reconcile re-reads the like status and counts from the server.
func (v *Post) Reconcile(ctx context.Context) error {
	v.mu.Lock()
	like := v.like
	v.mu.Unlock()
	if like == nil {
		return domain.ErrViewClosed
	}

	liked, err := v.api.LikeStatus(ctx, v.postID)
	if err != nil {
		return err
	}
	counts, err := v.api.LikeCounts(ctx, v.postID)
	if err != nil {
		return err
	}

	if like.Phase() != toggle.Pending {
		like.Reset(toggle.State{Active: liked, Count: counts.LikeCount})
	}

	v.mu.Lock()
	if v.detail != nil {
		v.detail.CommentCount = counts.CommentCount
	}
	v.mu.Unlock()
	return nil
}

// Status returns the load status.
func (v *Post) Status() Status {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.status
}

// Detail returns a copy of the loaded post with the current like state applied.
func (v *Post) Detail() (*domain.PostDetail, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.detailLocked()
}

func (v *Post) detailLocked() (*domain.PostDetail, bool) {
	if v.detail == nil {
		return nil, false
	}
	d := *v.detail
	d.Comments = slices.Clone(v.detail.Comments)
	d.Categories = slices.Clone(v.detail.Categories)
	if v.like != nil {
		s := v.like.State()
		d.ViewerHasLiked = s.Active
		d.LikeCount = s.Count
	}
	return &d, true
}

// ToggleLike flips the viewer's like.
func (v *Post) ToggleLike(ctx context.Context) (*toggle.Result, error) {
	v.mu.Lock()
	like := v.like
	v.mu.Unlock()
	if like == nil {
		return nil, domain.NewValidationError("post", "post is not loaded")
	}
	return like.Toggle(ctx)
}

// AddComment posts text as a comment. Whitespace-only text is rejected without a request.
// On success the comment is appended and the comment count bumped.
func (v *Post) AddComment(ctx context.Context, text string) (*domain.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.NewValidationError("comment", "comment cannot be empty")
	}
	if v.Status() != StatusReady {
		return nil, domain.NewValidationError("post", "post is not loaded")
	}

	comment, err := v.api.AddComment(ctx, v.postID, text)
	if err != nil {
		v.logger.WarnContext(ctx, "comment failed", "error", err)
		return nil, err
	}

	v.mu.Lock()
	v.detail.Comments = append(v.detail.Comments, *comment)
	v.detail.CommentCount++
	v.mu.Unlock()
	return comment, nil
}

// Snapshot returns the renderable state.
func (v *Post) Snapshot() PostSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	snap := PostSnapshot{Status: v.status, Error: errorState(v.lastErr)}
	if d, ok := v.detailLocked(); ok {
		snap.Post = d
		snap.Liked = d.ViewerHasLiked
		snap.Likes = d.LikeCount
	}
	return snap
}
