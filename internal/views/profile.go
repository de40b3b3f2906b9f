package views

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/bloggera/bloggera/internal/apiclient"
	"github.com/bloggera/bloggera/internal/domain"
	"github.com/bloggera/bloggera/internal/toggle"
)

// ProfileAPI is what the profile view needs from the backend.
type ProfileAPI interface {
	UserDetails(ctx context.Context, email string) (*apiclient.Profile, error)
	SetFollow(ctx context.Context, userID string, following bool) error
	FollowStatus(ctx context.Context, userID string) (bool, error)
}

// ProfileSnapshot is the renderable state of the profile view.
type ProfileSnapshot struct {
	Status    Status              `json:"status"`
	User      *domain.UserProfile `json:"user,omitempty"`
	Posts     []Card              `json:"posts"`
	Own       bool                `json:"own"`
	CanFollow bool                `json:"canFollow"`
	Error     *ErrorState         `json:"error,omitempty"`
}

// Profile shows a user and their posts.
type Profile struct {
	api    ProfileAPI
	viewer *domain.Session
	email  string
	logger *slog.Logger

	mu      sync.Mutex
	status  Status
	profile *apiclient.Profile
	follow  *toggle.Toggle
	lastErr error
}

// NewProfile creates the profile view of email as seen by viewer. An empty email shows
// the viewer's own profile.
func NewProfile(api ProfileAPI, viewer *domain.Session, email string, logger *slog.Logger) *Profile {
	if logger == nil {
		logger = slog.Default()
	}
	if email == "" && viewer != nil {
		email = viewer.Email
	}
	return &Profile{
		api:    api,
		viewer: viewer,
		email:  email,
		logger: logger.With("view", "profile"),
		status: StatusIdle,
	}
}

// Load fetches the user and their posts. An unknown user puts the view in StatusNotFound.
func (v *Profile) Load(ctx context.Context) error {
	v.mu.Lock()
	v.status = StatusLoading
	v.mu.Unlock()

	profile, err := v.api.UserDetails(ctx, v.email)
	if err != nil {
		v.mu.Lock()
		v.lastErr = err
		v.status = StatusFailed
		if errors.Is(err, domain.ErrNotFound) {
			v.status = StatusNotFound
		}
		v.mu.Unlock()
		return err
	}

	own := v.isOwn(profile)
	following := profile.User.FollowStatus
	if !own && !following {
		// Older backends omit followStatus from userdetails.
		if status, err := v.api.FollowStatus(ctx, profile.User.UserID); err == nil {
			following = status
		} else {
			v.logger.DebugContext(ctx, "follow status unavailable", "error", err)
		}
	}
	profile.User.FollowStatus = following

	v.mu.Lock()
	defer v.mu.Unlock()
	v.profile = profile
	v.lastErr = nil
	v.status = StatusReady
	v.follow = nil
	if !own {
		userID := profile.User.UserID
		v.follow = toggle.New("follow", userID, toggle.State{Active: following, Count: profile.User.FollowerCount},
			func(ctx context.Context, desired bool) error {
				return v.api.SetFollow(ctx, userID, desired)
			}, v.logger)
	}
	return nil
}

func (v *Profile) isOwn(p *apiclient.Profile) bool {
	return v.viewer != nil && p.User.UserID == v.viewer.UserID
}

// Status returns the load status.
func (v *Profile) Status() Status {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.status
}

// CanFollow reports whether a follow toggle is offered: never on one's own profile.
func (v *Profile) CanFollow() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.follow != nil
}

// ToggleFollow flips whether the viewer follows the shown user.
func (v *Profile) ToggleFollow(ctx context.Context) (*toggle.Result, error) {
	v.mu.Lock()
	follow, loaded := v.follow, v.profile != nil
	v.mu.Unlock()

	switch {
	case !loaded:
		return nil, domain.NewValidationError("profile", "profile is not loaded")
	case follow == nil:
		return nil, domain.NewValidationError("follow", "you cannot follow yourself")
	}
	return follow.Toggle(ctx)
}

// Snapshot returns the renderable state.
func (v *Profile) Snapshot() ProfileSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	snap := ProfileSnapshot{Status: v.status, Posts: []Card{}, Error: errorState(v.lastErr)}
	if v.profile == nil {
		return snap
	}

	user := v.profile.User
	if v.follow != nil {
		s := v.follow.State()
		user.FollowStatus = s.Active
		user.FollowerCount = s.Count
	}
	snap.User = &user
	snap.Posts = cardsOf(v.profile.Posts)
	snap.Own = v.isOwn(v.profile)
	snap.CanFollow = v.follow != nil
	return snap
}
