// Package domain provides the Bloggera client's core types and error taxonomy.
package domain

import (
	"context"
	"time"
)

type contextKey string

const sessionContextKey contextKey = "bloggera_session"

// Session is the locally held record asserting which user is authenticated.
type Session struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"profilePicture"`
	Token     string    `json:"token,omitempty"`
	SavedAt   time.Time `json:"savedAt"`
}

// IsValid reports whether the session asserts an identity. A user id is the sole signal.
func (s *Session) IsValid() bool {
	return s != nil && s.UserID != ""
}

// Clone returns a copy safe to hand to callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// WithSession attaches a session to ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// SessionFrom retrieves the session attached by WithSession.
func SessionFrom(ctx context.Context) (*Session, error) {
	s, ok := ctx.Value(sessionContextKey).(*Session)
	if !ok || !s.IsValid() {
		return nil, ErrNoSession
	}
	return s, nil
}
