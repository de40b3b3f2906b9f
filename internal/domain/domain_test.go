package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_Kind(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   FilterKind
	}{
		{"empty is home", Filter{}, FilterHome},
		{"whitespace text is home", Filter{Text: "   "}, FilterHome},
		{"text", Filter{Text: "golang"}, FilterText},
		{"categories win over text", Filter{Categories: []string{"Tech"}, Text: "golang"}, FilterCategories},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Kind())
		})
	}
}

func TestFilter_SearchEnabled(t *testing.T) {
	assert.False(t, Filter{}.SearchEnabled())
	assert.False(t, Filter{Text: "go"}.SearchEnabled())
	assert.True(t, Filter{Text: "gop"}.SearchEnabled())
	assert.True(t, Filter{Categories: []string{"Travel"}}.SearchEnabled())

	err := Filter{Text: "ab"}.ValidateSearch()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "query", FieldOf(err))
}

func TestValidationError_Wrapped(t *testing.T) {
	err := fmt.Errorf("submit: %w", NewValidationError("title", "title is required"))

	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrAuth))
	assert.Equal(t, "title", FieldOf(err))
	assert.Equal(t, "", FieldOf(errors.New("other")))
}

func TestAuthError_IsAndUnwrap(t *testing.T) {
	cause := errors.New("401")
	err := &AuthError{Message: "Invalid username or password", Err: cause}

	assert.ErrorIs(t, err, ErrAuth)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Invalid username or password", err.Error())
}

func TestSessionContext(t *testing.T) {
	_, err := SessionFrom(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)

	ctx := WithSession(context.Background(), &Session{UserID: "u1", Username: "ana"})
	s, err := SessionFrom(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", s.UserID)

	ctx = WithSession(context.Background(), &Session{Username: "no-id"})
	_, err = SessionFrom(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSession_Clone(t *testing.T) {
	var nilSession *Session
	assert.Nil(t, nilSession.Clone())
	assert.False(t, nilSession.IsValid())

	s := &Session{UserID: "u1", Token: "t"}
	c := s.Clone()
	c.Token = "changed"
	assert.Equal(t, "t", s.Token)
}
