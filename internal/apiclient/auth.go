package apiclient

import (
	"context"
	"strings"
	"time"

	"github.com/bloggera/bloggera/internal/domain"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authUser struct {
	UserID         string `json:"userId"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profilePicture"`
}

type loginResponse struct {
	User  authUser `json:"user"`
	Token string   `json:"token"`
}

// Login exchanges credentials for a session carrying the server-issued token.
// The token comes from the body's token field or a Bearer Authorization header.
func (c *Client) Login(ctx context.Context, username, password string) (*domain.Session, error) {
	var out loginResponse
	resp, err := c.execute(ctx, call{
		endpoint: "auth.login",
		path:     "/auth/users/login",
		body:     credentials{Username: username, Password: password},
		result:   &out,
	})
	if err != nil {
		return nil, err
	}

	token := out.Token
	if token == "" {
		token = bearerToken(resp.Header().Get("Authorization"))
	}

	if out.User.UserID == "" {
		return nil, malformedError("auth.login", resp.Header().Get(requestIDHeader), errMissingUserID)
	}

	return &domain.Session{
		UserID:    out.User.UserID,
		Username:  out.User.Username,
		Email:     out.User.Email,
		AvatarURL: out.User.ProfilePicture,
		Token:     token,
		SavedAt:   time.Now().UTC(),
	}, nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, username, password string) (*domain.UserProfile, error) {
	var out authUser
	if _, err := c.execute(ctx, call{
		endpoint: "auth.register",
		path:     "/auth/users/register",
		body:     credentials{Username: username, Password: password},
		result:   &out,
	}); err != nil {
		return nil, err
	}

	return &domain.UserProfile{
		UserID:    out.UserID,
		Username:  out.Username,
		Email:     out.Email,
		AvatarURL: out.ProfilePicture,
	}, nil
}

// Logout notifies the server that token is no longer in use.
func (c *Client) Logout(ctx context.Context, token string) error {
	_, err := c.execute(ctx, call{
		endpoint: "auth.logout",
		path:     "/auth/users/logout",
		body:     struct{}{},
		token:    token,
	})
	return err
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
