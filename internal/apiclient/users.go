package apiclient

import (
	"context"

	"github.com/bloggera/bloggera/internal/domain"
)

type userDetailsRequest struct {
	Email  string `json:"email"`
	UserID string `json:"userId"`
}

// Profile is a user with the posts they wrote.
type Profile struct {
	User  domain.UserProfile   `json:"user"`
	Posts []domain.PostSummary `json:"posts"`
}

// UserDetails fetches the profile for email. An empty email means the current user.
func (c *Client) UserDetails(ctx context.Context, email string) (*Profile, error) {
	sess, err := c.session()
	if err != nil {
		return nil, err
	}
	if email == "" {
		email = sess.Email
	}

	var out Profile
	if _, err := c.execute(ctx, call{
		endpoint:      "users.userdetails",
		path:          "/api/users/userdetails",
		body:          userDetailsRequest{Email: email, UserID: sess.UserID},
		result:        &out,
		authenticated: true,
	}); err != nil {
		return nil, err
	}
	if out.User.UserID == "" {
		return nil, &Error{
			Endpoint: "users.userdetails",
			Status:   200,
			Code:     CodeNotFound,
			Message:  "No user with email " + email,
			kind:     domain.ErrNotFound,
		}
	}
	return &out, nil
}
