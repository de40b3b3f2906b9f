package apiclient

import (
	"context"
	"encoding/json"
)

type followRequest struct {
	LoggedUserID   string `json:"loggedUserId"`
	FollowedUserID string `json:"followedUserId"`
}

// Follow makes the current user follow userID.
func (c *Client) Follow(ctx context.Context, userID string) error {
	return c.follow(ctx, "follow.add", "/api/follow/add", userID)
}

// Unfollow removes the current user's follow edge to userID.
func (c *Client) Unfollow(ctx context.Context, userID string) error {
	return c.follow(ctx, "follow.remove", "/api/follow/remove", userID)
}

// SetFollow follows or unfollows userID.
func (c *Client) SetFollow(ctx context.Context, userID string, following bool) error {
	if following {
		return c.Follow(ctx, userID)
	}
	return c.Unfollow(ctx, userID)
}

func (c *Client) follow(ctx context.Context, endpoint, path, userID string) error {
	sess, err := c.session()
	if err != nil {
		return err
	}
	_, err = c.execute(ctx, call{
		endpoint:      endpoint,
		path:          path,
		body:          followRequest{LoggedUserID: sess.UserID, FollowedUserID: userID},
		result:        &ack{},
		authenticated: true,
	})
	return err
}

// FollowStatus reports whether the current user follows userID.
func (c *Client) FollowStatus(ctx context.Context, userID string) (bool, error) {
	sess, err := c.session()
	if err != nil {
		return false, err
	}

	var raw json.RawMessage
	resp, err := c.execute(ctx, call{
		endpoint:      "follow.status",
		path:          "/api/follow/status",
		body:          followRequest{LoggedUserID: sess.UserID, FollowedUserID: userID},
		result:        &raw,
		authenticated: true,
	})
	if err != nil {
		return false, err
	}
	following, err := decodeBool(raw, "followStatus")
	if err != nil {
		return false, malformedError("follow.status", resp.Header().Get(requestIDHeader), err)
	}
	return following, nil
}
