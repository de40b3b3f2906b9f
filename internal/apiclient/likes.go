package apiclient

import (
	"context"
	"encoding/json"

	"github.com/bloggera/bloggera/internal/domain"
)

type likeRequest struct {
	UserID string `json:"userId"`
	PostID string `json:"postId"`
}

// AddLike likes postID as the current user.
func (c *Client) AddLike(ctx context.Context, postID string) error {
	return c.like(ctx, "like.add", "/api/like/addlike", postID)
}

// RemoveLike unlikes postID as the current user.
func (c *Client) RemoveLike(ctx context.Context, postID string) error {
	return c.like(ctx, "like.remove", "/api/like/removelike", postID)
}

// SetLike adds or removes the current user's like.
func (c *Client) SetLike(ctx context.Context, postID string, liked bool) error {
	if liked {
		return c.AddLike(ctx, postID)
	}
	return c.RemoveLike(ctx, postID)
}

func (c *Client) like(ctx context.Context, endpoint, path, postID string) error {
	sess, err := c.session()
	if err != nil {
		return err
	}
	_, err = c.execute(ctx, call{
		endpoint:      endpoint,
		path:          path,
		body:          likeRequest{UserID: sess.UserID, PostID: postID},
		result:        &ack{},
		authenticated: true,
	})
	return err
}

// LikeStatus reports whether the current user likes postID.
func (c *Client) LikeStatus(ctx context.Context, postID string) (bool, error) {
	sess, err := c.session()
	if err != nil {
		return false, err
	}

	var raw json.RawMessage
	resp, err := c.execute(ctx, call{
		endpoint:      "like.status",
		path:          "/api/like/likeStatus",
		body:          likeRequest{UserID: sess.UserID, PostID: postID},
		result:        &raw,
		authenticated: true,
	})
	if err != nil {
		return false, err
	}
	liked, err := decodeBool(raw, "likeStatus")
	if err != nil {
		return false, malformedError("like.status", resp.Header().Get(requestIDHeader), err)
	}
	return liked, nil
}

// LikeCounts fetches the like and comment tally of postID.
func (c *Client) LikeCounts(ctx context.Context, postID string) (domain.Counts, error) {
	var out domain.Counts
	_, err := c.execute(ctx, call{
		endpoint:      "like.count",
		path:          "/api/like/getCount",
		body:          map[string]string{"postId": postID},
		result:        &out,
		authenticated: true,
	})
	return out, err
}
