package apiclient

import (
	"context"

	"github.com/bloggera/bloggera/internal/domain"
)

type addCommentRequest struct {
	PostID      string `json:"postId"`
	UserID      string `json:"userId"`
	CommentText string `json:"commentText"`
}

// AddComment appends a comment to postID. Missing response fields are filled from the request.
func (c *Client) AddComment(ctx context.Context, postID, text string) (*domain.Comment, error) {
	sess, err := c.session()
	if err != nil {
		return nil, err
	}

	var out domain.Comment
	if _, err := c.execute(ctx, call{
		endpoint:      "comment.add",
		path:          "/api/comment/add",
		body:          addCommentRequest{PostID: postID, UserID: sess.UserID, CommentText: text},
		result:        &out,
		authenticated: true,
	}); err != nil {
		return nil, err
	}

	if out.PostID == "" {
		out.PostID = postID
	}
	if out.AuthorUserID == "" {
		out.AuthorUserID = sess.UserID
	}
	if out.AuthorUsername == "" {
		out.AuthorUsername = sess.Username
	}
	if out.Text == "" {
		out.Text = text
	}
	return &out, nil
}
