package apiclient

import (
	"bytes"
	"context"
	"errors"
	"net/url"

	"github.com/go-resty/resty/v2"

	"github.com/bloggera/bloggera/internal/domain"
)

var errMissingUserID = errors.New("response carries no userId")

type cardDetailsRequest struct {
	UserID      string   `json:"userId"`
	ExcludedIDs []string `json:"excludedIds"`
}

// CardDetails fetches one page of the home feed, skipping excludedIDs.
func (c *Client) CardDetails(ctx context.Context, excludedIDs []string) ([]domain.PostSummary, error) {
	sess, err := c.session()
	if err != nil {
		return nil, err
	}

	var out []domain.PostSummary
	if _, err := c.execute(ctx, call{
		endpoint:      "posts.cardDetails",
		path:          "/api/posts/cardDetails",
		body:          cardDetailsRequest{UserID: sess.UserID, ExcludedIDs: nonNil(excludedIDs)},
		result:        &out,
		authenticated: true,
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchRequest is the body of /api/posts/search. When categories are given the
// server ignores text, so Text is sent as null.
type SearchRequest struct {
	ExcludedIDs      []string `json:"excludedIds"`
	ListOfCategories []string `json:"listOfCategories"`
	UserID           string   `json:"userId"`
	Text             *string  `json:"text"`
	Sample           int      `json:"sample"`
}

// NewSearchRequest builds a search body from a filter.
func NewSearchRequest(filter domain.Filter, excludedIDs []string) SearchRequest {
	req := SearchRequest{
		ExcludedIDs: nonNil(excludedIDs),
		Sample:      filter.Sample,
	}
	switch filter.Kind() {
	case domain.FilterCategories:
		req.ListOfCategories = filter.Categories
	case domain.FilterText:
		text := filter.Text
		req.Text = &text
	}
	return req
}

// SearchPosts fetches one page of search results.
func (c *Client) SearchPosts(ctx context.Context, req SearchRequest) ([]domain.PostSummary, error) {
	sess, err := c.session()
	if err != nil {
		return nil, err
	}
	req.UserID = sess.UserID
	req.ExcludedIDs = nonNil(req.ExcludedIDs)

	var out []domain.PostSummary
	if _, err := c.execute(ctx, call{
		endpoint:      "posts.search",
		path:          "/api/posts/search",
		body:          req,
		result:        &out,
		authenticated: true,
	}); err != nil {
		return nil, err
	}
	return out, nil
}

type postRequest struct {
	PostID string `json:"postId"`
	UserID string `json:"userId"`
}

// FullPostDetails fetches a post with its comments.
func (c *Client) FullPostDetails(ctx context.Context, postID string) (*domain.PostDetail, error) {
	sess, err := c.session()
	if err != nil {
		return nil, err
	}

	var out domain.PostDetail
	if _, err := c.execute(ctx, call{
		endpoint:      "posts.fullPostDetails",
		path:          "/api/posts/fullPostDetails",
		body:          postRequest{PostID: postID, UserID: sess.UserID},
		result:        &out,
		authenticated: true,
	}); err != nil {
		return nil, err
	}
	if out.PostID == "" {
		out.PostID = postID
	}
	return &out, nil
}

// NewPost is the multipart payload of /api/posts/addPost.
type NewPost struct {
	Title       string
	Content     string
	CategoryIDs []string
	Image       *Upload
}

// Upload is a file attached to a multipart request.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
}

type addPostResponse struct {
	PostID string `json:"postId"`
	Status string `json:"status"`
}

// AddPost creates a post and returns its id.
func (c *Client) AddPost(ctx context.Context, post NewPost) (string, error) {
	sess, err := c.session()
	if err != nil {
		return "", err
	}

	var out addPostResponse
	if _, err := c.execute(ctx, call{
		endpoint:      "posts.addPost",
		path:          "/api/posts/addPost",
		result:        &out,
		authenticated: true,
		prepare: func(r *resty.Request) {
			r.SetMultipartFormData(map[string]string{
				"userId":  sess.UserID,
				"title":   post.Title,
				"content": post.Content,
			})
			r.SetFormDataFromValues(url.Values{"category": post.CategoryIDs})
			if post.Image != nil {
				r.SetMultipartField("postImage", post.Image.FileName, post.Image.ContentType, bytes.NewReader(post.Image.Data))
			}
		},
	}); err != nil {
		return "", err
	}
	return out.PostID, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
