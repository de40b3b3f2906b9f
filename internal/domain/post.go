package domain

import "time"

// PostSummary is a feed card. Only the viewer's like state is mutable client-side.
type PostSummary struct {
	PostID          string    `json:"postId"`
	AuthorUserID    string    `json:"userId,omitempty"`
	AuthorUsername  string    `json:"username"`
	AuthorEmail     string    `json:"userEmail,omitempty"`
	AuthorAvatarURL string    `json:"profilePicture,omitempty"`
	Title           string    `json:"postTitle"`
	HTMLContent     string    `json:"postContent"`
	ImageURL        string    `json:"postImage,omitempty"`
	LikeCount       int       `json:"likeCount"`
	CommentCount    int       `json:"commentCount"`
	ViewerHasLiked  bool      `json:"likeStatus"`
	CreatedAt       time.Time `json:"createdAt,omitzero"`
}

// PostDetail is a full post with its comments.
type PostDetail struct {
	PostSummary
	Categories []string  `json:"categories,omitempty"`
	Comments   []Comment `json:"comments,omitempty"`
}

// Comment is append-only per post.
type Comment struct {
	CommentID      string    `json:"id"`
	PostID         string    `json:"postId"`
	AuthorUserID   string    `json:"userId"`
	AuthorUsername string    `json:"username,omitempty"`
	Text           string    `json:"commentText"`
	CreatedAt      time.Time `json:"createdAt,omitzero"`
}

// Category is reference data.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// FollowEdge states that Follower follows Followed.
type FollowEdge struct {
	FollowerUserID string
	FollowedUserID string
}

// UserProfile is the profile view's payload.
type UserProfile struct {
	UserID         string `json:"userId"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	AvatarURL      string `json:"profilePicture"`
	Bio            string `json:"bio,omitempty"`
	FollowStatus   bool   `json:"followStatus"`
	FollowerCount  int    `json:"followers,omitempty"`
	FollowingCount int    `json:"following,omitempty"`
}

// Counts is the like/comment tally of a post.
type Counts struct {
	LikeCount    int `json:"likeCount"`
	CommentCount int `json:"commentCount"`
}
