package models

import "time"

// Author is the user embedded in posts, comments and replies.
type Author struct {
	ID             int64  `json:"id"`
	Username       string `json:"username"`
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

// Post is a community discussion post.
type Post struct {
	ID        int64     `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Image     string    `json:"image,omitempty"`
	User      Author    `json:"user"`
	CreatedAt time.Time `json:"created_at"`
	LikeCount int       `json:"like_count"`
	UserLiked bool      `json:"user_liked"`
	Comments  []Comment `json:"comments,omitempty"`
}

// Comment is a top-level answer on a post.
type Comment struct {
	ID        int64     `json:"id"`
	User      Author    `json:"user"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Replies   []Reply   `json:"replies"`
	// Pending marks a comment synthesized locally and not yet confirmed.
	Pending bool `json:"-"`
	// TempID identifies a pending comment until the server assigns an ID.
	TempID string `json:"-"`
}

// Reply is an answer to a comment.
type Reply struct {
	ID        int64     `json:"id"`
	User      Author    `json:"user"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Pending   bool      `json:"-"`
	TempID    string    `json:"-"`
}

// PostDetail is the payload of get_post_by_slug.
type PostDetail struct {
	Post      Post      `json:"post"`
	LikeCount int       `json:"like_count"`
	UserLiked bool      `json:"user_liked"`
	Comments  []Comment `json:"comments"`
}

// LikeState is the authoritative like counter for a post.
type LikeState struct {
	LikeCount int  `json:"like_count"`
	UserLiked bool `json:"user_liked"`
}

// NewPost is the multipart submission for create_post.
type NewPost struct {
	Title     string `validate:"required,max=200"`
	Content   string `validate:"required"`
	ImageName string
	Image     []byte
}

// PostEdit carries the editable fields of an owned post.
type PostEdit struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}
