package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jeepedia/jeepedia/internal/models"
)

type postListResponse struct {
	PostData []models.Post `json:"post_data"`
}

func (r *postListResponse) Validate() error {
	if r.PostData == nil {
		return errors.New("missing post_data")
	}
	return nil
}

type postDetailResponse struct {
	PostData *models.PostDetail `json:"post_data"`
}

func (r *postDetailResponse) Validate() error {
	if r.PostData == nil {
		return errors.New("missing post_data")
	}
	if r.PostData.Post.ID == 0 {
		return errors.New("post without id")
	}
	return nil
}

type createPostResponse struct {
	Post *models.Post `json:"post"`
}

func (r *createPostResponse) Validate() error {
	if r.Post == nil || r.Post.ID == 0 {
		return errors.New("missing post")
	}
	return nil
}

type likeResponse struct {
	LikeCount *int  `json:"like_count"`
	UserLiked *bool `json:"user_liked"`
}

func (r *likeResponse) Validate() error {
	if r.LikeCount == nil || r.UserLiked == nil {
		return errors.New("missing like state")
	}
	return nil
}

type commentResponse struct {
	Comment *models.Comment `json:"comment"`
}

func (r *commentResponse) Validate() error {
	if r.Comment == nil || r.Comment.ID == 0 {
		return errors.New("missing comment")
	}
	return nil
}

type replyResponse struct {
	Reply *models.Reply `json:"reply"`
}

func (r *replyResponse) Validate() error {
	if r.Reply == nil || r.Reply.ID == 0 {
		return errors.New("missing reply")
	}
	return nil
}

type userPostsResponse struct {
	messageResponse
	Posts []models.Post `json:"posts"`
}

type editPostResponse struct {
	messageResponse
	Post *models.Post `json:"post"`
}

func (r *editPostResponse) Validate() error {
	if r.Post == nil {
		return errors.New("missing post")
	}
	return nil
}

// Posts lists all community posts.
func (c *Client) Posts(ctx context.Context) ([]models.Post, error) {
	var resp postListResponse
	if err := c.Do(ctx, http.MethodGet, "/community/get_all_posts/", RequestOptions{}, &resp); err != nil {
		return nil, err
	}
	return resp.PostData, nil
}

// PostBySlug fetches a post with its like state and comment tree.
func (c *Client) PostBySlug(ctx context.Context, slug string) (*models.PostDetail, error) {
	var resp postDetailResponse
	opts := RequestOptions{Query: url.Values{"slug": {slug}}}
	if err := c.Do(ctx, http.MethodGet, "/community/get_post_by_slug/", opts, &resp); err != nil {
		return nil, err
	}
	if resp.PostData.Comments == nil {
		resp.PostData.Comments = []models.Comment{}
	}
	return resp.PostData, nil
}

// CreatePost submits a new post, optionally with an image.
func (c *Client) CreatePost(ctx context.Context, p models.NewPost) (*models.Post, error) {
	form := NewForm().Set("title", p.Title).Set("content", p.Content)
	if len(p.Image) > 0 {
		form.AddFile("image", p.ImageName, p.Image)
	}
	var resp createPostResponse
	if err := c.Do(ctx, http.MethodPost, "/community/create_post/", RequestOptions{Form: form}, &resp); err != nil {
		return nil, err
	}
	return resp.Post, nil
}

// ToggleLike flips the caller's like and returns the authoritative counter.
func (c *Client) ToggleLike(ctx context.Context, postID int64) (models.LikeState, error) {
	var resp likeResponse
	path := fmt.Sprintf("/community/toggle_like_view/%d/", postID)
	if err := c.Do(ctx, http.MethodPost, path, RequestOptions{}, &resp); err != nil {
		return models.LikeState{}, err
	}
	return models.LikeState{LikeCount: *resp.LikeCount, UserLiked: *resp.UserLiked}, nil
}

// CreateComment adds a top-level comment to a post.
func (c *Client) CreateComment(ctx context.Context, postID int64, content string) (*models.Comment, error) {
	var resp commentResponse
	path := fmt.Sprintf("/community/create_comment_view/%d/", postID)
	opts := RequestOptions{JSON: map[string]string{"content": content}}
	if err := c.Do(ctx, http.MethodPost, path, opts, &resp); err != nil {
		return nil, err
	}
	return resp.Comment, nil
}

// CreateReply answers a comment.
func (c *Client) CreateReply(ctx context.Context, commentID int64, content string) (*models.Reply, error) {
	var resp replyResponse
	path := fmt.Sprintf("/community/create_reply/%d/", commentID)
	opts := RequestOptions{JSON: map[string]string{"content": content}}
	if err := c.Do(ctx, http.MethodPost, path, opts, &resp); err != nil {
		return nil, err
	}
	return resp.Reply, nil
}

// PostsByUser lists the caller's own posts.
func (c *Client) PostsByUser(ctx context.Context) ([]models.Post, error) {
	var resp userPostsResponse
	if err := c.Do(ctx, http.MethodGet, "/community/list_posts_by_user/", RequestOptions{}, &resp); err != nil {
		return nil, err
	}
	if resp.Posts == nil {
		resp.Posts = []models.Post{}
	}
	return resp.Posts, nil
}

// DeletePost removes an owned post.
func (c *Client) DeletePost(ctx context.Context, postID int64) (string, error) {
	var resp messageResponse
	path := fmt.Sprintf("/community/delete_post/%d/", postID)
	if err := c.Do(ctx, http.MethodDelete, path, RequestOptions{}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// EditPost saves the title and content of an owned post.
func (c *Client) EditPost(ctx context.Context, postID int64, edit models.PostEdit) (*models.Post, error) {
	var resp editPostResponse
	path := fmt.Sprintf("/community/edit_post/%d/", postID)
	if err := c.Do(ctx, http.MethodPost, path, RequestOptions{JSON: edit}, &resp); err != nil {
		return nil, err
	}
	return resp.Post, nil
}
