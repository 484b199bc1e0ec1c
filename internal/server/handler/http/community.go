package http

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/jeepedia/jeepedia/internal/models"
)

// PostStore defines the community operations required by the
// CommunityHandler.
type PostStore interface {
	CreatePost(ctx context.Context, userID int64, title, content, imageName string, image []byte) (models.Post, error)
	Posts(ctx context.Context, viewer int64) []models.Post
	PostsByUser(ctx context.Context, userID int64) []models.Post
	PostBySlug(ctx context.Context, slug string, viewer int64) (models.PostDetail, error)
	ToggleLike(ctx context.Context, postID, userID int64) (models.LikeState, error)
	AddComment(ctx context.Context, postID, userID int64, content string) (models.Comment, error)
	AddReply(ctx context.Context, commentID, userID int64, content string) (models.Reply, error)
	DeletePost(ctx context.Context, postID, userID int64) error
	EditPost(ctx context.Context, postID, userID int64, edit models.PostEdit) (models.Post, error)
}

// CommunityHandler serves the /community/ endpoints.
type CommunityHandler struct {
	Posts PostStore
	Log   *zap.Logger
}

// List handles GET /community/get_all_posts/.
func (h *CommunityHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"post_data": h.Posts.Posts(r.Context(), userID(r))})
}

// BySlug handles GET /community/get_post_by_slug/?slug=.
func (h *CommunityHandler) BySlug(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSpace(r.URL.Query().Get("slug"))
	if slug == "" {
		writeMessage(w, http.StatusBadRequest, "slug is required")
		return
	}
	detail, err := h.Posts.PostBySlug(r.Context(), slug, userID(r))
	if err != nil {
		writeStoreError(w, h.Log, err, "Post not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"post_data": detail})
}

// Create handles POST /community/create_post/ with an optional image part.
func (h *CommunityHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !parseMultipart(w, r) {
		return
	}
	title, content := formValue(r, "title"), formValue(r, "content")
	if title == "" || content == "" {
		writeMessage(w, http.StatusBadRequest, "Title and content are required")
		return
	}
	name, data, _ := readUpload(r, "image")
	p, err := h.Posts.CreatePost(r.Context(), userID(r), title, content, name, data)
	if err != nil {
		writeStoreError(w, h.Log, err, "User not found")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Post created", "post": p})
}

// ToggleLike handles POST /community/toggle_like_view/{id}/.
func (h *CommunityHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	st, err := h.Posts.ToggleLike(r.Context(), id, userID(r))
	if err != nil {
		writeStoreError(w, h.Log, err, "Post not found")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type contentRequest struct {
	Content string `json:"content"`
}

// Comment handles POST /community/create_comment_view/{id}/.
func (h *CommunityHandler) Comment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req contentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeMessage(w, http.StatusBadRequest, "Content is required")
		return
	}
	c, err := h.Posts.AddComment(r.Context(), id, userID(r), strings.TrimSpace(req.Content))
	if err != nil {
		writeStoreError(w, h.Log, err, "Post not found")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"comment": c})
}

// Reply handles POST /community/create_reply/{id}/ where id is a comment.
func (h *CommunityHandler) Reply(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req contentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeMessage(w, http.StatusBadRequest, "Content is required")
		return
	}
	reply, err := h.Posts.AddReply(r.Context(), id, userID(r), strings.TrimSpace(req.Content))
	if err != nil {
		writeStoreError(w, h.Log, err, "Comment not found")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"reply": reply})
}

// Mine handles GET /community/list_posts_by_user/.
func (h *CommunityHandler) Mine(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "posts": h.Posts.PostsByUser(r.Context(), userID(r))})
}

// Delete handles DELETE /community/delete_post/{id}/.
func (h *CommunityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Posts.DeletePost(r.Context(), id, userID(r)); err != nil {
		writeStoreError(w, h.Log, err, "Post not found")
		return
	}
	writeMessage(w, http.StatusOK, "Post deleted successfully")
}

// Edit handles POST /community/edit_post/{id}/.
func (h *CommunityHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var edit models.PostEdit
	if !decodeJSON(w, r, &edit) {
		return
	}
	edit.Title, edit.Content = strings.TrimSpace(edit.Title), strings.TrimSpace(edit.Content)
	if edit.Title == "" || edit.Content == "" {
		writeMessage(w, http.StatusBadRequest, "Title and content are required")
		return
	}
	p, err := h.Posts.EditPost(r.Context(), id, userID(r), edit)
	if err != nil {
		writeStoreError(w, h.Log, err, "Post not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Post updated", "post": p})
}
