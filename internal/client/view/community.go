package view

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeepedia/jeepedia/internal/apperror"
	"github.com/jeepedia/jeepedia/internal/models"
	"github.com/jeepedia/jeepedia/internal/validation"
)

// PostFeed is the community landing page: every post, newest first as the
// server orders them.
type PostFeed struct {
	*Resource[[]models.Post]
	api     CommunityAPI
	session Session
}

// NewPostFeed creates the feed controller.
func NewPostFeed(api CommunityAPI, sess Session, log *zap.Logger) *PostFeed {
	return &PostFeed{
		Resource: NewResource("posts", api.Posts, clonePosts, log),
		api:      api,
		session:  sess,
	}
}

// Posts returns the loaded posts.
func (f *PostFeed) Posts() []models.Post {
	_, posts, _ := f.Snapshot()
	return posts
}

// Create submits a post and prepends the server's copy once it is stored.
func (f *PostFeed) Create(ctx context.Context, p models.NewPost) error {
	if err := f.session.RequireAuth(); err != nil {
		return f.Fail(err)
	}
	if err := validation.Struct(p); err != nil {
		return f.Fail(err)
	}
	return f.Run(ctx, "create post", func(ctx context.Context) error {
		post, err := f.api.CreatePost(ctx, p)
		if err != nil {
			return err
		}
		f.Mutate(func(posts *[]models.Post) {
			*posts = append([]models.Post{*post}, *posts...)
		})
		return nil
	})
}

// PostDetail is a single post with its like counter and comment tree.
type PostDetail struct {
	*Resource[models.PostDetail]
	api     CommunityAPI
	session Session
	now     func() time.Time
}

// NewPostDetail creates the controller for the post identified by slug.
func NewPostDetail(api CommunityAPI, sess Session, slug string, log *zap.Logger) *PostDetail {
	fetch := func(ctx context.Context) (models.PostDetail, error) {
		d, err := api.PostBySlug(ctx, slug)
		if err != nil {
			return models.PostDetail{}, err
		}
		return *d, nil
	}
	return &PostDetail{
		Resource: NewResource("post "+slug, fetch, clonePostDetail, log),
		api:      api,
		session:  sess,
		now:      time.Now,
	}
}

// Detail returns a copy of the loaded post.
func (d *PostDetail) Detail() models.PostDetail {
	_, detail, _ := d.Snapshot()
	return detail
}

// ToggleLike flips the like locally, then adopts the server's counter. On
// failure the previous counter and flag are restored exactly, unless a
// refresh replaced the post in the meantime.
func (d *PostDetail) ToggleLike(ctx context.Context) error {
	if err := d.session.RequireAuth(); err != nil {
		return d.Fail(err)
	}
	return d.Run(ctx, "like", func(ctx context.Context) error {
		var (
			postID int64
			prev   models.LikeState
		)
		gen, _ := d.MutateTracked(func(pd *models.PostDetail) {
			postID = pd.Post.ID
			prev = models.LikeState{LikeCount: pd.LikeCount, UserLiked: pd.UserLiked}
			if pd.UserLiked {
				pd.LikeCount--
			} else {
				pd.LikeCount++
			}
			pd.UserLiked = !pd.UserLiked
		})
		if postID == 0 {
			return apperror.Invalid("post", "post is not loaded")
		}

		state, err := d.api.ToggleLike(ctx, postID)
		d.MutateIf(gen, func(pd *models.PostDetail) {
			if err != nil {
				pd.LikeCount, pd.UserLiked = prev.LikeCount, prev.UserLiked
				return
			}
			pd.LikeCount, pd.UserLiked = state.LikeCount, state.UserLiked
		})
		return err
	})
}

// AddComment shows the comment immediately as pending, then replaces it with
// the server's copy or removes it on failure.
func (d *PostDetail) AddComment(ctx context.Context, content string) error {
	if err := d.session.RequireAuth(); err != nil {
		return d.Fail(err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return d.Fail(apperror.Invalid("content", "Comment cannot be empty"))
	}

	author := authorOf(d.session.Profile())
	tempID := uuid.NewString()

	return d.Run(ctx, "comment", func(ctx context.Context) error {
		var postID int64
		gen, applied := d.MutateTracked(func(pd *models.PostDetail) {
			postID = pd.Post.ID
			pending := models.Comment{
				User:      author,
				Content:   content,
				CreatedAt: d.now(),
				Replies:   []models.Reply{},
				Pending:   true,
				TempID:    tempID,
			}
			pd.Comments = append([]models.Comment{pending}, pd.Comments...)
		})
		if !applied {
			return apperror.Invalid("post", "post is not loaded")
		}

		comment, err := d.api.CreateComment(ctx, postID, content)
		d.MutateIf(gen, func(pd *models.PostDetail) {
			i := slices.IndexFunc(pd.Comments, func(c models.Comment) bool { return c.TempID == tempID })
			if i < 0 {
				return
			}
			if err != nil {
				pd.Comments = slices.Delete(pd.Comments, i, i+1)
				return
			}
			confirmed := *comment
			if confirmed.Replies == nil {
				confirmed.Replies = []models.Reply{}
			}
			if confirmed.CreatedAt.IsZero() {
				confirmed.CreatedAt = pd.Comments[i].CreatedAt
			}
			pd.Comments[i] = confirmed
		})
		return err
	})
}

// AddReply answers a stored comment with the same pending strategy as
// AddComment.
func (d *PostDetail) AddReply(ctx context.Context, commentID int64, content string) error {
	if err := d.session.RequireAuth(); err != nil {
		return d.Fail(err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return d.Fail(apperror.Invalid("content", "Reply cannot be empty"))
	}
	if commentID == 0 {
		return d.Fail(apperror.Invalid("comment", "comment is not saved yet"))
	}

	author := authorOf(d.session.Profile())
	tempID := uuid.NewString()

	return d.Run(ctx, "reply", func(ctx context.Context) error {
		found := false
		gen, _ := d.MutateTracked(func(pd *models.PostDetail) {
			i := slices.IndexFunc(pd.Comments, func(c models.Comment) bool { return c.ID == commentID })
			if i < 0 {
				return
			}
			found = true
			pending := models.Reply{
				User:      author,
				Content:   content,
				CreatedAt: d.now(),
				Pending:   true,
				TempID:    tempID,
			}
			pd.Comments[i].Replies = append([]models.Reply{pending}, pd.Comments[i].Replies...)
		})
		if !found {
			return apperror.NotFound("comment", strconv.FormatInt(commentID, 10))
		}

		reply, err := d.api.CreateReply(ctx, commentID, content)
		d.MutateIf(gen, func(pd *models.PostDetail) {
			ci := slices.IndexFunc(pd.Comments, func(c models.Comment) bool { return c.ID == commentID })
			if ci < 0 {
				return
			}
			replies := pd.Comments[ci].Replies
			ri := slices.IndexFunc(replies, func(r models.Reply) bool { return r.TempID == tempID })
			if ri < 0 {
				return
			}
			if err != nil {
				pd.Comments[ci].Replies = slices.Delete(replies, ri, ri+1)
				return
			}
			confirmed := *reply
			if confirmed.CreatedAt.IsZero() {
				confirmed.CreatedAt = replies[ri].CreatedAt
			}
			replies[ri] = confirmed
		})
		return err
	})
}

func clonePosts(p []models.Post) []models.Post {
	return slices.Clone(p)
}

func clonePostDetail(d models.PostDetail) models.PostDetail {
	d.Comments = slices.Clone(d.Comments)
	for i := range d.Comments {
		d.Comments[i].Replies = slices.Clone(d.Comments[i].Replies)
	}
	return d
}
