package view

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/jeepedia/jeepedia/internal/apperror"
	"github.com/jeepedia/jeepedia/internal/models"
	"github.com/jeepedia/jeepedia/internal/validation"
)

// MyPosts lists the user's own posts with delete and edit. Deletion is a two
// step affair: RequestDelete selects the post and only ConfirmDelete sends
// the request. Edits happen on a detached draft.
type MyPosts struct {
	*Resource[[]models.Post]
	api     CommunityAPI
	session Session

	mu            sync.Mutex
	pendingDelete int64
	editingID     int64
	draft         models.PostEdit
}

// NewMyPosts creates the controller. Loading requires a session.
func NewMyPosts(api CommunityAPI, sess Session, log *zap.Logger) *MyPosts {
	fetch := func(ctx context.Context) ([]models.Post, error) {
		if err := sess.RequireAuth(); err != nil {
			return nil, err
		}
		return api.PostsByUser(ctx)
	}
	return &MyPosts{
		Resource: NewResource("my posts", fetch, clonePosts, log),
		api:      api,
		session:  sess,
	}
}

// Posts returns the loaded posts.
func (m *MyPosts) Posts() []models.Post {
	_, posts, _ := m.Snapshot()
	return posts
}

func (m *MyPosts) find(id int64) (models.Post, bool) {
	for _, p := range m.Posts() {
		if p.ID == id {
			return p, true
		}
	}
	return models.Post{}, false
}

// RequestDelete selects a post for deletion. Nothing is sent yet.
func (m *MyPosts) RequestDelete(id int64) error {
	if _, ok := m.find(id); !ok {
		return m.Fail(apperror.NotFound("post", strconv.FormatInt(id, 10)))
	}
	m.mu.Lock()
	m.pendingDelete = id
	m.mu.Unlock()
	return nil
}

// PendingDelete returns the post awaiting confirmation, if any.
func (m *MyPosts) PendingDelete() (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pendingDelete, m.pendingDelete != 0
}

// CancelDelete drops the pending deletion.
func (m *MyPosts) CancelDelete() {
	m.mu.Lock()
	m.pendingDelete = 0
	m.mu.Unlock()
}

// clearPendingDelete drops the selection if it still names id.
func (m *MyPosts) clearPendingDelete(id int64) {
	m.mu.Lock()
	if m.pendingDelete == id {
		m.pendingDelete = 0
	}
	m.mu.Unlock()
}

// ConfirmDelete deletes the selected post. It stays in the list until the
// server confirms.
func (m *MyPosts) ConfirmDelete(ctx context.Context) error {
	if err := m.session.RequireAuth(); err != nil {
		return m.Fail(err)
	}
	id, ok := m.PendingDelete()
	if !ok {
		return m.Fail(apperror.Invalid("post", "no post selected for deletion"))
	}
	return m.Run(ctx, "delete post", func(ctx context.Context) error {
		defer m.clearPendingDelete(id)
		if _, err := m.api.DeletePost(ctx, id); err != nil {
			return err
		}
		m.Mutate(func(posts *[]models.Post) {
			*posts = slices.DeleteFunc(slices.Clone(*posts), func(p models.Post) bool { return p.ID == id })
		})
		return nil
	})
}

// BeginEdit copies the post's editable fields into a draft.
func (m *MyPosts) BeginEdit(id int64) error {
	p, ok := m.find(id)
	if !ok {
		return m.Fail(apperror.NotFound("post", strconv.FormatInt(id, 10)))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editingID = id
	m.draft = models.PostEdit{Title: p.Title, Content: p.Content}
	return nil
}

// Draft returns the post being edited and its working copy.
func (m *MyPosts) Draft() (int64, models.PostEdit, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.editingID, m.draft, m.editingID != 0
}

// CancelEdit discards the draft. The list is untouched.
func (m *MyPosts) CancelEdit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editingID = 0
	m.draft = models.PostEdit{}
}

// SaveEdit sends edit for the post opened with BeginEdit and replaces it in
// the list with the server's copy. The draft survives a failure.
func (m *MyPosts) SaveEdit(ctx context.Context, edit models.PostEdit) error {
	if err := m.session.RequireAuth(); err != nil {
		return m.Fail(err)
	}
	m.mu.Lock()
	id := m.editingID
	if id != 0 {
		m.draft = edit
	}
	m.mu.Unlock()
	if id == 0 {
		return m.Fail(apperror.Invalid("post", "no post is being edited"))
	}
	if err := validation.Struct(edit); err != nil {
		return m.Fail(err)
	}

	return m.Run(ctx, "edit post", func(ctx context.Context) error {
		post, err := m.api.EditPost(ctx, id, edit)
		if err != nil {
			return err
		}
		m.Mutate(func(posts *[]models.Post) {
			next := slices.Clone(*posts)
			for i := range next {
				if next[i].ID == id {
					next[i] = *post
				}
			}
			*posts = next
		})
		m.CancelEdit()
		return nil
	})
}
