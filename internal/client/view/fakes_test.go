package view

import (
	"context"
	"sync"

	"github.com/jeepedia/jeepedia/internal/apperror"
	"github.com/jeepedia/jeepedia/internal/models"
)

type fakeSession struct {
	mu      sync.Mutex
	authed  bool
	profile *models.Profile
	updates int
}

func loggedIn() *fakeSession {
	return &fakeSession{authed: true, profile: &models.Profile{ID: 1, Username: "asha", FirstName: "Asha"}}
}

func (s *fakeSession) RequireAuth() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authed {
		return apperror.Unauthenticated()
	}
	return nil
}

func (s *fakeSession) Profile() *models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile.Clone()
}

func (s *fakeSession) UpdateProfile(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = p.Clone()
	s.updates++
	return nil
}

// fakeCommunity records calls; unset hooks return zero values.
type fakeCommunity struct {
	mu    sync.Mutex
	calls map[string]int

	posts         func(ctx context.Context) ([]models.Post, error)
	createPost    func(p models.NewPost) (*models.Post, error)
	postBySlug    func(ctx context.Context, slug string) (*models.PostDetail, error)
	toggleLike    func(ctx context.Context, id int64) (models.LikeState, error)
	createComment func(ctx context.Context, id int64, content string) (*models.Comment, error)
	createReply   func(ctx context.Context, id int64, content string) (*models.Reply, error)
	postsByUser   func() ([]models.Post, error)
	deletePost    func(id int64) (string, error)
	editPost      func(id int64, e models.PostEdit) (*models.Post, error)
}

func (f *fakeCommunity) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func (f *fakeCommunity) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeCommunity) Posts(ctx context.Context) ([]models.Post, error) {
	f.record("posts")
	return f.posts(ctx)
}

func (f *fakeCommunity) CreatePost(_ context.Context, p models.NewPost) (*models.Post, error) {
	f.record("create")
	return f.createPost(p)
}

func (f *fakeCommunity) PostBySlug(ctx context.Context, slug string) (*models.PostDetail, error) {
	f.record("detail")
	return f.postBySlug(ctx, slug)
}

func (f *fakeCommunity) ToggleLike(ctx context.Context, id int64) (models.LikeState, error) {
	f.record("like")
	return f.toggleLike(ctx, id)
}

func (f *fakeCommunity) CreateComment(ctx context.Context, id int64, content string) (*models.Comment, error) {
	f.record("comment")
	return f.createComment(ctx, id, content)
}

func (f *fakeCommunity) CreateReply(ctx context.Context, id int64, content string) (*models.Reply, error) {
	f.record("reply")
	return f.createReply(ctx, id, content)
}

func (f *fakeCommunity) PostsByUser(context.Context) ([]models.Post, error) {
	f.record("mine")
	return f.postsByUser()
}

func (f *fakeCommunity) DeletePost(_ context.Context, id int64) (string, error) {
	f.record("delete")
	return f.deletePost(id)
}

func (f *fakeCommunity) EditPost(_ context.Context, id int64, e models.PostEdit) (*models.Post, error) {
	f.record("edit")
	return f.editPost(id, e)
}

type fakeFeedback struct {
	items   []models.Feedback
	added   *models.Feedback
	err     error
	submits int
	contact int
}

func (f *fakeFeedback) Feedbacks(context.Context) ([]models.Feedback, error) {
	return f.items, nil
}

func (f *fakeFeedback) AddFeedback(_ context.Context, in models.FeedbackInput) (*models.Feedback, error) {
	f.submits++
	if f.err != nil {
		return nil, f.err
	}
	return f.added, nil
}

func (f *fakeFeedback) ContactUs(context.Context, models.ContactMessage) (string, error) {
	f.contact++
	return "Thanks for reaching out", f.err
}

type fakeProfileAPI struct {
	result *models.Profile
	err    error
	sent   []models.ProfileUpdate
}

func (f *fakeProfileAPI) EditUserDetails(_ context.Context, u models.ProfileUpdate) (*models.Profile, error) {
	f.sent = append(f.sent, u)
	return f.result, f.err
}

func (f *fakeProfileAPI) EditProfilePicture(context.Context, string, []byte) (*models.Profile, error) {
	return f.result, f.err
}

func detailFixture() *models.PostDetail {
	return &models.PostDetail{
		Post:      models.Post{ID: 7, Slug: "cutoffs", Title: "Cutoffs"},
		LikeCount: 5,
		UserLiked: false,
		Comments: []models.Comment{
			{ID: 100, Content: "first", Replies: []models.Reply{}},
		},
	}
}

func errServer() error {
	return apperror.RequestFailed(500, "server exploded")
}
