package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeepedia/jeepedia/internal/models"
)

func newBackendWithUsers(t *testing.T) (*MemoryBackend, int64, int64) {
	t.Helper()
	b := NewMemoryBackend()
	b.now = func() time.Time { return time.Unix(1700000000, 0) }
	ctx := context.Background()
	asha, err := b.CreateUser(ctx, models.Profile{Email: "asha@example.com", Username: "asha"}, []byte("h1"))
	require.NoError(t, err)
	ravi, err := b.CreateUser(ctx, models.Profile{Email: "ravi@example.com", Username: "ravi"}, []byte("h2"))
	require.NoError(t, err)
	return b, asha.ID, ravi.ID
}

func TestMemoryBackend_UsersUnique(t *testing.T) {
	b, asha, _ := newBackendWithUsers(t)
	ctx := context.Background()

	_, err := b.CreateUser(ctx, models.Profile{Email: "ASHA@example.com", Username: "new"}, nil)
	require.ErrorIs(t, err, ErrConflict)

	_, err = b.UpdateUser(ctx, asha, models.ProfileUpdate{Username: "ravi"})
	require.ErrorIs(t, err, ErrConflict)
	require.ErrorIs(t, b.SetEmail(ctx, asha, "ravi@example.com"), ErrConflict)

	u, err := b.UserByEmail(ctx, "asha@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, asha, u.ID)
	_, err = b.UserByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryBackend_EmailToken(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	b.SaveEmailToken(ctx, "Asha@example.com", "tok")

	_, ok := b.ConsumeEmailToken(ctx, "other")
	assert.False(t, ok)
	email, ok := b.ConsumeEmailToken(ctx, "tok")
	assert.True(t, ok)
	assert.Equal(t, "asha@example.com", email)
	_, ok = b.ConsumeEmailToken(ctx, "tok")
	assert.False(t, ok)
}

func TestMemoryBackend_OTP(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()
	b.SaveOTP(ctx, "Asha@example.com", "reset", "123456")

	assert.False(t, b.CheckOTP(ctx, "asha@example.com", "verify", "123456", false))
	assert.False(t, b.CheckOTP(ctx, "asha@example.com", "reset", "000000", false))
	assert.True(t, b.CheckOTP(ctx, "asha@example.com", "reset", "123456", false))
	assert.True(t, b.CheckOTP(ctx, "asha@example.com", "reset", "123456", true))
	assert.False(t, b.CheckOTP(ctx, "asha@example.com", "reset", "123456", false))
}

func TestMemoryBackend_Community(t *testing.T) {
	b, asha, ravi := newBackendWithUsers(t)
	ctx := context.Background()

	p, err := b.CreatePost(ctx, asha, "JEE Main Cutoffs 2024!", "discuss", "chart.PNG", []byte("img"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p.Slug, "jee-main-cutoffs-2024-"), p.Slug)
	assert.Equal(t, "asha", p.User.Username)
	data, ok := b.Media(ctx, "/"+p.Image)
	require.True(t, ok)
	assert.Equal(t, []byte("img"), data)
	assert.True(t, strings.HasSuffix(p.Image, "chart.png"), p.Image)

	second, err := b.CreatePost(ctx, ravi, "Second", "body", "", nil)
	require.NoError(t, err)
	posts := b.Posts(ctx, 0)
	require.Len(t, posts, 2)
	assert.Equal(t, second.ID, posts[0].ID)

	st, err := b.ToggleLike(ctx, p.ID, ravi)
	require.NoError(t, err)
	assert.Equal(t, models.LikeState{LikeCount: 1, UserLiked: true}, st)
	st, err = b.ToggleLike(ctx, p.ID, ravi)
	require.NoError(t, err)
	assert.Equal(t, models.LikeState{LikeCount: 0, UserLiked: false}, st)
	_, _ = b.ToggleLike(ctx, p.ID, asha)

	c1, err := b.AddComment(ctx, p.ID, ravi, "first")
	require.NoError(t, err)
	_, err = b.AddComment(ctx, p.ID, asha, "second")
	require.NoError(t, err)
	r, err := b.AddReply(ctx, c1.ID, asha, "thanks")
	require.NoError(t, err)
	assert.Equal(t, "asha", r.User.Username)
	_, err = b.AddReply(ctx, 12345, asha, "x")
	assert.ErrorIs(t, err, ErrNotFound)

	detail, err := b.PostBySlug(ctx, p.Slug, ravi)
	require.NoError(t, err)
	assert.Equal(t, 1, detail.LikeCount)
	assert.False(t, detail.UserLiked)
	require.Len(t, detail.Comments, 2)
	assert.Equal(t, "second", detail.Comments[0].Content)
	require.Len(t, detail.Comments[1].Replies, 1)
	assert.Equal(t, "thanks", detail.Comments[1].Replies[0].Content)

	_, err = b.PostBySlug(ctx, "missing", 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryBackend_OwnershipChecks(t *testing.T) {
	b, asha, ravi := newBackendWithUsers(t)
	ctx := context.Background()
	p, err := b.CreatePost(ctx, asha, "Mine", "body", "", nil)
	require.NoError(t, err)

	_, err = b.EditPost(ctx, p.ID, ravi, models.PostEdit{Title: "x", Content: "y"})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, b.DeletePost(ctx, p.ID, ravi), ErrForbidden)

	edited, err := b.EditPost(ctx, p.ID, asha, models.PostEdit{Title: "New", Content: "text"})
	require.NoError(t, err)
	assert.Equal(t, "New", edited.Title)
	assert.Len(t, b.PostsByUser(ctx, asha), 1)
	assert.Empty(t, b.PostsByUser(ctx, ravi))

	require.NoError(t, b.DeletePost(ctx, p.ID, asha))
	assert.Empty(t, b.Posts(ctx, asha))
	assert.ErrorIs(t, b.DeletePost(ctx, p.ID, asha), ErrNotFound)
}

func TestMemoryBackend_Feedback(t *testing.T) {
	b, asha, ravi := newBackendWithUsers(t)
	ctx := context.Background()
	b.AddFeedback(ctx, asha, "good", 4)
	b.AddFeedback(ctx, asha, "better", 5)
	b.AddFeedback(ctx, ravi, "meh", 2)

	got := b.Feedbacks(ctx, asha)
	require.Len(t, got, 2)
	assert.Equal(t, "better", got[0].Feedback)

	b.AddContact(ctx, models.ContactMessage{Name: "A"})
	assert.Len(t, b.Contacts(ctx), 1)
}

func TestMemoryBackend_Payments(t *testing.T) {
	b, asha, ravi := newBackendWithUsers(t)
	ctx := context.Background()

	sub, err := b.PreBook(ctx, asha)
	require.NoError(t, err)
	_, err = b.CreateOrder(ctx, ravi, sub, 19900, "INR")
	assert.ErrorIs(t, err, ErrForbidden)

	o, err := b.CreateOrder(ctx, asha, sub, 19900, "INR")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(o.ID, "order_"))
	assert.False(t, b.Subscribed(ctx, asha))

	assert.ErrorIs(t, b.CompleteOrder(ctx, ravi, o.ID), ErrForbidden)
	require.NoError(t, b.CompleteOrder(ctx, asha, o.ID))
	assert.True(t, b.Subscribed(ctx, asha))

	got, err := b.OrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, got.Paid)

	_, err = b.CreateOrder(ctx, asha, sub, 19900, "INR")
	assert.ErrorIs(t, err, ErrConflict)
}
