package view

import (
	"context"

	"github.com/jeepedia/jeepedia/internal/models"
)

// Session is the part of the session provider the controllers read.
type Session interface {
	RequireAuth() error
	Profile() *models.Profile
}

// ProfileSession can also replace the cached profile.
type ProfileSession interface {
	Session
	UpdateProfile(ctx context.Context, p *models.Profile) error
}

// CommunityAPI is the community part of the request client.
type CommunityAPI interface {
	Posts(ctx context.Context) ([]models.Post, error)
	CreatePost(ctx context.Context, p models.NewPost) (*models.Post, error)
	PostBySlug(ctx context.Context, slug string) (*models.PostDetail, error)
	ToggleLike(ctx context.Context, postID int64) (models.LikeState, error)
	CreateComment(ctx context.Context, postID int64, content string) (*models.Comment, error)
	CreateReply(ctx context.Context, commentID int64, content string) (*models.Reply, error)
	PostsByUser(ctx context.Context) ([]models.Post, error)
	DeletePost(ctx context.Context, postID int64) (string, error)
	EditPost(ctx context.Context, postID int64, edit models.PostEdit) (*models.Post, error)
}

// FeedbackAPI is the feedback part of the request client.
type FeedbackAPI interface {
	Feedbacks(ctx context.Context) ([]models.Feedback, error)
	AddFeedback(ctx context.Context, in models.FeedbackInput) (*models.Feedback, error)
	ContactUs(ctx context.Context, m models.ContactMessage) (string, error)
}

// ProfileAPI saves profile changes.
type ProfileAPI interface {
	EditUserDetails(ctx context.Context, u models.ProfileUpdate) (*models.Profile, error)
	EditProfilePicture(ctx context.Context, filename string, data []byte) (*models.Profile, error)
}

// CheckoutFlow runs the pre-book, order and verify steps of a payment.
type CheckoutFlow interface {
	Start(ctx context.Context) (models.PaymentSession, error)
	CreateOrder(ctx context.Context, subscriptionID string, amount int64) (models.PaymentSession, error)
	Verify(ctx context.Context, conf models.PaymentConfirmation) error
}

// authorOf builds the author shown on locally created comments and replies.
func authorOf(p *models.Profile) models.Author {
	if p == nil {
		return models.Author{}
	}
	return models.Author{
		ID:             p.ID,
		Username:       p.Username,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		ProfilePicture: p.ProfilePicture,
	}
}
