package models

import "time"

// Feedback status labels derived on the client.
const (
	FeedbackDeleted     = "Deleted"
	FeedbackAccepted    = "Accepted"
	FeedbackUnderReview = "Under Review"
)

// Feedback is a rating submitted from the dashboard.
type Feedback struct {
	ID        int64     `json:"id"`
	Feedback  string    `json:"feedback"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	IsDeleted bool      `json:"is_deleted"`
}

// Status derives the display status; the server has no workflow state.
func (f Feedback) Status() string {
	switch {
	case f.IsDeleted:
		return FeedbackDeleted
	case f.Rating >= 4:
		return FeedbackAccepted
	default:
		return FeedbackUnderReview
	}
}

// FeedbackInput is the add_feedback form.
type FeedbackInput struct {
	Feedback string `validate:"required"`
	Rating   int    `validate:"min=1,max=5"`
}

// ContactMessage is the contact_us form.
type ContactMessage struct {
	Name    string `validate:"required"`
	Email   string `validate:"required,email"`
	Subject string `validate:"required"`
	Message string `validate:"required"`
}

// Registration is the user_register form.
type Registration struct {
	FirstName   string `validate:"required"`
	LastName    string `validate:"required"`
	Email       string `validate:"required,email"`
	PhoneNumber string `validate:"required"`
	Username    string `validate:"required"`
	Password    string `validate:"required,min=6"`
}

// ProfileUpdate holds the editable profile fields.
type ProfileUpdate struct {
	FirstName   string
	LastName    string
	Username    string
	PhoneNumber string
}

// ProfileUpdateFrom copies the editable fields of p.
func ProfileUpdateFrom(p *Profile) ProfileUpdate {
	if p == nil {
		return ProfileUpdate{}
	}
	return ProfileUpdate{
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Username:    p.Username,
		PhoneNumber: p.PhoneNumber,
	}
}
