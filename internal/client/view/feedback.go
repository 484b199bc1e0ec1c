package view

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/jeepedia/jeepedia/internal/models"
	"github.com/jeepedia/jeepedia/internal/validation"
)

// Feedbacks is the dashboard list of the user's submitted feedback.
type Feedbacks struct {
	*Resource[[]models.Feedback]
	api     FeedbackAPI
	session Session
}

// NewFeedbacks creates the controller. Loading requires a session.
func NewFeedbacks(api FeedbackAPI, sess Session, log *zap.Logger) *Feedbacks {
	fetch := func(ctx context.Context) ([]models.Feedback, error) {
		if err := sess.RequireAuth(); err != nil {
			return nil, err
		}
		return api.Feedbacks(ctx)
	}
	clone := func(f []models.Feedback) []models.Feedback { return slices.Clone(f) }
	return &Feedbacks{
		Resource: NewResource("feedbacks", fetch, clone, log),
		api:      api,
		session:  sess,
	}
}

// Items returns the loaded feedback.
func (f *Feedbacks) Items() []models.Feedback {
	_, items, _ := f.Snapshot()
	return items
}

// Submit sends a rating and prepends the stored record.
func (f *Feedbacks) Submit(ctx context.Context, in models.FeedbackInput) error {
	if err := f.session.RequireAuth(); err != nil {
		return f.Fail(err)
	}
	if err := validation.Struct(in); err != nil {
		return f.Fail(err)
	}
	return f.Run(ctx, "submit feedback", func(ctx context.Context) error {
		fb, err := f.api.AddFeedback(ctx, in)
		if err != nil {
			return err
		}
		f.Mutate(func(items *[]models.Feedback) {
			*items = append([]models.Feedback{*fb}, *items...)
		})
		return nil
	})
}

// ContactForm sends contact messages. It needs no session.
type ContactForm struct {
	*Resource[string]
	api FeedbackAPI
}

// NewContactForm creates the controller. Its data is the last server
// acknowledgement.
func NewContactForm(api FeedbackAPI, log *zap.Logger) *ContactForm {
	empty := func(context.Context) (string, error) { return "", nil }
	return &ContactForm{Resource: NewResource("contact", empty, nil, log), api: api}
}

// Send validates m and submits it.
func (c *ContactForm) Send(ctx context.Context, m models.ContactMessage) (string, error) {
	if err := validation.Struct(m); err != nil {
		return "", c.Fail(err)
	}
	var ack string
	err := c.Run(ctx, "contact", func(ctx context.Context) error {
		msg, err := c.api.ContactUs(ctx, m)
		if err != nil {
			return err
		}
		if msg == "" {
			msg = "Message sent"
		}
		ack = msg
		c.Mutate(func(s *string) { *s = msg })
		return nil
	})
	return ack, err
}
