package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/jeepedia/jeepedia/internal/models"
)

type feedbackListResponse struct {
	messageResponse
	Feedbacks []models.Feedback `json:"feedbacks"`
}

type addFeedbackResponse struct {
	messageResponse
	FeedbackDetails *models.Feedback `json:"feedback_details"`
}

func (r *addFeedbackResponse) Validate() error {
	if r.FeedbackDetails == nil {
		return errors.New("missing feedback_details")
	}
	return nil
}

// Feedbacks lists the feedback submitted by the caller.
func (c *Client) Feedbacks(ctx context.Context) ([]models.Feedback, error) {
	var resp feedbackListResponse
	if err := c.Do(ctx, http.MethodGet, "/feedback/get_all_feedbacks_by_user/", RequestOptions{}, &resp); err != nil {
		return nil, err
	}
	if resp.Feedbacks == nil {
		resp.Feedbacks = []models.Feedback{}
	}
	return resp.Feedbacks, nil
}

// AddFeedback submits a rating and returns the stored record.
func (c *Client) AddFeedback(ctx context.Context, in models.FeedbackInput) (*models.Feedback, error) {
	form := NewForm().
		Set("feedback", in.Feedback).
		Set("rating", strconv.Itoa(in.Rating))
	var resp addFeedbackResponse
	if err := c.Do(ctx, http.MethodPost, "/feedback/add_feedback/", RequestOptions{Form: form}, &resp); err != nil {
		return nil, err
	}
	return resp.FeedbackDetails, nil
}

// ContactUs sends a contact message.
func (c *Client) ContactUs(ctx context.Context, m models.ContactMessage) (string, error) {
	form := NewForm().
		Set("name", m.Name).
		Set("email", m.Email).
		Set("subject", m.Subject).
		Set("message", m.Message)
	var resp messageResponse
	if err := c.Do(ctx, http.MethodPost, "/feedback/contact_us/", RequestOptions{Form: form}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}
