package http

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/jeepedia/jeepedia/internal/models"
)

// FeedbackStore defines the feedback operations required by the
// FeedbackHandler.
type FeedbackStore interface {
	AddFeedback(ctx context.Context, userID int64, text string, rating int) models.Feedback
	Feedbacks(ctx context.Context, userID int64) []models.Feedback
	AddContact(ctx context.Context, m models.ContactMessage)
}

// FeedbackHandler serves the /feedback/ endpoints.
type FeedbackHandler struct {
	Feedback FeedbackStore
	Log      *zap.Logger
}

// List handles GET /feedback/get_all_feedbacks_by_user/.
func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "feedbacks": h.Feedback.Feedbacks(r.Context(), userID(r))})
}

// Add handles POST /feedback/add_feedback/.
func (h *FeedbackHandler) Add(w http.ResponseWriter, r *http.Request) {
	if !parseMultipart(w, r) {
		return
	}
	text := formValue(r, "feedback")
	rating, err := strconv.Atoi(formValue(r, "rating"))
	if text == "" || err != nil || rating < 1 || rating > 5 {
		writeMessage(w, http.StatusBadRequest, "Feedback and a rating from 1 to 5 are required")
		return
	}
	f := h.Feedback.AddFeedback(r.Context(), userID(r), text, rating)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "Feedback submitted", "feedback_details": f})
}

// Contact handles POST /feedback/contact_us/. It is open to anonymous users.
func (h *FeedbackHandler) Contact(w http.ResponseWriter, r *http.Request) {
	if !parseMultipart(w, r) {
		return
	}
	m := models.ContactMessage{
		Name:    formValue(r, "name"),
		Email:   formValue(r, "email"),
		Subject: formValue(r, "subject"),
		Message: formValue(r, "message"),
	}
	if m.Name == "" || m.Subject == "" || m.Message == "" || !validEmail(m.Email) {
		writeMessage(w, http.StatusBadRequest, "All fields are required")
		return
	}
	h.Feedback.AddContact(r.Context(), m)
	h.Log.Info("contact message received", zap.String("email", m.Email), zap.String("subject", m.Subject))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Thank you for contacting us"})
}
