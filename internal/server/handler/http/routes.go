package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/jeepedia/jeepedia/internal/middleware"
)

// MediaStore serves uploaded files.
type MediaStore interface {
	Media(ctx context.Context, path string) ([]byte, bool)
}

// Handlers groups the endpoint handlers mounted by NewRouter.
type Handlers struct {
	Auth      *AuthHandler
	Community *CommunityHandler
	Feedback  *FeedbackHandler
	Payments  *PaymentHandler
	Predictor *PredictorHandler
	Media     MediaStore
}

// NewRouter constructs the stub API.
//
// Middleware chain (applied in order):
//  1. Recoverer                  turns panics into 500s
//  2. WithRequestLogging(logger) logs every request
//  3. AllowContentType           JSON, multipart and urlencoded bodies only
//
// Login, registration, the OTP endpoints, the post list and detail, contact
// and media are public; the post list and detail still identify a caller
// that sends a token. Everything else requires a bearer token.
func NewRouter(h Handlers, tokens *middleware.Tokens, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.AllowContentType("application/json", "multipart/form-data", "application/x-www-form-urlencoded"))

	// Public endpoints
	r.Group(func(r chi.Router) {
		r.Post("/user/user_login/", h.Auth.Login)
		r.Post("/user/user_register/", h.Auth.Register)
		r.Post("/user/forgot-password/", h.Auth.ForgotPassword)
		r.Post("/user/verify-otp/", h.Auth.VerifyOTP)
		r.Post("/user/reset-password/", h.Auth.ResetPassword)
		r.Post("/user/send-verification-otp/", h.Auth.SendVerificationOTP)
		r.Post("/user/verify-email-otp/", h.Auth.VerifyEmailOTP)
		r.Get("/user/verify_email/", h.Auth.VerifyEmailToken)
		r.Post("/feedback/contact_us/", h.Feedback.Contact)
		r.Get("/media/*", serveMedia(h.Media))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalBearer(tokens))
		r.Get("/community/get_all_posts/", h.Community.List)
		r.Get("/community/get_post_by_slug/", h.Community.BySlug)
	})

	// Protected group: requires a valid bearer token
	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(tokens))

		r.Get("/user/user_details/", h.Auth.UserDetails)
		r.Post("/user/edit_user_details/", h.Auth.EditUserDetails)
		r.Post("/user/edit_profile_picture/", h.Auth.EditProfilePicture)
		r.Post("/users/change_password/", h.Auth.ChangePassword)
		r.Post("/users/change_email/", h.Auth.ChangeEmail)

		r.Post("/community/create_post/", h.Community.Create)
		r.Post("/community/toggle_like_view/{id}/", h.Community.ToggleLike)
		r.Post("/community/create_comment_view/{id}/", h.Community.Comment)
		r.Post("/community/create_reply/{id}/", h.Community.Reply)
		r.Get("/community/list_posts_by_user/", h.Community.Mine)
		r.Delete("/community/delete_post/{id}/", h.Community.Delete)
		r.Post("/community/edit_post/{id}/", h.Community.Edit)

		r.Get("/feedback/get_all_feedbacks_by_user/", h.Feedback.List)
		r.Post("/feedback/add_feedback/", h.Feedback.Add)

		r.Post("/subscriptions/pre_book_subscription/", h.Payments.PreBook)
		r.Post("/payments/create_order/", h.Payments.CreateOrder)
		r.Post("/payments/verify_order/", h.Payments.VerifyOrder)

		r.Post("/jeepedia/llm_prediction/", h.Predictor.Predict)
		r.Post("/jeepedia/compare_predicted/", h.Predictor.Compare)
	})

	return r
}

func serveMedia(store MediaStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		data, ok := store.Media(r.Context(), path)
		if !ok {
			writeMessage(w, http.StatusNotFound, "File not found")
			return
		}
		w.Header().Set("Content-Type", http.DetectContentType(data))
		_, _ = w.Write(data)
	}
}
