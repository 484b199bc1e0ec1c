// Package service provides the account and checkout flows of the client,
// delegating network calls to the request client and session state to the
// session provider.
package service

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/jeepedia/jeepedia/internal/apperror"
	"github.com/jeepedia/jeepedia/internal/models"
	"github.com/jeepedia/jeepedia/internal/validation"
)

// AuthAPI defines the account endpoints required by the AuthService.
type AuthAPI interface {
	// Login exchanges credentials for a bearer token.
	Login(ctx context.Context, email, password string) (string, error)
	// UserDetailsWithToken fetches the profile of a token not yet in the session.
	UserDetailsWithToken(ctx context.Context, token string) (*models.Profile, error)
	Register(ctx context.Context, r models.Registration) (string, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	VerifyOTP(ctx context.Context, email, otp string) (string, error)
	ResetPassword(ctx context.Context, email, otp, newPassword string) (string, error)
	SendVerificationOTP(ctx context.Context, email string) (string, error)
	VerifyEmailOTP(ctx context.Context, email, otp string) (string, error)
	VerifyEmailToken(ctx context.Context, token string) (string, error)
	ChangePassword(ctx context.Context, current, next, confirm string) (string, error)
	ChangeEmail(ctx context.Context, current, next string) (string, error)
}

// SessionManager is the part of the session provider the AuthService drives.
type SessionManager interface {
	RequireAuth() error
	Login(ctx context.Context, token string, profile *models.Profile) error
	Logout(ctx context.Context) error
	TakeRedirect(ctx context.Context) (string, error)
}

// AuthService implements login, registration and the password and email
// maintenance flows.
type AuthService struct {
	api     AuthAPI
	session SessionManager
	log     *zap.Logger
}

// NewAuthService constructs an AuthService. A nil logger discards output.
func NewAuthService(api AuthAPI, session SessionManager, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{api: api, session: session, log: log}
}

type credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// Login authenticates, stores the token with the user's profile and returns
// the path to continue to. The stored redirect is consumed; "/" is returned
// when none was set. Nothing is stored unless both calls succeed.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	creds := credentials{Email: strings.TrimSpace(email), Password: password}
	if err := validation.Struct(creds); err != nil {
		return "", err
	}
	token, err := s.api.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		return "", err
	}
	profile, err := s.api.UserDetailsWithToken(ctx, token)
	if err != nil {
		s.log.Warn("login: user details failed", zap.Error(err))
		return "", err
	}
	if err := s.session.Login(ctx, token, profile); err != nil {
		return "", err
	}
	s.log.Info("logged in", zap.String("username", profile.Username))
	return s.session.TakeRedirect(ctx)
}

// Register validates the registration form and creates the account. The
// user still has to log in afterwards.
func (s *AuthService) Register(ctx context.Context, r models.Registration) (string, error) {
	r.Email = strings.TrimSpace(r.Email)
	r.Username = strings.TrimSpace(r.Username)
	if err := validation.Struct(r); err != nil {
		return "", err
	}
	return s.api.Register(ctx, r)
}

// Logout clears the session.
func (s *AuthService) Logout(ctx context.Context) error {
	return s.session.Logout(ctx)
}

// ForgotPassword starts the reset flow for email.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if err := checkEmail(email); err != nil {
		return "", err
	}
	return s.api.ForgotPassword(ctx, email)
}

// VerifyOTP checks the reset code mailed by ForgotPassword.
func (s *AuthService) VerifyOTP(ctx context.Context, email, otp string) (string, error) {
	email, otp = strings.TrimSpace(email), strings.TrimSpace(otp)
	if err := checkOTP(email, otp); err != nil {
		return "", err
	}
	return s.api.VerifyOTP(ctx, email, otp)
}

// ResetPassword sets a new password. next and confirm must match.
func (s *AuthService) ResetPassword(ctx context.Context, email, otp, next, confirm string) (string, error) {
	email, otp = strings.TrimSpace(email), strings.TrimSpace(otp)
	if err := checkOTP(email, otp); err != nil {
		return "", err
	}
	if err := checkNewPassword(next, confirm); err != nil {
		return "", err
	}
	return s.api.ResetPassword(ctx, email, otp, next)
}

// SendVerificationOTP mails an email verification code.
func (s *AuthService) SendVerificationOTP(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if err := checkEmail(email); err != nil {
		return "", err
	}
	return s.api.SendVerificationOTP(ctx, email)
}

// VerifyEmailOTP confirms the address with the mailed code.
func (s *AuthService) VerifyEmailOTP(ctx context.Context, email, otp string) (string, error) {
	email, otp = strings.TrimSpace(email), strings.TrimSpace(otp)
	if err := checkOTP(email, otp); err != nil {
		return "", err
	}
	return s.api.VerifyEmailOTP(ctx, email, otp)
}

// VerifyEmailToken confirms the address with the token from a verification
// link. A pasted link is accepted as well.
func (s *AuthService) VerifyEmailToken(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if u, err := url.Parse(token); err == nil && u.Query().Has("token") {
		token = u.Query().Get("token")
	}
	if token == "" {
		return "", apperror.Invalid("token", "Invalid verification link")
	}
	return s.api.VerifyEmailToken(ctx, token)
}

// ChangePassword changes the password of the logged-in user.
func (s *AuthService) ChangePassword(ctx context.Context, current, next, confirm string) (string, error) {
	if err := s.session.RequireAuth(); err != nil {
		return "", err
	}
	if current == "" {
		return "", apperror.Invalid("current", "current password is required")
	}
	if err := checkNewPassword(next, confirm); err != nil {
		return "", err
	}
	return s.api.ChangePassword(ctx, current, next, confirm)
}

// ChangeEmail moves the account of the logged-in user to a new address.
func (s *AuthService) ChangeEmail(ctx context.Context, current, next string) (string, error) {
	if err := s.session.RequireAuth(); err != nil {
		return "", err
	}
	form := struct {
		Current string `validate:"required,email"`
		New     string `validate:"required,email,nefield=Current"`
	}{strings.TrimSpace(current), strings.TrimSpace(next)}
	if err := validation.Struct(form); err != nil {
		return "", err
	}
	return s.api.ChangeEmail(ctx, form.Current, form.New)
}

func checkEmail(email string) error {
	return validation.Struct(struct {
		Email string `validate:"required,email"`
	}{email})
}

func checkOTP(email, otp string) error {
	return validation.Struct(struct {
		Email string `validate:"required,email"`
		OTP   string `validate:"required,numeric"`
	}{email, otp})
}

func checkNewPassword(next, confirm string) error {
	if err := validation.Struct(struct {
		New string `validate:"required,min=6"`
	}{next}); err != nil {
		return err
	}
	if next != confirm {
		return apperror.Invalid("confirm", "passwords do not match")
	}
	return nil
}
