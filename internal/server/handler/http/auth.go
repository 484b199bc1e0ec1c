package http

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/mail"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jeepedia/jeepedia/internal/middleware"
	"github.com/jeepedia/jeepedia/internal/models"
	"github.com/jeepedia/jeepedia/internal/repository"
)

// OTP purposes.
const (
	otpReset  = "reset"
	otpVerify = "verify"
)

const minPasswordLen = 6

// UserStore defines the account operations required by the AuthHandler.
type UserStore interface {
	CreateUser(ctx context.Context, p models.Profile, hash []byte) (models.Profile, error)
	UserByEmail(ctx context.Context, email string) (repository.User, error)
	UserByID(ctx context.Context, id int64) (repository.User, error)
	UpdateUser(ctx context.Context, id int64, upd models.ProfileUpdate) (models.Profile, error)
	SetProfilePicture(ctx context.Context, id int64, filename string, data []byte) (models.Profile, error)
	SetPassword(ctx context.Context, id int64, hash []byte) error
	SetEmail(ctx context.Context, id int64, email string) error
	MarkEmailVerified(ctx context.Context, email string) error
	SaveOTP(ctx context.Context, email, purpose, code string)
	CheckOTP(ctx context.Context, email, purpose, code string, consume bool) bool
	SaveEmailToken(ctx context.Context, email, token string)
	ConsumeEmailToken(ctx context.Context, token string) (string, bool)
}

// AuthHandler serves the /user/ and /users/ endpoints. OTPs are written to
// the log instead of being mailed.
type AuthHandler struct {
	Users  UserStore
	Tokens *middleware.Tokens
	Log    *zap.Logger
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	// NewOTP defaults to a random six digit code.
	NewOTP func() string
	// NewLinkToken defaults to a random UUID.
	NewLinkToken func() string
}

func (h *AuthHandler) hash(password string) ([]byte, error) {
	cost := h.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return bcrypt.GenerateFromPassword([]byte(password), cost)
}

func (h *AuthHandler) otp() string {
	if h.NewOTP != nil {
		return h.NewOTP()
	}
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "000000"
	}
	return fmt.Sprintf("%06d", n.Int64())
}

func (h *AuthHandler) linkToken() string {
	if h.NewLinkToken != nil {
		return h.NewLinkToken()
	}
	return uuid.NewString()
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// Login handles POST /user/user_login/ with email and password form fields.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !parseMultipart(w, r) {
		return
	}
	email, password := formValue(r, "email"), r.FormValue("password")
	u, err := h.Users.UserByEmail(r.Context(), email)
	if err != nil || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid email or password")
		return
	}
	token, err := h.Tokens.Issue(u.ID)
	if err != nil {
		h.Log.Error("issue token", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token, "message": "Login successful"})
}

// Register handles POST /user/user_register/.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !parseMultipart(w, r) {
		return
	}
	p := models.Profile{
		FirstName:   formValue(r, "first_name"),
		LastName:    formValue(r, "last_name"),
		Email:       formValue(r, "email"),
		PhoneNumber: formValue(r, "phone_number"),
		Username:    formValue(r, "username"),
	}
	password := r.FormValue("password")
	if p.FirstName == "" || p.LastName == "" || p.Username == "" || p.PhoneNumber == "" {
		writeMessage(w, http.StatusBadRequest, "All fields are required")
		return
	}
	if !validEmail(p.Email) {
		writeMessage(w, http.StatusBadRequest, "Enter a valid email address")
		return
	}
	if len(password) < minPasswordLen {
		writeMessage(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}
	hash, err := h.hash(password)
	if err != nil {
		h.Log.Error("hash password", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "internal error")
		return
	}
	if _, err := h.Users.CreateUser(r.Context(), p, hash); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			writeMessage(w, http.StatusBadRequest, "A user with that email or username already exists")
			return
		}
		writeStoreError(w, h.Log, err, "user not found")
		return
	}
	h.sendVerifyLink(r.Context(), p.Email)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "User registered successfully"})
}

func (h *AuthHandler) writeProfile(w http.ResponseWriter, p models.Profile) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user_details": p})
}

// UserDetails handles GET /user/user_details/.
func (h *AuthHandler) UserDetails(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.UserByID(r.Context(), userID(r))
	if err != nil {
		writeStoreError(w, h.Log, err, "User not found")
		return
	}
	h.writeProfile(w, u.Profile)
}

// EditUserDetails handles POST /user/edit_user_details/.
func (h *AuthHandler) EditUserDetails(w http.ResponseWriter, r *http.Request) {
	if !parseMultipart(w, r) {
		return
	}
	upd := models.ProfileUpdate{
		FirstName:   formValue(r, "first_name"),
		LastName:    formValue(r, "last_name"),
		Username:    formValue(r, "username"),
		PhoneNumber: formValue(r, "phone_number"),
	}
	if upd.Username == "" {
		writeMessage(w, http.StatusBadRequest, "Username is required")
		return
	}
	p, err := h.Users.UpdateUser(r.Context(), userID(r), upd)
	if errors.Is(err, repository.ErrConflict) {
		writeMessage(w, http.StatusBadRequest, "That username is taken")
		return
	}
	if err != nil {
		writeStoreError(w, h.Log, err, "User not found")
		return
	}
	h.writeProfile(w, p)
}

// EditProfilePicture handles POST /user/edit_profile_picture/.
func (h *AuthHandler) EditProfilePicture(w http.ResponseWriter, r *http.Request) {
	if !parseMultipart(w, r) {
		return
	}
	name, data, ok := readUpload(r, "profile_picture")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "profile_picture is required")
		return
	}
	p, err := h.Users.SetProfilePicture(r.Context(), userID(r), name, data)
	if err != nil {
		writeStoreError(w, h.Log, err, "User not found")
		return
	}
	h.writeProfile(w, p)
}

// ForgotPassword handles POST /user/forgot-password/.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := h.Users.UserByEmail(r.Context(), req.Email); err != nil {
		writeMessage(w, http.StatusNotFound, "No account found with this email")
		return
	}
	h.sendOTP(r.Context(), req.Email, otpReset)
	writeMessage(w, http.StatusOK, "OTP sent to your email")
}

func (h *AuthHandler) sendOTP(ctx context.Context, email, purpose string) {
	code := h.otp()
	h.Users.SaveOTP(ctx, email, purpose, code)
	h.Log.Info("otp issued", zap.String("email", email), zap.String("purpose", purpose), zap.String("otp", code))
}

// VerifyOTP handles POST /user/verify-otp/. The code stays valid for the
// reset that follows.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if !h.Users.CheckOTP(r.Context(), req.Email, otpReset, req.OTP, false) {
		writeMessage(w, http.StatusBadRequest, "Invalid or expired OTP")
		return
	}
	writeMessage(w, http.StatusOK, "OTP verified")
}

// ResetPassword handles POST /user/reset-password/.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		OTP         string `json:"otp"`
		NewPassword string `json:"new_password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.NewPassword) < minPasswordLen {
		writeMessage(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}
	if !h.Users.CheckOTP(r.Context(), req.Email, otpReset, req.OTP, true) {
		writeMessage(w, http.StatusBadRequest, "Invalid or expired OTP")
		return
	}
	u, err := h.Users.UserByEmail(r.Context(), req.Email)
	if err != nil {
		writeStoreError(w, h.Log, err, "No account found with this email")
		return
	}
	if !h.setPassword(w, r, u.ID, req.NewPassword) {
		return
	}
	writeMessage(w, http.StatusOK, "Password reset successful")
}

func (h *AuthHandler) setPassword(w http.ResponseWriter, r *http.Request, id int64, password string) bool {
	hash, err := h.hash(password)
	if err != nil {
		h.Log.Error("hash password", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "internal error")
		return false
	}
	if err := h.Users.SetPassword(r.Context(), id, hash); err != nil {
		writeStoreError(w, h.Log, err, "User not found")
		return false
	}
	return true
}

// SendVerificationOTP handles POST /user/send-verification-otp/ with an
// urlencoded email.
func (h *AuthHandler) SendVerificationOTP(w http.ResponseWriter, r *http.Request) {
	email := formValue(r, "email")
	if !validEmail(email) {
		writeMessage(w, http.StatusBadRequest, "Enter a valid email address")
		return
	}
	h.sendOTP(r.Context(), email, otpVerify)
	h.sendVerifyLink(r.Context(), email)
	writeMessage(w, http.StatusOK, "Verification OTP sent")
}

func (h *AuthHandler) sendVerifyLink(ctx context.Context, email string) {
	token := h.linkToken()
	h.Users.SaveEmailToken(ctx, email, token)
	h.Log.Info("verification link issued", zap.String("email", email), zap.String("path", "/user/verify_email/?token="+token))
}

// VerifyEmailToken handles GET /user/verify_email/?token=, the link mailed
// after registration.
func (h *AuthHandler) VerifyEmailToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeMessage(w, http.StatusBadRequest, "Invalid verification link")
		return
	}
	email, ok := h.Users.ConsumeEmailToken(r.Context(), token)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid or expired verification link")
		return
	}
	if err := h.Users.MarkEmailVerified(r.Context(), email); err != nil {
		writeStoreError(w, h.Log, err, "No account found with this email")
		return
	}
	writeMessage(w, http.StatusOK, "Email verified successfully")
}

// VerifyEmailOTP handles POST /user/verify-email-otp/.
func (h *AuthHandler) VerifyEmailOTP(w http.ResponseWriter, r *http.Request) {
	email, code := formValue(r, "email"), formValue(r, "otp")
	if !h.Users.CheckOTP(r.Context(), email, otpVerify, code, true) {
		writeMessage(w, http.StatusBadRequest, "Invalid or expired OTP")
		return
	}
	if err := h.Users.MarkEmailVerified(r.Context(), email); err != nil {
		writeStoreError(w, h.Log, err, "No account found with this email")
		return
	}
	writeMessage(w, http.StatusOK, "Email verified successfully")
}

// ChangePassword handles POST /users/change_password/.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Current string `json:"current"`
		New     string `json:"new"`
		Confirm string `json:"confirm"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.Users.UserByID(r.Context(), userID(r))
	if err != nil {
		writeStoreError(w, h.Log, err, "User not found")
		return
	}
	switch {
	case bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(req.Current)) != nil:
		writeMessage(w, http.StatusBadRequest, "Current password is incorrect")
		return
	case req.New != req.Confirm:
		writeMessage(w, http.StatusBadRequest, "Passwords do not match")
		return
	case len(req.New) < minPasswordLen:
		writeMessage(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}
	if !h.setPassword(w, r, u.ID, req.New) {
		return
	}
	writeMessage(w, http.StatusOK, "Password changed successfully")
}

// ChangeEmail handles POST /users/change_email/.
func (h *AuthHandler) ChangeEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Current string `json:"current"`
		New     string `json:"new"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.Users.UserByID(r.Context(), userID(r))
	if err != nil {
		writeStoreError(w, h.Log, err, "User not found")
		return
	}
	if req.Current != u.Email {
		writeMessage(w, http.StatusBadRequest, "Current email does not match")
		return
	}
	if !validEmail(req.New) {
		writeMessage(w, http.StatusBadRequest, "Enter a valid email address")
		return
	}
	if err := h.Users.SetEmail(r.Context(), u.ID, req.New); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			writeMessage(w, http.StatusBadRequest, "That email is already in use")
			return
		}
		writeStoreError(w, h.Log, err, "User not found")
		return
	}
	writeMessage(w, http.StatusOK, "Email changed successfully")
}
