package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/jeepedia/jeepedia/internal/models"
)

type tokenResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

func (r *tokenResponse) Validate() error {
	if r.Token == "" {
		return errors.New("missing token")
	}
	return nil
}

type userDetailsResponse struct {
	Success     *bool           `json:"success,omitempty"`
	Message     string          `json:"message"`
	UserDetails *models.Profile `json:"user_details"`
}

func (r *userDetailsResponse) failure() (string, bool) {
	return r.Message, r.Success != nil && !*r.Success
}

func (r *userDetailsResponse) Validate() error {
	if r.UserDetails == nil {
		return errors.New("missing user_details")
	}
	return nil
}

// messageResponse is the loose {success?, message?} acknowledgement.
type messageResponse struct {
	Success *bool  `json:"success,omitempty"`
	Message string `json:"message"`
}

func (r *messageResponse) failure() (string, bool) {
	return r.Message, r.Success != nil && !*r.Success
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	form := NewForm().Set("email", email).Set("password", password)
	var resp tokenResponse
	if err := c.Do(ctx, http.MethodPost, "/user/user_login/", RequestOptions{Form: form}, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Register creates an account. It returns the server's message.
func (c *Client) Register(ctx context.Context, r models.Registration) (string, error) {
	form := NewForm().
		Set("first_name", r.FirstName).
		Set("last_name", r.LastName).
		Set("email", r.Email).
		Set("phone_number", r.PhoneNumber).
		Set("username", r.Username).
		Set("password", r.Password)
	var resp messageResponse
	if err := c.Do(ctx, http.MethodPost, "/user/user_register/", RequestOptions{Form: form}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// UserDetails fetches the profile of the token's owner.
func (c *Client) UserDetails(ctx context.Context) (*models.Profile, error) {
	var resp userDetailsResponse
	if err := c.Do(ctx, http.MethodGet, "/user/user_details/", RequestOptions{}, &resp); err != nil {
		return nil, err
	}
	return resp.UserDetails, nil
}

// UserDetailsWithToken fetches the profile for a token that is not in the
// session yet. A 401 here leaves the session untouched.
func (c *Client) UserDetailsWithToken(ctx context.Context, token string) (*models.Profile, error) {
	scoped := *c
	scoped.session = staticToken(token)
	return scoped.UserDetails(ctx)
}

type staticToken string

func (t staticToken) Token() string { return string(t) }

func (staticToken) Invalidate(context.Context, string) {}

// EditUserDetails saves the editable profile fields and returns the
// server's profile.
func (c *Client) EditUserDetails(ctx context.Context, u models.ProfileUpdate) (*models.Profile, error) {
	form := NewForm().
		Set("first_name", u.FirstName).
		Set("last_name", u.LastName).
		Set("username", u.Username).
		Set("phone_number", u.PhoneNumber)
	var resp userDetailsResponse
	if err := c.Do(ctx, http.MethodPost, "/user/edit_user_details/", RequestOptions{Form: form}, &resp); err != nil {
		return nil, err
	}
	return resp.UserDetails, nil
}

// EditProfilePicture uploads a new picture and returns the updated profile.
func (c *Client) EditProfilePicture(ctx context.Context, filename string, data []byte) (*models.Profile, error) {
	form := NewForm().AddFile("profile_picture", filename, data)
	var resp userDetailsResponse
	if err := c.Do(ctx, http.MethodPost, "/user/edit_profile_picture/", RequestOptions{Form: form}, &resp); err != nil {
		return nil, err
	}
	return resp.UserDetails, nil
}

// ForgotPassword asks the server to mail a reset OTP.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	return c.ack(ctx, "/user/forgot-password/", RequestOptions{JSON: map[string]string{"email": email}})
}

// VerifyOTP checks a reset OTP.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (string, error) {
	return c.ack(ctx, "/user/verify-otp/", RequestOptions{JSON: map[string]string{"email": email, "otp": otp}})
}

// ResetPassword sets a new password using a verified OTP.
func (c *Client) ResetPassword(ctx context.Context, email, otp, newPassword string) (string, error) {
	return c.ack(ctx, "/user/reset-password/", RequestOptions{JSON: map[string]string{
		"email":        email,
		"otp":          otp,
		"new_password": newPassword,
	}})
}

// SendVerificationOTP mails an email-verification OTP.
func (c *Client) SendVerificationOTP(ctx context.Context, email string) (string, error) {
	return c.ack(ctx, "/user/send-verification-otp/", RequestOptions{Values: url.Values{"email": {email}}})
}

// VerifyEmailOTP confirms the email address.
func (c *Client) VerifyEmailOTP(ctx context.Context, email, otp string) (string, error) {
	return c.ack(ctx, "/user/verify-email-otp/", RequestOptions{Values: url.Values{"email": {email}, "otp": {otp}}})
}

// VerifyEmailToken confirms the email address with the token of a mailed
// verification link.
func (c *Client) VerifyEmailToken(ctx context.Context, token string) (string, error) {
	var resp messageResponse
	opts := RequestOptions{Query: url.Values{"token": {token}}}
	if err := c.Do(ctx, http.MethodGet, "/user/verify_email/", opts, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// ChangePassword changes the password of the logged-in user.
func (c *Client) ChangePassword(ctx context.Context, current, next, confirm string) (string, error) {
	return c.ack(ctx, "/users/change_password/", RequestOptions{JSON: map[string]string{
		"current": current,
		"new":     next,
		"confirm": confirm,
	}})
}

// ChangeEmail changes the login address of the logged-in user.
func (c *Client) ChangeEmail(ctx context.Context, current, next string) (string, error) {
	return c.ack(ctx, "/users/change_email/", RequestOptions{JSON: map[string]string{
		"current": current,
		"new":     next,
	}})
}

func (c *Client) ack(ctx context.Context, path string, opts RequestOptions) (string, error) {
	var resp messageResponse
	if err := c.Do(ctx, http.MethodPost, path, opts, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}
