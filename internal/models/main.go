// Package models defines the data structures exchanged with the JEEPedia API
// and held by the client session.
package models

// Profile is the cached user profile returned by /user/user_details/.
type Profile struct {
	// ID is the server-side identifier of the user.
	ID int64 `json:"id"`
	// FirstName of the user.
	FirstName string `json:"first_name"`
	// LastName of the user.
	LastName string `json:"last_name"`
	// Email is the login address.
	Email string `json:"email"`
	// Username is the public handle shown on community posts.
	Username string `json:"username"`
	// PhoneNumber is used to prefill checkout contact details.
	PhoneNumber string `json:"phone_number"`
	// ProfilePicture is a media path relative to the API base URL.
	ProfilePicture string `json:"profile_picture"`
}

// DisplayName returns "First Last", falling back to the username.
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	name := p.FirstName
	if p.LastName != "" {
		if name != "" {
			name += " "
		}
		name += p.LastName
	}
	if name == "" {
		return p.Username
	}
	return name
}

// Clone returns a detached copy of the profile.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// Session is the persisted client state: bearer token, cached profile and
// the path to return to after login.
type Session struct {
	// Token is the opaque bearer credential. Empty means logged out.
	Token string `json:"token,omitempty"`
	// User is the cached profile. It is only meaningful when Token is set.
	User *Profile `json:"user_details,omitempty"`
	// RedirectAfterLogin is the view the user tried to open before logging in.
	RedirectAfterLogin string `json:"redirectAfterLogin,omitempty"`
}

// Authenticated reports whether the session carries a token.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Normalize drops a cached profile that has no token to back it.
func (s Session) Normalize() Session {
	if s.Token == "" {
		s.User = nil
	}
	return s
}
