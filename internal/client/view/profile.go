package view

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jeepedia/jeepedia/internal/apperror"
	"github.com/jeepedia/jeepedia/internal/models"
)

// ProfileEditor edits the cached profile. The view data is read from the
// session; saves go to the server and the session then stores exactly the
// profile the server returned.
type ProfileEditor struct {
	*Resource[*models.Profile]
	api     ProfileAPI
	session ProfileSession

	mu      sync.Mutex
	editing bool
	draft   models.ProfileUpdate
}

// NewProfileEditor creates the controller.
func NewProfileEditor(api ProfileAPI, sess ProfileSession, log *zap.Logger) *ProfileEditor {
	fetch := func(context.Context) (*models.Profile, error) {
		if err := sess.RequireAuth(); err != nil {
			return nil, err
		}
		p := sess.Profile()
		if p == nil {
			return nil, apperror.NotFound("profile", "session")
		}
		return p, nil
	}
	return &ProfileEditor{
		Resource: NewResource("profile", fetch, (*models.Profile).Clone, log),
		api:      api,
		session:  sess,
	}
}

// Profile returns the displayed profile.
func (e *ProfileEditor) Profile() *models.Profile {
	_, p, _ := e.Snapshot()
	return p
}

// BeginEdit starts a working copy of the editable fields.
func (e *ProfileEditor) BeginEdit() (models.ProfileUpdate, error) {
	p := e.Profile()
	if p == nil {
		return models.ProfileUpdate{}, e.Fail(apperror.Invalid("profile", "profile is not loaded"))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.editing = true
	e.draft = models.ProfileUpdateFrom(p)
	return e.draft, nil
}

// Draft returns the working copy and whether an edit is in progress.
func (e *ProfileEditor) Draft() (models.ProfileUpdate, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft, e.editing
}

// CancelEdit discards the working copy.
func (e *ProfileEditor) CancelEdit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.editing = false
	e.draft = models.ProfileUpdate{}
}

// SaveEdit sends fields to the server. On success the session and the view
// hold the server's profile and the draft is closed.
func (e *ProfileEditor) SaveEdit(ctx context.Context, fields models.ProfileUpdate) error {
	if err := e.session.RequireAuth(); err != nil {
		return e.Fail(err)
	}
	e.mu.Lock()
	editing := e.editing
	if editing {
		e.draft = fields
	}
	e.mu.Unlock()
	if !editing {
		return e.Fail(apperror.Invalid("profile", "no edit in progress"))
	}
	if strings.TrimSpace(fields.Username) == "" {
		return e.Fail(apperror.Invalid("username", "Username is required"))
	}

	return e.Run(ctx, "save profile", func(ctx context.Context) error {
		p, err := e.api.EditUserDetails(ctx, fields)
		if err != nil {
			return err
		}
		if err := e.adopt(ctx, p); err != nil {
			return err
		}
		e.CancelEdit()
		return nil
	})
}

// UpdatePicture uploads a new profile picture.
func (e *ProfileEditor) UpdatePicture(ctx context.Context, filename string, data []byte) error {
	if err := e.session.RequireAuth(); err != nil {
		return e.Fail(err)
	}
	if len(data) == 0 {
		return e.Fail(apperror.Invalid("profile_picture", "Picture is empty"))
	}
	return e.Run(ctx, "update picture", func(ctx context.Context) error {
		p, err := e.api.EditProfilePicture(ctx, filename, data)
		if err != nil {
			return err
		}
		return e.adopt(ctx, p)
	})
}

func (e *ProfileEditor) adopt(ctx context.Context, p *models.Profile) error {
	if err := e.session.UpdateProfile(ctx, p); err != nil {
		return err
	}
	e.Mutate(func(cur **models.Profile) { *cur = p.Clone() })
	return nil
}
