package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/jeepedia/jeepedia/internal/apperror"
	"github.com/jeepedia/jeepedia/internal/models"
)

// Provider is the single shared view of the session. It is read-mostly:
// writes happen on login, logout, profile updates and when the server rejects
// the token.
type Provider struct {
	store Store
	log   *zap.Logger
	now   func() time.Time

	mu  sync.RWMutex
	cur models.Session
}

// NewProvider loads the persisted session from store.
func NewProvider(ctx context.Context, store Store, log *zap.Logger) (*Provider, error) {
	if log == nil {
		log = zap.NewNop()
	}
	sess, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &Provider{store: store, log: log, now: time.Now, cur: sess.Normalize()}, nil
}

// Current returns a copy of the session. An expired token is reported as
// absent, and a profile is never returned without a token.
func (p *Provider) Current() models.Session {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := p.cur
	s.User = s.User.Clone()
	if tokenExpired(s.Token, p.now()) {
		s.Token = ""
	}
	return s.Normalize()
}

// Token returns the bearer token or "".
func (p *Provider) Token() string {
	return p.Current().Token
}

// Authenticated reports whether a usable token is present.
func (p *Provider) Authenticated() bool {
	return p.Token() != ""
}

// Profile returns the cached profile of an authenticated session.
func (p *Provider) Profile() *models.Profile {
	return p.Current().User
}

// RequireAuth returns ErrUnauthenticated when no token is present.
func (p *Provider) RequireAuth() error {
	if !p.Authenticated() {
		return apperror.Unauthenticated()
	}
	return nil
}

// Login stores a new token and the profile fetched with it. If either write
// fails the stored session is left as it was.
func (p *Provider) Login(ctx context.Context, token string, profile *models.Profile) error {
	if token == "" {
		return apperror.Invalid("token", "token is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.store.SetToken(ctx, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	if err := p.store.SetProfile(ctx, profile); err != nil {
		if rerr := p.store.SetToken(ctx, p.cur.Token); rerr != nil {
			p.log.Warn("cannot restore previous token", zap.Error(rerr))
		}
		return fmt.Errorf("persist profile: %w", err)
	}
	p.cur.Token = token
	p.cur.User = profile.Clone()
	p.log.Info("session started", zap.String("user", profile.DisplayName()))
	return nil
}

// UpdateProfile replaces the cached profile with exactly the object the
// server returned.
func (p *Provider) UpdateProfile(ctx context.Context, profile *models.Profile) error {
	if !p.Authenticated() {
		return apperror.Unauthenticated()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.store.SetProfile(ctx, profile); err != nil {
		return fmt.Errorf("persist profile: %w", err)
	}
	p.cur.User = profile.Clone()
	return nil
}

// Logout destroys the session.
func (p *Provider) Logout(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	p.cur = models.Session{}
	return nil
}

// Invalidate destroys the session after the server rejected the token.
func (p *Provider) Invalidate(ctx context.Context, reason string) {
	p.mu.RLock()
	empty := p.cur.Token == ""
	p.mu.RUnlock()
	if empty {
		return
	}
	if err := p.Logout(ctx); err != nil {
		p.log.Error("failed to clear rejected session", zap.Error(err))
		return
	}
	p.log.Warn("session invalidated", zap.String("reason", reason))
}

// SetRedirect remembers the view to return to after login.
func (p *Provider) SetRedirect(ctx context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.store.SetRedirect(ctx, path); err != nil {
		return fmt.Errorf("persist redirect: %w", err)
	}
	p.cur.RedirectAfterLogin = path
	return nil
}

// TakeRedirect returns and clears the stored redirect target, defaulting to "/".
func (p *Provider) TakeRedirect(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	target := p.cur.RedirectAfterLogin
	if target == "" {
		return "/", nil
	}
	if err := p.store.SetRedirect(ctx, ""); err != nil {
		return "", fmt.Errorf("clear redirect: %w", err)
	}
	p.cur.RedirectAfterLogin = ""
	return target, nil
}

// ExpiresAt returns the exp claim of the current token, if it has one.
func (p *Provider) ExpiresAt() (time.Time, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return TokenExpiry(p.cur.Token)
}

// StartExpiryWatcher logs the session out once its token expires. It stops
// when ctx is cancelled.
func (p *Provider) StartExpiryWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.mu.RLock()
				expired := tokenExpired(p.cur.Token, p.now())
				p.mu.RUnlock()
				if expired {
					p.Invalidate(ctx, "token expired")
				}
			}
		}
	}()
}

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
// Opaque tokens have no expiry.
func TokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func tokenExpired(token string, now time.Time) bool {
	exp, ok := TokenExpiry(token)
	return ok && !now.Before(exp)
}
