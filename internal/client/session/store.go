// Package session owns the client's bearer token and cached profile: the
// persistent stores that keep them across runs and the Provider that hands
// them to the request client and the view controllers.
package session

import (
	"context"
	"sync"

	"github.com/jeepedia/jeepedia/internal/models"
)

// Store persists a single session. Load never fails on malformed stored data:
// it returns an empty (or partially empty) session instead.
type Store interface {
	Load(ctx context.Context) (models.Session, error)
	SetToken(ctx context.Context, token string) error
	SetProfile(ctx context.Context, p *models.Profile) error
	SetRedirect(ctx context.Context, path string) error
	// Clear removes token, profile and redirect target.
	Clear(ctx context.Context) error
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	sess models.Session
}

// NewMemoryStore returns a MemoryStore seeded with s.
func NewMemoryStore(s models.Session) *MemoryStore {
	s.User = s.User.Clone()
	return &MemoryStore{sess: s}
}

func (m *MemoryStore) Load(context.Context) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sess
	s.User = s.User.Clone()
	return s.Normalize(), nil
}

func (m *MemoryStore) SetToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess.Token = token
	return nil
}

func (m *MemoryStore) SetProfile(_ context.Context, p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess.User = p.Clone()
	return nil
}

func (m *MemoryStore) SetRedirect(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess.RedirectAfterLogin = path
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = models.Session{}
	return nil
}
