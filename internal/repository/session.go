// Package repository provides the SQL-backed session store used when the
// client runs with -store sqlite or -store postgres, and the in-memory
// records of the stub API server.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jeepedia/jeepedia/internal/client/session"
	"github.com/jeepedia/jeepedia/internal/models"
)

// SQLSessionRepository stores one session row per profile name. The same
// statements run on SQLite and PostgreSQL.
type SQLSessionRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
	// Profile is the primary key of the row this repository manages.
	Profile string

	log *zap.Logger
	now func() time.Time
}

var _ session.Store = (*SQLSessionRepository)(nil)

// NewSQLSessionRepository creates a repository bound to the given profile row.
func NewSQLSessionRepository(db *sql.DB, profile string, log *zap.Logger) *SQLSessionRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &SQLSessionRepository{DB: db, Profile: profile, log: log, now: time.Now}
}

// Load reads the profile's row. A missing row is an empty session and an
// unparsable user_json yields a session without a profile.
func (r *SQLSessionRepository) Load(ctx context.Context) (models.Session, error) {
	var token, userJSON, redirect string
	err := r.DB.QueryRowContext(ctx,
		`SELECT token, user_json, redirect FROM client_sessions WHERE profile = $1`,
		r.Profile,
	).Scan(&token, &userJSON, &redirect)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, nil
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("load session: %w", err)
	}

	sess := models.Session{Token: token, RedirectAfterLogin: redirect}
	if userJSON != "" {
		var p models.Profile
		if err := json.Unmarshal([]byte(userJSON), &p); err != nil {
			r.log.Warn("discarding malformed cached profile", zap.String("profile", r.Profile), zap.Error(err))
		} else {
			sess.User = &p
		}
	}
	return sess.Normalize(), nil
}

// SetToken upserts the token together with its exp claim, if any.
func (r *SQLSessionRepository) SetToken(ctx context.Context, token string) error {
	var expiresAt int64
	if exp, ok := session.TokenExpiry(token); ok {
		expiresAt = exp.Unix()
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO client_sessions (profile, token, expires_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (profile) DO UPDATE
		SET token = excluded.token, expires_at = excluded.expires_at, updated_at = excluded.updated_at
	`, r.Profile, token, expiresAt, r.now().Unix())
	if err != nil {
		return fmt.Errorf("set token: %w", err)
	}
	return nil
}

// SetProfile upserts the serialized profile. nil clears it.
func (r *SQLSessionRepository) SetProfile(ctx context.Context, p *models.Profile) error {
	var userJSON string
	if p != nil {
		b, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode profile: %w", err)
		}
		userJSON = string(b)
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO client_sessions (profile, user_json, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (profile) DO UPDATE
		SET user_json = excluded.user_json, updated_at = excluded.updated_at
	`, r.Profile, userJSON, r.now().Unix())
	if err != nil {
		return fmt.Errorf("set profile: %w", err)
	}
	return nil
}

// SetRedirect upserts the redirect-after-login target.
func (r *SQLSessionRepository) SetRedirect(ctx context.Context, path string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO client_sessions (profile, redirect, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (profile) DO UPDATE
		SET redirect = excluded.redirect, updated_at = excluded.updated_at
	`, r.Profile, path, r.now().Unix())
	if err != nil {
		return fmt.Errorf("set redirect: %w", err)
	}
	return nil
}

// Clear deletes the profile's row.
func (r *SQLSessionRepository) Clear(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM client_sessions WHERE profile = $1`, r.Profile); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Profiles lists the stored profile names, most recently used first.
func (r *SQLSessionRepository) Profiles(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT profile FROM client_sessions ORDER BY updated_at DESC, profile`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
