package repository

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jeepedia/jeepedia/internal/db"
	"github.com/jeepedia/jeepedia/internal/models"
)

func setupSessionMock(t *testing.T) (*SQLSessionRepository, sqlmock.Sqlmock, func()) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewSQLSessionRepository(conn, "default", nil)
	repo.now = func() time.Time { return time.Unix(1700000000, 0) }
	cleanup := func() { conn.Close() }
	return repo, mock, cleanup
}

const loadQuery = `SELECT token, user_json, redirect FROM client_sessions WHERE profile = $1`

func TestLoad_NoRow(t *testing.T) {
	repo, mock, cleanup := setupSessionMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(loadQuery)).
		WithArgs("default").
		WillReturnRows(sqlmock.NewRows([]string{"token", "user_json", "redirect"}))

	sess, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess != (models.Session{}) {
		t.Errorf("expected empty session, got %+v", sess)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestLoad_MalformedProfile(t *testing.T) {
	repo, mock, cleanup := setupSessionMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(loadQuery)).
		WithArgs("default").
		WillReturnRows(sqlmock.NewRows([]string{"token", "user_json", "redirect"}).
			AddRow("tok", "{oops", "/dashboard"))

	sess, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.Token != "tok" || sess.User != nil || sess.RedirectAfterLogin != "/dashboard" {
		t.Errorf("unexpected session %+v", sess)
	}
}

func TestLoad_ProfileWithoutToken(t *testing.T) {
	repo, mock, cleanup := setupSessionMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(loadQuery)).
		WithArgs("default").
		WillReturnRows(sqlmock.NewRows([]string{"token", "user_json", "redirect"}).
			AddRow("", `{"id":4}`, ""))

	sess, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.User != nil {
		t.Errorf("profile without token must be dropped, got %+v", sess.User)
	}
}

func TestLoad_QueryError(t *testing.T) {
	repo, mock, cleanup := setupSessionMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(loadQuery)).
		WithArgs("default").
		WillReturnError(errors.New("query failed"))

	if _, err := repo.Load(context.Background()); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestSetToken_StoresExpiry(t *testing.T) {
	repo, mock, cleanup := setupSessionMock(t)
	defer cleanup()

	exp := time.Unix(1800000000, 0)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
	if err != nil {
		t.Fatal(err)
	}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO client_sessions (profile, token, expires_at, updated_at)`)).
		WithArgs("default", token, exp.Unix(), int64(1700000000)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetToken(context.Background(), token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSetProfile_Error(t *testing.T) {
	repo, mock, cleanup := setupSessionMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO client_sessions (profile, user_json, updated_at)`)).
		WillReturnError(errors.New("disk full"))

	if err := repo.SetProfile(context.Background(), &models.Profile{ID: 1}); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestClear(t *testing.T) {
	repo, mock, cleanup := setupSessionMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM client_sessions WHERE profile = $1`)).
		WithArgs("default").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Clear(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

// TestSQLite_RoundTrip runs the real statements against an on-disk SQLite file.
func TestSQLite_RoundTrip(t *testing.T) {
	conn, err := db.InitSQLite(filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatalf("InitSQLite: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	alice := NewSQLSessionRepository(conn, "alice", nil)
	bob := NewSQLSessionRepository(conn, "bob", nil)

	profile := &models.Profile{ID: 9, FirstName: "Alice", PhoneNumber: "123"}
	if err := alice.SetToken(ctx, "tok-a"); err != nil {
		t.Fatal(err)
	}
	if err := alice.SetProfile(ctx, profile); err != nil {
		t.Fatal(err)
	}
	if err := alice.SetRedirect(ctx, "/jee-predictor"); err != nil {
		t.Fatal(err)
	}
	if err := bob.SetToken(ctx, "tok-b"); err != nil {
		t.Fatal(err)
	}

	got, err := alice.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.Token != "tok-a" || got.User == nil || *got.User != *profile || got.RedirectAfterLogin != "/jee-predictor" {
		t.Errorf("unexpected session %+v", got)
	}

	names, err := alice.Profiles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 {
		t.Errorf("expected 2 profiles, got %v", names)
	}

	if err := alice.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	got, _ = alice.Load(ctx)
	if got != (models.Session{}) {
		t.Errorf("expected empty session after Clear, got %+v", got)
	}
	other, _ := bob.Load(ctx)
	if other.Token != "tok-b" {
		t.Errorf("clearing alice must not touch bob, got %+v", other)
	}
}
