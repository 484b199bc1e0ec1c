package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// dummyHandler records whether it was called and the context it received.
type dummyHandler struct {
	called bool
	ctx    context.Context
}

func (d *dummyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.called = true
	d.ctx = r.Context()
	w.WriteHeader(http.StatusOK)
}

func TestTokens_IssueVerify(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	tok, err := tokens.Issue(42)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	id, err := tokens.Verify(tok)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if id != 42 {
		t.Errorf("Verify = %d; want 42", id)
	}

	if _, err := NewTokens("other", time.Hour).Verify(tok); err == nil {
		t.Error("expected error for a token signed with another secret")
	}
}

func TestTokens_Expired(t *testing.T) {
	tokens := NewTokens("secret", time.Minute)
	issued := time.Unix(1700000000, 0)
	tokens.now = func() time.Time { return issued }
	tok, err := tokens.Issue(7)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	tokens.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := tokens.Verify(tok); err == nil {
		t.Error("expected error for an expired token")
	}
}

func TestBearerAuth_NoHeader(t *testing.T) {
	dummy := &dummyHandler{}
	h := BearerAuth(NewTokens("secret", time.Hour))(dummy)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/user/user_details/", nil))

	if dummy.called {
		t.Error("did not expect next handler to be called without a token")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestBearerAuth_ValidToken(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	tok, _ := tokens.Issue(5)
	dummy := &dummyHandler{}
	h := BearerAuth(tokens)(dummy)
	req := httptest.NewRequest(http.MethodGet, "/user/user_details/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !dummy.called {
		t.Fatal("expected next handler to be called")
	}
	if id, ok := UserIDFromContext(dummy.ctx); !ok || id != 5 {
		t.Errorf("UserIDFromContext = %d, %v; want 5, true", id, ok)
	}
}

func TestBearerAuth_WrongScheme(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	tok, _ := tokens.Issue(5)
	dummy := &dummyHandler{}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token "+tok)
	rec := httptest.NewRecorder()
	BearerAuth(tokens)(dummy).ServeHTTP(rec, req)

	if dummy.called || rec.Code != http.StatusUnauthorized {
		t.Errorf("called=%v code=%d; want rejection", dummy.called, rec.Code)
	}
}

func TestOptionalBearer(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	dummy := &dummyHandler{}
	rec := httptest.NewRecorder()
	OptionalBearer(tokens)(dummy).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !dummy.called {
		t.Fatal("expected anonymous request to pass")
	}
	if _, ok := UserIDFromContext(dummy.ctx); ok {
		t.Error("anonymous request carries a user id")
	}

	dummy = &dummyHandler{}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	OptionalBearer(tokens)(dummy).ServeHTTP(rec, req)
	if dummy.called || rec.Code != http.StatusUnauthorized {
		t.Errorf("called=%v code=%d; want invalid token rejected", dummy.called, rec.Code)
	}
}

func TestUserIDFromContext_Missing(t *testing.T) {
	if id, ok := UserIDFromContext(context.Background()); ok || id != 0 {
		t.Errorf("UserIDFromContext = %d, %v; want 0, false", id, ok)
	}
}

func TestWithRequestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := WithRequestLogging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hello"))
	}))
	req := httptest.NewRequest(http.MethodPost, "/community/create_post/", nil)
	req.Header.Set("X-Request-ID", "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusTeapot) {
		t.Errorf("status field = %v", fields["status"])
	}
	if fields["bytes"] != int64(5) {
		t.Errorf("bytes field = %v", fields["bytes"])
	}
	if fields["request_id"] != "req-1" || fields["path"] != "/community/create_post/" {
		t.Errorf("unexpected fields %v", fields)
	}
}

func TestWithRequestLogging_ServerErrorLevel(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := WithRequestLogging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got := logs.FilterLevelExact(zapcore.ErrorLevel).Len(); got != 1 {
		t.Errorf("error entries = %d; want 1", got)
	}
}
