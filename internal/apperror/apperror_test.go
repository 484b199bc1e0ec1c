package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{"validation", Invalid("rank", "required"), ErrValidation, true},
		{"unauthenticated", Unauthenticated(), ErrUnauthenticated, true},
		{"subscription is forbidden", SubscriptionRequired(), ErrForbidden, true},
		{"subscription is itself", SubscriptionRequired(), ErrSubscriptionRequired, true},
		{"request failed", RequestFailed(500, "boom"), ErrRequestFailed, true},
		{"not found", NotFound("post", "abc"), ErrNotFound, true},
		{"busy", Busy("like"), ErrBusy, true},
		{"wrapped not found", fmt.Errorf("load: %w", NotFound("post", "x")), ErrNotFound, true},
		{"not found is not validation", NotFound("post", "x"), ErrValidation, false},
		{"forbidden is not subscription", &AppError{Err: ErrForbidden}, ErrSubscriptionRequired, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v; want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestRequestFailed_GenericMessage(t *testing.T) {
	err := RequestFailed(502, "")
	if err.Error() != GenericNetworkMessage {
		t.Errorf("message = %q; want %q", err.Error(), GenericNetworkMessage)
	}
	if err.Status != 502 {
		t.Errorf("status = %d; want 502", err.Status)
	}
}

func TestValidationFailed_MessageAndFields(t *testing.T) {
	err := ValidationFailed(map[string]string{
		"state":  "state is required",
		"gender": "gender is required",
	})
	if err.Error() != "gender is required; state is required" {
		t.Errorf("unexpected message %q", err.Error())
	}
	fields := FieldErrors(fmt.Errorf("submit: %w", err))
	if len(fields) != 2 || fields["state"] == "" {
		t.Errorf("unexpected fields %v", fields)
	}
	if FieldErrors(RequestFailed(500, "x")) != nil {
		t.Error("expected nil fields for non-validation error")
	}
}

func TestMessage(t *testing.T) {
	if Message(nil) != "" {
		t.Error("expected empty message for nil")
	}
	if got := Message(fmt.Errorf("ctx: %w", Unauthenticated())); got != "Authentication required. Please log in." {
		t.Errorf("Message = %q", got)
	}
	if got := Message(errors.New("plain")); got != "plain" {
		t.Errorf("Message = %q", got)
	}
}
