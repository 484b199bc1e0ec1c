// Package apperror defines the error taxonomy surfaced by the client to the
// presentation layer. Callers match kinds with errors.Is.
package apperror

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrUnauthenticated      = errors.New("authentication required")
	ErrForbidden            = errors.New("forbidden")
	ErrSubscriptionRequired = fmt.Errorf("subscription required: %w", ErrForbidden)
	ErrRequestFailed        = errors.New("request failed")
	ErrNotFound             = errors.New("not found")
	ErrBusy                 = errors.New("request already in progress")
	ErrCancelled            = errors.New("cancelled")
)

// GenericNetworkMessage is shown when a failed response carries no readable message.
const GenericNetworkMessage = "network error, please try again"

// AppError carries a human-readable message alongside its kind.
type AppError struct {
	Err     error             // kind sentinel
	Message string            // shown to the user
	Status  int               // HTTP status, 0 for client-side errors
	Fields  map[string]string // per-field messages for validation errors
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// ValidationFailed reports client-side field checks. It is never sent to the network.
func ValidationFailed(fields map[string]string) *AppError {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, fields[k])
	}
	return &AppError{
		Err:     ErrValidation,
		Message: strings.Join(msgs, "; "),
		Fields:  fields,
	}
}

// Invalid is a single-field ValidationFailed.
func Invalid(field, message string) *AppError {
	return ValidationFailed(map[string]string{field: message})
}

func Unauthenticated() *AppError {
	return &AppError{Err: ErrUnauthenticated, Message: "Authentication required. Please log in."}
}

func SubscriptionRequired() *AppError {
	return &AppError{
		Err:     ErrSubscriptionRequired,
		Message: "You need to subscribe to use this feature",
		Status:  403,
	}
}

// RequestFailed wraps a non-2xx status or transport failure.
func RequestFailed(status int, message string) *AppError {
	if message == "" {
		message = GenericNetworkMessage
	}
	return &AppError{Err: ErrRequestFailed, Message: message, Status: status}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, id),
		Status:  404,
	}
}

// Busy rejects a duplicate submission while a request is outstanding.
func Busy(action string) *AppError {
	return &AppError{Err: ErrBusy, Message: action + " already in progress"}
}

func Cancelled(action string) *AppError {
	return &AppError{Err: ErrCancelled, Message: action + " cancelled"}
}

// Message extracts the user-facing text of err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	return err.Error()
}

// FieldErrors returns the field map of a validation error, or nil.
func FieldErrors(err error) map[string]string {
	var appErr *AppError
	if errors.As(err, &appErr) && errors.Is(appErr.Err, ErrValidation) {
		return appErr.Fields
	}
	return nil
}
