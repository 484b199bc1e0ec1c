// Package api is the authenticated request client for the JEEPedia backend
// together with typed wrappers for every endpoint the client uses.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/jeepedia/jeepedia/internal/apperror"
)

const maxResponseBytes = 8 << 20

// Session is what the client needs from the session provider: the current
// bearer token and a way to drop it when the server rejects it.
type Session interface {
	Token() string
	Invalidate(ctx context.Context, reason string)
}

// Client issues requests against the API base URL. It attaches the bearer
// token when one is present and maps failures to apperror kinds. It never
// retries.
type Client struct {
	baseURL string
	http    *http.Client
	session Session
	log     *zap.Logger
}

// New creates a Client. A nil httpClient gets DefaultTimeout.
func New(baseURL string, httpClient *http.Client, sess Session, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		session: sess,
		log:     log,
	}
}

// BaseURL returns the configured API root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// MediaURL resolves a media path returned by the API, such as a profile
// picture, against the base URL.
func (c *Client) MediaURL(path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/media/" + strings.TrimLeft(path, "/")
}

// RequestOptions describes the body and query of a request. At most one of
// JSON, Values and Form is used.
type RequestOptions struct {
	Query url.Values
	// JSON is encoded as application/json.
	JSON any
	// Values is encoded as application/x-www-form-urlencoded.
	Values url.Values
	// Form is encoded as multipart/form-data.
	Form *Form
	// Gated marks endpoints where 403 means the user has no subscription.
	Gated bool
}

// Validator is implemented by response bodies that can check their own shape.
type Validator interface {
	Validate() error
}

// envelope is implemented by responses carrying a success flag.
type envelope interface {
	failure() (message string, failed bool)
}

// Do sends one request and decodes a 2xx body into out (when out is non-nil).
func (c *Client) Do(ctx context.Context, method, path string, opts RequestOptions, out any) error {
	body, contentType, err := opts.encode()
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if len(opts.Query) > 0 {
		req.URL.RawQuery = opts.Query.Encode()
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	reqID := xid.New().String()
	req.Header.Set("X-Request-ID", reqID)
	if c.session != nil {
		if token := c.session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", reqID),
			zap.Error(err),
		)
		if errors.Is(ctx.Err(), context.Canceled) {
			return apperror.Cancelled("request")
		}
		return apperror.RequestFailed(0, apperror.GenericNetworkMessage)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.log.Debug("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", reqID),
	)
	if err != nil {
		return apperror.RequestFailed(resp.StatusCode, apperror.GenericNetworkMessage)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		failure := c.statusError(ctx, resp.StatusCode, path, opts.Gated, data)
		c.log.Warn("request rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("request_id", reqID),
			zap.String("message", failure.Message),
		)
		return failure
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperror.RequestFailed(resp.StatusCode, "malformed response from server")
	}
	if env, ok := out.(envelope); ok {
		if msg, failed := env.failure(); failed {
			return apperror.RequestFailed(resp.StatusCode, msg)
		}
	}
	if v, ok := out.(Validator); ok {
		if err := v.Validate(); err != nil {
			return apperror.RequestFailed(resp.StatusCode, "malformed response from server: "+err.Error())
		}
	}
	return nil
}

func (c *Client) statusError(ctx context.Context, status int, path string, gated bool, body []byte) *apperror.AppError {
	msg := errorMessage(body)
	switch {
	case status == http.StatusUnauthorized:
		if c.session != nil {
			c.session.Invalidate(ctx, "server rejected the token")
		}
		e := apperror.Unauthenticated()
		e.Status = status
		if msg != "" {
			e.Message = msg
		}
		return e
	case status == http.StatusForbidden && gated:
		return apperror.SubscriptionRequired()
	case status == http.StatusForbidden:
		if msg == "" {
			msg = "You do not have access to this resource"
		}
		return &apperror.AppError{Err: apperror.ErrForbidden, Message: msg, Status: status}
	case status == http.StatusNotFound:
		if msg == "" {
			return apperror.NotFound("resource", path)
		}
		return &apperror.AppError{Err: apperror.ErrNotFound, Message: msg, Status: status}
	default:
		return apperror.RequestFailed(status, msg)
	}
}

// errorMessage extracts message, error or detail from a JSON error body.
func errorMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	for _, s := range []string{parsed.Message, parsed.Error, parsed.Detail} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func (o RequestOptions) encode() (io.Reader, string, error) {
	switch {
	case o.Form != nil:
		return o.Form.encode()
	case o.Values != nil:
		return strings.NewReader(o.Values.Encode()), "application/x-www-form-urlencoded", nil
	case o.JSON != nil:
		b, err := json.Marshal(o.JSON)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(b), "application/json", nil
	default:
		return nil, "", nil
	}
}

// Form is a multipart/form-data body. Fields are written in insertion order.
type Form struct {
	fields []formField
	files  []formFile
}

type formField struct{ name, value string }

type formFile struct {
	field, filename string
	data            []byte
}

// NewForm returns an empty multipart form.
func NewForm() *Form {
	return &Form{}
}

// Set appends a text field.
func (f *Form) Set(name, value string) *Form {
	f.fields = append(f.fields, formField{name: name, value: value})
	return f
}

// AddFile appends a file part.
func (f *Form) AddFile(field, filename string, data []byte) *Form {
	f.files = append(f.files, formFile{field: field, filename: filename, data: data})
	return f
}

func (f *Form) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, fld := range f.fields {
		if err := w.WriteField(fld.name, fld.value); err != nil {
			return nil, "", err
		}
	}
	for _, file := range f.files {
		part, err := w.CreateFormFile(file.field, file.filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(file.data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
