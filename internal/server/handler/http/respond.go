// Package http provides the chi handlers of the stub JEEPedia API server.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jeepedia/jeepedia/internal/middleware"
	"github.com/jeepedia/jeepedia/internal/repository"
)

// maxUploadBytes bounds multipart bodies.
const maxUploadBytes = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// writeStoreError maps repository errors onto status codes.
func writeStoreError(w http.ResponseWriter, log *zap.Logger, err error, notFound string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeMessage(w, http.StatusNotFound, notFound)
	case errors.Is(err, repository.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "You do not have permission to perform this action.")
	case errors.Is(err, repository.ErrConflict):
		writeMessage(w, http.StatusBadRequest, "Already exists.")
	default:
		log.Error("store failure", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadBytes)).Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// formValue reads a trimmed field of a multipart or urlencoded body.
func formValue(r *http.Request, name string) string {
	return strings.TrimSpace(r.FormValue(name))
}

func parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid form body")
		return false
	}
	return true
}

// readUpload returns the name and content of a non-empty file part.
func readUpload(r *http.Request, field string) (string, []byte, bool) {
	f, hdr, err := r.FormFile(field)
	if err != nil {
		return "", nil, false
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil || len(data) == 0 {
		return "", nil, false
	}
	return hdr.Filename, data, true
}

func userID(r *http.Request) int64 {
	id, _ := middleware.UserIDFromContext(r.Context())
	return id
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
