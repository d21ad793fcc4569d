package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/lumbrjx/codek7/streaming/internal/storage"
	"github.com/lumbrjx/codek7/streaming/pkg/logger"
)

var errObjectStorageDisabled = errors.New("object storage is disabled")

// StreamObject proxies an HLS artifact kept in object storage.
func (a *API) StreamObject(w http.ResponseWriter, r *http.Request) {
	objectKey := chi.URLParam(r, "*")
	if a.Objects == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Status: "error", Message: errObjectStorageDisabled.Error()})
		return
	}
	if objectKey == "" || strings.Contains(objectKey, "..") {
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Message: "invalid object key"})
		return
	}

	obj, size, err := a.Objects.Open(r.Context(), objectKey)
	if err != nil {
		logger.WithContext(r.Context()).Warn("Object not found", "object_key", objectKey, "error", err.Error())
		writeJSON(w, http.StatusNotFound, errorResponse{Status: "error", Message: "object not found"})
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", storage.ContentType(objectKey))
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, obj); err != nil {
		logger.WithContext(r.Context()).Warn("Failed to stream object", "object_key", objectKey, "error", err.Error())
	}
}
