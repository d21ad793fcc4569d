package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/lumbrjx/codek7/streaming/internal/hls"
	"github.com/lumbrjx/codek7/streaming/internal/repository"
	"github.com/lumbrjx/codek7/streaming/internal/service"
	"github.com/lumbrjx/codek7/streaming/pkg/logger"
)

// ObjectReader is the part of the MinIO client used to stream artifacts.
type ObjectReader interface {
	Open(ctx context.Context, objectKey string) (io.ReadCloser, int64, error)
}

type API struct {
	Service service.StreamingService
	// Objects is nil when object storage is disabled.
	Objects ObjectReader
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Logger.Error("Failed to encode response", "error", err.Error())
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		logger.WithContext(r.Context()).Error("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err.Error(),
		)
	}
	writeJSON(w, status, errorResponse{Status: "error", Message: err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, hls.ErrImportBudgetExceeded):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, hls.ErrImportNetwork):
		return http.StatusBadGateway
	case errors.Is(err, hls.ErrImportTimeout), errors.Is(err, hls.ErrMutationTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, hls.ErrQueueClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
