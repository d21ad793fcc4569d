package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"
)

var Logger *slog.Logger

var level = new(slog.LevelVar)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	subjectKey   ctxKey = "subject"
)

func init() {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String("timestamp", a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	Logger = slog.New(handler)

	slog.SetDefault(Logger)
}

// LogLevel represents different log levels
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// SetLevel switches the minimum level of the package logger. Unknown values keep info.
func SetLevel(l LogLevel) {
	switch LogLevel(strings.ToLower(string(l))) {
	case LevelDebug:
		level.Set(slog.LevelDebug)
	case LevelWarn:
		level.Set(slog.LevelWarn)
	case LevelError:
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
}

// ContextWithRequestID stores the request id picked up by WithContext.
func ContextWithRequestID(ctx context.Context, reqID string) context.Context {
	return context.WithValue(ctx, requestIDKey, reqID)
}

// ContextWithSubject stores the authenticated caller so that every log line of
// the request names who triggered it.
func ContextWithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// SubjectFrom returns the authenticated caller stored by ContextWithSubject.
func SubjectFrom(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	subject, ok := ctx.Value(subjectKey).(string)
	return subject, ok && subject != ""
}

// WithContext adds request context information to logs
func WithContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return Logger
	}
	l := Logger
	if reqID, ok := ctx.Value(requestIDKey).(string); ok && reqID != "" {
		l = l.With("request_id", reqID)
	}
	if subject, ok := SubjectFrom(ctx); ok {
		l = l.With("subject", subject)
	}
	return l
}

func LogPlaylistOperation(ctx context.Context, operation, videoID, filename string, duration time.Duration, err error) {
	logger := WithContext(ctx).With(
		"service", "hls",
		"operation", operation,
		"video_id", videoID,
		"duration_ms", duration.Milliseconds(),
	)

	if filename != "" {
		logger = logger.With("filename", filename)
	}

	if err != nil {
		logger.Error("Playlist operation failed",
			"error", err.Error(),
		)
	} else {
		logger.Info("Playlist operation completed successfully")
	}
}

func LogImportOperation(ctx context.Context, jobID, masterURL string, files int, bytes int64, duration time.Duration, err error) {
	logger := WithContext(ctx).With(
		"service", "import",
		"job_id", jobID,
		"master_url", masterURL,
		"file_count", files,
		"downloaded_bytes", bytes,
		"duration_ms", duration.Milliseconds(),
	)

	if err != nil {
		logger.Error("Import operation failed",
			"error", err.Error(),
		)
	} else {
		logger.Info("Import operation completed successfully")
	}
}

func LogStorageOperation(ctx context.Context, operation, fileName string, fileSize int64, duration time.Duration, err error) {
	logger := WithContext(ctx).With(
		"service", "storage",
		"operation", operation,
		"file_name", fileName,
		"file_size_bytes", fileSize,
		"duration_ms", duration.Milliseconds(),
	)

	if err != nil {
		logger.Error("Storage operation failed",
			"error", err.Error(),
		)
	} else {
		logger.Info("Storage operation completed successfully")
	}
}

func LogDatabaseOperation(ctx context.Context, operation, table string, duration time.Duration, err error) {
	logger := WithContext(ctx).With(
		"service", "database",
		"operation", operation,
		"table", table,
		"duration_ms", duration.Milliseconds(),
	)

	if err != nil {
		logger.Error("Database operation failed",
			"error", err.Error(),
		)
	} else {
		logger.Debug("Database operation completed successfully")
	}
}

func LogHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	WithContext(ctx).Info("HTTP request completed",
		"service", "http",
		"method", method,
		"route", route,
		"status", status,
		"duration_ms", duration.Milliseconds(),
	)
}
