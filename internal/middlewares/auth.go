package middlewares

import (
	"net/http"
	"strings"

	"github.com/lumbrjx/codek7/streaming/pkg/logger"
	"github.com/lumbrjx/codek7/streaming/pkg/utils"
)

// Auth requires a valid "Authorization: Bearer <jwt>" header signed with secret.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			uid, err := utils.ValidateToken(secret, token)
			if err != nil {
				logger.WithContext(r.Context()).Warn("Rejected bearer token", "error", err.Error())
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(logger.ContextWithSubject(r.Context(), uid)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"status":"error","message":"` + message + `"}`))
}
