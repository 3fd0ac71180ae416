package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/admbtski/miglee-sub001/internal/domain"
)

// Authenticate resolves the caller from the Authorization bearer token and
// stores it with domain.WithPrincipal. Requests without a valid token get 401.
func Authenticate(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || token == "" {
				writeUnauthorized(w, "missing bearer token")
				return
			}

			claims, err := validator.Validate(r.Context(), token)
			if err != nil {
				logger.Debug("bearer token rejected", "request_id", RequestIDFromContext(r.Context()), "error", err)
				writeUnauthorized(w, "invalid bearer token")
				return
			}

			ctx := domain.WithPrincipal(r.Context(), domain.ContextPrincipal{
				UserID: claims.Subject,
				Issuer: claims.Issuer,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    http.StatusUnauthorized,
		"kind":    string(domain.KindNotAuthenticated),
		"message": msg,
	})
}
