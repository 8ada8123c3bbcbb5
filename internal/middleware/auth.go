package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"clinic-management-api/internal/auth"
	"clinic-management-api/internal/store"
)

type ctxKey string

const UserIDKey ctxKey = "uid"

// UserID returns the authenticated user id stashed by Auth, or "".
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}

// Auth guards every route behind it with bearer-token verification.
// Beyond signature and expiry it checks the token's session id against
// the user's stored one, so a newer login kills older tokens even
// before they expire. Fails closed when the secret is unconfigured.
func Auth(secret string, users store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				unauthorized(w, "Token not provided.")
				return
			}

			if secret == "" {
				writeJSONError(w, http.StatusInternalServerError, "JWT secret not configured.")
				return
			}

			claims, err := auth.ParseToken(raw, secret)
			if err != nil {
				unauthorized(w, "Invalid or expired token.")
				return
			}

			u, err := users.ByID(r.Context(), claims.Subject)
			if err != nil {
				unauthorized(w, "User not found.")
				return
			}

			if u.CurrentSessionID == nil || *u.CurrentSessionID != claims.SessionID {
				unauthorized(w, "Session is no longer valid.")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, u.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" || !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}

func unauthorized(w http.ResponseWriter, msg string) {
	writeJSONError(w, http.StatusUnauthorized, msg)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
