package middleware

import (
	"encoding/json"
	"net/http"
)

type contextKey string

// AthleteEmailKey carries the signed-in athlete's email through the
// request context.
const AthleteEmailKey contextKey = "athlete_email"

// RequireAuth rejects API requests without a signed-in session.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email := r.Context().Value(AthleteEmailKey)
		if email == nil || email == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "not signed in"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
