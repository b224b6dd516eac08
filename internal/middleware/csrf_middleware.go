package middleware

import (
	"net/http"

	"nota/pkg/csrf"
	"nota/pkg/response"
)

// CSRFMiddleware guards state-changing note routes. Read-only routes (fetch,
// history, export, session) are mounted outside it. Runs after AuthMiddleware
// so the user identity is already on the context.
func CSRFMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token := r.Header.Get("X-CSRF-Token")
			if !csrf.Valid(token, GetUserID(r), secret) {
				response.Forbidden(w, "Invalid CSRF token. Please refresh and try again.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
