package middleware

import (
	"net/http"
	"strings"
)

// CORSMiddleware answers preflights and stamps CORS headers. The browser
// client sends X-CSRF-Token on every mutating call, so it must be listed in
// allowedHeaders for preflights to pass.
func CORSMiddleware(allowedOrigins, allowedMethods, allowedHeaders string) func(http.Handler) http.Handler {
	origins := make([]string, 0)
	for _, o := range strings.Split(allowedOrigins, ",") {
		origins = append(origins, strings.TrimSpace(o))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			for _, o := range origins {
				if o == "*" || o == origin {
					if origin != "" {
						w.Header().Set("Access-Control-Allow-Origin", origin)
					} else if o == "*" {
						w.Header().Set("Access-Control-Allow-Origin", "*")
					}
					break
				}
			}

			w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Max-Age", "3600")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
