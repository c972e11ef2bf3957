package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// CORS configures cross-origin handling for the API. Preflight OPTIONS always
// gets a 200 so browser preflights never surface as 403s to the frontend.
// allowedOrigins is the list of allowed origins (e.g. https://www.gatherly.app, http://localhost:3000).
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			return originAllowed(origin, allowedOrigins)
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// originAllowed compares origins case-insensitively against the allow list.
func originAllowed(origin string, allowed []string) bool {
	origin = strings.TrimSpace(strings.ToLower(origin))
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if strings.TrimSpace(strings.ToLower(a)) == origin {
			return true
		}
	}
	return false
}
