package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORSWithOrigins returns a CORS middleware with specific allowed
// origins. Preflight OPTIONS requests on every route are answered here.
func CORSWithOrigins(origins []string) func(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{
			"X-Request-ID",
			"X-RateLimit-Limit", "X-RateLimit-Remaining",
			"X-Usage-Day-Bucket", "X-Usage-Plan", "X-Usage-Daily-Limit", "X-Usage-Used-Today",
		},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
