package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows the embedded widget to call the API from the host page origin.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}
