// Package middleware holds the HTTP middleware shared by the server and the
// serverless entrypoint.
package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
)

// CORSOptions configures cross-origin access.
type CORSOptions struct {
	AllowedOrigins   []string
	AllowCredentials bool
}

// CORS allows every method and header from the configured origins. With no
// origins configured any origin is allowed. Browsers reject a literal "*"
// on credentialed requests, so an open origin list with credentials echoes
// the caller's origin instead.
func CORS(opts CORSOptions) func(http.Handler) http.Handler {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	var allowAny func(*http.Request, string) bool
	if opts.AllowCredentials && slices.Contains(origins, "*") {
		origins = nil
		allowAny = func(*http.Request, string) bool { return true }
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowOriginFunc:  allowAny,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Prediction-ID", "X-Request-Id"},
		AllowCredentials: opts.AllowCredentials,
		MaxAge:           600,
	})
}
