package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS applies the storefront's open origin policy. The API serves a public
// storefront widget, so any origin may call it; credentials stay disabled.
func CORS() func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler
}
