package main

import (
	"net/http"

	"github.com/rs/cors"
)

// withCORS lets the Flex UI, served from another origin, call the API.
// Tokens travel in the Authorization header, so credentials stay off.
func withCORS(h http.Handler, origins []string) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id", "X-Api-Key"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         600,
	}).Handler(h)
}
