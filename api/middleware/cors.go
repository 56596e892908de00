package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/vendaflow/checkout-tracker/pkg/config"
)

// CORS applies the configured origin policy. The tracking endpoints serve
// arbitrary storefront domains, so the default policy is wide open and
// credentials stay disabled.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler
}
