package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vendaflow/checkout-tracker/api/controllers"
	"github.com/vendaflow/checkout-tracker/api/middleware"
	"github.com/vendaflow/checkout-tracker/internal/sessions"
	pkgauth "github.com/vendaflow/checkout-tracker/pkg/auth"
	"github.com/vendaflow/checkout-tracker/pkg/config"
	"github.com/vendaflow/checkout-tracker/pkg/db"
	"github.com/vendaflow/checkout-tracker/pkg/logger"
	"github.com/vendaflow/checkout-tracker/pkg/redis"
)

// NewRouter assembles the HTTP surface: the CORS-open tracking endpoints the
// storefront fires at, the JWT-guarded recovery feed, and the operational
// endpoints.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionService sessions.Service,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	trackingPolicy := middleware.NewTrackingRateLimitPolicy(
		"tracking",
		cfg.RateLimit.TrackingWindow,
		cfg.RateLimit.TrackingIPLimit,
		cfg.RateLimit.TrackingTenantLimit,
	)

	// typed-nil guard so a missing client skips the checks instead of panicking
	var redisP redis.Pinger
	if redisClient != nil {
		redisP = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	// public storefront surface; unauthenticated by design
	r.Group(func(r chi.Router) {
		r.Use(middleware.CORS(cfg.CORS))
		if redisClient != nil {
			r.Use(middleware.TrackingRateLimit(trackingPolicy, redisClient, logg))
		}

		r.Post("/checkout-session-start", controllers.TrackingStart(sessionService, logg))
		r.Post("/checkout-session-heartbeat", controllers.TrackingHeartbeat(sessionService, logg))
		r.Post("/checkout-session-complete", controllers.TrackingComplete(sessionService, logg))
	})

	r.Route("/api/v1/recovery", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, pkgauth.ScopeRecoveryRead, logg))
		r.Get("/sessions", controllers.RecoverySessions(sessionService, logg))
	})

	return r
}
