package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/boldreach/logistics-backend/api/controllers"
	"github.com/boldreach/logistics-backend/api/middleware"
	authsvc "github.com/boldreach/logistics-backend/internal/auth"
	"github.com/boldreach/logistics-backend/internal/locations"
	"github.com/boldreach/logistics-backend/internal/shipments"
	"github.com/boldreach/logistics-backend/internal/users"
	"github.com/boldreach/logistics-backend/pkg/auth/session"
	"github.com/boldreach/logistics-backend/pkg/config"
	"github.com/boldreach/logistics-backend/pkg/enums"
	"github.com/boldreach/logistics-backend/pkg/logger"
	"github.com/boldreach/logistics-backend/pkg/metrics"
	"github.com/boldreach/logistics-backend/pkg/redis"
)

// Deps bundles everything the router mounts.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       *redis.Client
	Registry    *prometheus.Registry
	HTTPMetrics *metrics.HTTPMetrics
	Sessions    session.AccessSessionChecker

	Auth      authsvc.Service
	Shipments shipments.Service
	Locations locations.Service
	Users     users.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(),
	)

	// A nil *redis.Client must stay a nil interface so the middleware and
	// readiness passthrough checks work.
	var cachePinger controllers.Pinger
	var trackingCache controllers.TrackingCache
	var idempotencyStore middleware.IdempotencyStore
	var rateLimitStore middleware.RateLimiterStore
	if deps.Redis != nil {
		cachePinger = deps.Redis
		trackingCache = deps.Redis
		idempotencyStore = deps.Redis
		rateLimitStore = deps.Redis
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	resetPolicy := middleware.NewAuthRateLimitPolicy(
		"reset",
		cfg.AuthRateLimit.ResetWindow,
		cfg.AuthRateLimit.ResetIPLimit,
		cfg.AuthRateLimit.ResetEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, cachePinger, logg))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, rateLimitStore, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(resetPolicy, rateLimitStore, logg)).Post("/forgot-password", controllers.AuthForgotPassword(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(resetPolicy, rateLimitStore, logg)).Post("/reset-password", controllers.AuthResetPassword(deps.Auth, logg))
		r.Post("/signup", controllers.AuthSignup(logg))
	})

	// Tracking stays public so recipients can follow parcels without accounts.
	r.Get("/api/v1/shipments/track/{trackingNumber}", controllers.ShipmentsTrack(deps.Shipments, trackingCache, cfg.Shipments.TrackingCacheTTL, logg))
	r.Get("/api/v1/locations", controllers.LocationsList(deps.Locations, logg))

	r.Route("/api/v1/shipments", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))
		r.Get("/", controllers.ShipmentsList(deps.Shipments, logg))
		r.Post("/", controllers.ShipmentsCreate(deps.Shipments, logg))
		r.Post("/draft", controllers.ShipmentsDraft(logg))
		r.Get("/stats", controllers.ShipmentsStats(deps.Shipments, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin, enums.UserRoleSuperAdmin))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Get("/dashboard", controllers.AdminDashboard(deps.Shipments, logg))
		r.Get("/shipments", controllers.AdminShipmentsList(deps.Shipments, logg))
		r.Post("/shipments/delivery-dates", controllers.AdminShipmentsDeliveryDates(deps.Shipments, logg))
		r.Get("/shipments/export", controllers.AdminShipmentsExport(deps.Shipments, logg))
		r.Get("/users", controllers.AdminUsersList(deps.Users, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleSuperAdmin))
			r.Patch("/shipments/{shipmentId}", controllers.AdminShipmentsUpdateStatus(deps.Shipments, logg))
			r.Delete("/shipments/{shipmentId}", controllers.AdminShipmentsDelete(deps.Shipments, logg))
			r.Post("/users", controllers.AdminUsersProvision(deps.Users, logg))
			r.Patch("/users/{userId}", controllers.AdminUsersSetRole(deps.Users, logg))
			r.Get("/locations", controllers.AdminLocationsList(deps.Locations, logg))
			r.Post("/locations", controllers.AdminLocationsUpsert(deps.Locations, logg))
			r.Delete("/locations/{locationId}", controllers.AdminLocationsDelete(deps.Locations, logg))
		})
	})

	return r
}
