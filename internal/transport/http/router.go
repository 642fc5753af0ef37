// Package httptransport assembles the public HTTP surface: edge middleware,
// operational endpoints and the per-domain handlers behind auth and role gates.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	analyticshandler "technovit/internal/analytics/handler"
	eventhandler "technovit/internal/event/handler"
	"technovit/internal/platform/metrics"
	"technovit/internal/platform/ratelimit"
	registrationhandler "technovit/internal/registration/handler"
	userhandler "technovit/internal/user/handler"
	"technovit/pkg/domain"
	"technovit/pkg/platform/httputil"
	authmw "technovit/pkg/platform/middleware/auth"
	"technovit/pkg/platform/middleware/metadata"
	"technovit/pkg/platform/middleware/request"
	"technovit/pkg/platform/middleware/requesttime"
	"technovit/pkg/platform/middleware/role"
)

var (
	eventManagers  = []domain.Role{domain.RoleAdmin, domain.RoleSuperCoordinator}
	adminReaders   = []domain.Role{domain.RoleAdmin, domain.RoleSuperCoordinator, domain.RoleCoordinator}
	paymentConfirm = []domain.Role{domain.RoleAdmin, domain.RoleRegistrationCoordinator}
)

// Deps collects everything the router mounts. Nil optional fields disable
// the corresponding middleware or endpoint.
type Deps struct {
	Logger *slog.Logger

	Users         *userhandler.Handler
	Events        *eventhandler.Handler
	Registrations *registrationhandler.Handler
	Analytics     *analyticshandler.Handler

	Tokens      authmw.JWTValidator
	Principals  authmw.PrincipalResolver
	Revocations authmw.TokenRevocationChecker

	Metrics        *metrics.HTTP
	Gatherer       prometheus.Gatherer
	RateLimiter    *ratelimit.KeyedRateLimiter
	AllowedOrigins []string
	// Ready reports whether backing stores are reachable.
	Ready func(ctx context.Context) error
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(d.Logger))
	r.Use(request.Logger(d.Logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	if len(d.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", d.handleReady)
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if d.RateLimiter != nil {
			r.Use(d.RateLimiter.Middleware(d.Logger))
		}
		d.mountPublic(r)
		d.mountAuthenticated(r)
	})
	return r
}

func (d Deps) mountPublic(r chi.Router) {
	r.Post("/auth/register", d.Users.HandleRegister)
	r.Post("/auth/login", d.Users.HandleLogin)

	r.Group(func(r chi.Router) {
		r.Use(authmw.OptionalAuth(d.Tokens, d.Principals, d.Revocations, d.Logger))
		r.Get("/events", d.Events.HandleList)
		r.Get("/events/{id}", d.Events.HandleGet)
	})
}

func (d Deps) mountAuthenticated(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(d.Tokens, d.Principals, d.Revocations, d.Logger))

		r.Post("/registrations", d.Registrations.HandleCreate)
		r.Get("/registrations", d.Registrations.HandleList)
		r.Post("/registrations/accept", d.Registrations.HandleRespond)
		r.Delete("/registrations/{id}", d.Registrations.HandleDelete)
		r.With(role.Require(d.Logger, paymentConfirm...)).
			Post("/registrations/{id}/payment", d.Registrations.HandleConfirmPayment)

		// Field-level edit rights are decided by the event service.
		r.Patch("/events/{id}", d.Events.HandlePatch)
		r.With(role.Require(d.Logger, eventManagers...)).Post("/events", d.Events.HandleCreate)

		r.Route("/admin", func(r chi.Router) {
			r.Use(role.Require(d.Logger, adminReaders...))
			r.Get("/stats", d.Analytics.HandleStats)
			r.Get("/events", d.Analytics.HandleEventBreakdown)
			r.Get("/events/{id}/participants", d.Analytics.HandleParticipants)
		})
	})
}

func (d Deps) handleReady(w http.ResponseWriter, r *http.Request) {
	if d.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := d.Ready(ctx); err != nil {
			d.Logger.WarnContext(ctx, "readiness check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
