package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seqstage/seqstage-backend/api/controllers"
	"github.com/seqstage/seqstage-backend/api/middleware"
	"github.com/seqstage/seqstage-backend/internal/attempts"
	"github.com/seqstage/seqstage-backend/internal/broker"
	"github.com/seqstage/seqstage-backend/pkg/config"
	"github.com/seqstage/seqstage-backend/pkg/db"
	"github.com/seqstage/seqstage-backend/pkg/logger"
	"github.com/seqstage/seqstage-backend/pkg/metrics"
	"github.com/seqstage/seqstage-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       *redis.Client
	Broker      broker.Service
	Attempts    attempts.Service
	HTTPMetrics *metrics.HTTPMetrics
	Registry    *prometheus.Registry
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

	var redisPinger redis.Pinger
	if deps.Redis != nil {
		redisPinger = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, redisPinger))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if deps.Redis != nil {
			r.Use(middleware.Idempotency(deps.Redis, logg))
		}

		r.Route("/organisms/{scopeKey}", func(r chi.Router) {
			r.With(middleware.RequireAction(middleware.ActionBrokerClaim, logg)).
				Post("/claim", controllers.BrokerClaim(deps.Broker, cfg.Broker, logg))
			r.With(middleware.RequireAction(middleware.ActionDashboardRead, logg)).
				Get("/summary", controllers.OrganismSummary(deps.Attempts, logg))
		})

		r.Route("/attempts", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAction(middleware.ActionDashboardRead, logg))
				r.Get("/", controllers.AttemptsList(deps.Attempts, logg))
				r.Get("/{id}", controllers.AttemptGet(deps.Attempts, logg))
				r.Get("/{id}/items", controllers.AttemptItems(deps.Attempts, logg))
			})

			r.With(middleware.RequireAction(middleware.ActionBrokerRenew, logg)).
				Post("/{id}/lease/renew", controllers.AttemptRenew(deps.Broker, cfg.Broker, logg))
			r.With(middleware.RequireAction(middleware.ActionBrokerReport, logg)).
				Post("/{id}/report", controllers.AttemptReport(deps.Broker, logg))
			r.With(middleware.RequireAction(middleware.ActionBrokerFinalize, logg)).
				Post("/{id}/finalize", controllers.AttemptFinalize(deps.Broker, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.With(middleware.RequireAction(middleware.ActionAdminExpireLeases, logg)).
			Post("/leases/expire", controllers.AdminExpireLeases(deps.Broker, logg))
	})

	return r
}
