package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/registrapos/backend/api/controllers"
	"github.com/registrapos/backend/api/middleware"
	salessvc "github.com/registrapos/backend/internal/sales"
	shiftsvc "github.com/registrapos/backend/internal/shift"
	"github.com/registrapos/backend/pkg/config"
	"github.com/registrapos/backend/pkg/db"
	"github.com/registrapos/backend/pkg/logger"
)

// NewRouter wires the register API: health, metrics, sales and sessions.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	cache db.Pinger,
	salesService salessvc.Service,
	sessionService shiftsvc.Service,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Get("/health/live", controllers.HealthLive(cfg))
	r.Get("/health/ready", controllers.HealthReady(cfg, dbP, cache, logg))
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/sales", func(r chi.Router) {
			r.Post("/quote", controllers.SalesQuote(salesService, logg))
			r.Post("/checkout", controllers.SalesCheckout(salesService, logg))
		})

		r.Post("/orders/{orderId}/lines/reverse", controllers.OrderLinesReverse(salesService, logg))

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", controllers.SessionOpen(sessionService, logg))
			r.Get("/{sessionId}", controllers.SessionGet(sessionService, logg))
			r.Post("/{sessionId}/payments", controllers.SessionRecordPayment(sessionService, logg))
			r.Post("/{sessionId}/close", controllers.SessionClose(sessionService, logg))
		})
	})

	return r
}
