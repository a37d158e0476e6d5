package handler

import (
	"net/http"

	"github.com/boddenberg/storefront-payment-relay/internal/domain"
	"github.com/boddenberg/storefront-payment-relay/internal/infra/observability"
	"github.com/boddenberg/storefront-payment-relay/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Options holds router settings that do not belong to a service.
type Options struct {
	AllowedOrigins []string
	// StaticDir, when set, serves the storefront files.
	StaticDir string
	DevMode   bool
}

// NewRouter creates the HTTP router with all routes and middleware.
// Routes follow the contract expected by the storefront checkout page.
func NewRouter(
	pix *service.PixNegotiator,
	status *service.StatusChecker,
	card *service.CardRelay,
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts Options,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(CORSMiddleware(opts.AllowedOrigins))
	r.Use(SecureHeadersMiddleware(opts.DevMode))
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler(pix, card))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	r.Get("/metrics/relay", relayMetricsHandler(metrics))

	// --- Payments ---
	r.Post("/generate-pix", generatePixHandler(pix, metrics, logger))
	r.Post("/check-payment", checkPaymentHandler(status, metrics, logger))
	r.Post("/process-card", processCardHandler(card, metrics, logger))

	// --- Storefront ---
	if opts.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(opts.StaticDir)))
	}

	return r
}

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

func readyzHandler(pix *service.PixNegotiator, card *service.CardRelay) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := domain.ReadinessStatus{Status: "ready"}
		if pix != nil {
			resp.Pix = pix.Configured()
		}
		if card != nil {
			resp.Card = card.Configured()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func relayMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
