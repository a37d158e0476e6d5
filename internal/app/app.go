// Package app wires configuration, providers and services into the HTTP
// handler shared by the long running server and the serverless function.
package app

import (
	"context"
	"net/http"

	"github.com/boddenberg/storefront-payment-relay/internal/config"
	"github.com/boddenberg/storefront-payment-relay/internal/domain"
	"github.com/boddenberg/storefront-payment-relay/internal/handler"
	"github.com/boddenberg/storefront-payment-relay/internal/infra/cache"
	"github.com/boddenberg/storefront-payment-relay/internal/infra/client"
	"github.com/boddenberg/storefront-payment-relay/internal/infra/observability"
	"github.com/boddenberg/storefront-payment-relay/internal/infra/resilience"
	"github.com/boddenberg/storefront-payment-relay/internal/service"

	"go.uber.org/zap"
)

// ServiceName names the relay in logs and traces.
const ServiceName = "storefront-payment-relay"

// App is a fully wired relay.
type App struct {
	Handler http.Handler
	Metrics *observability.Metrics

	shutdownTracer func(context.Context) error
}

// New builds the relay from cfg.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, ServiceName)
	if err != nil {
		return nil, err
	}

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	// One breaker per provider so a PIX outage does not block card payments.
	pixBreaker := resilience.NewCircuitBreaker("vizzion", client.IsBreakerSuccess, logger)
	cardBreaker := resilience.NewCircuitBreaker("kiwify", client.IsBreakerSuccess, logger)
	bulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	vizzion := client.NewVizzionClient(httpClient, pixBreaker, bulkhead)
	kiwify := client.NewKiwifyClient(
		httpClient,
		cfg.Card.BaseURL,
		cfg.Card.ClientID,
		cfg.Card.ClientSecret,
		cardBreaker,
		bulkhead,
	)

	// --- Services ---
	creds := domain.PixCredentials{
		PublicKey: cfg.Pix.PublicKey,
		SecretKey: cfg.Pix.SecretKey,
		AccountID: cfg.Pix.AccountID,
		BaseURL:   cfg.Pix.BaseURL,
	}

	pix := service.NewPixNegotiator(vizzion, creds, service.PixOptions{
		AttemptTimeout:    cfg.Pix.CandidateTimeout,
		ChargeDescription: cfg.ChargeDescription,
	}, metrics, logger)

	status := service.NewStatusChecker(vizzion, creds, metrics, logger)

	card := service.NewCardRelay(kiwify, cache.NewTokenSlot(), service.CardOptions{
		TokenSafetyMargin: cfg.Card.TokenSafetyMargin,
		ChargeDescription: cfg.ChargeDescription,
	}, metrics, logger)

	logger.Info("providers configured",
		zap.Any("pix", pix.Configured()),
		zap.Any("card", card.Configured()),
	)

	// --- Router ---
	router := handler.NewRouter(pix, status, card, metrics, logger, handler.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		StaticDir:      cfg.StaticDir,
		DevMode:        cfg.DevMode,
	})

	return &App{
		Handler:        router,
		Metrics:        metrics,
		shutdownTracer: shutdown,
	}, nil
}

// Shutdown flushes pending spans.
func (a *App) Shutdown(ctx context.Context) error {
	return a.shutdownTracer(ctx)
}
