package service

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/boddenberg/storefront-payment-relay/internal/domain"
	"github.com/boddenberg/storefront-payment-relay/internal/infra/observability"
	"github.com/boddenberg/storefront-payment-relay/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// StatusChecker looks up PIX charges by transaction id.
type StatusChecker struct {
	transport port.PixTransport
	creds     domain.PixCredentials
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewStatusChecker creates the status checker.
func NewStatusChecker(transport port.PixTransport, creds domain.PixCredentials, metrics *observability.Metrics, logger *zap.Logger) *StatusChecker {
	return &StatusChecker{
		transport: transport,
		creds:     creds,
		metrics:   metrics,
		logger:    logger,
	}
}

// Check returns the provider status body for transactionID as-is.
func (s *StatusChecker) Check(ctx context.Context, transactionID string) (json.RawMessage, error) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := tracer.Start(ctx, "StatusChecker.Check")
	defer span.End()
	span.SetAttributes(attribute.String("pix.transaction_id", transactionID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("check_payment", time.Since(start))
	}()

	if err := requirePixCredentials(s.creds); err != nil {
		return nil, err
	}

	statusURL := strings.TrimRight(s.creds.BaseURL, "/") + "/gateway/pix/status/" + url.PathEscape(transactionID)

	body, err := s.transport.GetJSON(ctx, statusURL, upperCaseKeyHeaders(s.creds))
	if err != nil {
		s.metrics.IncrProviderError(pixProvider)
		s.logger.Error("payment status lookup failed",
			zap.String("transaction_id", transactionID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Debug("payment status received", zap.String("transaction_id", transactionID))
	return body, nil
}
