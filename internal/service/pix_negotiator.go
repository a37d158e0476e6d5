package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/storefront-payment-relay/internal/domain"
	"github.com/boddenberg/storefront-payment-relay/internal/infra/observability"
	"github.com/boddenberg/storefront-payment-relay/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service")

const pixProvider = "vizzion"

var errUnrecognizedResponse = errors.New("no candidate format produced a recognizable PIX response")

// PixOptions tunes the negotiator.
type PixOptions struct {
	// AttemptTimeout bounds each candidate call.
	AttemptTimeout time.Duration
	// ChargeDescription prefixes the description of account based charges.
	ChargeDescription string
}

// PixNegotiator creates PIX charges against a provider whose accepted
// request contract is uncertain, by trying the candidate formats in order.
type PixNegotiator struct {
	transport port.PixTransport
	creds     domain.PixCredentials
	opts      PixOptions
	metrics   *observability.Metrics
	logger    *zap.Logger
	newTxID   func() string
}

// NewPixNegotiator creates the negotiator with all dependencies injected.
func NewPixNegotiator(
	transport port.PixTransport,
	creds domain.PixCredentials,
	opts PixOptions,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *PixNegotiator {
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 10 * time.Second
	}
	return &PixNegotiator{
		transport: transport,
		creds:     creds,
		opts:      opts,
		metrics:   metrics,
		logger:    logger,
		newTxID:   newTransactionID,
	}
}

// Configured reports which PIX credentials are set.
func (n *PixNegotiator) Configured() domain.CredentialFlags {
	return n.creds.Flags()
}

// Generate creates a PIX charge and returns the first recognizable result.
// Calls run to completion even if the caller goes away.
func (n *PixNegotiator) Generate(ctx context.Context, req *domain.PaymentRequest) (*domain.NormalizedPixResult, error) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := tracer.Start(ctx, "PixNegotiator.Generate")
	defer span.End()

	start := time.Now()
	defer func() {
		n.metrics.RecordRequestDuration("generate_pix", time.Since(start))
	}()

	if err := requirePixCredentials(n.creds); err != nil {
		return nil, err
	}

	txID := n.newTxID()
	span.SetAttributes(attribute.String("pix.tx_id", txID))

	candidates := buildCandidates(n.creds, newPixPayload(req, txID, n.opts.ChargeDescription))

	var lastErr error
	for _, candidate := range candidates {
		result, err := n.attempt(ctx, candidate, txID)
		if err != nil {
			lastErr = err
			continue
		}
		if result != nil {
			span.SetAttributes(attribute.String("pix.format", result.Format))
			return result, nil
		}
	}

	n.metrics.IncrProviderError(pixProvider)
	n.logger.Error("all pix candidate formats failed",
		zap.String("tx_id", txID),
		zap.Int("attempts", len(candidates)),
		zap.NamedError("last_error", lastErr),
	)

	return nil, exhaustedError(lastErr, n.creds.Flags())
}

// attempt performs one candidate call. A nil result with a nil error means
// the provider accepted the call but the body matched no known shape.
func (n *PixNegotiator) attempt(ctx context.Context, candidate domain.CandidateFormat, txID string) (*domain.NormalizedPixResult, error) {
	ctx, cancel := context.WithTimeout(ctx, n.opts.AttemptTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "PixNegotiator.attempt")
	defer span.End()
	span.SetAttributes(attribute.String("pix.format", candidate.Label))

	body, err := n.transport.PostJSON(ctx, candidate.TargetURL, candidate.Headers, candidate.Body)
	if err != nil {
		n.metrics.IncrPixAttempt(candidate.Label, "failed")
		n.logger.Warn("pix candidate failed",
			zap.String("format", candidate.Label),
			zap.String("tx_id", txID),
			zap.Error(err),
		)
		return nil, err
	}

	result, ok := extractPixResult(body, txID)
	if !ok {
		n.metrics.IncrPixAttempt(candidate.Label, "unrecognized")
		n.logger.Warn("pix candidate returned an unrecognized response",
			zap.String("format", candidate.Label),
			zap.String("tx_id", txID),
		)
		return nil, nil
	}

	result.Format = candidate.Label
	result.Raw = body

	n.metrics.IncrPixAttempt(candidate.Label, "success")
	n.logger.Info("pix charge created",
		zap.String("format", candidate.Label),
		zap.String("tx_id", txID),
		zap.String("transaction_id", result.TransactionID),
	)
	return result, nil
}

// exhaustedError builds the error returned when no candidate succeeded,
// carrying the last provider details when there were any.
func exhaustedError(lastErr error, flags domain.CredentialFlags) *domain.ErrProvider {
	out := &domain.ErrProvider{
		Provider:   pixProvider,
		Configured: flags,
		Err:        errUnrecognizedResponse,
	}
	if lastErr == nil {
		return out
	}

	out.Err = lastErr
	var pe *domain.ErrProvider
	if errors.As(lastErr, &pe) {
		out.StatusCode = pe.StatusCode
		out.Details = pe.Details
	}
	return out
}

func requirePixCredentials(creds domain.PixCredentials) error {
	if creds.PublicKey == "" || creds.SecretKey == "" {
		return &domain.ErrConfiguration{Provider: pixProvider, Configured: creds.Flags()}
	}
	return nil
}

// newTransactionID returns "txid-<unix millis>-<9 random chars>".
func newTransactionID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("txid-%d-%s", time.Now().UnixMilli(), suffix)
}
