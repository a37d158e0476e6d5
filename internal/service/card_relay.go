package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/boddenberg/storefront-payment-relay/internal/domain"
	"github.com/boddenberg/storefront-payment-relay/internal/infra/observability"
	"github.com/boddenberg/storefront-payment-relay/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

const cardProvider = "kiwify"

// CardOptions tunes the card relay.
type CardOptions struct {
	// TokenSafetyMargin is subtracted from the declared token lifetime.
	TokenSafetyMargin time.Duration
	ChargeDescription string
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// CardRelay submits card payments with a cached bearer token.
type CardRelay struct {
	gateway        port.CardGateway
	tokens         port.TokenCache
	opts           CardOptions
	fingerprintKey []byte
	metrics        *observability.Metrics
	logger         *zap.Logger
}

// NewCardRelay creates the card relay. The token cache lives as long as the relay.
func NewCardRelay(
	gateway port.CardGateway,
	tokens port.TokenCache,
	opts CardOptions,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *CardRelay {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic("card relay: read random key: " + err.Error())
	}

	return &CardRelay{
		gateway:        gateway,
		tokens:         tokens,
		opts:           opts,
		fingerprintKey: key,
		metrics:        metrics,
		logger:         logger,
	}
}

// Configured reports which card provider credentials are set.
func (c *CardRelay) Configured() domain.CredentialFlags {
	return c.gateway.Configured()
}

// Process charges the card once and returns the provider body as-is.
// Calls run to completion even if the caller goes away.
func (c *CardRelay) Process(ctx context.Context, req *domain.CardPaymentRequest) (json.RawMessage, error) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := tracer.Start(ctx, "CardRelay.Process")
	defer span.End()

	start := time.Now()
	defer func() {
		c.metrics.RecordRequestDuration("process_card", time.Since(start))
	}()

	flags := c.gateway.Configured()
	for _, ok := range flags {
		if !ok {
			return nil, &domain.ErrConfiguration{Provider: cardProvider, Configured: flags}
		}
	}

	charge, err := buildCardCharge(req, c.opts.ChargeDescription)
	if err != nil {
		return nil, err
	}

	fingerprint := c.fingerprint(charge.Card.Number)
	span.SetAttributes(attribute.String("card.fingerprint", fingerprint))

	token, err := c.accessToken(ctx)
	if err != nil {
		c.metrics.IncrProviderError(cardProvider)
		c.logger.Error("card provider authentication failed", zap.Error(err))
		return nil, err
	}

	c.logger.Info("submitting card charge",
		zap.String("card_fingerprint", fingerprint),
		zap.String("card_last4", lastFour(charge.Card.Number)),
		zap.Float64("amount", charge.Amount),
	)

	body, err := c.gateway.Charge(ctx, token, charge)
	if err != nil {
		c.metrics.IncrProviderError(cardProvider)
		c.logger.Error("card charge failed",
			zap.String("card_fingerprint", fingerprint),
			zap.Error(err),
		)
		return nil, err
	}

	c.logger.Info("card charge accepted", zap.String("card_fingerprint", fingerprint))
	return body, nil
}

// accessToken returns the cached token or exchanges credentials for a new
// one. Concurrent callers may both refresh; the last one is kept.
func (c *CardRelay) accessToken(ctx context.Context) (string, error) {
	if tok, ok := c.tokens.Get(c.opts.Clock()); ok {
		c.metrics.IncrTokenCacheHit()
		return tok.Value, nil
	}
	c.metrics.IncrTokenCacheMiss()

	grant, err := c.gateway.RequestToken(ctx)
	if err != nil {
		var authErr *domain.ErrAuthentication
		if !errors.As(err, &authErr) {
			err = &domain.ErrAuthentication{Provider: cardProvider, Err: err}
		}
		return "", err
	}
	c.metrics.IncrTokenRefresh()

	now := c.opts.Clock()
	expiresAt := now.Add(tokenLifetime(grant, c.opts.TokenSafetyMargin, now))
	c.tokens.Set(domain.AccessToken{Value: grant.AccessToken, ExpiresAt: expiresAt})

	c.logger.Info("card provider token refreshed", zap.Time("expires_at", expiresAt))
	return grant.AccessToken, nil
}

// fingerprint is a keyed hash of the card number, stable for the process
// lifetime, used to correlate log lines without the number itself.
func (c *CardRelay) fingerprint(number string) string {
	h, err := blake2b.New256(c.fingerprintKey)
	if err != nil {
		return ""
	}
	h.Write([]byte(number))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// buildCardCharge maps a validated request to the provider payload.
func buildCardCharge(req *domain.CardPaymentRequest, description string) (*domain.CardCharge, error) {
	month, year, ok := splitExpiry(req.CardExpiry)
	if !ok {
		return nil, &domain.ErrValidation{Field: "cardExpiry", Message: msgCardExpiry}
	}

	return &domain.CardCharge{
		Amount: req.Customer.Amount,
		Customer: domain.CardCustomer{
			Name:     req.Customer.Name,
			Email:    req.Customer.Email,
			Document: DigitsOnly(req.Customer.TaxID),
			Phone:    DigitsOnly(req.Customer.Phone),
		},
		Card: domain.CardDetails{
			Number:     DigitsOnly(req.CardNumber),
			HolderName: req.CardHolder,
			ExpMonth:   month,
			ExpYear:    year,
			CVV:        req.CardCVV,
		},
		Installments: 1,
		Description:  description,
	}, nil
}
