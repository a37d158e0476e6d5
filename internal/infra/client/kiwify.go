package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/boddenberg/storefront-payment-relay/internal/domain"
	"github.com/boddenberg/storefront-payment-relay/internal/infra/resilience"

	"github.com/sony/gobreaker"
)

// KiwifyClient calls the Kiwify card gateway.
type KiwifyClient struct {
	provider
	baseURL      string
	clientID     string
	clientSecret string
}

// NewKiwifyClient creates a new KiwifyClient.
func NewKiwifyClient(httpClient *http.Client, baseURL, clientID, clientSecret string, cb *gobreaker.CircuitBreaker, bulkhead *resilience.Bulkhead) *KiwifyClient {
	return &KiwifyClient{
		provider: provider{
			name:       "kiwify",
			httpClient: httpClient,
			cb:         cb,
			bulkhead:   bulkhead,
		},
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// Configured reports which client credentials are set.
func (c *KiwifyClient) Configured() domain.CredentialFlags {
	return domain.CredentialFlags{
		"clientIdConfigured":     c.clientID != "",
		"clientSecretConfigured": c.clientSecret != "",
	}
}

// RequestToken exchanges the client credentials for a bearer token.
// Every failure is returned as *domain.ErrAuthentication.
func (c *KiwifyClient) RequestToken(ctx context.Context) (*domain.TokenGrant, error) {
	ctx, span := tracer.Start(ctx, "KiwifyClient.RequestToken")
	defer span.End()

	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"grant_type":    {"client_credentials"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &domain.ErrAuthentication{Provider: c.name, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(req)
	if err != nil {
		authErr := &domain.ErrAuthentication{Provider: c.name, Err: err}
		var pe *domain.ErrProvider
		if errors.As(err, &pe) {
			authErr.Details = pe.Details
		}
		return nil, authErr
	}

	var grant domain.TokenGrant
	if err := json.Unmarshal(body, &grant); err != nil {
		return nil, &domain.ErrAuthentication{Provider: c.name, Err: fmt.Errorf("decode token response: %w", err)}
	}
	if grant.AccessToken == "" {
		return nil, &domain.ErrAuthentication{Provider: c.name, Err: errors.New("token response without access_token")}
	}
	return &grant, nil
}

// Charge submits one card payment.
func (c *KiwifyClient) Charge(ctx context.Context, accessToken string, charge *domain.CardCharge) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "KiwifyClient.Charge")
	defer span.End()

	payload, err := json.Marshal(charge)
	if err != nil {
		return nil, fmt.Errorf("encode kiwify charge: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	return c.do(req)
}
