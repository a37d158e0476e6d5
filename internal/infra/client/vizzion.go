package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/boddenberg/storefront-payment-relay/internal/infra/resilience"

	"github.com/sony/gobreaker"
)

// VizzionClient is the JSON transport to the Vizzion PIX gateway.
// URLs and authentication headers are decided by the caller. Charge posts are
// format negotiation attempts and bypass the circuit breaker, status lookups
// go through it.
type VizzionClient struct {
	provider
}

// NewVizzionClient creates a new VizzionClient.
func NewVizzionClient(httpClient *http.Client, cb *gobreaker.CircuitBreaker, bulkhead *resilience.Bulkhead) *VizzionClient {
	return &VizzionClient{
		provider: provider{
			name:       "vizzion",
			httpClient: httpClient,
			cb:         cb,
			bulkhead:   bulkhead,
		},
	}
}

// PostJSON sends body as JSON to url.
func (c *VizzionClient) PostJSON(ctx context.Context, url string, headers map[string]string, body any) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "VizzionClient.PostJSON")
	defer span.End()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode vizzion payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	setHeaders(req, headers)

	return c.doUnguarded(req)
}

// GetJSON fetches url.
func (c *VizzionClient) GetJSON(ctx context.Context, url string, headers map[string]string) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "VizzionClient.GetJSON")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	setHeaders(req, headers)

	return c.do(req)
}
