// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service layer
// from the concrete provider clients.
package port

import (
	"context"
	"encoding/json"
	"time"

	"github.com/boddenberg/storefront-payment-relay/internal/domain"
)

// PixTransport sends raw JSON requests to the PIX provider.
// Header names are sent exactly as given.
type PixTransport interface {
	PostJSON(ctx context.Context, url string, headers map[string]string, body any) (json.RawMessage, error)
	GetJSON(ctx context.Context, url string, headers map[string]string) (json.RawMessage, error)
}

// CardGateway talks to the card provider.
type CardGateway interface {
	RequestToken(ctx context.Context) (*domain.TokenGrant, error)
	Charge(ctx context.Context, accessToken string, charge *domain.CardCharge) (json.RawMessage, error)
	Configured() domain.CredentialFlags
}

// TokenCache holds the card provider access token.
type TokenCache interface {
	Get(now time.Time) (domain.AccessToken, bool)
	Set(token domain.AccessToken)
}
