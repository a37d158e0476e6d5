package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/storefront-payment-relay/internal/domain"
	"github.com/boddenberg/storefront-payment-relay/internal/infra/observability"
	"github.com/boddenberg/storefront-payment-relay/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testCreds = domain.PixCredentials{
	PublicKey: "pk-test",
	SecretKey: "sk-test",
	AccountID: "acc-test",
	BaseURL:   "https://pix.example/api/v1",
}

func newNegotiator(transport *fakeTransport, creds domain.PixCredentials, timeout time.Duration) *service.PixNegotiator {
	return service.NewPixNegotiator(
		transport,
		creds,
		service.PixOptions{AttemptTimeout: timeout, ChargeDescription: "Manual Do Milhão"},
		observability.NewMetrics(),
		zap.NewNop(),
	)
}

func testPaymentRequest() *domain.PaymentRequest {
	return &domain.PaymentRequest{
		Name:   "Maria Silva",
		Email:  "maria@example.com",
		Phone:  "(11) 98765-4321",
		TaxID:  "123.456.789-00",
		Amount: 47.9,
	}
}

func rejected(details string) error {
	return &domain.ErrProvider{Provider: "vizzion", StatusCode: 401, Details: json.RawMessage(details)}
}

func TestGenerate_OnlySecondFormatAccepted(t *testing.T) {
	transport := &fakeTransport{
		post: func(_ context.Context, call transportCall) (json.RawMessage, error) {
			if strings.HasSuffix(call.URL, "/pix/charge") {
				return json.RawMessage(`{"qr_code":{"base64":"IMG"},"qr_code_text":"00020126","id":"ch_1"}`), nil
			}
			return nil, rejected(`{"message":"unauthorized"}`)
		},
	}

	result, err := newNegotiator(transport, testCreds, time.Second).Generate(context.Background(), testPaymentRequest())
	require.NoError(t, err)

	assert.Equal(t, "format-2", result.Format)
	assert.Equal(t, "IMG", result.QRCodeBase64)
	assert.Equal(t, "00020126", result.QRCodeText)
	assert.Equal(t, "ch_1", result.TransactionID)

	calls := transport.Calls()
	require.Len(t, calls, 2, "format 3 must never be attempted")
	assert.Equal(t, "https://pix.example/api/v1/gateway/pix/receive", calls[0].URL)
	assert.Equal(t, "https://pix.example/api/v1/pix/charge", calls[1].URL)
	assert.Equal(t, "Bearer sk-test", calls[1].Headers["Authorization"])
	assert.Equal(t, "acc-test", calls[1].Body["account_id"])
}

func TestGenerate_FirstFormatWins(t *testing.T) {
	transport := &fakeTransport{
		post: func(_ context.Context, _ transportCall) (json.RawMessage, error) {
			return json.RawMessage(`{"pix":{"base64":"IMG","code":"00020126"}}`), nil
		},
	}

	result, err := newNegotiator(transport, testCreds, time.Second).Generate(context.Background(), testPaymentRequest())
	require.NoError(t, err)

	assert.Equal(t, "format-1", result.Format)
	assert.Len(t, transport.Calls(), 1)

	identifier := transport.Calls()[0].Body["identifier"]
	assert.Equal(t, identifier, result.TransactionID, "generated id is the fallback transaction id")
	assert.True(t, strings.HasPrefix(result.TransactionID, "txid-"))
}

func TestGenerate_UnrecognizedResponsesExhaustAllFormats(t *testing.T) {
	transport := &fakeTransport{
		post: func(_ context.Context, _ transportCall) (json.RawMessage, error) {
			return json.RawMessage(`{"status":"pending"}`), nil
		},
	}

	_, err := newNegotiator(transport, testCreds, time.Second).Generate(context.Background(), testPaymentRequest())

	var pe *domain.ErrProvider
	require.True(t, errors.As(err, &pe))
	assert.Len(t, transport.Calls(), 3)
	assert.Empty(t, pe.Details)
	assert.Equal(t, domain.CredentialFlags{
		"publicKeyConfigured": true,
		"secretKeyConfigured": true,
		"accountIdConfigured": true,
	}, pe.Configured)
}

func TestGenerate_ExhaustedCarriesLastProviderError(t *testing.T) {
	attempt := 0
	transport := &fakeTransport{
		post: func(_ context.Context, _ transportCall) (json.RawMessage, error) {
			attempt++
			if attempt == 3 {
				return nil, &domain.ErrProvider{Provider: "vizzion", StatusCode: 422, Details: json.RawMessage(`{"message":"third"}`)}
			}
			return nil, rejected(`{"message":"earlier"}`)
		},
	}

	_, err := newNegotiator(transport, testCreds, time.Second).Generate(context.Background(), testPaymentRequest())

	var pe *domain.ErrProvider
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 422, pe.StatusCode)
	assert.JSONEq(t, `{"message":"third"}`, string(pe.Details))
	assert.NotContains(t, err.Error(), "sk-test")
}

func TestGenerate_SanitizesPhoneAndTaxID(t *testing.T) {
	transport := &fakeTransport{
		post: func(_ context.Context, _ transportCall) (json.RawMessage, error) {
			return nil, rejected(`{}`)
		},
	}

	_, _ = newNegotiator(transport, testCreds, time.Second).Generate(context.Background(), testPaymentRequest())

	calls := transport.Calls()
	require.Len(t, calls, 3)
	for _, call := range calls {
		party, ok := call.Body["client"].(map[string]any)
		if !ok {
			party = call.Body["customer"].(map[string]any)
		}
		assert.Equal(t, "11987654321", party["phone"])
		assert.Equal(t, "12345678900", party["document"])
	}
}

func TestGenerate_HeaderConventionsPerFormat(t *testing.T) {
	transport := &fakeTransport{
		post: func(_ context.Context, _ transportCall) (json.RawMessage, error) {
			return nil, rejected(`{}`)
		},
	}

	_, _ = newNegotiator(transport, testCreds, time.Second).Generate(context.Background(), testPaymentRequest())

	calls := transport.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "pk-test", calls[0].Headers["x-public-key"])
	assert.Equal(t, "sk-test", calls[0].Headers["x-secret-key"])
	assert.NotContains(t, calls[1].Headers, "x-public-key")
	assert.Equal(t, "pk-test", calls[2].Headers["X-Public-Key"])
	assert.Equal(t, "sk-test", calls[2].Headers["X-Secret-Key"])
}

func TestGenerate_MissingCredentials(t *testing.T) {
	transport := &fakeTransport{}
	creds := testCreds
	creds.SecretKey = ""

	_, err := newNegotiator(transport, creds, time.Second).Generate(context.Background(), testPaymentRequest())

	var cfgErr *domain.ErrConfiguration
	require.True(t, errors.As(err, &cfgErr))
	assert.False(t, cfgErr.Configured["secretKeyConfigured"])
	assert.True(t, cfgErr.Configured["publicKeyConfigured"])
	assert.Empty(t, transport.Calls())
}

func TestGenerate_SlowCandidateIsBoundedByTimeout(t *testing.T) {
	transport := &fakeTransport{
		post: func(ctx context.Context, call transportCall) (json.RawMessage, error) {
			if len(call.Headers["x-public-key"]) > 0 {
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return json.RawMessage(`{"base64":"IMG","qr_code":"00020126","id":"b-1"}`), nil
		},
	}

	start := time.Now()
	result, err := newNegotiator(transport, testCreds, 50*time.Millisecond).Generate(context.Background(), testPaymentRequest())
	require.NoError(t, err)

	assert.Equal(t, "format-2", result.Format)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestGenerate_IgnoresCallerCancellation(t *testing.T) {
	transport := &fakeTransport{
		post: func(ctx context.Context, _ transportCall) (json.RawMessage, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return json.RawMessage(`{"pix":{"base64":"IMG","code":"00020126"},"id":"p-1"}`), nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newNegotiator(transport, testCreds, time.Second).Generate(ctx, testPaymentRequest())
	require.NoError(t, err)
	assert.Equal(t, "p-1", result.TransactionID)
}

func TestNegotiator_Configured(t *testing.T) {
	flags := newNegotiator(&fakeTransport{}, domain.PixCredentials{PublicKey: "pk"}, time.Second).Configured()

	assert.True(t, flags["publicKeyConfigured"])
	assert.False(t, flags["secretKeyConfigured"])
	assert.False(t, flags["accountIdConfigured"])
}
