package service_test

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/boddenberg/storefront-payment-relay/internal/domain"
)

// --- Mocks ---

type transportCall struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    map[string]any
}

type fakeTransport struct {
	mu    sync.Mutex
	calls []transportCall
	post  func(ctx context.Context, call transportCall) (json.RawMessage, error)
	get   func(ctx context.Context, call transportCall) (json.RawMessage, error)
}

func (f *fakeTransport) record(call transportCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeTransport) Calls() []transportCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transportCall(nil), f.calls...)
}

func (f *fakeTransport) PostJSON(ctx context.Context, url string, headers map[string]string, body any) (json.RawMessage, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}

	call := transportCall{Method: "POST", URL: url, Headers: headers, Body: decoded}
	f.record(call)
	return f.post(ctx, call)
}

func (f *fakeTransport) GetJSON(ctx context.Context, url string, headers map[string]string) (json.RawMessage, error) {
	call := transportCall{Method: "GET", URL: url, Headers: headers}
	f.record(call)
	return f.get(ctx, call)
}

type fakeGateway struct {
	mu           sync.Mutex
	events       []string
	tokens       []string
	charges      []*domain.CardCharge
	grant        *domain.TokenGrant
	tokenErr     error
	chargeBody   json.RawMessage
	chargeErr    error
	unconfigured bool
}

func (f *fakeGateway) RequestToken(_ context.Context) (*domain.TokenGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "token")
	if f.tokenErr != nil {
		return nil, f.tokenErr
	}
	return f.grant, nil
}

func (f *fakeGateway) Charge(_ context.Context, accessToken string, charge *domain.CardCharge) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "charge")
	f.tokens = append(f.tokens, accessToken)
	f.charges = append(f.charges, charge)
	return f.chargeBody, f.chargeErr
}

func (f *fakeGateway) Configured() domain.CredentialFlags {
	return domain.CredentialFlags{
		"clientIdConfigured":     !f.unconfigured,
		"clientSecretConfigured": !f.unconfigured,
	}
}

func (f *fakeGateway) count(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e == event {
			n++
		}
	}
	return n
}
